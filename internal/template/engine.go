// Package template turns named server templates into resolved launch
// configurations for a workspace.
//
// A template store is a directory of <name>.json files with an optional
// custom/ subdirectory. Applying a template merges optional overrides,
// resolves placeholders per server type and writes .cursor/mcp.json together
// with an ACTIVE_MODE.txt status file.
package template

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/morikuni/failure/v2"

	"aistack/internal/errcode"
	"aistack/internal/logging"
	"aistack/internal/mcpconfig"
)

// DefaultMarkerFile identifies an orchestration root directory.
const DefaultMarkerFile = "mcp_intelligence_server.py"

// Engine applies templates from a single store.
type Engine struct {
	fsys       fs.FS
	logger     *logging.AppLogger
	markerFile string
	lookupEnv  func(string) (string, bool)
	getwd      func() (string, error)
	now        func() time.Time
	goos       string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for warnings.
func WithLogger(l *logging.AppLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMarkerFile changes the file name used to recognise the root.
func WithMarkerFile(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.markerFile = name
		}
	}
}

// WithLookupEnv replaces os.LookupEnv for ${VAR} resolution.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(e *Engine) { e.lookupEnv = fn }
}

// WithClock replaces time.Now for backup and status timestamps.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

// withWorkdir replaces os.Getwd and runtime.GOOS for root detection tests.
func withWorkdir(getwd func() (string, error), goos string) Option {
	return func(e *Engine) {
		e.getwd = getwd
		e.goos = goos
	}
}

// New creates an engine reading templates from fsys.
func New(fsys fs.FS, opts ...Option) *Engine {
	e := &Engine{
		fsys:       fsys,
		markerFile: DefaultMarkerFile,
		lookupEnv:  os.LookupEnv,
		getwd:      os.Getwd,
		now:        time.Now,
		goos:       runtime.GOOS,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.GetDefault()
	}
	return e
}

// NewFromDir creates an engine over a template directory, which must exist.
func NewFromDir(dir string, opts ...Option) (*Engine, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, failure.New(errcode.NotFound,
			failure.Message("Templates directory not found: "+dir),
			failure.Context{"dir": dir})
	}
	return New(os.DirFS(dir), opts...), nil
}

// ApplyOptions are the inputs of Apply.
type ApplyOptions struct {
	Template  string
	Workspace string
	// Root is the orchestration root. Detected when empty.
	Root      string
	Overrides *Overrides
	DryRun    bool
	// NoBackup skips the timestamped copy of an existing mcp.json.
	NoBackup bool
}

// ApplyResult reports what Apply produced.
type ApplyResult struct {
	Document mcpconfig.Document
	// Content is the serialized document, also returned on dry runs.
	Content    []byte
	Path       string
	BackupPath string
	// StatusPath is empty when the status file could not be written.
	StatusPath string
	Root       string
	Warnings   []string
}

// Apply resolves a template for a workspace and, unless DryRun is set,
// writes it to <workspace>/.cursor/mcp.json.
func (e *Engine) Apply(opts ApplyOptions) (ApplyResult, error) {
	start := time.Now()
	defer e.logger.LogPerformance("apply_template", start)

	raw, err := e.loadRaw(opts.Template)
	if err != nil {
		return ApplyResult{}, err
	}
	if opts.Overrides != nil {
		raw = mergeOverrides(raw, opts.Overrides)
	}
	tmpl, err := decodeTemplate(opts.Template, raw)
	if err != nil {
		return ApplyResult{}, err
	}

	workspace, err := filepath.Abs(opts.Workspace)
	if err != nil {
		return ApplyResult{}, failure.Wrap(err, failure.Context{"workspace": opts.Workspace})
	}

	var res ApplyResult
	root := opts.Root
	if root == "" {
		var warning string
		root, warning = e.DetectRoot()
		if warning != "" {
			res.Warnings = append(res.Warnings, warning)
		}
	} else if root, err = filepath.Abs(root); err != nil {
		return ApplyResult{}, failure.Wrap(err, failure.Context{"root": opts.Root})
	}
	res.Root = root

	doc, warnings, err := e.build(tmpl, workspace, root)
	if err != nil {
		return ApplyResult{}, err
	}
	res.Document = doc
	res.Warnings = append(res.Warnings, warnings...)

	content, err := doc.Marshal()
	if err != nil {
		return ApplyResult{}, err
	}
	res.Content = content
	if opts.DryRun {
		return res, nil
	}

	out, err := mcpconfig.Write(doc, mcpconfig.PathFor(workspace), mcpconfig.WriteOptions{
		Backup: !opts.NoBackup,
		Now:    e.now,
	})
	if err != nil {
		return ApplyResult{}, err
	}
	res.Path = out.Path
	res.BackupPath = out.BackupPath
	if out.BackupPath != "" {
		e.logger.Info("Backed up existing config", "backup", out.BackupPath)
	}
	e.logger.Info("Generated mcp.json", "path", out.Path)

	// The status file is informational; mcp.json is already in place.
	statusPath := filepath.Join(workspace, mcpconfig.ConfigDir, mcpconfig.StatusFile)
	if err := mcpconfig.WriteStatus(statusPath, opts.Template, workspace, e.now()); err != nil {
		e.logger.Warn("Could not record active template", "path", statusPath, "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("could not record active template in %s: %v", statusPath, err))
		return res, nil
	}
	res.StatusPath = statusPath
	return res, nil
}

// build resolves every enabled server into a document. Nothing is written here.
func (e *Engine) build(tmpl *Template, workspace, root string) (mcpconfig.Document, []string, error) {
	doc := mcpconfig.New()
	rc := newResolveContext(workspace, root)

	var warnings []string
	for _, spec := range tmpl.Servers {
		if !spec.IsEnabled() {
			continue
		}

		var (
			server mcpconfig.Server
			err    error
		)
		switch spec.Type {
		case Custom:
			server = e.buildCustom(spec, rc)
		case Community, "":
			server, err = e.buildCommunity(spec, rc)
			if w := e.missingEnvWarning(spec); w != "" {
				e.logger.Warn(w)
				warnings = append(warnings, w)
			}
		default:
			err = failure.New(errcode.InvalidFormat,
				failure.Message("Server '"+spec.Name+"' has unknown type '"+string(spec.Type)+"'"),
				failure.Context{"server": spec.Name})
		}
		if err != nil {
			return mcpconfig.Document{}, nil, err
		}

		doc.Set(spec.Name, server)
	}
	return doc, warnings, nil
}
