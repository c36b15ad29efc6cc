// Package workspace diagnoses whether a workspace is ready for the editor:
// paths, launch configuration references, launcher binaries and the local
// inference and vector services.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"aistack/internal/logging"
	"aistack/internal/mcpconfig"
	"aistack/internal/repository"
	"aistack/pkg/fileops"
)

// Status is the outcome of a single check.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusWarn Status = "WARN"
	StatusSkip Status = "SKIP"
)

// Check is one line of the doctor report.
type Check struct {
	Name    string   `json:"name"`
	Status  Status   `json:"status"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Report is the ordered list of checks for a workspace.
type Report struct {
	Workspace string  `json:"workspace"`
	Checks    []Check `json:"checks"`
}

// Passed is true when no check failed.
func (r Report) Passed() bool {
	return !lo.ContainsBy(r.Checks, func(c Check) bool { return c.Status == StatusFail })
}

// Count returns how many checks ended with status s.
func (r Report) Count(s Status) int {
	return lo.CountBy(r.Checks, func(c Check) bool { return c.Status == s })
}

// Options configures a Doctor.
type Options struct {
	Workspace string
	OllamaURL string
	QdrantURL string
	// Timeout bounds each service probe. Defaults to 2s.
	Timeout  time.Duration
	Client   *http.Client
	LookPath func(string) (string, error)
	Logger   *logging.AppLogger
}

// Doctor runs the workspace checks.
type Doctor struct {
	opts Options
}

// NewDoctor fills in defaults for unset options.
func NewDoctor(opts Options) *Doctor {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetDefault()
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Transport: opts.Logger.HTTPTransport(nil)}
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	return &Doctor{opts: opts}
}

// Run executes every check. Service probes run concurrently; everything else
// is sequential and cheap.
func (d *Doctor) Run(ctx context.Context) Report {
	workspace, err := filepath.Abs(d.opts.Workspace)
	if err != nil {
		workspace = d.opts.Workspace
	}
	report := Report{Workspace: workspace}

	pathChecks, usable := d.checkPaths(workspace)
	report.Checks = append(report.Checks, pathChecks...)

	if usable {
		report.Checks = append(report.Checks, d.checkConfig(workspace)...)
	} else {
		report.Checks = append(report.Checks, Check{Name: "mcp-config", Status: StatusSkip, Message: "Workspace unavailable"})
	}

	report.Checks = append(report.Checks, d.checkLaunchers()...)

	if usable {
		report.Checks = append(report.Checks, checkGit(workspace))
	}

	report.Checks = append(report.Checks, d.checkServices(ctx)...)
	return report
}

func (d *Doctor) checkPaths(workspace string) ([]Check, bool) {
	info, err := os.Stat(workspace)
	if err != nil {
		return []Check{{Name: "workspace", Status: StatusFail, Message: "Workspace does not exist: " + workspace}}, false
	}
	checks := []Check{{Name: "workspace", Status: StatusPass, Message: "Workspace exists: " + workspace}}

	if !info.IsDir() {
		return append(checks, Check{Name: "workspace-dir", Status: StatusFail, Message: "Workspace is not a directory: " + workspace}), false
	}
	checks = append(checks, Check{Name: "workspace-dir", Status: StatusPass, Message: "Workspace is a directory"})

	if _, err := os.ReadDir(workspace); err != nil {
		if os.IsPermission(err) {
			return append(checks, Check{Name: "workspace-readable", Status: StatusFail, Message: "Workspace is not readable (permission denied)"}), false
		}
		return append(checks, Check{Name: "workspace-readable", Status: StatusFail, Message: "Cannot read workspace: " + err.Error()}), false
	}
	return append(checks, Check{Name: "workspace-readable", Status: StatusPass, Message: "Workspace is readable"}), true
}

func (d *Doctor) checkConfig(workspace string) []Check {
	path := mcpconfig.PathFor(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		return []Check{{Name: "mcp-config", Status: StatusWarn, Message: "No MCP config found"}}
	}
	checks := []Check{{Name: "mcp-config", Status: StatusPass, Message: "Found MCP config: " + path}}

	doc, err := mcpconfig.Decode(trimBOM(data))
	if err != nil {
		return append(checks, Check{Name: "mcp-config-parse", Status: StatusWarn, Message: "Could not parse MCP config: " + err.Error()})
	}

	if server, ok := doc.MCPServers["code-intelligence"]; ok {
		checks = append(checks, intelligenceWorkspaceCheck(server.Args, workspace))
	}
	if server, ok := doc.MCPServers["filesystem"]; ok && len(server.Args) > 0 {
		checks = append(checks, filesystemCheck(server.Args[len(server.Args)-1], workspace))
	}
	return checks
}

func trimBOM(data []byte) []byte {
	return []byte(strings.TrimPrefix(string(data), "\uFEFF"))
}

func intelligenceWorkspaceCheck(args []string, workspace string) Check {
	const name = "code-intelligence-workspace"
	idx := lo.IndexOf(args, "--workspace")
	if idx >= 0 && idx+1 < len(args) {
		value := args[idx+1]
		switch {
		case strings.Contains(value, "${workspaceFolder}"):
			return Check{Name: name, Status: StatusPass, Message: "code-intelligence uses dynamic workspace: " + value}
		case referencesWorkspace(value, workspace):
			return Check{Name: name, Status: StatusWarn, Message: "code-intelligence uses hardcoded workspace: " + value,
				Details: []string{"Consider using ${workspaceFolder} for portability"}}
		}
	}
	return Check{Name: name, Status: StatusFail, Message: "code-intelligence missing --workspace argument"}
}

func filesystemCheck(allowed, workspace string) Check {
	const name = "filesystem-workspace"
	switch {
	case strings.Contains(allowed, "${workspaceFolder}"):
		return Check{Name: name, Status: StatusPass, Message: "filesystem uses dynamic workspace: " + allowed}
	case referencesWorkspace(allowed, workspace):
		return Check{Name: name, Status: StatusWarn, Message: "filesystem uses hardcoded path: " + allowed,
			Details: []string{"Consider using ${workspaceFolder} for portability"}}
	default:
		return Check{Name: name, Status: StatusFail, Message: "filesystem allowed directory mismatch",
			Details: []string{"Expected: " + workspace, "Got: " + allowed}}
	}
}

// referencesWorkspace reports whether value is workspace or a path inside it.
func referencesWorkspace(value, workspace string) bool {
	v, ws := fileops.SlashClean(value), strings.TrimSuffix(fileops.SlashClean(workspace), "/")
	if v == "" || ws == "" {
		return false
	}
	return v == ws || strings.HasPrefix(v, ws+"/")
}

// launcher is a binary some configured server needs. Any of names satisfies it.
type launcher struct {
	label string
	names []string
}

var launchers = []launcher{
	{label: "npx", names: []string{"npx"}},
	{label: "python", names: []string{"python", "python3"}},
	{label: "git", names: []string{"git"}},
}

func (d *Doctor) checkLaunchers() []Check {
	return lo.Map(launchers, func(l launcher, _ int) Check {
		for _, n := range l.names {
			if p, err := d.opts.LookPath(n); err == nil {
				return Check{Name: "launcher-" + l.label, Status: StatusPass, Message: fmt.Sprintf("%s found: %s", l.label, p)}
			}
		}
		return Check{Name: "launcher-" + l.label, Status: StatusWarn,
			Message: fmt.Sprintf("%s not found on PATH", l.label)}
	})
}

func checkGit(workspace string) Check {
	if repository.IsGitRepository(workspace) {
		c := Check{Name: "git-repository", Status: StatusPass, Message: "Workspace is a git repository"}
		if dirty, err := repository.HasUncommittedChanges(workspace); err == nil && dirty {
			c.Details = append(c.Details, "working tree has uncommitted changes")
		}
		return c
	}
	return Check{Name: "git-repository", Status: StatusWarn, Message: "Workspace is not a git repository; the git server will have nothing to serve"}
}

// checkServices probes the inference server and the vector database
// concurrently. A probe failure is reported as a warning, not an error.
func (d *Doctor) checkServices(ctx context.Context) []Check {
	probes := []func(context.Context) Check{d.probeOllama, d.probeQdrant}
	results := make([]Check, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(probes))
	for i, probe := range probes {
		g.Go(func() error {
			results[i] = probe(gctx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Doctor) probeOllama(ctx context.Context) Check {
	const name = "ollama"
	if d.opts.OllamaURL == "" {
		return Check{Name: name, Status: StatusSkip, Message: "Ollama URL not configured"}
	}
	var body struct {
		Models []json.RawMessage `json:"models"`
	}
	if err := d.getJSON(ctx, strings.TrimRight(d.opts.OllamaURL, "/")+"/api/tags", &body); err != nil {
		return Check{Name: name, Status: StatusWarn, Message: "Ollama unreachable at " + d.opts.OllamaURL, Details: []string{err.Error()}}
	}
	return Check{Name: name, Status: StatusPass, Message: fmt.Sprintf("Ollama reachable (%d models)", len(body.Models))}
}

func (d *Doctor) probeQdrant(ctx context.Context) Check {
	const name = "qdrant"
	if d.opts.QdrantURL == "" {
		return Check{Name: name, Status: StatusSkip, Message: "Qdrant URL not configured"}
	}
	var body struct {
		Result struct {
			Collections []json.RawMessage `json:"collections"`
		} `json:"result"`
	}
	if err := d.getJSON(ctx, strings.TrimRight(d.opts.QdrantURL, "/")+"/collections", &body); err != nil {
		return Check{Name: name, Status: StatusWarn, Message: "Qdrant unreachable at " + d.opts.QdrantURL, Details: []string{err.Error()}}
	}
	return Check{Name: name, Status: StatusPass, Message: fmt.Sprintf("Qdrant reachable (%d collections)", len(body.Result.Collections))}
}

func (d *Doctor) getJSON(ctx context.Context, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
