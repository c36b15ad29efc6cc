package registry

import (
	"context"
	"fmt"
	"os/exec"
	"path"
	"sort"
	"time"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"

	"aistack/internal/errcode"
	"aistack/internal/logging"
	"aistack/internal/mcpconfig"
)

// ServerSource resolves registry ids. *Client implements it.
type ServerSource interface {
	GetServer(ctx context.Context, id string) (Result[*Server], error)
}

// Installer edits the mcp.json of one workspace.
type Installer struct {
	Source    ServerSource
	Workspace string
	// Backup copies mcp.json aside before every change.
	Backup   bool
	Now      func() time.Time
	LookPath func(string) (string, error)
	Logger   *logging.AppLogger
}

// InstallOptions controls Install.
type InstallOptions struct {
	Env      map[string]string
	Disabled bool
}

// InstallResult describes the entry Install wrote.
type InstallResult struct {
	Name     string
	Server   mcpconfig.Server
	Path     string
	Degraded bool
	Warnings []string
}

func (i *Installer) logger() *logging.AppLogger {
	if i.Logger == nil {
		return logging.GetDefault()
	}
	return i.Logger
}

func (i *Installer) configPath() string {
	return mcpconfig.PathFor(i.Workspace)
}

// Install fetches id from the registry and adds or replaces its entry.
func (i *Installer) Install(ctx context.Context, id string, opts InstallOptions) (InstallResult, error) {
	res, err := i.Source.GetServer(ctx, id)
	if err != nil {
		return InstallResult{}, err
	}
	meta := res.Value

	entry, launcher, err := LaunchEntry(*meta, opts.Env)
	if err != nil {
		return InstallResult{}, err
	}
	entry.Disabled = opts.Disabled

	result := InstallResult{Name: meta.ConfigName(), Server: entry, Path: i.configPath(), Degraded: res.IsDegraded()}
	if i.lookPath(launcher) != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s not found on PATH; the server will not start until it is installed", launcher))
	}
	if meta.RuntimeOrDefault() == RuntimePython {
		result.Warnings = append(result.Warnings, "install the package first: pip install "+meta.Packages.Pypi)
	}

	doc, err := i.load()
	if err != nil {
		return InstallResult{}, err
	}
	doc.Set(result.Name, entry)
	if err := i.save(doc); err != nil {
		return InstallResult{}, err
	}

	i.logger().Info("Installed registry server", "id", id, "name", result.Name, "disabled", opts.Disabled)
	return result, nil
}

// Uninstall removes name from mcp.json. A missing file or name is NotFound.
func (i *Installer) Uninstall(name string) error {
	doc, err := mcpconfig.Read(i.configPath())
	if err != nil {
		return err
	}
	if !doc.Remove(name) {
		return failure.New(errcode.NotFound,
			failure.Message(fmt.Sprintf("server '%s' is not installed", name)),
			failure.Context{"name": name})
	}
	if err := i.save(doc); err != nil {
		return err
	}
	i.logger().Info("Removed server", "name", name)
	return nil
}

// Installed lists the server names in mcp.json, sorted. A missing file is
// an empty list.
func (i *Installer) Installed() ([]string, error) {
	doc, err := mcpconfig.Read(i.configPath())
	if err != nil {
		if failure.Is(err, errcode.NotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	return doc.Names(), nil
}

func (i *Installer) load() (mcpconfig.Document, error) {
	doc, err := mcpconfig.Read(i.configPath())
	if failure.Is(err, errcode.NotFound) {
		return mcpconfig.New(), nil
	}
	return doc, err
}

func (i *Installer) save(doc mcpconfig.Document) error {
	_, err := mcpconfig.Write(doc, i.configPath(), mcpconfig.WriteOptions{Backup: i.Backup, Now: i.Now})
	return err
}

func (i *Installer) lookPath(name string) error {
	lp := i.LookPath
	if lp == nil {
		lp = exec.LookPath
	}
	_, err := lp(name)
	return err
}

// LaunchEntry translates registry metadata into an mcp.json entry and also
// returns the launcher binary it needs.
func LaunchEntry(s Server, env map[string]string) (mcpconfig.Server, string, error) {
	missing := func(kind string) error {
		return failure.New(errcode.InvalidFormat,
			failure.Message(fmt.Sprintf("server '%s' has no %s package", s.ID, kind)),
			failure.Context{"id": s.ID})
	}

	switch runtime := s.RuntimeOrDefault(); runtime {
	case RuntimeNode:
		if s.Packages.Npm == "" {
			return mcpconfig.Server{}, "", missing("npm")
		}
		return mcpconfig.Server{Command: "npx", Args: []string{"-y", s.Packages.Npm}, Env: emptyToNil(env)}, "npx", nil

	case RuntimePython:
		if s.Packages.Pypi == "" {
			return mcpconfig.Server{}, "", missing("PyPI")
		}
		module := s.Command
		if module == "" {
			module = path.Base(s.Packages.Pypi)
		}
		return mcpconfig.Server{
			Command: "python",
			Args:    []string{"-m", module, "--workspace", "${workspaceFolder}"},
			Env:     emptyToNil(env),
		}, "python", nil

	case RuntimeDocker:
		if s.Packages.Docker == "" {
			return mcpconfig.Server{}, "", missing("Docker")
		}
		args := []string{"run", "-i", "--rm"}
		keys := lo.Keys(env)
		sort.Strings(keys)
		for _, k := range keys {
			args = append(args, "-e", k+"="+env[k])
		}
		return mcpconfig.Server{Command: "docker", Args: append(args, s.Packages.Docker)}, "docker", nil

	default:
		return mcpconfig.Server{}, "", failure.New(errcode.InvalidFormat,
			failure.Message(fmt.Sprintf("unsupported runtime '%s' for server '%s'", runtime, s.ID)),
			failure.Context{"id": s.ID, "runtime": runtime})
	}
}

func emptyToNil(env map[string]string) map[string]string {
	if len(env) == 0 {
		return nil
	}
	return env
}
