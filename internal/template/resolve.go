package template

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"

	"aistack/internal/errcode"
	"aistack/internal/mcpconfig"
	"aistack/pkg/fileops"
)

type resolveContext struct {
	workspace string
	root      string
	sameDir   bool
}

func newResolveContext(workspace, root string) resolveContext {
	return resolveContext{
		workspace: workspace,
		root:      root,
		sameDir:   canonical(workspace) == canonical(root),
	}
}

func canonical(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return filepath.Clean(resolved)
	}
	return filepath.Clean(p)
}

// argRule rewrites one argument. Rules run in slice order and each sees the
// output of the previous one.
type argRule struct {
	name  string
	apply func(arg string, rc resolveContext) string
}

// customArgRules is the resolution pipeline for custom servers. The compound
// token must be handled before the bare workspace token, otherwise the
// workspace substitution would leave a dangling "/../AIStack-MCP".
var customArgRules = []argRule{
	{name: "compound-root", apply: resolveCompoundRoot},
	{name: "workspace-folder", apply: resolveWorkspaceFolder},
	{name: "relative-root", apply: resolveRelativeRoot},
	{name: "normalize-path", apply: normalizePathArg},
}

func resolveCompoundRoot(arg string, rc resolveContext) string {
	if !strings.Contains(arg, CompoundToken) {
		return arg
	}
	if rc.sameDir {
		return strings.ReplaceAll(arg, CompoundToken, rc.root)
	}
	sibling := filepath.Clean(filepath.Join(rc.workspace, "..", RootDirName))
	return strings.ReplaceAll(arg, CompoundToken, sibling)
}

func resolveWorkspaceFolder(arg string, rc resolveContext) string {
	return strings.ReplaceAll(arg, WorkspaceToken, rc.workspace)
}

func resolveRelativeRoot(arg string, rc resolveContext) string {
	if !strings.Contains(arg, RelativeRoot) || strings.Contains(arg, WorkspaceToken) {
		return arg
	}
	return strings.ReplaceAll(arg, RelativeRoot, rc.root)
}

// normalizePathArg rewrites path-like arguments with forward slashes. URLs
// are left alone since cleaning would collapse "//".
func normalizePathArg(arg string, _ resolveContext) string {
	if !strings.ContainsAny(arg, `/\`) || strings.Contains(arg, "://") {
		return arg
	}
	return fileops.SlashClean(arg)
}

func resolveCustomArgs(args []string, rc resolveContext) []string {
	return lo.Map(args, func(arg string, _ int) string {
		for _, rule := range customArgRules {
			arg = rule.apply(arg, rc)
		}
		return arg
	})
}

func resolveCommunityArgs(args []string, rc resolveContext) []string {
	return lo.Map(args, func(arg string, _ int) string {
		if arg == WorkspaceToken {
			return rc.workspace
		}
		return arg
	})
}

// resolveEnv replaces values of exactly "${NAME}" with the variable's value.
// Unset variables keep the literal placeholder.
func (e *Engine) resolveEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for key, value := range env {
		out[key] = value
		if len(value) > 3 && strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			if v, ok := e.lookupEnv(value[2 : len(value)-1]); ok {
				out[key] = v
			}
		}
	}
	return out
}

func (e *Engine) buildCustom(spec ServerSpec, rc resolveContext) mcpconfig.Server {
	cfg := lo.FromPtrOr(spec.Config, ServerConfig{})
	command := cfg.Command
	if command == "" {
		command = DefaultCustomCommand
	}
	return mcpconfig.Server{
		Command: command,
		Args:    resolveCustomArgs(cfg.Args, rc),
		Env:     e.resolveEnv(cfg.Env),
	}
}

func (e *Engine) buildCommunity(spec ServerSpec, rc resolveContext) (mcpconfig.Server, error) {
	cfg := lo.FromPtrOr(spec.Config, ServerConfig{})
	if cfg.Command == "" {
		return mcpconfig.Server{}, failure.New(errcode.InvalidFormat,
			failure.Message("Server '"+spec.Name+"' has no command"),
			failure.Context{"server": spec.Name})
	}
	return mcpconfig.Server{
		Command: cfg.Command,
		Args:    resolveCommunityArgs(cfg.Args, rc),
		Env:     e.resolveEnv(cfg.Env),
	}, nil
}

func (e *Engine) missingEnvWarning(spec ServerSpec) string {
	missing := lo.Filter(spec.RequiresEnv, func(name string, _ int) bool {
		_, ok := e.lookupEnv(name)
		return !ok
	})
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("Server '%s' requires environment variables: %s",
		spec.Name, strings.Join(missing, ", "))
}
