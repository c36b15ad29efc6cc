// Package validation performs static checks on a resolved launch
// configuration. Checks never stop at the first problem: every finding is
// collected so a single run reports everything.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Level is the severity of a finding.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Finding is one validation result. Path names the server it concerns, if any.
type Finding struct {
	Level   Level  `json:"level"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	prefix := map[Level]string{LevelError: "✗", LevelWarning: "⚠", LevelInfo: "ℹ"}[f.Level]
	if f.Path != "" {
		return fmt.Sprintf("%s [%s] %s", prefix, f.Path, f.Message)
	}
	return fmt.Sprintf("%s %s", prefix, f.Message)
}

// Report holds every finding of a validation run.
type Report struct {
	File     string    `json:"file,omitempty"`
	Findings []Finding `json:"findings"`
}

func (r *Report) add(level Level, path, msg string) {
	r.Findings = append(r.Findings, Finding{Level: level, Path: path, Message: msg})
}

// Count returns the number of findings at level.
func (r Report) Count(level Level) int {
	return lo.CountBy(r.Findings, func(f Finding) bool { return f.Level == level })
}

// Filter returns the findings at level.
func (r Report) Filter(level Level) []Finding {
	return lo.Filter(r.Findings, func(f Finding, _ int) bool { return f.Level == level })
}

// Passed is true when there are no errors, and in strict mode no warnings.
func (r Report) Passed(strict bool) bool {
	if r.Count(LevelError) > 0 {
		return false
	}
	return !strict || r.Count(LevelWarning) == 0
}

// ValidateDocument checks a decoded mcp.json object.
func ValidateDocument(raw map[string]any) Report {
	var r Report

	value, ok := raw["mcpServers"]
	if !ok {
		r.add(LevelError, "", "Missing 'mcpServers' key")
		return r
	}
	servers, ok := value.(map[string]any)
	if !ok {
		r.add(LevelError, "", "'mcpServers' must be an object")
		return r
	}
	// An empty mapping is well formed, so it fails only under --strict.
	if len(servers) == 0 {
		r.add(LevelWarning, "", "No MCP servers defined")
	}

	names := lo.Keys(servers)
	sort.Strings(names)
	for _, name := range names {
		server, ok := servers[name].(map[string]any)
		if !ok {
			r.add(LevelError, name, "Server entry must be an object")
			continue
		}
		validateServer(&r, name, server)
	}

	validateModeConsistency(&r, names)
	return r
}

func validateServer(r *Report, name string, server map[string]any) {
	lower := strings.ToLower(name)

	command, hasCommand := server["command"]
	if !hasCommand {
		r.add(LevelError, name, "Missing 'command' field")
	} else if s, ok := command.(string); !ok || s == "" {
		r.add(LevelError, name, "'command' must be a non-empty string")
	} else if s == "python" {
		r.add(LevelWarning, name, "Use 'cmd /c python' on Windows for STDIO compatibility")
	}

	var args []any
	if value, ok := server["args"]; !ok {
		r.add(LevelError, name, "Missing 'args' field")
	} else if list, ok := value.([]any); !ok {
		r.add(LevelError, name, "'args' must be an array")
	} else {
		args = list
	}

	joined := strings.Join(lo.Map(args, func(a any, _ int) string { return fmt.Sprint(a) }), " ")
	if !strings.Contains(joined, "${workspaceFolder}") &&
		(strings.Contains(lower, "workspace") || strings.Contains(lower, "intelligence")) {
		r.add(LevelInfo, name, "Consider using ${workspaceFolder} for portability")
	}

	env := map[string]any{}
	if value, ok := server["env"]; ok {
		m, ok := value.(map[string]any)
		if !ok {
			r.add(LevelError, name, "'env' must be an object")
			return
		}
		env = m
	}
	if strings.Contains(lower, "code-intelligence") {
		for _, key := range []string{"OLLAMA_URL", "QDRANT_URL"} {
			if _, ok := env[key]; !ok {
				r.add(LevelWarning, name, "Missing "+key+" environment variable")
			}
		}
	}
}

func validateModeConsistency(r *Report, names []string) {
	has := func(n string) bool { return lo.Contains(names, n) }

	if has("git-multi") && has("git") {
		r.add(LevelWarning, "", "Both 'git' and 'git-multi' defined - possible mode conflict")
	}
	if has("filesystem-multi") && has("filesystem") {
		r.add(LevelWarning, "", "Both 'filesystem' and 'filesystem-multi' defined - possible mode conflict")
	}

	if has("git-multi") || has("filesystem-multi") {
		intelligence := lo.Filter(names, func(n string, _ int) bool {
			return strings.Contains(strings.ToLower(n), "intelligence")
		})
		if len(intelligence) == 1 && intelligence[0] == "code-intelligence" {
			r.add(LevelInfo, "", "Multi-repo mode detected but only one intelligence server")
		}
	}
}
