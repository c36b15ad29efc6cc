package template

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/morikuni/failure/v2"

	"aistack/internal/errcode"
	"aistack/internal/logging"
	"aistack/internal/mcpconfig"
	"aistack/templates"
)

func mustJSON(t *testing.T, v any) *fstest.MapFile {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal fixture: %v", err)
	}
	return &fstest.MapFile{Data: data}
}

func newTestEngine(t *testing.T, fsys fstest.MapFS, env map[string]string) (*Engine, *bytes.Buffer) {
	t.Helper()
	logger, buf := logging.NewTestLogger()
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
	clock := func() time.Time { return time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC) }
	return New(fsys, WithLogger(logger), WithLookupEnv(lookup), WithClock(clock)), buf
}

func fsTemplate() map[string]any {
	return map[string]any{
		"name":        "fs",
		"description": "filesystem only",
		"servers": []any{
			map[string]any{
				"name": "fs",
				"type": "community",
				"config": map[string]any{
					"command": "npx",
					"args":    []any{"-y", "@x/server-filesystem", "${workspaceFolder}"},
				},
			},
		},
	}
}

func TestListTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"standard.json": mustJSON(t, map[string]any{"name": "standard", "description": "Recommended", "version": "1.0.0", "author": "team", "servers": []any{}}),
		"bare.json":     mustJSON(t, map[string]any{"servers": []any{}}),
		"broken.json":   &fstest.MapFile{Data: []byte("{nope")},
		"custom.json":   mustJSON(t, map[string]any{"name": "custom"}),
		"notes.txt":     &fstest.MapFile{Data: []byte("ignored")},
		"custom/mine.json": mustJSON(t, map[string]any{"name": "mine"}),
	}
	engine, logs := newTestEngine(t, fsys, nil)

	got, err := engine.ListTemplates()
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}

	want := []Summary{
		{ID: "bare", Name: "bare", Description: "No description", Version: "unknown", Author: "unknown", File: "bare.json"},
		{ID: "standard", Name: "standard", Description: "Recommended", Version: "1.0.0", Author: "team", File: "standard.json"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListTemplates mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "broken.json") {
		t.Errorf("Expected warning for malformed template, got: %s", logs.String())
	}
}

func TestListTemplates_Builtin(t *testing.T) {
	engine := New(templates.FS, WithLogger(func() *logging.AppLogger { l, _ := logging.NewTestLogger(); return l }()))

	got, err := engine.ListTemplates()
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}
	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"full", "minimal", "standard"}, names); diff != "" {
		t.Errorf("builtin templates mismatch (-want +got):\n%s", diff)
	}
	for _, s := range got {
		if err := engine.ValidateTemplate(s.ID); err != nil {
			t.Errorf("builtin template %s should be valid: %v", s.ID, err)
		}
	}
}

func TestLoadTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"fs.json":          mustJSON(t, fsTemplate()),
		"custom/team.json": mustJSON(t, map[string]any{"name": "team", "description": "d", "servers": []any{}}),
		"bad.json":         &fstest.MapFile{Data: []byte("[1,2")},
	}
	engine, _ := newTestEngine(t, fsys, nil)

	t.Run("top level", func(t *testing.T) {
		tmpl, err := engine.LoadTemplate("fs")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(tmpl.Servers) != 1 || tmpl.Servers[0].Type != Community {
			t.Errorf("Expected one community server, got %+v", tmpl.Servers)
		}
		if !tmpl.Servers[0].IsEnabled() {
			t.Error("Expected server to default to enabled")
		}
	})

	t.Run("custom fallback", func(t *testing.T) {
		tmpl, err := engine.LoadTemplate("team")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if tmpl.Name != "team" {
			t.Errorf("Expected team template, got %q", tmpl.Name)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := engine.LoadTemplate("missing")
		if !failure.Is(err, errcode.NotFound) {
			t.Errorf("Expected NotFound, got %v", err)
		}
	})

	t.Run("path traversal is not found", func(t *testing.T) {
		_, err := engine.LoadTemplate("../fs")
		if !failure.Is(err, errcode.NotFound) {
			t.Errorf("Expected NotFound, got %v", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := engine.LoadTemplate("bad")
		if !failure.Is(err, errcode.InvalidFormat) {
			t.Errorf("Expected InvalidFormat, got %v", err)
		}
	})
}

func TestNewFromDir(t *testing.T) {
	if _, err := NewFromDir(filepath.Join(t.TempDir(), "nope")); !failure.Is(err, errcode.NotFound) {
		t.Errorf("Expected NotFound for missing directory, got %v", err)
	}

	dir := t.TempDir()
	data, _ := json.Marshal(fsTemplate())
	if err := os.WriteFile(filepath.Join(dir, "fs.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	engine, err := NewFromDir(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := engine.LoadTemplate("fs"); err != nil {
		t.Errorf("Expected template to load from directory: %v", err)
	}
}

func TestApply_CommunityScenario(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX absolute paths")
	}
	engine, _ := newTestEngine(t, fstest.MapFS{"fs.json": mustJSON(t, fsTemplate())}, nil)

	res, err := engine.Apply(ApplyOptions{Template: "fs", Workspace: "/repo", Root: "/core", DryRun: true})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	want := []string{"-y", "@x/server-filesystem", "/repo"}
	if diff := cmp.Diff(want, res.Document.MCPServers["fs"].Args); diff != "" {
		t.Errorf("fs args mismatch (-want +got):\n%s", diff)
	}
	if res.Path != "" {
		t.Errorf("Dry run must not report a written path, got %q", res.Path)
	}
	if !strings.Contains(string(res.Content), `"/repo"`) {
		t.Errorf("Expected serialized content on dry run, got %s", res.Content)
	}
}

func TestApply_DryRunWritesNothing(t *testing.T) {
	workspace := t.TempDir()
	engine, _ := newTestEngine(t, fstest.MapFS{"fs.json": mustJSON(t, fsTemplate())}, nil)

	if _, err := engine.Apply(ApplyOptions{Template: "fs", Workspace: workspace, Root: workspace, DryRun: true}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workspace, mcpconfig.ConfigDir)); !os.IsNotExist(err) {
		t.Errorf("Dry run must not create %s", mcpconfig.ConfigDir)
	}
}

func TestApply_Idempotent(t *testing.T) {
	workspace := t.TempDir()
	engine, _ := newTestEngine(t, fstest.MapFS{"standard.json": mustJSON(t, map[string]any{
		"name": "standard", "description": "d",
		"servers": []any{
			map[string]any{
				"name": "code-intelligence", "type": "custom",
				"config": map[string]any{
					"args": []any{"/c", "python", "${workspaceFolder}/../AIStack-MCP/mcp_intelligence_server.py", "--workspace", "${workspaceFolder}"},
					"env":  map[string]any{"OLLAMA_URL": "http://localhost:11434", "QDRANT_URL": "http://localhost:6333"},
				},
			},
			map[string]any{
				"name": "git", "type": "community",
				"config": map[string]any{"command": "npx", "args": []any{"-y", "@modelcontextprotocol/server-git", "--repository", "${workspaceFolder}"}},
			},
		},
	})}, nil)
	opts := ApplyOptions{Template: "standard", Workspace: workspace, Root: workspace}

	first, err := engine.Apply(opts)
	if err != nil {
		t.Fatalf("first Apply failed: %v", err)
	}
	firstBytes, err := os.ReadFile(first.Path)
	if err != nil {
		t.Fatal(err)
	}

	second, err := engine.Apply(opts)
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	secondBytes, err := os.ReadFile(second.Path)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(firstBytes, secondBytes) {
		t.Errorf("Expected identical output on both runs:\n%s\n---\n%s", firstBytes, secondBytes)
	}
	if first.BackupPath != "" {
		t.Errorf("First run has nothing to back up, got %q", first.BackupPath)
	}
	if second.BackupPath == "" {
		t.Fatal("Expected second run to back up the previous file")
	}
	backup, err := os.ReadFile(second.BackupPath)
	if err != nil || !bytes.Equal(backup, firstBytes) {
		t.Errorf("Expected backup to hold the previous content (err=%v)", err)
	}

	status, err := os.ReadFile(second.StatusPath)
	if err != nil {
		t.Fatalf("Expected status file: %v", err)
	}
	for _, want := range []string{"Template: standard", "Applied: 2025-05-06T07:08:09Z", "Workspace: " + workspace} {
		if !strings.Contains(string(status), want) {
			t.Errorf("Expected status file to contain %q, got:\n%s", want, status)
		}
	}

	ci := second.Document.MCPServers["code-intelligence"]
	if ci.Command != DefaultCustomCommand {
		t.Errorf("Expected default command %q, got %q", DefaultCustomCommand, ci.Command)
	}
	wantScript := filepath.ToSlash(workspace) + "/mcp_intelligence_server.py"
	if ci.Args[2] != wantScript {
		t.Errorf("Expected script %q, got %q", wantScript, ci.Args[2])
	}
}

func TestApply_StatusFileFailureKeepsResult(t *testing.T) {
	workspace := t.TempDir()
	statusPath := filepath.Join(workspace, mcpconfig.ConfigDir, mcpconfig.StatusFile)
	if err := os.MkdirAll(statusPath, 0o755); err != nil {
		t.Fatal(err)
	}
	engine, logs := newTestEngine(t, fstest.MapFS{"fs.json": mustJSON(t, fsTemplate())}, nil)

	res, err := engine.Apply(ApplyOptions{Template: "fs", Workspace: workspace, Root: workspace})
	if err != nil {
		t.Fatalf("Expected Apply to succeed without the status file, got %v", err)
	}
	if res.Path != mcpconfig.PathFor(workspace) {
		t.Errorf("Expected path %q, got %q", mcpconfig.PathFor(workspace), res.Path)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("Expected mcp.json to be written: %v", err)
	}
	if res.StatusPath != "" {
		t.Errorf("Expected empty status path, got %q", res.StatusPath)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "could not record active template") {
		t.Errorf("Expected one status warning, got %v", res.Warnings)
	}
	if !strings.Contains(logs.String(), "Could not record active template") {
		t.Errorf("Expected a logged warning, got:\n%s", logs.String())
	}
}

func TestApply_NoBackup(t *testing.T) {
	workspace := t.TempDir()
	engine, _ := newTestEngine(t, fstest.MapFS{"fs.json": mustJSON(t, fsTemplate())}, nil)
	opts := ApplyOptions{Template: "fs", Workspace: workspace, Root: workspace, NoBackup: true}

	if _, err := engine.Apply(opts); err != nil {
		t.Fatal(err)
	}
	res, err := engine.Apply(opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.BackupPath != "" {
		t.Errorf("Expected no backup with NoBackup, got %q", res.BackupPath)
	}
}

func TestApply_Overrides(t *testing.T) {
	workspace := t.TempDir()
	base := fsTemplate()
	engine, _ := newTestEngine(t, fstest.MapFS{"fs.json": mustJSON(t, base)}, nil)

	plain, err := engine.Apply(ApplyOptions{Template: "fs", Workspace: workspace, Root: workspace, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("unknown server name is a no-op", func(t *testing.T) {
		res, err := engine.Apply(ApplyOptions{
			Template: "fs", Workspace: workspace, Root: workspace, DryRun: true,
			Overrides: &Overrides{Servers: []map[string]any{{"name": "ghost", "enabled": false}}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(plain.Content, res.Content) {
			t.Errorf("Expected unchanged output:\n%s\n---\n%s", plain.Content, res.Content)
		}
	})

	t.Run("matching override disables server", func(t *testing.T) {
		res, err := engine.Apply(ApplyOptions{
			Template: "fs", Workspace: workspace, Root: workspace, DryRun: true,
			Overrides: &Overrides{Servers: []map[string]any{{"name": "fs", "enabled": false}}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.Document.Has("fs") {
			t.Error("Expected disabled server to be omitted")
		}
	})

	t.Run("override replaces config wholesale", func(t *testing.T) {
		res, err := engine.Apply(ApplyOptions{
			Template: "fs", Workspace: workspace, Root: workspace, DryRun: true,
			Overrides: &Overrides{Servers: []map[string]any{{
				"name":   "fs",
				"config": map[string]any{"command": "bunx", "args": []any{"pkg"}},
			}}},
		})
		if err != nil {
			t.Fatal(err)
		}
		got := res.Document.MCPServers["fs"]
		if got.Command != "bunx" || len(got.Args) != 1 {
			t.Errorf("Expected override config, got %+v", got)
		}
	})
}

func TestApply_Errors(t *testing.T) {
	workspace := t.TempDir()
	fsys := fstest.MapFS{
		"nocmd.json": mustJSON(t, map[string]any{"name": "n", "description": "d", "servers": []any{
			map[string]any{"name": "pkg", "type": "community", "config": map[string]any{"args": []any{"x"}}},
		}}),
		"weird.json": mustJSON(t, map[string]any{"name": "w", "description": "d", "servers": []any{
			map[string]any{"name": "odd", "type": "plugin", "config": map[string]any{"command": "x"}},
		}}),
	}
	engine, _ := newTestEngine(t, fsys, nil)

	for _, name := range []string{"nocmd", "weird"} {
		t.Run(name, func(t *testing.T) {
			_, err := engine.Apply(ApplyOptions{Template: name, Workspace: workspace, Root: workspace})
			if !failure.Is(err, errcode.InvalidFormat) {
				t.Errorf("Expected InvalidFormat, got %v", err)
			}
			if _, statErr := os.Stat(mcpconfig.PathFor(workspace)); !os.IsNotExist(statErr) {
				t.Error("Nothing may be written when the build fails")
			}
		})
	}

	t.Run("missing template", func(t *testing.T) {
		_, err := engine.Apply(ApplyOptions{Template: "ghost", Workspace: workspace})
		if !failure.Is(err, errcode.NotFound) {
			t.Errorf("Expected NotFound, got %v", err)
		}
	})
}

func TestApply_RequiresEnvWarning(t *testing.T) {
	fsys := fstest.MapFS{"gh.json": mustJSON(t, map[string]any{"name": "gh", "description": "d", "servers": []any{
		map[string]any{
			"name": "github", "type": "community", "requires_env": []any{"GITHUB_TOKEN", "GITHUB_ORG"},
			"config": map[string]any{"command": "npx", "args": []any{"-y", "server-github"}, "env": map[string]any{"GITHUB_TOKEN": "${GITHUB_TOKEN}"}},
		},
	}})}
	engine, logs := newTestEngine(t, fsys, map[string]string{"GITHUB_ORG": "acme"})
	workspace := t.TempDir()

	res, err := engine.Apply(ApplyOptions{Template: "gh", Workspace: workspace, Root: workspace, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"Server 'github' requires environment variables: GITHUB_TOKEN"}
	if diff := cmp.Diff(want, res.Warnings); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "GITHUB_TOKEN") {
		t.Errorf("Expected warning to be logged, got: %s", logs.String())
	}
	if got := res.Document.MCPServers["github"].Env["GITHUB_TOKEN"]; got != "${GITHUB_TOKEN}" {
		t.Errorf("Unset variable must stay literal, got %q", got)
	}
}

func TestApply_DisabledServersOmitted(t *testing.T) {
	engine := New(templates.FS, WithLogger(func() *logging.AppLogger { l, _ := logging.NewTestLogger(); return l }()))
	workspace := t.TempDir()

	res, err := engine.Apply(ApplyOptions{Template: "full", Workspace: workspace, Root: workspace, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Document.Has("fetch") {
		t.Error("Expected disabled fetch server to be omitted")
	}
	if !res.Document.Has("github") || !res.Document.Has("memory") {
		t.Errorf("Expected enabled servers, got %v", res.Document.Names())
	}
}
