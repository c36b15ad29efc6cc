package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aistack/internal/config"
	"aistack/internal/logging"
	"aistack/internal/mcpconfig"
	"aistack/internal/registry"
	"aistack/internal/tui/buildwizard"
	"aistack/internal/workspace"
)

func testApp(t *testing.T) *app {
	t.Helper()
	logger, _ := logging.NewTestLogger()
	cfg := config.DefaultConfig()
	cfg.CacheDir = t.TempDir()
	return &app{cfg: cfg, logger: logger, configPath: filepath.Join(t.TempDir(), "config.yaml")}
}

// run executes the command tree with args and returns the exit code and output.
func run(t *testing.T, a *app, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(newRootCmd(a), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func projectDir(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module "+name+"\n"), 0o644))
	return dir
}

func TestRootCmd_Commands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"build", "template", "validate", "doctor", "registry", "mcp", "config"} {
		assert.Contains(t, names, want)
	}
	assert.True(t, root.SilenceUsage)
	assert.True(t, root.SilenceErrors)
}

func TestBuildSingle_ThenValidate(t *testing.T) {
	a := testApp(t)
	ws := projectDir(t, "api")

	code, out, stderr := run(t, a, "build", "--single", "--workspace", ws)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Wrote "+mcpconfig.PathFor(ws))
	assert.Contains(t, out, "  - code-intelligence")
	assert.FileExists(t, mcpconfig.PathFor(ws))

	code, out, _ = run(t, a, "validate", "--workspace", ws, "--strict")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Result: PASSED")
	assert.Contains(t, out, "Errors: 0, Warnings: 0")
}

func TestBuildSingle_BacksUpExisting(t *testing.T) {
	a := testApp(t)
	ws := projectDir(t, "api")

	code, _, _ := run(t, a, "build", "--single", "-w", ws)
	require.Equal(t, 0, code)
	code, out, _ := run(t, a, "build", "--single", "-w", ws)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Backed up previous config to "+mcpconfig.PathFor(ws)+".backup_")

	code, out, _ = run(t, a, "build", "--single", "-w", ws, "--no-backup")
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "Backed up")
}

func TestBuildMulti_RelativeReportsLinks(t *testing.T) {
	a := testApp(t)
	core := t.TempDir()
	api := projectDir(t, "api")
	web := projectDir(t, "web")

	var out bytes.Buffer
	err := runBuildWithIO(&out, a, buildOptions{multi: true, core: core, repos: []string{api, web}})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Wrote "+mcpconfig.PathFor(core))
	assert.Contains(t, out.String(), "not linked under workspaces/")
	assert.DirExists(t, filepath.Join(core, "workspaces"))
}

func TestBuildMulti_Link(t *testing.T) {
	a := testApp(t)
	core := t.TempDir()
	api := projectDir(t, "api")

	var out bytes.Buffer
	err := runBuildWithIO(&out, a, buildOptions{multi: true, core: core, repos: []string{api}, link: true})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Linked ")
	target, err := os.Readlink(filepath.Join(core, "workspaces", "api"))
	require.NoError(t, err)
	assert.Equal(t, api, target)
}

func TestBuildMulti_Absolute(t *testing.T) {
	a := testApp(t)
	core := t.TempDir()
	api := projectDir(t, "api")

	var out bytes.Buffer
	require.NoError(t, runBuildWithIO(&out, a, buildOptions{multi: true, core: core, repos: []string{api}, absolute: true}))
	assert.NotContains(t, out.String(), "workspaces/")
	assert.NoDirExists(t, filepath.Join(core, "workspaces"))
}

func TestBuildMulti_SpaceSeparatedRepos(t *testing.T) {
	a := testApp(t)
	core := t.TempDir()
	api := projectDir(t, "api")
	web := projectDir(t, "web")

	code, out, stderr := run(t, a, "build", "--multi", "--core", core, "--repos", api, web, "--no-backup")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Wrote "+mcpconfig.PathFor(core))

	data, err := os.ReadFile(mcpconfig.PathFor(core))
	require.NoError(t, err)
	assert.Contains(t, string(data), "workspaces/api")
	assert.Contains(t, string(data), "workspaces/web")

	code, _, stderr = run(t, a, "build", "--single", "--workspace", api, web)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "only accepted with --multi")
}

func TestBuildMulti_Errors(t *testing.T) {
	a := testApp(t)
	core := t.TempDir()

	var out bytes.Buffer
	err := runBuildWithIO(&out, a, buildOptions{multi: true, core: core})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one repository")

	err = runBuildWithIO(&out, a, buildOptions{multi: true, core: core, repos: []string{t.TempDir()}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a repository")
}

func TestBuild_FlagConflicts(t *testing.T) {
	a := testApp(t)
	code, _, stderr := run(t, a, "build", "--single", "--multi")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "mutually exclusive")
}

func TestBuild_NoModeOutsideTerminal(t *testing.T) {
	orig := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = orig })

	code, _, stderr := run(t, testApp(t), "build")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "choose --single or --multi")
}

func TestBuild_WizardResultIsUsed(t *testing.T) {
	ws := projectDir(t, "api")

	origTTY, origWizard := stdinIsTerminal, runWizard
	stdinIsTerminal = func() bool { return true }
	runWizard = func(*app) (buildwizard.Result, error) {
		return buildwizard.Result{Mode: buildwizard.ModeSingle, Workspace: ws}, nil
	}
	t.Cleanup(func() { stdinIsTerminal, runWizard = origTTY, origWizard })

	code, _, stderr := run(t, testApp(t), "build")
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, mcpconfig.PathFor(ws))
}

func TestBuild_WizardCancelled(t *testing.T) {
	origTTY, origWizard := stdinIsTerminal, runWizard
	stdinIsTerminal = func() bool { return true }
	runWizard = func(*app) (buildwizard.Result, error) {
		return buildwizard.Result{Cancelled: true}, nil
	}
	t.Cleanup(func() { stdinIsTerminal, runWizard = origTTY, origWizard })

	code, out, _ := run(t, testApp(t), "build")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Cancelled.")
}

func TestValidate_ExitCodes(t *testing.T) {
	a := testApp(t)

	t.Run("missing file", func(t *testing.T) {
		code, out, _ := run(t, a, "validate", "--workspace", t.TempDir())
		assert.Equal(t, 2, code)
		assert.Contains(t, out, "Config file not found")
	})

	t.Run("invalid json", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "mcp.json")
		require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o644))
		code, out, _ := run(t, a, "validate", "--file", file)
		assert.Equal(t, 1, code)
		assert.Contains(t, out, "Invalid JSON")
		assert.Contains(t, out, "Result: FAILED")
	})

	t.Run("warnings fail only in strict mode", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "mcp.json")
		doc := `{"mcpServers": {"tools": {"command": "python", "args": ["server.py"]}}}`
		require.NoError(t, os.WriteFile(file, []byte(doc), 0o644))

		code, out, _ := run(t, a, "validate", "--file", file)
		assert.Equal(t, 0, code)
		assert.Contains(t, out, "Errors: 0, Warnings: 1")

		code, _, _ = run(t, a, "validate", "--file", file, "--strict")
		assert.Equal(t, 1, code)
	})
}

func TestValidate_TestGeneration(t *testing.T) {
	var out bytes.Buffer
	code, err := runValidateWithIO(&out, validateOptions{testGeneration: true})
	require.NoError(t, err)
	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "generation: PASSED")
	assert.NotContains(t, out.String(), "FAILED")
}

func TestTemplateListAndShow(t *testing.T) {
	a := testApp(t)

	code, out, stderr := run(t, a, "template", "list")
	require.Equal(t, 0, code, stderr)
	for _, id := range []string{"minimal", "standard", "full"} {
		assert.Contains(t, out, id)
	}

	engine, err := a.engine()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, runTemplateShowWithIO(&buf, engine, "minimal", false))
	assert.Contains(t, buf.String(), "# minimal")
	assert.Contains(t, buf.String(), "| code-intelligence | custom | yes |")

	buf.Reset()
	require.NoError(t, runTemplateShowWithIO(&buf, engine, "minimal", true))
	assert.Contains(t, buf.String(), "code-intelligence")

	code, _, stderr = run(t, a, "template", "show", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Template not found: nope")
}

func TestTemplateValidate(t *testing.T) {
	code, out, _ := run(t, testApp(t), "template", "validate", "standard")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Template 'standard' is valid")
}

func TestTemplateApply(t *testing.T) {
	a := testApp(t)
	ws := projectDir(t, "api")
	root := t.TempDir()

	code, out, stderr := run(t, a, "template", "apply", "minimal", "-w", ws, "--root", root, "--dry-run")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, `"mcpServers"`)
	assert.NoFileExists(t, mcpconfig.PathFor(ws))

	code, out, stderr = run(t, a, "template", "apply", "minimal", "-w", ws, "--root", root)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Applied template 'minimal'")
	assert.FileExists(t, mcpconfig.PathFor(ws))
	assert.FileExists(t, filepath.Join(ws, mcpconfig.ConfigDir, mcpconfig.StatusFile))
}

func TestTemplatesDirFromConfig(t *testing.T) {
	a := testApp(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "team.json"),
		[]byte(`{"name": "team", "description": "Team servers", "version": "2.0.0", "servers": []}`), 0o644))
	a.cfg.TemplatesDir = dir

	code, out, _ := run(t, a, "template", "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Team servers (v2.0.0)")
	assert.NotContains(t, out, "minimal")
}

func TestDoctor(t *testing.T) {
	ws := projectDir(t, "api")
	var out bytes.Buffer
	logger, _ := logging.NewTestLogger()

	passed, err := runDoctorWithIO(context.Background(), &out, workspace.Options{
		Workspace: ws,
		LookPath:  func(name string) (string, error) { return "/usr/bin/" + name, nil },
		Logger:    logger,
	})
	require.NoError(t, err)
	assert.True(t, passed, out.String())
	assert.Contains(t, out.String(), "Workspace: "+ws)
	assert.Contains(t, out.String(), "No MCP config found")
	assert.Contains(t, out.String(), "failed")

	out.Reset()
	passed, err = runDoctorWithIO(context.Background(), &out, workspace.Options{
		Workspace: filepath.Join(ws, "missing"),
		LookPath:  func(name string) (string, error) { return "/usr/bin/" + name, nil },
		Logger:    logger,
	})
	require.NoError(t, err)
	assert.False(t, passed)
}

func registryStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/servers":
			_, _ = w.Write([]byte(`{"servers": [
				{"id": "weather", "name": "Weather", "description": "Forecasts", "packages": {"npm": "@example/weather"}},
				{"id": "notes", "name": "Notes", "runtime": "python", "packages": {"pypi": "notes-mcp"}}
			], "metadata": {"count": 2}}`))
		case "/servers/weather":
			_, _ = w.Write([]byte(`{"id": "weather", "name": "Weather", "version": "1.2.0", "tags": ["api"], "packages": {"npm": "@example/weather"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRegistrySearchAndInfo(t *testing.T) {
	a := testApp(t)
	a.cfg.RegistryURL = registryStub(t).URL

	code, out, stderr := run(t, a, "registry", "search")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "weather  [node]")
	assert.Contains(t, out, "notes  [python]")
	assert.Contains(t, out, "2 servers")

	code, out, stderr = run(t, a, "registry", "info", "weather")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Version:     1.2.0")
	assert.Contains(t, out, "Launch:      npx -y @example/weather")

	code, _, stderr = run(t, a, "registry", "info", "missing")
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, stderr)
}

func TestRegistryInstallListUninstall(t *testing.T) {
	a := testApp(t)
	a.cfg.RegistryURL = registryStub(t).URL
	ws := t.TempDir()

	code, out, stderr := run(t, a, "registry", "install", "weather", "-w", ws, "--env", "API_KEY=${WEATHER_KEY}")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Installed 'weather'")

	doc, err := mcpconfig.Read(mcpconfig.PathFor(ws))
	require.NoError(t, err)
	assert.Equal(t, "${WEATHER_KEY}", doc.MCPServers["weather"].Env["API_KEY"])

	_, out, _ = run(t, a, "registry", "list", "-w", ws)
	assert.Equal(t, "weather\n", out)

	code, out, _ = run(t, a, "registry", "uninstall", "weather", "-w", ws)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Removed 'weather'")

	_, out, _ = run(t, a, "registry", "list", "-w", ws)
	assert.Equal(t, "No servers installed.\n", out)

	code, _, stderr = run(t, a, "registry", "uninstall", "weather", "-w", ws)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not installed")
}

func TestRegistryClearCache(t *testing.T) {
	a := testApp(t)
	a.cfg.RegistryURL = registryStub(t).URL

	code, _, _ := run(t, a, "registry", "search")
	require.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(a.cfg.CacheDir, registry.CacheFile))

	code, out, _ := run(t, a, "registry", "clear-cache")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Registry cache cleared")
	assert.NoFileExists(t, filepath.Join(a.cfg.CacheDir, registry.CacheFile))
}

func TestParseEnvPairs(t *testing.T) {
	env, err := parseEnvPairs([]string{"A=1", "B=x=y", "C="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "C": ""}, env)

	env, err = parseEnvPairs(nil)
	require.NoError(t, err)
	assert.Nil(t, env)

	for _, bad := range []string{"NOEQUALS", "=value"} {
		_, err := parseEnvPairs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	a := testApp(t)

	code, out, stderr := run(t, a, "config", "init")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Wrote "+a.configPath)

	loaded, err := config.Load(a.configPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().RegistryURL, loaded.RegistryURL)

	code, _, stderr = run(t, a, "config", "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")

	code, _, _ = run(t, a, "config", "init", "--force")
	assert.Equal(t, 0, code)

	code, out, _ = run(t, a, "config", "show")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "# "+a.configPath+"\n"))
	assert.Contains(t, out, "registry_url: "+a.cfg.RegistryURL)
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("qdrant_url: http://qdrant.internal:6333\n"), 0o644))

	logger, _ := logging.NewTestLogger()
	a := &app{configPath: path, logger: logger}
	require.NoError(t, a.load())
	assert.Equal(t, "http://qdrant.internal:6333", a.cfg.QdrantURL)
}
