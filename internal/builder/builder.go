// Package builder generates launch configurations for the two fixed
// topologies without going through a template: one workspace, or an
// orchestration root that serves several repositories.
package builder

import (
	"fmt"
	"path"
	"strings"

	"github.com/morikuni/failure/v2"

	"aistack/internal/errcode"
	"aistack/internal/mcpconfig"
	"aistack/pkg/fileops"
)

// Server ids produced by the builder.
const (
	IntelligenceServer    = "code-intelligence"
	FilesystemServer      = "filesystem"
	GitServer             = "git"
	GitMultiServer        = "git-multi"
	FilesystemMultiServer = "filesystem-multi"
)

const (
	// ScriptName is the intelligence server entry point inside the root.
	ScriptName = "mcp_intelligence_server.py"
	// WorkspacesDir is where repositories are linked under the root in relative mode.
	WorkspacesDir = "workspaces"

	DefaultOllamaURL = "http://localhost:11434"
	DefaultQdrantURL = "http://localhost:6333"

	workspaceToken = "${workspaceFolder}"
	filesystemPkg  = "@modelcontextprotocol/server-filesystem"
	gitPkg         = "@modelcontextprotocol/server-git"
)

// Options controls BuildMulti.
type Options struct {
	// Absolute addresses repositories by their real path instead of
	// ${workspaceFolder}/workspaces/<name>.
	Absolute bool
}

func intelligenceEnv() map[string]string {
	return map[string]string{
		"OLLAMA_URL": DefaultOllamaURL,
		"QDRANT_URL": DefaultQdrantURL,
	}
}

func intelligenceServer(script, workspace string) mcpconfig.Server {
	return mcpconfig.Server{
		Command: "cmd",
		Args:    []string{"/c", "python", script, "--workspace", workspace},
		Env:     intelligenceEnv(),
	}
}

// BuildSingle returns the single-workspace document. Every path is the
// literal ${workspaceFolder} so the file stays portable; the workspace only
// decides where the caller writes it.
func BuildSingle(workspace string) mcpconfig.Document {
	doc := mcpconfig.New()
	doc.Set(IntelligenceServer, intelligenceServer(workspaceToken+`\`+ScriptName, workspaceToken))
	doc.Set(FilesystemServer, mcpconfig.Server{
		Command: "npx",
		Args:    []string{"-y", filesystemPkg, workspaceToken},
	})
	doc.Set(GitServer, mcpconfig.Server{
		Command: "npx",
		Args:    []string{"-y", gitPkg, "--repository", workspaceToken},
	})
	return doc
}

// SanitizeID lowercases name and replaces spaces and dots with hyphens.
func SanitizeID(name string) string {
	return strings.NewReplacer(" ", "-", ".", "-").Replace(strings.ToLower(name))
}

// RepoName returns the directory name of a repository path in either separator style.
func RepoName(repo string) string {
	return path.Base(fileops.SlashClean(repo))
}

// BuildMulti returns the orchestration document for core serving repos, in
// the order given. Two repositories whose names sanitize to the same id are
// rejected with a Conflict error.
func BuildMulti(core string, repos []string, opts Options) (mcpconfig.Document, error) {
	if len(repos) == 0 {
		return mcpconfig.Document{}, failure.New(errcode.InvalidFormat,
			failure.Message("multi-repo mode needs at least one repository"))
	}

	script := workspaceToken + `\` + ScriptName
	if opts.Absolute {
		absCore, err := fileops.AbsSlash(core)
		if err != nil {
			return mcpconfig.Document{}, failure.Wrap(err, failure.Context{"core": core})
		}
		script = absCore + "/" + ScriptName
	}

	gitArgs := []string{"-y", gitPkg}
	fsArgs := []string{"-y", filesystemPkg}
	owners := map[string]string{}
	doc := mcpconfig.New()

	for _, repo := range repos {
		name := RepoName(repo)
		target := workspaceToken + "/" + WorkspacesDir + "/" + name
		if opts.Absolute {
			abs, err := fileops.AbsSlash(repo)
			if err != nil {
				return mcpconfig.Document{}, failure.Wrap(err, failure.Context{"repo": repo})
			}
			target = abs
		}

		id := IntelligenceServer + "-" + SanitizeID(name)
		if prev, taken := owners[id]; taken {
			return mcpconfig.Document{}, failure.New(errcode.Conflict,
				failure.Message(fmt.Sprintf("repositories %q and %q both produce server id %q; rename one of them", prev, repo, id)),
				failure.Context{"id": id})
		}
		owners[id] = repo

		gitArgs = append(gitArgs, "--repository", target)
		fsArgs = append(fsArgs, target)
		doc.Set(id, intelligenceServer(script, target))
	}

	doc.Set(GitMultiServer, mcpconfig.Server{Command: "npx", Args: gitArgs})
	doc.Set(FilesystemMultiServer, mcpconfig.Server{Command: "npx", Args: fsArgs})
	return doc, nil
}
