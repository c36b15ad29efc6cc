package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"aistack/pkg/fileops"
)

// LinkStatus reports whether a repository is reachable under <core>/workspaces.
type LinkStatus struct {
	Repo     string
	Name     string
	LinkPath string
	Linked   bool
	// Symlink is false when the entry is a plain directory rather than a link.
	Symlink bool
	// Created is set when PrepareWorkspaces made the link itself.
	Created bool
	// Command is the shell command that would create a missing link.
	Command string
}

// PrepareOptions controls PrepareWorkspaces.
type PrepareOptions struct {
	// CreateLinks makes symlinks for unlinked repositories.
	CreateLinks bool
	// GOOS selects the link command syntax. Defaults to runtime.GOOS.
	GOOS string
}

// PrepareWorkspaces ensures <core>/workspaces exists and reports, per
// repository, whether an entry with the repository's name is present there.
func PrepareWorkspaces(core string, repos []string, opts PrepareOptions) ([]LinkStatus, error) {
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	dir := filepath.Join(core, WorkspacesDir)
	if err := fileops.EnsureDirectoryExists(dir); err != nil {
		return nil, err
	}

	statuses := make([]LinkStatus, 0, len(repos))
	for _, repo := range repos {
		name := RepoName(repo)
		st := LinkStatus{
			Repo:     repo,
			Name:     name,
			LinkPath: filepath.Join(dir, name),
		}

		if _, err := os.Lstat(st.LinkPath); err == nil {
			st.Linked = true
			st.Symlink, _ = fileops.IsSymlink(st.LinkPath)
			statuses = append(statuses, st)
			continue
		}

		st.Command = LinkCommand(goos, st.LinkPath, repo)
		if opts.CreateLinks {
			if err := fileops.CreateSymlink(repo, st.LinkPath); err != nil {
				return statuses, fmt.Errorf("failed to link %s: %w", name, err)
			}
			st.Linked, st.Symlink, st.Created = true, true, true
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// LinkCommand returns the command that links target to repo on goos.
func LinkCommand(goos, target, repo string) string {
	if goos == "windows" {
		return fmt.Sprintf(`cmd /c mklink /D "%s" "%s"`, target, repo)
	}
	return fmt.Sprintf(`ln -s "%s" "%s"`, repo, target)
}
