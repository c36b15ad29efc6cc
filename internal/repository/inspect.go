package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/samber/lo"
)

// ProjectMarkers are files that identify a project directory that is not a
// git checkout.
var ProjectMarkers = []string{"package.json", "requirements.txt", "go.mod", "pyproject.toml"}

// Info describes a directory considered for a workspace or a linked repository.
type Info struct {
	Path    string
	Name    string
	IsGit   bool
	Remote  string
	Markers []string
}

// IsProject reports whether the directory looks like a repository.
func (i Info) IsProject() bool {
	return i.IsGit || len(i.Markers) > 0
}

// Inspect examines path. It fails only when path is missing or is not a directory.
func Inspect(path string) (Info, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Info{}, fmt.Errorf("cannot resolve %s: %w", path, err)
	}

	st, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, fmt.Errorf("path does not exist: %s", abs)
		}
		return Info{}, fmt.Errorf("cannot access %s: %w", abs, err)
	}
	if !st.IsDir() {
		return Info{}, fmt.Errorf("path is not a directory: %s", abs)
	}

	info := Info{Path: abs, Name: filepath.Base(abs)}
	info.IsGit = IsGitRepository(abs)
	if info.IsGit {
		info.Remote, _ = RemoteURL(abs)
	}
	info.Markers = lo.Filter(ProjectMarkers, func(marker string, _ int) bool {
		_, err := os.Stat(filepath.Join(abs, marker))
		return err == nil
	})
	return info, nil
}

// IsGitRepository reports whether path is the root of a git repository.
func IsGitRepository(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

// RemoteURL returns the first URL of the origin remote.
func RemoteURL(repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return "", fmt.Errorf("directory is not a git repository: %s", repoPath)
		}
		return "", fmt.Errorf("cannot open git repository: %w", err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("cannot get origin remote: %w", err)
	}

	cfg := remote.Config()
	if cfg == nil || len(cfg.URLs) == 0 {
		return "", fmt.Errorf("no URLs configured for origin remote")
	}
	return cfg.URLs[0], nil
}

// ValidateRepoPath accepts an existing directory that is a git repository or
// carries one of ProjectMarkers.
func ValidateRepoPath(path string) (Info, error) {
	info, err := Inspect(path)
	if err != nil {
		return Info{}, err
	}
	if !info.IsProject() {
		return info, fmt.Errorf("not a repository (no .git or %v): %s", ProjectMarkers, info.Path)
	}
	return info, nil
}

// HasUncommittedChanges reports whether the worktree at repoPath differs
// from HEAD, untracked files included.
func HasUncommittedChanges(repoPath string) (bool, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return false, fmt.Errorf("failed to open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get working tree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get repository status: %w", err)
	}
	return !status.IsClean(), nil
}
