package template

import (
	"os"
	"path/filepath"

	"aistack/pkg/fileops"
)

// RootCandidates lists where DetectRoot looks, in order: the working
// directory, its parent, then the conventional install location.
func (e *Engine) RootCandidates() []string {
	cwd, err := e.getwd()
	if err != nil {
		cwd = "."
	}
	candidates := []string{cwd, filepath.Dir(cwd)}
	if e.goos == "windows" {
		candidates = append(candidates, "C:/"+RootDirName)
	} else {
		candidates = append(candidates, fileops.ExpandPath("~/"+RootDirName))
	}
	return candidates
}

// DetectRoot returns the first candidate holding the marker file. Without a
// match it falls back to the parent of the working directory and returns a
// warning describing the fallback.
func (e *Engine) DetectRoot() (string, string) {
	candidates := e.RootCandidates()
	for _, dir := range candidates {
		if info, err := os.Stat(filepath.Join(dir, e.markerFile)); err == nil && !info.IsDir() {
			e.logger.Debug("Detected orchestration root", "root", dir)
			return dir, ""
		}
	}

	fallback := candidates[1]
	warning := "Could not detect " + RootDirName + " path, using parent directory " + fallback
	e.logger.Warn(warning)
	return fallback, warning
}
