package fileops

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ExpandPath replaces a leading "~/" with the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// SlashClean converts either separator style to forward slashes and removes
// redundant elements. A Windows drive prefix ("C:") is preserved.
func SlashClean(p string) string {
	if p == "" {
		return p
	}
	p = strings.ReplaceAll(p, `\`, "/")
	var volume string
	if len(p) >= 2 && p[1] == ':' {
		volume, p = p[:2], p[2:]
		if p == "" {
			return volume
		}
	}
	return volume + path.Clean(p)
}

// AbsSlash returns the absolute, cleaned, forward-slash form of path.
func AbsSlash(path string) (string, error) {
	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return filepath.ToSlash(abs), nil
}

// IsSymlink reports whether path is a symbolic link, without following it.
func IsSymlink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat path: %w", err)
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}

// CreateSymlink links linkPath to target, creating parent directories.
// The target must exist.
func CreateSymlink(target, linkPath string) error {
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("symlink target does not exist: %s", target)
	}
	if err := EnsureDirectoryExists(filepath.Dir(linkPath)); err != nil {
		return err
	}
	if err := os.Symlink(target, linkPath); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	return nil
}

// ValidateFileSizeLimit fails when filePath is missing, a directory, or larger than maxSize bytes.
func ValidateFileSizeLimit(filePath string, maxSize int64) error {
	if maxSize <= 0 {
		return fmt.Errorf("invalid size limit: %d", maxSize)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filepath.Base(filePath))
		}
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}
	if info.Size() > maxSize {
		return fmt.Errorf("file size %d bytes exceeds limit %d bytes", info.Size(), maxSize)
	}
	return nil
}
