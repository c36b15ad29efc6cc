package fileops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicWrite writes data to destPath through a temporary file in the same
// directory. Parent directories are created when missing. The temporary file
// is removed on any failure.
func AtomicWrite(destPath string, data []byte, perm os.FileMode) error {
	if err := EnsureDirectoryExists(filepath.Dir(destPath)); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	var done bool
	defer func() {
		if !done {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tempFile.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	done = true
	return nil
}

// AtomicCopy copies srcPath to destPath with the same guarantees as AtomicWrite.
// The destination keeps the source's permission bits.
func AtomicCopy(srcPath, destPath string) error {
	srcFile, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source is a directory: %s", srcPath)
	}

	data, err := io.ReadAll(srcFile)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	return AtomicWrite(destPath, data, info.Mode().Perm())
}

// EnsureDirectoryExists is mkdir -p with 0755 permissions.
func EnsureDirectoryExists(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
