package mcpconfig

import (
	"fmt"
	"os"
	"time"

	"aistack/pkg/fileops"
)

// WriteOptions controls Write.
type WriteOptions struct {
	// Backup copies an existing file aside before it is replaced.
	Backup bool
	// Now overrides the clock used for backup names.
	Now func() time.Time
}

// WriteResult describes what Write did on disk.
type WriteResult struct {
	Path       string
	BackupPath string
	Bytes      int
}

// Write serializes doc and replaces path atomically. The document is fully
// encoded before anything on disk is touched.
func Write(doc Document, path string, opts WriteOptions) (WriteResult, error) {
	data, err := doc.Marshal()
	if err != nil {
		return WriteResult{}, err
	}

	res := WriteResult{Path: path, Bytes: len(data)}
	if opts.Backup {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		backup, err := fileops.BackupFile(path, now())
		if err != nil {
			return WriteResult{}, err
		}
		res.BackupPath = backup
	}

	if err := fileops.AtomicWrite(path, data, 0o644); err != nil {
		return WriteResult{}, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return res, nil
}

// WriteStatus writes the ACTIVE_MODE.txt sidecar next to the configuration.
func WriteStatus(path, template, workspace string, applied time.Time) error {
	content := fmt.Sprintf("Template: %s\nApplied: %s\nWorkspace: %s\n",
		template, applied.Format(time.RFC3339), workspace)
	if err := fileops.AtomicWrite(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
