package fileops

import (
	"fmt"
	"os"
	"time"
)

// BackupTimeFormat is the timestamp layout appended to backup file names.
const BackupTimeFormat = "20060102_150405"

// BackupPath returns the backup name used for path at time t.
func BackupPath(path string, t time.Time) string {
	return fmt.Sprintf("%s.backup_%s", path, t.Format(BackupTimeFormat))
}

// BackupFile copies an existing file to its timestamped backup name and
// returns that name. When a backup from the same second already exists a
// _1, _2, ... suffix is added. It returns "" and no error when path does not
// exist.
func BackupFile(path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("cannot back up a directory: %s", path)
	}

	dest, err := freeBackupPath(path, now)
	if err != nil {
		return "", err
	}
	if err := AtomicCopy(path, dest); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", path, err)
	}
	return dest, nil
}

func freeBackupPath(path string, now time.Time) (string, error) {
	base := BackupPath(path, now)
	dest := base
	for i := 1; ; i++ {
		_, err := os.Lstat(dest)
		if os.IsNotExist(err) {
			return dest, nil
		}
		if err != nil {
			return "", fmt.Errorf("cannot access %s: %w", dest, err)
		}
		dest = fmt.Sprintf("%s_%d", base, i)
	}
}
