// Package fileops provides the small set of file operations aistack relies on
// when it writes launch configurations.
//
// Writes are atomic: content goes to a sibling temporary file which is synced
// and then renamed over the destination, so a reader sees either the old or
// the new document and never a partial one.
//
//	if _, err := fileops.BackupFile(path, time.Now()); err != nil {
//	    return err
//	}
//	if err := fileops.AtomicWrite(path, data, 0o644); err != nil {
//	    return err
//	}
//
// Backups are timestamped copies next to the original
// (mcp.json.backup_20250101_120000). Path helpers expand "~/" and produce
// forward-slash paths, which is the form that editors accept on every
// platform.
package fileops
