package builder

import (
	"time"

	"aistack/internal/logging"
	"aistack/internal/mcpconfig"
)

// WriteOptions controls Write.
type WriteOptions struct {
	Backup bool
	Now    func() time.Time
	Logger *logging.AppLogger
}

// Write stores a built document, copying any existing file to a timestamped
// backup first when Backup is set.
func Write(doc mcpconfig.Document, path string, opts WriteOptions) (mcpconfig.WriteResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}

	res, err := mcpconfig.Write(doc, path, mcpconfig.WriteOptions{Backup: opts.Backup, Now: opts.Now})
	if err != nil {
		logger.Error("Failed to write config", "path", path, "error", err)
		return res, err
	}
	if res.BackupPath != "" {
		logger.Info("Backed up existing config", "backup", res.BackupPath)
	}
	logger.Info("Generated config", "path", res.Path, "servers", len(doc.MCPServers))
	return res, nil
}
