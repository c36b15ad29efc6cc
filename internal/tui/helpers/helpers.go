package helpers

import (
	"aistack/internal/config"
	"aistack/internal/logging"
)

// UIContext carries environment information needed for creating UI models.
type UIContext struct {
	Width  int
	Height int
	Config *config.Config
	Logger *logging.AppLogger
	// Workdir seeds path prompts; usually the current directory.
	Workdir string
}

// NewUIContext creates a new UI context with the provided parameters.
func NewUIContext(width, height int, cfg *config.Config, logger *logging.AppLogger) UIContext {
	return UIContext{
		Width:  width,
		Height: height,
		Config: cfg,
		Logger: logger,
	}
}

// HasValidDimensions checks if the context has valid window dimensions.
func (ctx UIContext) HasValidDimensions() bool {
	return ctx.Width > 0 && ctx.Height > 0
}
