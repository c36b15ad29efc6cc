// Package tui hosts aistack's interactive terminal front ends, built on
// Bubble Tea and Lip Gloss. Each flow lives in its own subpackage and is
// started from here, so commands never deal with tea.Program directly.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"aistack/internal/tui/buildwizard"
	"aistack/internal/tui/helpers"
)

// RunBuildWizard runs the build wizard to completion and returns what the
// user chose. A cancelled wizard is not an error; check Result.Cancelled.
func RunBuildWizard(ctx helpers.UIContext, opts ...tea.ProgramOption) (buildwizard.Result, error) {
	model := buildwizard.New(ctx)
	final, err := tea.NewProgram(model, opts...).Run()
	if err != nil {
		return buildwizard.Result{}, fmt.Errorf("build wizard failed: %w", err)
	}

	m, ok := final.(*buildwizard.Model)
	if !ok {
		return buildwizard.Result{}, fmt.Errorf("unexpected model type %T", final)
	}
	if ctx.Logger != nil {
		ctx.Logger.Debug("Build wizard finished", "state", m.State().String(), "mode", m.Result().Mode.String())
	}
	return m.Result(), nil
}
