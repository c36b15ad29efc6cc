package tui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aistack/internal/logging"
	"aistack/internal/tui/buildwizard"
	"aistack/internal/tui/helpers"
)

func TestRunBuildWizard_Scripted(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	ctx := helpers.NewUIContext(80, 24, nil, logger)
	ws := t.TempDir()
	ctx.Workdir = ws

	// Enter picks single mode, Enter accepts the prefilled workspace, y confirms.
	in := strings.NewReader("\r\ry")
	var out bytes.Buffer

	res, err := RunBuildWizard(ctx, tea.WithInput(in), tea.WithOutput(&out), tea.WithoutSignalHandler())
	require.NoError(t, err)
	assert.False(t, res.Cancelled)
	assert.Equal(t, buildwizard.ModeSingle, res.Mode)
	assert.Equal(t, ws, res.Workspace)
}
