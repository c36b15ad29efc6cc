// Package components contains the screen layout every wizard step renders
// through: title, step counter, body, notice, error line and help text.
package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"aistack/internal/tui/styles"
)

const (
	minContentWidth = 40
	minInputWidth   = 30
	maxInputWidth   = 80
)

type LayoutConfig struct {
	Title    string
	Subtitle string
	HelpText string
	// Step and Steps render as "Step 2 of 5" above the subtitle when Steps > 0.
	Step     int
	Steps    int
	MarginX  int
	MarginY  int
	MaxWidth int
}

type LayoutModel struct {
	config LayoutConfig
	width  int
	height int
	err    error
	notice string
}

func NewLayout(config LayoutConfig) LayoutModel {
	return LayoutModel{config: withDefaults(config, LayoutConfig{MarginX: 2, MarginY: 1, MaxWidth: 100})}
}

func withDefaults(c, d LayoutConfig) LayoutConfig {
	if c.MarginX == 0 {
		c.MarginX = d.MarginX
	}
	if c.MarginY == 0 {
		c.MarginY = d.MarginY
	}
	if c.MaxWidth == 0 {
		c.MaxWidth = d.MaxWidth
	}
	return c
}

func (m LayoutModel) Update(msg tea.Msg) (LayoutModel, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = size.Width, size.Height
	}
	return m, nil
}

// SetConfig swaps the per-screen text. Zero margins keep the current ones.
func (m LayoutModel) SetConfig(config LayoutConfig) LayoutModel {
	m.config = withDefaults(config, m.config)
	return m
}

func (m LayoutModel) GetConfig() LayoutConfig { return m.config }

func (m LayoutModel) SetError(err error) LayoutModel {
	if err != nil {
		m.err = err
	}
	return m
}

func (m LayoutModel) ClearError() LayoutModel {
	m.err = nil
	return m
}

func (m LayoutModel) GetError() error { return m.err }

// SetNotice shows a non-blocking message under the body until cleared.
func (m LayoutModel) SetNotice(s string) LayoutModel {
	m.notice = s
	return m
}

func (m LayoutModel) Notice() string { return m.notice }

// Render lays out content inside the configured frame.
func (m LayoutModel) Render(content string) string {
	width := m.ContentWidth()
	var sections []string
	add := func(style lipgloss.Style, text string) {
		if text != "" {
			sections = append(sections, style.Render(wrap(text, width)))
		}
	}

	add(styles.TitleStyle, m.config.Title)
	subtitle := m.config.Subtitle
	if m.config.Steps > 0 {
		subtitle = strings.TrimSpace(fmt.Sprintf("Step %d of %d  %s", m.config.Step, m.config.Steps, subtitle))
	}
	add(styles.SubtitleStyle, subtitle)
	add(styles.NormalTextStyle, content)
	add(styles.WarningStyle, m.notice)
	if m.err != nil {
		add(styles.ErrorStyle, "Error: "+m.err.Error())
	}
	add(styles.HelpStyle, m.config.HelpText)

	return m.indent(strings.Join(sections, "\n\n"))
}

// wrap word-wraps each line of text to width. Existing line breaks are kept.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wordwrap.String(strings.TrimRight(line, " "), width)
	}
	return strings.Join(lines, "\n")
}

func (m LayoutModel) indent(content string) string {
	pad := strings.Repeat(" ", m.config.MarginX)
	lines := strings.Split(content, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	vertical := strings.Repeat("\n", m.config.MarginY)
	return vertical + strings.Join(lines, "\n") + vertical
}

// ContentWidth is the usable width between the margins, clamped to
// [minContentWidth, MaxWidth].
func (m LayoutModel) ContentWidth() int {
	available := m.width - 2*m.config.MarginX
	return max(minContentWidth, min(available, m.config.MaxWidth))
}

// InputWidth is the text input width for the current window.
func (m LayoutModel) InputWidth() int {
	return max(minInputWidth, min(m.ContentWidth()-8, maxInputWidth))
}
