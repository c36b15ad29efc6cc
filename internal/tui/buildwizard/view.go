package buildwizard

import (
	"fmt"
	"strings"

	"aistack/internal/tui/components"
	"aistack/internal/tui/styles"
)

func (m *Model) steps() (step, total int) {
	if m.result.Mode == ModeSingle {
		return map[State]int{StateMode: 1, StateWorkspace: 2, StateConfirm: 3}[m.state], 3
	}
	return map[State]int{StateMode: 1, StateCore: 2, StateRepos: 3, StatePathStyle: 4, StateConfirm: 5}[m.state], 5
}

func (m *Model) frame(title, subtitle, help string) {
	step, total := m.steps()
	if step == 0 {
		total = 0
	}
	m.layout = m.layout.SetConfig(components.LayoutConfig{
		Title:    title,
		Subtitle: subtitle,
		HelpText: help,
		Step:     step,
		Steps:    total,
	})
}

func (m *Model) View() string {
	switch m.state {
	case StateMode:
		m.frame("🧭 Configuration Mode", "How will the editor use the MCP servers?", "↑/↓ to select • Enter to continue • Esc to cancel")
		return m.layout.Render(choices(m.modeIndex,
			"Single workspace\n     One repository, every path written as ${workspaceFolder}",
			"Multi-repository\n     An orchestration root serving several repositories"))

	case StateWorkspace:
		m.frame("📁 Workspace", "Which directory is the workspace?", "Enter to continue • Esc to go back • ~ expands to your home directory")
		return m.layout.Render(prompt("Workspace path:", m.textInput.View()))

	case StateCore:
		m.frame("🏗  Orchestration Root", "Where does the code-intelligence server live?", "Enter to continue • Esc to go back")
		return m.layout.Render(prompt("Core path:", m.textInput.View()))

	case StateRepos:
		m.frame("📚 Repositories", "Add the repositories to serve", "Enter adds a path • Empty line finishes • Ctrl+D removes the last • Esc to go back")
		var b strings.Builder
		if len(m.result.Repos) == 0 {
			b.WriteString("No repositories yet.\n\n")
		}
		for i, r := range m.result.Repos {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
		if len(m.result.Repos) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(prompt("Repository path:", m.textInput.View()))
		return m.layout.Render(b.String())

	case StatePathStyle:
		m.frame("🔗 Path Style", "How should repositories be addressed?", "↑/↓ to select • Enter to continue • Esc to go back")
		return m.layout.Render(choices(m.pathIndex,
			"Relative\n     ${workspaceFolder}/workspaces/<name>; link each repository there",
			"Absolute\n     The repository's real path; nothing to link"))

	case StateConfirm:
		m.frame("✅ Confirm", "Review the configuration to generate", "y/Enter to generate • n/Esc to go back • q to cancel")
		return m.layout.Render(styles.SummaryStyle.Render(m.summary()))

	case StateDone:
		return ""

	case StateCancelled:
		m.frame("❌ Cancelled", "No configuration was written.", "")
		return m.layout.Render("")
	}
	return ""
}

func (m *Model) summary() string {
	if m.result.Mode == ModeSingle {
		return fmt.Sprintf("Mode: single workspace\nWorkspace: %s", m.result.Workspace)
	}
	style := "relative"
	if m.result.Absolute {
		style = "absolute"
	}
	lines := []string{
		"Mode: multi-repository",
		"Core: " + m.result.Core,
		"Paths: " + style,
		"Repositories:",
	}
	for _, r := range m.result.Repos {
		lines = append(lines, "  • "+r)
	}
	return strings.Join(lines, "\n")
}

func choices(selected int, options ...string) string {
	var b strings.Builder
	for i, opt := range options {
		if i == selected {
			b.WriteString(styles.SelectedStyle.Render("▶ ") + opt)
		} else {
			b.WriteString("  " + opt)
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func prompt(label, input string) string {
	return label + "\n" + styles.InputStyle.Render(input)
}
