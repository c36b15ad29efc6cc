// Package buildwizard is the interactive front end of `aistack build`.
//
// The wizard walks through:
//   - Mode: single workspace or multi-repository orchestration
//   - Workspace (single) or Core (multi) directory
//   - Repositories (multi): one path per line, an empty line finishes
//   - Path style (multi): relative to the core or absolute
//   - Confirmation
//
// It only collects answers; the caller builds and writes the configuration
// from the Result.
package buildwizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"aistack/internal/builder"
	"aistack/internal/logging"
	"aistack/internal/repository"
	"aistack/internal/tui/components"
	"aistack/internal/tui/helpers"
	"aistack/pkg/fileops"
)

// State is the wizard step being shown.
type State int

const (
	StateMode State = iota
	StateWorkspace
	StateCore
	StateRepos
	StatePathStyle
	StateConfirm
	StateDone
	StateCancelled
)

func (s State) String() string {
	return [...]string{"Mode", "Workspace", "Core", "Repos", "PathStyle", "Confirm", "Done", "Cancelled"}[s]
}

// Mode is the topology the user picked.
type Mode int

const (
	ModeSingle Mode = iota
	ModeMulti
)

func (m Mode) String() string {
	if m == ModeMulti {
		return "multi"
	}
	return "single"
}

// Result is what the wizard collected.
type Result struct {
	Mode      Mode
	Workspace string
	Core      string
	Repos     []string
	Absolute  bool
	Cancelled bool
}

type validationErrorMsg struct{ err error }

// Model implements tea.Model for the build wizard.
type Model struct {
	state     State
	modeIndex int
	pathIndex int

	result Result

	workdir   string
	logger    *logging.AppLogger
	textInput textinput.Model
	layout    components.LayoutModel
}

// New returns a wizard positioned on the mode question.
func New(ctx helpers.UIContext) *Model {
	ti := textinput.New()
	ti.CharLimit = 1024

	layout := components.NewLayout(components.LayoutConfig{MarginX: 2, MarginY: 1, MaxWidth: 100})
	if ctx.HasValidDimensions() {
		layout, _ = layout.Update(tea.WindowSizeMsg{Width: ctx.Width, Height: ctx.Height})
		ti.Width = layout.InputWidth()
	}

	logger := ctx.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}

	return &Model{
		state:     StateMode,
		workdir:   ctx.Workdir,
		logger:    logger,
		textInput: ti,
		layout:    layout,
	}
}

// State returns the current step.
func (m *Model) State() State { return m.state }

// Result returns the answers collected so far.
func (m *Model) Result() Result { return m.result }

func (m *Model) Init() tea.Cmd {
	m.logger.Debug("Build wizard started")
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.logger.LogMessage(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout, _ = m.layout.Update(msg)
		m.textInput.Width = m.layout.InputWidth()
		return m, nil
	case validationErrorMsg:
		m.layout = m.layout.SetError(msg.err)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.cancel()
	}

	switch m.state {
	case StateMode:
		return m.handleModeKeys(msg)
	case StateWorkspace:
		return m.handleWorkspaceKeys(msg)
	case StateCore:
		return m.handleCoreKeys(msg)
	case StateRepos:
		return m.handleReposKeys(msg)
	case StatePathStyle:
		return m.handlePathStyleKeys(msg)
	case StateConfirm:
		return m.handleConfirmKeys(msg)
	default:
		return m, tea.Quit
	}
}

func (m *Model) handleModeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.modeIndex = max(0, m.modeIndex-1)
	case "down", "j":
		m.modeIndex = min(1, m.modeIndex+1)
	case "1":
		m.modeIndex = 0
	case "2":
		m.modeIndex = 1
	case "enter", " ":
		m.result.Mode = Mode(m.modeIndex)
		if m.result.Mode == ModeSingle {
			return m, m.transition(StateWorkspace, lo.CoalesceOrEmpty(m.result.Workspace, m.workdir))
		}
		return m, m.transition(StateCore, lo.CoalesceOrEmpty(m.result.Core, m.workdir))
	case "esc", "q":
		return m.cancel()
	}
	return m, nil
}

func (m *Model) handleWorkspaceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		dir, err := resolveDir(m.textInput.Value())
		if err != nil {
			return m, fail(err)
		}
		m.result.Workspace = dir
		m.logger.LogUserAction("wizard_workspace", dir)
		return m, m.transition(StateConfirm, "")
	case "esc":
		return m, m.transition(StateMode, "")
	}
	return m.updateTextInput(msg)
}

func (m *Model) handleCoreKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		dir, err := resolveDir(m.textInput.Value())
		if err != nil {
			return m, fail(err)
		}
		m.result.Core = dir
		m.logger.LogUserAction("wizard_core", dir)
		return m, m.transition(StateRepos, "")
	case "esc":
		return m, m.transition(StateMode, "")
	}
	return m.updateTextInput(msg)
}

func (m *Model) handleReposKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		input := strings.TrimSpace(m.textInput.Value())
		if input == "" {
			if len(m.result.Repos) == 0 {
				return m, fail(errors.New("add at least one repository"))
			}
			return m, m.transition(StatePathStyle, "")
		}
		return m.addRepo(input)
	case "esc":
		return m, m.transition(StateCore, m.result.Core)
	case "ctrl+d":
		if n := len(m.result.Repos); n > 0 {
			m.result.Repos = m.result.Repos[:n-1]
		}
		return m, nil
	}
	return m.updateTextInput(msg)
}

func (m *Model) addRepo(input string) (tea.Model, tea.Cmd) {
	info, err := repository.ValidateRepoPath(fileops.ExpandPath(input))
	if err != nil {
		return m, fail(err)
	}
	id := builder.SanitizeID(builder.RepoName(info.Path))
	for _, existing := range m.result.Repos {
		if existing == info.Path {
			return m, fail(fmt.Errorf("%s is already in the list", info.Path))
		}
		if builder.SanitizeID(builder.RepoName(existing)) == id {
			return m, fail(fmt.Errorf("%s and %s would both produce server id %s-%s", existing, info.Path, builder.IntelligenceServer, id))
		}
	}

	m.result.Repos = append(m.result.Repos, info.Path)
	m.logger.LogUserAction("wizard_add_repo", info.Path)
	notice := ""
	if !info.IsGit {
		notice = fmt.Sprintf("%s is not a git repository; the git server will skip it", info.Name)
	}
	m.textInput.Reset()
	m.layout = m.layout.ClearError().SetNotice(notice)
	return m, nil
}

func (m *Model) handlePathStyleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.pathIndex = 0
	case "down", "j":
		m.pathIndex = 1
	case "enter", " ":
		m.result.Absolute = m.pathIndex == 1
		return m, m.transition(StateConfirm, "")
	case "esc":
		return m, m.transition(StateRepos, "")
	case "q":
		return m.cancel()
	}
	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		m.logger.LogStateTransition("BuildWizard", m.state.String(), StateDone.String())
		m.state = StateDone
		return m, tea.Quit
	case "n", "N", "esc":
		if m.result.Mode == ModeSingle {
			return m, m.transition(StateWorkspace, m.result.Workspace)
		}
		return m, m.transition(StatePathStyle, "")
	case "q":
		return m.cancel()
	}
	return m, nil
}

func (m *Model) cancel() (tea.Model, tea.Cmd) {
	m.logger.Info("Build wizard cancelled")
	m.result.Cancelled = true
	m.state = StateCancelled
	return m, tea.Quit
}

// transition moves to state, seeding the text input with value.
func (m *Model) transition(state State, value string) tea.Cmd {
	m.logger.LogStateTransition("BuildWizard", m.state.String(), state.String())
	m.state = state
	m.layout = m.layout.ClearError().SetNotice("")
	m.textInput.Reset()
	m.textInput.SetValue(value)
	m.textInput.Placeholder = m.placeholder()
	if state == StateWorkspace || state == StateCore || state == StateRepos {
		m.textInput.Focus()
		return textinput.Blink
	}
	m.textInput.Blur()
	return nil
}

func (m *Model) placeholder() string {
	switch m.state {
	case StateRepos:
		return "path to a repository (empty to finish)"
	default:
		return lo.CoalesceOrEmpty(m.workdir, ".")
	}
}

func (m *Model) updateTextInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	if m.layout.GetError() != nil {
		m.layout = m.layout.ClearError()
	}
	return m, cmd
}

func fail(err error) tea.Cmd {
	return func() tea.Msg { return validationErrorMsg{err} }
}

// resolveDir expands input and requires an existing directory.
func resolveDir(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("path cannot be empty")
	}
	info, err := repository.Inspect(fileops.ExpandPath(input))
	if err != nil {
		return "", err
	}
	return info.Path, nil
}
