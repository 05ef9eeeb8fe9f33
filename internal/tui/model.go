package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NamanBalaji/resumable/internal/tui/components"
	"github.com/NamanBalaji/resumable/internal/tui/styles"
)

type currentView int

const (
	viewList currentView = iota
	viewConfirmCancel
)

const refreshInterval = 250 * time.Millisecond

// Model is the upload progress view.
type Model struct {
	actions uploaderActions
	view    currentView

	files    []components.FileInfo
	selected int

	spinner spinner.Model
	help    help.Model
	keys    keyMap

	width, height int
	errMsg        string
	successMsg    string
	loaded        bool
}

type (
	clearMsg    struct{}
	tickMsg     struct{}
	filesMsg    []components.FileInfo
	uploadError struct{ message string }
	uploadDone  struct{}
)

func clearNotifications() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearMsg{}
	})
}

// NewModel creates a new TUI model.
func NewModel(actions uploaderActions) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.Pink)

	return &Model{
		actions: actions,
		view:    viewList,
		spinner: sp,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the upload and the refresh loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			m.actions.Start()
			return nil
		},
		m.refreshFiles(),
		m.spinner.Tick,
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// Update handles incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		return m, tea.Batch(tick(), m.refreshFiles())

	case filesMsg:
		m.files = msg
		m.loaded = true
		m.selected = max(min(m.selected, len(m.files)-1), 0)

		return m, nil

	case uploadError:
		m.errMsg = msg.message
		return m, clearNotifications()

	case uploadDone:
		m.successMsg = "All uploads finished"
		return m, tea.Batch(m.refreshFiles(), clearNotifications())

	case clearMsg:
		m.errMsg = ""
		m.successMsg = ""

		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
	}

	switch m.view {
	case viewList:
		cmd = m.updateListView(msg)
	case viewConfirmCancel:
		cmd = m.updateConfirmCancelView(msg)
	}

	return m, cmd
}

// View renders the TUI.
func (m *Model) View() string {
	if !m.loaded {
		return fmt.Sprintf("\n  %s Preparing upload... Please wait.\n\n", m.spinner.View())
	}

	header := renderHeader(m)
	footer := styles.FooterStyle.Width(m.width).Render(m.help.View(m.keys))
	notification := m.renderNotification()

	remainingHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(notification)-lipgloss.Height(footer), 0)

	var mainContent string

	if remainingHeight > 0 {
		switch m.view {
		case viewList:
			mainContent = components.RenderFileList(m.files, m.selected, m.width, remainingHeight)
		case viewConfirmCancel:
			mainContent = m.renderConfirmDialog("Cancel this upload and drop the file? (y/n)", remainingHeight)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		notification,
		mainContent,
		footer,
	)
}

func (m *Model) renderConfirmDialog(prompt string, height int) string {
	dialog := styles.DialogStyle.Render(prompt)

	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, dialog)
}

func (m *Model) renderNotification() string {
	if m.errMsg != "" {
		return styles.ErrorStyle.Width(m.width).Render(m.errMsg)
	}

	if m.successMsg != "" {
		return styles.SuccessStyle.Width(m.width).Render(m.successMsg)
	}

	return lipgloss.NewStyle().Height(1).Render("")
}

func renderHeader(m *Model) string {
	header := styles.HeaderStyle.Width(m.width).Render("resumable - chunked uploads")

	counts := make(map[components.State]int)

	var size, sent float64

	for _, f := range m.files {
		counts[f.State]++

		size += float64(f.Size)
		sent += float64(f.Size) * f.Progress
	}

	overall := 0.0
	if size > 0 {
		overall = sent / size
	}

	statsText := fmt.Sprintf(
		"Total: %d | Uploading: %d | Queued: %d | Paused: %d | Completed: %d | Failed: %d | %.1f%%",
		len(m.files), counts[components.Uploading], counts[components.Queued], counts[components.Paused],
		counts[components.Completed], counts[components.Failed], overall*100,
	)

	stats := styles.StatsStyle.Width(m.width).Render(statsText)

	return lipgloss.JoinVertical(lipgloss.Top, header, stats)
}

func (m *Model) refreshFiles() tea.Cmd {
	return func() tea.Msg {
		return filesMsg(m.actions.GetAll())
	}
}

func (m *Model) selectedID() (string, bool) {
	if m.selected < len(m.files) {
		return m.files[m.selected].ID, true
	}

	return "", false
}

func (m *Model) updateListView(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(keyMsg, m.keys.Down):
		if m.selected < len(m.files)-1 {
			m.selected++
		}
	case key.Matches(keyMsg, m.keys.PauseAll):
		return m.run(m.actions.PauseAll)
	case key.Matches(keyMsg, m.keys.ResumeAll):
		return m.run(m.actions.ResumeAll)
	case key.Matches(keyMsg, m.keys.Pause):
		return m.onSelected(m.actions.Pause)
	case key.Matches(keyMsg, m.keys.Resume):
		return m.onSelected(m.actions.Resume)
	case key.Matches(keyMsg, m.keys.Retry):
		return m.onSelected(m.actions.Retry)
	case key.Matches(keyMsg, m.keys.Cancel):
		if _, ok := m.selectedID(); ok {
			m.view = viewConfirmCancel
		}
	}

	return nil
}

func (m *Model) updateConfirmCancelView(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		m.view = viewList
		return m.onSelected(m.actions.Cancel)
	case key.Matches(keyMsg, m.keys.Back):
		m.view = viewList
	}

	return nil
}

// onSelected runs fn for the selected file off the update loop.
func (m *Model) onSelected(fn func(id string)) tea.Cmd {
	id, ok := m.selectedID()
	if !ok {
		return nil
	}

	return m.run(func() { fn(id) })
}

func (m *Model) run(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return filesMsg(m.actions.GetAll())
	}
}
