// Package tui provides a Bubble Tea terminal user interface for MusicForge.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/iD01tStore/MusicForge/internal/app"
	"github.com/iD01tStore/MusicForge/internal/batch"
	"github.com/iD01tStore/MusicForge/internal/config"
	"github.com/iD01tStore/MusicForge/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

const (
	maxLogs       = 10
	maxQueueShown = 8
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateConverting
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   batch.Level
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	logs      []LogEntry
	err       error

	manager *app.Manager
	events  <-chan batch.Event
	opts    model.ProcessingOptions

	// Active batch
	current *batch.Batch
	summary batch.Summary

	verbose bool

	width  int
	height int
}

// NewModel creates a TUI model driving manager. events must carry every
// batch event the manager publishes.
func NewModel(manager *app.Manager, events <-chan batch.Event) Model {
	ti := textinput.New()
	ti.Placeholder = "/path/to/song.flac or /path/to/album"
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		logs:      make([]LogEntry, 0),
		manager:   manager,
		events:    events,
		opts:      manager.Options(),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForEvent())
}

// Message types
type (
	// EventMsg carries one batch event from the notifier.
	EventMsg struct {
		Event batch.Event
	}

	// AddedMsg is sent after paths have been queued.
	AddedMsg struct {
		Input string
		Added int
		Err   error
	}

	// StartedMsg is sent when a batch has been submitted.
	StartedMsg struct {
		Batch *batch.Batch
		Err   error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				input := m.textInput.Value()
				m.textInput.SetValue("")
				return m, m.addPaths(input)
			}

		case "ctrl+s":
			if m.state == StateInput && m.manager.Queue().Len() > 0 {
				m.state = StateConverting
				m.logs = nil
				return m, tea.Batch(m.startBatch(), m.spinner.Tick)
			}

		case "tab":
			if m.state == StateInput {
				m.opts.Format = next(model.Formats, m.opts.Format)
				return m, nil
			}

		case "shift+tab":
			if m.state == StateInput {
				m.opts.Quality = next(model.Qualities, m.opts.Quality)
				return m, nil
			}

		case "ctrl+n":
			if m.state == StateInput {
				m.opts.Normalize = !m.opts.Normalize
				return m, nil
			}

		case "ctrl+t":
			if m.state == StateInput {
				m.opts.TrimSilence = !m.opts.TrimSilence
				return m, nil
			}

		case "ctrl+r":
			if m.state == StateInput {
				m.opts.NoiseReduction = !m.opts.NoiseReduction
				return m, nil
			}

		case "ctrl+e":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "ctrl+x":
			if m.state == StateInput {
				m.manager.Queue().Clear()
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new batch
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.current = nil
				m.summary = batch.Summary{}
				m.manager.Queue().Clear()
				m.textInput.SetValue("")
				m.textInput.Focus()
				return m, m.progress.SetPercent(0)
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case AddedMsg:
		switch {
		case msg.Err != nil:
			m.appendLog(fmt.Sprintf("Error adding %s: %v", msg.Input, msg.Err), batch.LevelError)
		case msg.Added == 0:
			m.appendLog(fmt.Sprintf("No new audio files in %s", msg.Input), batch.LevelWarning)
		default:
			m.appendLog(fmt.Sprintf("Queued %d file(s) from %s", msg.Added, msg.Input), batch.LevelInfo)
		}

	case StartedMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.current = msg.Batch
			select {
			case <-msg.Batch.Done():
				m.summary = msg.Batch.Summary()
				m.state = StateComplete
			default:
				cmds = append(cmds, m.tickProgress())
			}
		}

	case EventMsg:
		cmds = append(cmds, m.waitForEvent())
		event := msg.Event
		if event.Level() == batch.LevelVerbose && !m.verbose {
			break
		}
		m.appendLog(event.Message(), event.Level())
		if event.Kind == batch.EventBatchDone && m.current != nil && event.BatchID == m.current.ID {
			m.summary = event.Summary
			m.state = StateComplete
			cmds = append(cmds, m.progress.SetPercent(1))
		}

	case TickMsg:
		if m.current != nil && m.state == StateConverting {
			finished, total := m.current.Progress()
			var percent float64
			if total > 0 {
				percent = float64(finished) / float64(total)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) appendLog(message string, level batch.Level) {
	m.logs = append(m.logs, LogEntry{Message: message, Level: level})
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// waitForEvent returns a command that delivers the next notifier event.
func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg{Event: event}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("♫ MusicForge"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Convert and tag audio files"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateConverting:
		b.WriteString(m.viewConverting())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Add a file or folder:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(m.renderQueue())
	b.WriteString("\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Format: %s (tab)   Quality: %s (shift+tab)\n", m.opts.Format, m.opts.Quality))
	b.WriteString(fmt.Sprintf("  %s Normalize loudness (ctrl+n)\n", check(m.opts.Normalize)))
	b.WriteString(fmt.Sprintf("  %s Trim leading silence (ctrl+t)\n", check(m.opts.TrimSilence)))
	b.WriteString(fmt.Sprintf("  %s Noise reduction (ctrl+r)\n", check(m.opts.NoiseReduction)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+e)\n", check(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output: %s  Workers: %d", m.opts.OutputDir, m.manager.Workers())))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderQueue() string {
	var b strings.Builder

	items := m.manager.Queue().Items()
	if len(items) == 0 {
		b.WriteString(dimStyle.Render("Queue is empty"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(successStyle.Render(fmt.Sprintf("Queued %d file(s):", len(items))))
	b.WriteString("\n")
	for i, item := range items {
		if i == maxQueueShown {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  … and %d more", len(items)-maxQueueShown)))
			b.WriteString("\n")
			break
		}
		size := "?"
		if info, err := os.Stat(item.Path); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		line := fmt.Sprintf("  ♪ %s", item.Name())
		if title := item.Tags.Get(model.TagTitle); title != "" {
			line += " – " + title
		}
		b.WriteString(fileStyle.Render(line))
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s %s", item.Extension(), size)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewConverting() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Converting to %s...", m.opts.Format)))
	b.WriteString("\n\n")

	var finished, total int
	if m.current != nil {
		finished, total = m.current.Progress()
	}
	b.WriteString(m.progress.View())
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Files: %d/%d | Workers: %d", finished, total, m.manager.Workers())))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	text := fmt.Sprintf(
		"✨ Conversion Complete!\n\n"+
			"Converted: %d\n"+
			"Failed: %d\n"+
			"Time: %s",
		m.summary.Succeeded,
		m.summary.Failed,
		m.summary.Elapsed.Round(time.Second),
	)
	if m.summary.Playlist != "" {
		text += "\nPlaylist: " + filepath.Base(m.summary.Playlist)
	}
	b.WriteString(boxStyle.Render(text))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case batch.LevelError:
			style = errorStyle
			prefix = "✗"
		case batch.LevelWarning:
			style = warningStyle
			prefix = "!"
		case batch.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case batch.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: add • ctrl+s: convert • ctrl+x: clear queue • esc: quit"
	case StateConverting:
		return "ctrl+c: quit"
	case StateComplete, StateError:
		return "r: new batch • q: quit"
	}
	return ""
}

// addPaths queues the comma-separated paths in input.
func (m Model) addPaths(input string) tea.Cmd {
	manager := m.manager
	return func() tea.Msg {
		var paths []string
		for _, p := range strings.Split(input, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		added, err := manager.AddPaths(paths...)
		return AddedMsg{Input: input, Added: added, Err: err}
	}
}

// startBatch submits the queue with the current options.
func (m Model) startBatch() tea.Cmd {
	manager := m.manager
	opts := m.opts.Clone()
	return func() tea.Msg {
		b, err := manager.Convert(opts)
		return StartedMsg{Batch: b, Err: err}
	}
}

func check(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

// next returns the value after current in values, wrapping around.
func next[T comparable](values []T, current T) T {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

// Run starts the TUI application. It returns after the user quits and
// every started conversion has stopped.
func Run(ctx context.Context, settings *config.Settings, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan batch.Event, 64)
	manager := app.NewManager(ctx, settings, logger, func(event batch.Event) {
		select {
		case events <- event:
		case <-ctx.Done():
		}
	})

	p := tea.NewProgram(NewModel(manager, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()

	cancel()
	manager.Close()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
