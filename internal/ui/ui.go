package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibes/internal/tasks"
)

// Pipeline is the work the TUI drives.
type Pipeline interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, opts tasks.RunOpts) (*tasks.CollageResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	pipeline     Pipeline
	opts         tasks.RunOpts
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	resultChan   chan runCompleteMsg
	current      tasks.ProgressUpdate
	finished     []string
	result       *tasks.CollageResult
	err          error
	done         bool
	help         help.Model
	keys         keyMap
}

// NewModel creates a model that runs pipeline with opts when started.
func NewModel(ctx context.Context, pipeline Pipeline, opts tasks.RunOpts) *Model {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = NewStyle("#1DB954")

	return &Model{
		ctx:      ctx,
		cancel:   cancel,
		pipeline: pipeline,
		opts:     opts,
		spinner:  s,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init starts the pipeline and the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			if !m.done {
				m.err = context.Canceled
				m.done = true
			}
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		if m.current.Message != "" && msg.update.Phase != m.current.Phase {
			m.finished = append(m.finished, m.current.Message)
		}
		m.current = msg.update
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.done = true
		m.cancel()
		return m, tea.Quit
	}

	return m, nil
}

// View renders the checklist, the active phase and the outcome.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(Title("vibes"))
	b.WriteString("\n")

	for _, line := range m.finished {
		fmt.Fprintf(&b, "%s %s\n", Success("✓"), line)
	}

	switch {
	case m.done && m.err != nil:
		fmt.Fprintf(&b, "%s\n", Failure(fmt.Sprintf("✗ %v", m.err)))
	case m.done && m.result != nil:
		fmt.Fprintf(&b, "%s\n", Success(fmt.Sprintf("✓ Collage saved to %s", m.result.Output)))
	case m.current.Message != "":
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), m.current.Message)
	default:
		fmt.Fprintf(&b, "%s Starting...\n", m.spinner.View())
	}

	if !m.done {
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
		b.WriteString("\n")
	}

	return b.String()
}

// Result returns the pipeline outcome once the program has exited.
func (m *Model) Result() (*tasks.CollageResult, error) {
	return m.result, m.err
}

func (m *Model) start() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.resultChan = make(chan runCompleteMsg, 1)

	go func() {
		result, err := m.pipeline.Run(m.ctx, m.progressChan, m.opts)
		m.resultChan <- runCompleteMsg{result: result, err: err}
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return <-m.resultChan
		}
		return progressUpdateMsg{update: update}
	}
}

// Run drives pipeline inside a bubbletea program and returns its outcome.
func Run(ctx context.Context, pipeline Pipeline, opts tasks.RunOpts, programOpts ...tea.ProgramOption) (*tasks.CollageResult, error) {
	model := NewModel(ctx, pipeline, opts)

	final, err := tea.NewProgram(model, programOpts...).Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run TUI: %w", err)
	}

	return final.(*Model).Result()
}
