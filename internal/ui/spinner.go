package ui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Mockable dependency
var isTerminal = func(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type taskDoneMsg struct{ err error }

// statusMsg replaces the detail shown after the spinner label.
type statusMsg string

type spinnerModel struct {
	spinner     spinner.Model
	label       string
	status      string
	done        bool
	interrupted bool
	err         error
}

func newSpinnerModel(label string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = warnStyle
	return spinnerModel{spinner: s, label: label}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.interrupted = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done || m.interrupted {
		return ""
	}
	if m.status != "" {
		return fmt.Sprintf("%s %s %s\n", m.spinner.View(), m.label, subtleStyle.Render(m.status))
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.label)
}

// RunWithProgress runs task while showing a spinner on stderr, followed by
// the latest status task reported. Without a terminal it prints the label,
// drops status updates and runs task directly. Ctrl+C cancels the context
// passed to task.
func RunWithProgress(ctx context.Context, label string, task func(ctx context.Context, status func(string)) error) error {
	return runWithSpinner(ctx, os.Stderr, label, task)
}

func runWithSpinner(ctx context.Context, out *os.File, label string, task func(ctx context.Context, status func(string)) error) error {
	if !isTerminal(out) {
		fmt.Fprintln(out, label)
		return task(ctx, func(string) {})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpinnerModel(label), tea.WithOutput(out), tea.WithContext(ctx))
	errCh := make(chan error, 1)
	go func() {
		err := task(ctx, func(s string) { p.Send(statusMsg(s)) })
		errCh <- err
		p.Send(taskDoneMsg{err: err})
	}()

	final, runErr := p.Run()
	if m, ok := final.(spinnerModel); ok && m.interrupted {
		cancel()
	}
	err := <-errCh
	if err == nil && runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("spinner: %w", runErr)
	}
	return err
}
