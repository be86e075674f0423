package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"contentstudio/internal/progress"
	"contentstudio/internal/services/generation"
)

// Final statuses WatchProgress can report. "detached" means the viewer
// stopped while the task kept running.
const (
	WatchCompleted = "completed"
	WatchFailed    = "failed"
	WatchCancelled = "cancelled"
	WatchDetached  = "detached"
)

// WatchProgress renders a task's progress until it reaches a terminal
// state or the user detaches. Interactive terminals get a live stepper
// with a spinner and progress bar; plain mode prints one line per step
// transition. Ctrl+C requests task cancellation, a second Ctrl+C (or q)
// detaches and leaves the task running.
//
// The returned status is one of the Watch constants; the error is only
// non-nil when the viewer itself failed.
func WatchProgress(ctx context.Context, initial *generation.GenerationProgress, events <-chan generation.ProgressEvent, cancelTask func() error) (string, error) {
	if IsPlain() {
		return runPlainWatch(ctx, os.Stderr, initial, events)
	}

	// A task that already finished renders once, with no program
	if watchDone(initial.Status) {
		fmt.Fprint(os.Stderr, Checklist(initial.Steps, ""))
		fmt.Fprintln(os.Stderr, "  "+ProgressBar(initial.Progress))
		fmt.Fprintln(os.Stderr, StatusBanner(initial.Status, stepError(initial.Steps)))
		return initial.Status, nil
	}

	m := newWatchModel(initial, events, cancelTask)
	p := tea.NewProgram(m,
		tea.WithOutput(os.Stderr),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return WatchDetached, ctx.Err()
		}
		return "", fmt.Errorf("progress viewer: %w", err)
	}

	if m.detached {
		return WatchDetached, nil
	}
	return m.status, nil
}

// runPlainWatch is the non-interactive fallback: a line per step
// transition, then the outcome banner.
func runPlainWatch(ctx context.Context, w io.Writer, initial *generation.GenerationProgress, events <-chan generation.ProgressEvent) (string, error) {
	seen := map[string]progress.StepStatus{}
	printTransitions(w, seen, initial.Steps)

	if watchDone(initial.Status) {
		fmt.Fprintln(w, StatusBanner(initial.Status, stepError(initial.Steps)))
		return initial.Status, nil
	}

	for {
		select {
		case <-ctx.Done():
			return WatchDetached, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				fmt.Fprintln(w, InfoMsg("Updates stopped; the task may still be running"))
				return WatchDetached, nil
			}
			printTransitions(w, seen, ev.Steps)
			if watchDone(ev.Status) {
				fmt.Fprintln(w, StatusBanner(ev.Status, stepError(ev.Steps)))
				return ev.Status, nil
			}
		}
	}
}

// printTransitions writes a line for every step whose status changed
// since the previous call.
func printTransitions(w io.Writer, seen map[string]progress.StepStatus, steps []progress.Step) {
	for _, step := range steps {
		if seen[step.ID] == step.Status || step.Status == progress.StepPending {
			continue
		}
		seen[step.ID] = step.Status

		line := "  " + StepGlyph(step.Status, "●") + " " + step.Label
		switch {
		case step.Status == progress.StepInProgress && step.Message != "":
			line += "  " + Muted(step.Message)
		case step.Status == progress.StepError && step.Message != "":
			line += "  " + step.Message
		}
		fmt.Fprintln(w, line)
	}
}

// stepError pulls the failure text off the errored step, if any.
func stepError(steps []progress.Step) string {
	for _, step := range steps {
		if step.Status == progress.StepError && step.Message != "" {
			return step.Message
		}
	}
	return ""
}

// watchDone reports whether a tracked task status is final.
func watchDone(status string) bool {
	switch status {
	case WatchCompleted, WatchFailed, WatchCancelled:
		return true
	}
	return false
}

type progressMsg generation.ProgressEvent

type eventsClosedMsg struct{}

type cancelSentMsg struct{}

type cancelFailedMsg struct{ err error }

type watchModel struct {
	steps   []progress.Step
	status  string
	percent int

	spinner    spinner.Model
	events     <-chan generation.ProgressEvent
	cancelTask func() error

	cancelRequested bool
	cancelErr       string
	detached        bool
	done            bool
}

func newWatchModel(initial *generation.GenerationProgress, events <-chan generation.ProgressEvent, cancelTask func() error) *watchModel {
	return &watchModel{
		steps: progress.CloneSteps(initial.Steps),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(AccentStyle),
		),
		status:     initial.Status,
		percent:    initial.Progress,
		events:     events,
		cancelTask: cancelTask,
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitEvent(m.events))
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.status = msg.Status
		m.percent = msg.Progress
		if len(msg.Steps) > 0 {
			m.steps = msg.Steps
		}
		if watchDone(m.status) {
			m.done = true
			return m, tea.Quit
		}
		return m, waitEvent(m.events)

	case eventsClosedMsg:
		if !watchDone(m.status) {
			m.detached = true
		}
		m.done = true
		return m, tea.Quit

	case cancelSentMsg:
		return m, nil

	case cancelFailedMsg:
		m.cancelRequested = false
		m.cancelErr = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.done {
				return m, tea.Quit
			}
			if !m.cancelRequested && m.cancelTask != nil {
				m.cancelRequested = true
				m.cancelErr = ""
				return m, m.requestCancel()
			}
			m.detached = true
			return m, tea.Quit
		case "q":
			m.detached = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// requestCancel fires the cancel callback off the update loop. The
// terminal snapshot still arrives through the event channel.
func (m *watchModel) requestCancel() tea.Cmd {
	cancel := m.cancelTask
	return func() tea.Msg {
		if err := cancel(); err != nil {
			return cancelFailedMsg{err: err}
		}
		return cancelSentMsg{}
	}
}

func (m *watchModel) View() string {
	out := Checklist(m.steps, m.spinner.View()) + "\n"
	out += "  " + ProgressBar(m.percent) + "\n"

	if m.done {
		if !m.detached {
			out += StatusBanner(m.status, stepError(m.steps)) + "\n"
		}
		return out
	}

	switch {
	case m.cancelErr != "":
		out += WarnMsg("Cancel failed: %s", m.cancelErr) + "\n"
	case m.cancelRequested:
		out += "  " + Muted("cancelling... ctrl+c again to detach") + "\n"
	default:
		out += "  " + FaintStyle.Render("ctrl+c cancel  q detach") + "\n"
	}
	return out
}

func waitEvent(events <-chan generation.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return progressMsg(ev)
	}
}
