package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/driveindex/internal/client"
	"github.com/raphaelgruber/driveindex/internal/models"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the run status
type tickMsg time.Time

// runUpdateMsg carries the updated run data
type runUpdateMsg struct {
	run *client.RunInfo
	err error
}

// progressModel is the bubbletea model for run progress.
type progressModel struct {
	client   *client.Client
	runID    string
	run      *client.RunInfo
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

// newProgressModel creates a new progress model.
func newProgressModel(c *client.Client, runID string) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		client:   c,
		runID:    runID,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchRun(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "s":
			// Stop the run; the next poll picks up the terminal status.
			return m, m.stopRun()
		}

	case tickMsg:
		return m, m.fetchRun()

	case runUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch run status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.run = msg.run

		switch models.RunStatus(m.run.Status) {
		case models.RunStatusCompleted, models.RunStatusStopped:
			m.done = true
			return m, tea.Quit
		case models.RunStatusError:
			m.done = true
			if m.run.Error != nil {
				m.err = fmt.Errorf("%s", m.run.Error.Message)
			} else {
				m.err = fmt.Errorf("run failed with unknown error")
			}
			return m, tea.Quit
		}

		// Continue polling for live runs
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.run == nil {
		return "Loading run status...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.run.Status))
	progressBar := m.progress.ViewAs(m.run.Percent())
	counts := fmt.Sprintf("%d/%d files", m.run.ProcessedFiles, m.run.TotalFiles)

	detail := ""
	if m.run.LastProcessedFile != "" {
		detail = m.theme.hintStyle().Render(m.run.LastProcessedFile) + "\n"
	}
	hint := m.theme.hintStyle().Render("Press s to stop, Ctrl+C to continue in background")

	return fmt.Sprintf("%s %s %s\n%s%s\n", status, progressBar, counts, detail, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nRun %s continues in background.\nUse 'driveindex runs %s' to check status.\n",
			m.runID, m.runID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Indexing failed: %s\n", m.err))
	}

	if m.run != nil {
		var output string
		if models.RunStatus(m.run.Status) == models.RunStatusStopped {
			output = m.theme.statusStyle().Render("■ Stopped") + "\n\n"
		} else {
			output = m.theme.completedStyle().Render("✓ Completed") + "\n\n"
		}
		output += fmt.Sprintf("  Files indexed: %d/%d\n", m.run.ProcessedFiles, m.run.TotalFiles)
		if m.run.LastProcessedFile != "" {
			output += fmt.Sprintf("  Last file:     %s\n", m.run.LastProcessedFile)
		}
		return output
	}

	return m.theme.completedStyle().Render("✓ Completed\n")
}

// fetchRun fetches the current run status from the server.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m progressModel) fetchRun() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		run, err := m.client.GetRun(ctx, m.runID)
		return runUpdateMsg{run: run, err: err}
	}
}

// stopRun requests cancellation of the watched run.
func (m progressModel) stopRun() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := m.client.StopIndex(ctx, m.runID); err != nil {
			return runUpdateMsg{err: err}
		}
		return tickMsg(time.Now())
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunIndexProgress runs the interactive progress UI for an indexing run.
// Returns nil on completion, stop or Ctrl+C (background), error on failure.
func RunIndexProgress(c *client.Client, runID string) error {
	model := newProgressModel(c, runID)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		// If user quit with Ctrl+C, the run continues in background - not an error
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}

	return nil
}
