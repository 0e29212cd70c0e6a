package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/dir2ml/pkg/dir2ml/types"
)

// ProgressModel renders live progress for one run.
type ProgressModel struct {
	progress  types.ScanProgress
	spinner   spinner.Model
	startTime time.Time
	width     int
	rootPath  string
	version   string
	cancel    context.CancelFunc
	done      bool
	err       error
}

// ProgressMsg is sent when run progress is updated.
type ProgressMsg types.ScanProgress

// DoneMsg is sent when the run has finished.
type DoneMsg struct {
	Err error
}

// NewProgressModel creates a progress model for root. cancel, if set, is
// called when the user interrupts the view.
func NewProgressModel(rootPath, version string, cancel context.CancelFunc) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = headingStyle.UnsetBold()

	return ProgressModel{
		spinner:   s,
		startTime: time.Now(),
		width:     80,
		rootPath:  rootPath,
		version:   version,
		cancel:    cancel,
	}
}

// Init initializes the progress model.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages for the progress model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
		return m, nil

	case ProgressMsg:
		m.progress = types.ScanProgress(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress model.
func (m ProgressModel) View() string {
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(rule(contentWidth))
	b.WriteString("\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(failStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.done:
		b.WriteString(okStyle.Render("Done"))
	default:
		b.WriteString(fmt.Sprintf("%s Hashing: %s", m.spinner.View(),
			truncatePath(m.progress.CurrentPath, contentWidth-12)))
	}
	b.WriteString("\n")
	b.WriteString(m.renderProgressBar(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderStats(contentWidth))

	return frameStyle.Width(m.width - 2).Render(b.String())
}

func (m ProgressModel) renderHeader(width int) string {
	title := headingStyle.Render("dir2ml " + m.version)
	root := dimStyle.Render(truncatePath(m.rootPath, width/2))
	hint := dimStyle.Render("[q to stop]")

	spacing := width - lipgloss.Width(title) - lipgloss.Width(root) - lipgloss.Width(hint) - 2
	if spacing < 1 {
		spacing = 1
	}
	return title + " " + root + strings.Repeat(" ", spacing) + " " + hint
}

// renderProgressBar draws a filled bar when estimated totals are known and
// a pulse otherwise.
func (m ProgressModel) renderProgressBar(width int) string {
	barWidth := width - 8
	if barWidth < 10 {
		barWidth = 10
	}

	if frac, ok := m.fraction(); ok {
		filled := int(frac * float64(barWidth))
		return okStyle.Render(strings.Repeat(barFull, filled)) +
			dimStyle.Render(strings.Repeat(barEmpty, barWidth-filled)) +
			fmt.Sprintf(" %3.0f%%", frac*100)
	}

	elapsed := time.Since(m.startTime)
	position := int(elapsed.Seconds()*8) % (barWidth * 2)
	if position > barWidth {
		position = barWidth*2 - position
	}
	pulseWidth := barWidth / 5
	if pulseWidth < 3 {
		pulseWidth = 3
	}

	var bar strings.Builder
	for i := range barWidth {
		dist := i - position
		if dist < 0 {
			dist = -dist
		}
		if dist < pulseWidth {
			bar.WriteString(okStyle.Render(barFull))
		} else {
			bar.WriteString(dimStyle.Render(barEmpty))
		}
	}
	return bar.String()
}

// fraction reports completed bytes over estimated bytes, clamped to 1.
func (m ProgressModel) fraction() (float64, bool) {
	if m.progress.TotalBytes <= 0 {
		return 0, false
	}
	frac := float64(m.progress.BytesHashed) / float64(m.progress.TotalBytes)
	if frac > 1 {
		frac = 1
	}
	return frac, true
}

func (m ProgressModel) renderStats(totalWidth int) string {
	boxWidth := (totalWidth - 8) / 5
	if boxWidth < 10 {
		boxWidth = 10
	}

	files := humanize.Comma(m.progress.FilesHashed)
	if m.progress.TotalFiles > 0 {
		files += "/" + humanize.Comma(m.progress.TotalFiles)
	}

	merged := numberStyle.Render(humanize.Comma(m.progress.Merges))
	if m.progress.Collisions > 0 {
		merged += warnStyle.Render(fmt.Sprintf(" !%d", m.progress.Collisions))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Dirs", numberStyle.Render(humanize.Comma(m.progress.DirsVisited)), boxWidth), " ",
		renderStatBox("Files", numberStyle.Render(files), boxWidth), " ",
		renderStatBox("Hashed", numberStyle.Render(humanize.IBytes(uint64(m.progress.BytesHashed))), boxWidth), " ",
		renderStatBox("Merged", merged, boxWidth), " ",
		renderStatBox("Time", numberStyle.Render(formatDuration(time.Since(m.startTime))), boxWidth))
}

func renderStatBox(label, value string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.PlaceHorizontal(width-4, lipgloss.Center, dimStyle.Render(label)),
		lipgloss.PlaceHorizontal(width-4, lipgloss.Center, value))
	return cellStyle.Width(width).Render(content)
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}

// IsDone returns true if the run is complete.
func (m ProgressModel) IsDone() bool {
	return m.done
}

// Err returns the error the run finished with.
func (m ProgressModel) Err() error {
	return m.err
}

// Options configures Run.
type Options struct {
	Root    string
	Version string
	Output  io.Writer
	Cancel  context.CancelFunc
}

// Run shows the progress view while run executes. run receives a report
// callback that forwards snapshots to the view. Run returns once both the
// view and run have finished, with run's error.
func Run(opts Options, run func(report func(types.ScanProgress)) error) error {
	model := NewProgressModel(opts.Root, opts.Version, opts.Cancel)

	progOpts := []tea.ProgramOption{}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	p := tea.NewProgram(model, progOpts...)

	errc := make(chan error, 1)
	go func() {
		err := run(func(sp types.ScanProgress) {
			p.Send(ProgressMsg(sp))
		})
		errc <- err
		p.Send(DoneMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		if opts.Cancel != nil {
			opts.Cancel()
		}
		<-errc
		return fmt.Errorf("progress view: %w", err)
	}
	return <-errc
}
