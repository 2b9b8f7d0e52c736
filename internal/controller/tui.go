package controller

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	m "splice.dev/pkg/splice/internal/model"
)

const (
	queuedLabel  = "queued"
	workingLabel = "working"
)

// TUI implements UI using Bubble Tea: a spinner, one line per file and a
// progress bar. Listings and the journal are static and printed like SimpleUI.
type TUI struct {
	cmd    *cobra.Command
	simple *SimpleUI
	config StartConfig

	mu      sync.Mutex
	events  chan tea.Msg
	done    chan struct{}
	reports []m.Report
}

// NewTUI creates a new TUI.
func NewTUI(cmd *cobra.Command) *TUI {
	return &TUI{cmd: cmd, simple: NewSimpleUI(cmd), config: newStartConfig(nil)}
}

// Start launches the Bubble Tea program.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.config = newStartConfig(options)
	t.events = make(chan tea.Msg, 64)
	t.done = make(chan struct{})
	t.reports = nil

	model := newProgressModel(t.config.mode.verb()+" macro files", t.events)
	program := tea.NewProgram(model, tea.WithOutput(t.output()), tea.WithInput(nil))

	go func(events <-chan tea.Msg, done chan struct{}) {
		defer close(done)

		if _, err := program.Run(); err != nil {
			_, _ = fmt.Fprintf(t.output(), "ui error: %v\n", err)
		}

		// keep senders unblocked if the program stopped early
		for range events {
		}
	}(t.events, t.done)

	return nil
}

// Close stops the program and prints what does not fit a progress view:
// errors and, in check mode, diffs.
func (t *TUI) Close(_ context.Context) {
	t.mu.Lock()
	events, done := t.events, t.done
	t.events = nil
	t.mu.Unlock()

	if events == nil {
		return
	}

	close(events)
	<-done

	for _, report := range t.reports {
		switch {
		case report.Err != nil:
			_, _ = fmt.Fprintf(t.output(), "%s %s: %v\n", statusLabel(report.Status), report.Source, report.Err)
		case report.Status == m.Checked && report.Diff != "":
			_, _ = fmt.Fprint(t.output(), report.Diff)
		}
	}
}

// DisplayPlan lists the queued files.
func (t *TUI) DisplayPlan(_ context.Context, files []m.File, _ int) {
	paths := make([]string, 0, len(files))
	for _, file := range files {
		paths = append(paths, string(file.Source))
	}

	t.send(planMsg(paths))
}

// DisplayStarted marks a file as in progress.
func (t *TUI) DisplayStarted(_ context.Context, file m.File) {
	t.send(fileMsg{path: string(file.Source), status: workingLabel})
}

// DisplayCompleted marks a file as finished.
func (t *TUI) DisplayCompleted(_ context.Context, report m.Report) {
	t.mu.Lock()
	t.reports = append(t.reports, report)
	t.mu.Unlock()

	t.send(fileMsg{path: string(report.Source), status: report.Status.String(), finished: true})
}

// DisplaySummary shows the totals under the progress bar.
func (t *TUI) DisplaySummary(_ context.Context, reports []m.Report) {
	summary := summaryMsg{files: len(reports)}

	for _, report := range reports {
		summary.evaluated += report.Stats.Evaluations
		if report.Status == m.Failed {
			summary.failed++
		}
	}

	t.send(summary)
}

// DisplayListing prints the listing table.
func (t *TUI) DisplayListing(ctx context.Context, listings []m.Listing) error {
	return t.simple.DisplayListing(ctx, listings)
}

// DisplayJournal prints the journal table.
func (t *TUI) DisplayJournal(ctx context.Context, entries []m.Evaluation) error {
	return t.simple.DisplayJournal(ctx, entries)
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.events != nil {
		t.events <- msg
	}
}

func (t *TUI) output() io.Writer {
	return t.cmd.OutOrStdout()
}

type planMsg []string

type fileMsg struct {
	path     string
	status   string
	finished bool
}

type summaryMsg struct {
	files     int
	failed    int
	evaluated int
}

type closedMsg struct{}

type fileItem struct {
	path     string
	status   string
	finished bool
}

type progressModel struct {
	title   string
	events  <-chan tea.Msg
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	summary *summaryMsg
	width   int
	done    bool
}

func newProgressModel(title string, events <-chan tea.Msg) *progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		index:   make(map[string]int),
		width:   80,
	}
}

func (pm *progressModel) Init() tea.Cmd {
	return tea.Batch(pm.spinner.Tick, pm.listen())
}

func (pm *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case planMsg:
		for _, path := range msg {
			pm.index[path] = len(pm.items)
			pm.items = append(pm.items, fileItem{path: path, status: queuedLabel})
		}

		return pm, pm.listen()
	case fileMsg:
		return pm, tea.Batch(pm.apply(msg), pm.listen())
	case summaryMsg:
		pm.summary = &msg
		return pm, pm.listen()
	case closedMsg:
		pm.done = true
		return pm, tea.Quit
	case spinner.TickMsg:
		if pm.done {
			return pm, nil
		}

		var cmd tea.Cmd
		pm.spinner, cmd = pm.spinner.Update(msg)

		return pm, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			pm.width = msg.Width
			pm.prog.Width = msg.Width - 4
		}

		return pm, nil
	case progress.FrameMsg:
		model, cmd := pm.prog.Update(msg)
		pm.prog = model.(progress.Model)

		return pm, cmd
	}

	return pm, nil
}

func (pm *progressModel) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-pm.events
		if !ok {
			return closedMsg{}
		}

		return msg
	}
}

func (pm *progressModel) apply(msg fileMsg) tea.Cmd {
	idx, ok := pm.index[msg.path]
	if !ok {
		return nil
	}

	pm.items[idx].status = msg.status
	pm.items[idx].finished = msg.finished

	return pm.prog.SetPercent(pm.percent())
}

func (pm *progressModel) percent() float64 {
	if len(pm.items) == 0 {
		return 0
	}

	finished := 0

	for _, item := range pm.items {
		if item.finished {
			finished++
		}
	}

	return float64(finished) / float64(len(pm.items))
}

func (pm *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))

	header := pm.title
	if pm.done {
		header = "done: " + header
	} else {
		header = pm.spinner.View() + " " + header
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 10

	nameWidth := pm.width - statusWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}

	for _, item := range pm.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%10s", item.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(item.path, nameWidth))
	}

	b.WriteString("\n")

	if pm.done {
		b.WriteString(pm.prog.ViewAs(1.0))
	} else {
		b.WriteString(pm.prog.View())
	}

	b.WriteString("\n")

	if pm.summary != nil {
		fmt.Fprintf(&b, "\n  %d file(s), %d failed, %d evaluation(s)\n",
			pm.summary.files, pm.summary.failed, pm.summary.evaluated)
	}

	return b.String()
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case m.Expanded.String(), m.Unchanged.String(), m.Checked.String():
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case m.Failed.String():
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case workingLabel:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}

	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}

	return runewidth.Truncate(value, width, "...")
}
