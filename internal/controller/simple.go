package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "splice.dev/pkg/splice/internal/model"
)

const journalExcerptLimit = 60

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd    *cobra.Command
	config StartConfig
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd, config: newStartConfig(nil)}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.config = newStartConfig(options)

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// DisplayPlan prints how many files are about to be processed.
func (s *SimpleUI) DisplayPlan(ctx context.Context, files []m.File, parallel int) {
	if err := ctx.Err(); err != nil {
		return
	}

	workers := "unlimited"
	if parallel > 0 {
		workers = fmt.Sprintf("%d", parallel)
	}

	s.printf("%s %d macro file(s) with %s worker(s)\n", s.config.mode.verb(), len(files), workers)
}

// DisplayStarted prints the file a worker picked up.
func (s *SimpleUI) DisplayStarted(ctx context.Context, file m.File) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s %s\n", s.config.mode.verb(), file.Source)
}

// DisplayCompleted prints the outcome of one file, and its diff in check mode.
func (s *SimpleUI) DisplayCompleted(ctx context.Context, report m.Report) {
	if err := ctx.Err(); err != nil {
		return
	}

	if report.Err != nil {
		s.printf("%s %s: %v\n", statusLabel(report.Status), report.Source, report.Err)
		return
	}

	s.printf("%s %s -> %s (%s)\n", statusLabel(report.Status), report.Source, report.Target, describeStats(report))

	if report.Status == m.Checked {
		if report.Diff == "" {
			s.printf("no changes\n")
		} else {
			s.printf("%s", report.Diff)
		}
	}
}

// DisplaySummary prints a table of all reports.
func (s *SimpleUI) DisplaySummary(ctx context.Context, reports []m.Report) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", renderSummaryTable(reports))
}

// DisplayListing prints the macro sites found per file.
func (s *SimpleUI) DisplayListing(ctx context.Context, listings []m.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderListingTable(listings))

	return nil
}

// DisplayJournal prints the recorded evaluations.
func (s *SimpleUI) DisplayJournal(ctx context.Context, entries []m.Evaluation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(entries) == 0 {
		s.printf("journal is empty\n")
		return nil
	}

	s.printf("%s", renderJournalTable(entries))

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func statusLabel(status m.Status) string {
	switch status {
	case m.Expanded:
		return color.GreenString(status.String())
	case m.Unchanged, m.Checked:
		return color.CyanString(status.String())
	case m.Failed:
		return color.RedString(status.String())
	default:
		return status.String()
	}
}

func describeStats(report m.Report) string {
	return fmt.Sprintf("%d evaluated, %d cached, %d cycles, %s",
		report.Stats.Evaluations, report.Stats.CacheHits, report.Stats.Cycles, report.Duration.Round(time.Millisecond))
}

func renderSummaryTable(reports []m.Report) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Source", "Status", "Evaluated", "Cached", "Cycles", "Duration"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	failed := 0
	evaluated := 0

	for _, report := range reports {
		if report.Status == m.Failed {
			failed++
		}

		evaluated += report.Stats.Evaluations

		table.Append([]string{
			string(report.Source),
			report.Status.String(),
			fmt.Sprintf("%d", report.Stats.Evaluations),
			fmt.Sprintf("%d", report.Stats.CacheHits),
			fmt.Sprintf("%d", report.Stats.Cycles),
			report.Duration.Round(time.Millisecond).String(),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(reports)),
		fmt.Sprintf("%d failed", failed),
		fmt.Sprintf("%d", evaluated),
		"", "", "",
	})

	table.Render()

	return tableBuffer.String()
}

func renderListingTable(listings []m.Listing) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Definitions", "Calls", "Imports", "Directives"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
	})

	calls := 0

	for _, listing := range listings {
		if listing.Err != nil {
			table.Append([]string{string(listing.Source), listing.Err.Error(), "", "", ""})
			continue
		}

		calls += listing.Calls

		table.Append([]string{
			string(listing.Source),
			fmt.Sprintf("%d", listing.Definitions),
			fmt.Sprintf("%d", listing.Calls),
			fmt.Sprintf("%d", listing.Imports),
			fmt.Sprintf("%d", listing.Directives),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(listings)),
		"",
		fmt.Sprintf("%d", calls),
		"", "",
	})

	table.Render()

	return tableBuffer.String()
}

func renderJournalTable(entries []m.Evaluation) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Source", "Started", "Duration", "Result"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, entry := range entries {
		result := entry.Output
		if entry.Error != "" {
			result = "error: " + entry.Error
		}

		table.Append([]string{
			string(entry.Source),
			entry.Started.Format(time.RFC3339),
			entry.Duration.Round(time.Millisecond).String(),
			oneLine(result),
		})
	}

	table.Render()

	return tableBuffer.String()
}

func oneLine(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)

	if len(runes) <= journalExcerptLimit {
		return text
	}

	return string(runes[:journalExcerptLimit]) + "..."
}
