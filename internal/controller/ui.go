// Package controller provides the progress displays of the splice CLI.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "splice.dev/pkg/splice/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeBuild StartMode = iota
	ModeCheck
)

func (s StartMode) verb() string {
	if s == ModeCheck {
		return "Checking"
	}

	return "Expanding"
}

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithBuildMode sets the UI to build mode.
func WithBuildMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeBuild
	}
}

// WithCheckMode sets the UI to dry-run mode, where diffs are shown.
func WithCheckMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeCheck
	}
}

func newStartConfig(options []StartOption) StartConfig {
	config := StartConfig{mode: ModeBuild}
	for _, option := range options {
		option(&config)
	}

	return config
}

// UI defines the interface for displaying workflow progress and results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	DisplayPlan(ctx context.Context, files []m.File, parallel int)
	DisplayStarted(ctx context.Context, file m.File)
	DisplayCompleted(ctx context.Context, report m.Report)
	DisplaySummary(ctx context.Context, reports []m.Report)
	DisplayListing(ctx context.Context, listings []m.Listing) error
	DisplayJournal(ctx context.Context, entries []m.Evaluation) error
}

// NewUI returns the interactive UI on terminals and the plain one elsewhere.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
