package controller

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "splice.dev/pkg/splice/internal/model"
)

func TestProgressModel(t *testing.T) {
	pm := newProgressModel("Expanding macro files", nil)

	pm.Update(planMsg{"a.macro.ts", "b.macro.ts"})
	require.Len(t, pm.items, 2)
	assert.Contains(t, pm.View(), queuedLabel)
	assert.Zero(t, pm.percent())

	pm.Update(fileMsg{path: "a.macro.ts", status: workingLabel})
	assert.Equal(t, workingLabel, pm.items[0].status)
	assert.Zero(t, pm.percent())

	pm.Update(fileMsg{path: "a.macro.ts", status: m.Expanded.String(), finished: true})
	assert.InDelta(t, 0.5, pm.percent(), 1e-9)

	pm.Update(fileMsg{path: "unknown.macro.ts", status: workingLabel})
	assert.Len(t, pm.items, 2)

	pm.Update(summaryMsg{files: 2, failed: 1, evaluated: 3})
	assert.Contains(t, pm.View(), "2 file(s), 1 failed, 3 evaluation(s)")

	pm.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, pm.width)

	_, cmd := pm.Update(closedMsg{})
	assert.NotNil(t, cmd)
	assert.True(t, pm.done)

	view := pm.View()
	assert.Contains(t, view, "done: Expanding macro files")
	assert.Contains(t, view, "a.macro.ts")
	assert.Contains(t, view, "b.macro.ts")
}

func TestProgressModel_ListenReportsClose(t *testing.T) {
	events := make(chan tea.Msg, 1)
	pm := newProgressModel("title", events)

	events <- planMsg{"a.macro.ts"}
	assert.Equal(t, planMsg{"a.macro.ts"}, pm.listen()())

	close(events)
	assert.Equal(t, closedMsg{}, pm.listen()())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		value string
		width int
		want  string
	}{
		{value: "short", width: 10, want: "short"},
		{value: "abcdefghij", width: 6, want: "abc..."},
		{value: "abcdefghij", width: 2, want: "ab"},
		{value: "abc", width: 0, want: "abc"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.value, tt.width))
	}
}

func TestTUI_PrintsFailuresAfterClose(t *testing.T) {
	cmd, out := newTestCommand(t)
	ctx := context.Background()

	tui := NewTUI(cmd)
	require.NoError(t, tui.Start(ctx, WithBuildMode()))

	files := []m.File{{Source: "a.macro.ts"}, {Source: "b.macro.ts"}}
	tui.DisplayPlan(ctx, files, 2)

	reports := []m.Report{
		{Source: "a.macro.ts", Status: m.Expanded},
		{Source: "b.macro.ts", Status: m.Failed, Err: errors.New("b.macro.ts: evaluation failed")},
	}

	for i, report := range reports {
		tui.DisplayStarted(ctx, files[i])
		tui.DisplayCompleted(ctx, report)
	}

	tui.DisplaySummary(ctx, reports)
	tui.Close(ctx)

	assert.Contains(t, out.String(), "failed b.macro.ts: b.macro.ts: evaluation failed")

	// closing twice is a no-op
	tui.Close(ctx)
}

func TestNewUI(t *testing.T) {
	cmd, _ := newTestCommand(t)

	assert.IsType(t, &SimpleUI{}, NewUI(cmd, false))
	assert.IsType(t, &TUI{}, NewUI(cmd, true))
}

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))

	file, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer file.Close()

	assert.False(t, IsTTY(file))
}
