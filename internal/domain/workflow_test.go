package domain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splice.dev/pkg/splice/internal/adapter"
	m "splice.dev/pkg/splice/internal/model"
	"splice.dev/pkg/splice/internal/scan"
)

func TestParseMacroPath(t *testing.T) {
	tests := []struct {
		path    m.Path
		want    m.File
		wantErr bool
	}{
		{path: "src/a.macro.ts", want: m.File{Source: "src/a.macro.ts", Target: "src/a.ts", Ext: ".ts"}},
		{path: "b.macro.mjs", want: m.File{Source: "b.macro.mjs", Target: "b.mjs", Ext: ".mjs"}},
		{path: "c.d.macro.js", want: m.File{Source: "c.d.macro.js", Target: "c.d.js", Ext: ".js"}},
		{path: "a.ts", wantErr: true},
		{path: ".macro.ts", wantErr: true},
		{path: "a.macro", wantErr: true},
		{path: "dir.macro/a.ts", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.path), func(t *testing.T) {
			got, err := ParseMacroPath(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNotMacroFile)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWorkflow_Discover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.macro.ts"), "")
	writeFile(t, filepath.Join(root, "b.ts"), "")
	writeFile(t, filepath.Join(root, "sub", "c.macro.js"), "")
	writeFile(t, filepath.Join(root, "node_modules", "d.macro.ts"), "")
	writeFile(t, filepath.Join(root, ".cache", "e.macro.ts"), "")

	top := macroFile(t, filepath.Join(root, "a.macro.ts"))
	nested := macroFile(t, filepath.Join(root, "sub", "c.macro.js"))

	wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), &fakeSandbox{}, &recordingUI{}, nil)

	tests := []struct {
		name    string
		args    BuildArgs
		want    []m.File
		wantErr error
	}{
		{
			name: "directory",
			args: BuildArgs{Paths: []m.Path{m.Path(root)}},
			want: []m.File{top},
		},
		{
			name: "recursive suffix",
			args: BuildArgs{Paths: []m.Path{m.Path(root + "/...")}},
			want: []m.File{top, nested},
		},
		{
			name: "recursive flag",
			args: BuildArgs{Paths: []m.Path{m.Path(root)}, Recursive: true},
			want: []m.File{top, nested},
		},
		{
			name: "exclude",
			args: BuildArgs{Paths: []m.Path{m.Path(root + "/...")}, Exclude: []string{`/sub/`}},
			want: []m.File{top},
		},
		{
			name: "duplicates",
			args: BuildArgs{Paths: []m.Path{top.Source, m.Path(root)}},
			want: []m.File{top},
		},
		{
			name:    "plain file",
			args:    BuildArgs{Paths: []m.Path{m.Path(filepath.Join(root, "b.ts"))}},
			wantErr: ErrNotMacroFile,
		},
		{
			name:    "missing path",
			args:    BuildArgs{Paths: []m.Path{m.Path(filepath.Join(root, "missing"))}},
			wantErr: os.ErrNotExist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := wf.Discover(tt.args)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid exclude", func(t *testing.T) {
		_, err := wf.Discover(BuildArgs{Paths: []m.Path{m.Path(root)}, Exclude: []string{"("}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid exclude pattern")
	})
}

const twoSource = "function $two$() { return \"'2'\" }\n\nexport const x = $two$()\n"

func TestWorkflow_Build(t *testing.T) {
	t.Run("writes sibling outputs", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.macro.ts"), twoSource)
		writeFile(t, filepath.Join(root, "plain.macro.ts"), "const y = 1\n")

		sandbox := &fakeSandbox{reply: callOutputs(map[string]string{"$two$()": "2"})}
		ui := &recordingUI{}
		wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), sandbox, ui, nil)

		err := wf.Build(context.Background(), BuildArgs{Paths: []m.Path{m.Path(root)}, Parallel: 2})
		require.NoError(t, err)

		assert.Equal(t, "export const x = 2\n", readFile(t, filepath.Join(root, "a.ts")))
		assert.Equal(t, "const y = 1\n", readFile(t, filepath.Join(root, "plain.ts")))

		require.Len(t, ui.summary, 2)
		assert.Equal(t, m.Expanded, ui.summary[0].Status)
		assert.Equal(t, 1, ui.summary[0].Stats.Evaluations)
		assert.Equal(t, m.Unchanged, ui.summary[1].Status)
		assert.Len(t, ui.completed, 2)
		assert.Len(t, ui.plan, 2)
		assert.Equal(t, 2, ui.parallel)
		assert.True(t, ui.closed)

		require.Len(t, sandbox.specs, 1)
		assert.Equal(t, adapter.SandboxSpec{Dir: m.Path(root), Ext: ".ts"}, sandbox.specs[0])
	})

	t.Run("failed file is not written", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "bad.macro.ts"), "x = $nope$()\n")
		writeFile(t, filepath.Join(root, "good.macro.ts"), twoSource)

		sandbox := &fakeSandbox{reply: callOutputs(map[string]string{"$two$()": "2"})}
		ui := &recordingUI{}
		wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), sandbox, ui, nil)

		err := wf.Build(context.Background(), BuildArgs{Paths: []m.Path{m.Path(root)}, Parallel: 1})
		require.ErrorIs(t, err, ErrEvaluation)
		assert.Contains(t, err.Error(), "$nope$() is not defined")

		assert.NoFileExists(t, filepath.Join(root, "bad.ts"))
		assert.Equal(t, "export const x = 2\n", readFile(t, filepath.Join(root, "good.ts")))

		require.Len(t, ui.summary, 2)
		assert.Equal(t, m.Failed, ui.summary[0].Status)
		assert.Equal(t, m.Expanded, ui.summary[1].Status)
	})

	t.Run("unfinished call writes nothing", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.macro.ts"), "const a = $x$(1, 2")

		sandbox := &fakeSandbox{reply: callOutputs(nil)}
		wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), sandbox, &recordingUI{}, nil)

		err := wf.Build(context.Background(), BuildArgs{Paths: []m.Path{m.Path(root)}})
		require.ErrorIs(t, err, scan.ErrUnfinished)

		assert.NoFileExists(t, filepath.Join(root, "a.ts"))
		assert.Zero(t, sandbox.opened())
	})

	t.Run("fail fast cancels the rest", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.macro.ts"), "x = $nope$()\n")
		writeFile(t, filepath.Join(root, "b.macro.ts"), twoSource)

		sandbox := &fakeSandbox{reply: callOutputs(map[string]string{"$two$()": "2"})}
		ui := &recordingUI{}
		wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), sandbox, ui, nil)

		err := wf.Build(context.Background(), BuildArgs{
			Paths:    []m.Path{m.Path(root)},
			Parallel: 1,
			FailFast: true,
		})
		require.ErrorIs(t, err, ErrEvaluation)
		require.ErrorIs(t, err, context.Canceled)

		assert.NoFileExists(t, filepath.Join(root, "b.ts"))
		assert.Equal(t, 1, sandbox.opened())
	})

	t.Run("debug journals evaluations", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.macro.ts"), twoSource)

		sandbox := &fakeSandbox{reply: callOutputs(map[string]string{"$two$()": "2"})}
		journal := &memoryJournal{}
		wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), sandbox, &recordingUI{}, journal)

		err := wf.Build(context.Background(), BuildArgs{Paths: []m.Path{m.Path(root)}, Debug: true})
		require.NoError(t, err)

		require.Len(t, journal.entries, 1)
		assert.Equal(t, "2", journal.entries[0].Output)
		assert.Equal(t, m.Path(filepath.Join(root, "a.macro.ts")), journal.entries[0].Source)
		assert.True(t, sandbox.specs[0].Keep)
	})

	t.Run("cycle limit", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.macro.ts"), "$loop$()")

		sandbox := &fakeSandbox{reply: callOutputs(map[string]string{"$loop$()": "$loop$()"})}
		wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), sandbox, &recordingUI{}, nil)

		err := wf.Build(context.Background(), BuildArgs{Paths: []m.Path{m.Path(root)}, MaxCycles: 3})
		require.ErrorIs(t, err, ErrCycleLimit)
	})
}

func TestWorkflow_Check(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.macro.ts"), twoSource)
	writeFile(t, filepath.Join(root, "plain.macro.ts"), "const y = 1\n")

	sandbox := &fakeSandbox{reply: callOutputs(map[string]string{"$two$()": "2"})}
	ui := &recordingUI{}
	wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), sandbox, ui, nil)

	err := wf.Check(context.Background(), BuildArgs{Paths: []m.Path{m.Path(root)}})
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(root, "a.ts"))
	assert.NoFileExists(t, filepath.Join(root, "plain.ts"))

	require.Len(t, ui.summary, 2)
	assert.Equal(t, m.Checked, ui.summary[0].Status)
	assert.Contains(t, ui.summary[0].Diff, "--- "+filepath.Join(root, "a.macro.ts"))
	assert.Contains(t, ui.summary[0].Diff, "+++ "+filepath.Join(root, "a.ts"))
	assert.Contains(t, ui.summary[0].Diff, "-export const x = $two$()")
	assert.Contains(t, ui.summary[0].Diff, "+export const x = 2")
	assert.Empty(t, ui.summary[1].Diff)
}

func TestWorkflow_List(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.macro.ts"), `import a from "./a.ts"
declare function $d$(x: string): string
function $f$(x) { return x }
/* @macro
const z = $f$(1)
*/
export const y = $f$(2) + $f$(3)
`)

	sandbox := &fakeSandbox{}
	ui := &recordingUI{}
	wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), sandbox, ui, nil)

	err := wf.List(context.Background(), BuildArgs{Paths: []m.Path{m.Path(root)}})
	require.NoError(t, err)

	assert.Equal(t, []m.Listing{{
		Source:      m.Path(filepath.Join(root, "a.macro.ts")),
		Definitions: 1,
		Calls:       2,
		Imports:     1,
		Directives:  1,
	}}, ui.listings)
	assert.Zero(t, sandbox.opened())
}

func TestWorkflow_ListExamples(t *testing.T) {
	ui := &recordingUI{}
	wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), &fakeSandbox{}, ui, nil)

	err := wf.List(context.Background(), BuildArgs{Paths: []m.Path{"../../examples/..."}})
	require.NoError(t, err)

	examples := filepath.Join("..", "..", "examples")
	assert.Equal(t, []m.Listing{
		{Source: m.Path(filepath.Join(examples, "basic", "hello.macro.ts")), Definitions: 1, Calls: 1},
		{Source: m.Path(filepath.Join(examples, "directives", "squares.macro.ts")), Definitions: 1, Directives: 2},
		{Source: m.Path(filepath.Join(examples, "imports", "version.macro.ts")), Definitions: 1, Calls: 1, Imports: 1},
	}, ui.listings)
}

func TestWorkflow_Journal(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), &fakeSandbox{}, &recordingUI{}, nil)

		_, err := wf.Journal(context.Background())
		require.ErrorIs(t, err, ErrNoJournal)
	})

	t.Run("loads entries", func(t *testing.T) {
		journal := &memoryJournal{entries: []m.Evaluation{{Source: "a.macro.ts", Output: "1"}}}
		wf := NewWorkflow(adapter.NewLocalSourceFSAdapter(), &fakeSandbox{}, &recordingUI{}, journal)

		entries, err := wf.Journal(context.Background())
		require.NoError(t, err)
		assert.Equal(t, journal.entries, entries)
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

func macroFile(t *testing.T, path string) m.File {
	t.Helper()

	file, err := ParseMacroPath(m.Path(path))
	require.NoError(t, err)

	return file
}
