package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/sync/errgroup"

	"splice.dev/pkg/splice/internal/adapter"
	"splice.dev/pkg/splice/internal/controller"
	m "splice.dev/pkg/splice/internal/model"
	"splice.dev/pkg/splice/internal/scan"
)

// ErrNoJournal is returned when the journal is requested but none is configured.
var ErrNoJournal = errors.New("no evaluation journal configured")

const outputPerm = 0o644

// BuildArgs contains the arguments shared by the build, check and list workflows.
type BuildArgs struct {
	Paths     []m.Path
	Exclude   []string
	Recursive bool
	Debug     bool
	Parallel  int
	Timeout   time.Duration
	MaxCycles int
	FailFast  bool
	DryRun    bool
}

// Workflow expands macro files.
type Workflow interface {
	// Discover resolves args.Paths to macro files.
	Discover(args BuildArgs) ([]m.File, error)
	// Build expands every macro file and writes the sibling outputs.
	Build(ctx context.Context, args BuildArgs) error
	// Check expands every macro file and displays a diff instead of writing.
	Check(ctx context.Context, args BuildArgs) error
	// List displays the macro sites of every macro file without evaluating.
	List(ctx context.Context, args BuildArgs) error
	// Journal loads the evaluations recorded by debug builds.
	Journal(ctx context.Context) ([]m.Evaluation, error)
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.Sandbox
	controller.UI
	journal adapter.JournalStore
}

// NewWorkflow creates a Workflow. journal may be nil, in which case debug
// builds keep no journal.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	sandbox adapter.Sandbox,
	ui controller.UI,
	journal adapter.JournalStore,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		Sandbox:         sandbox,
		UI:              ui,
		journal:         journal,
	}
}

// ParseMacroPath maps name.macro.ext to its output name.ext.
func ParseMacroPath(path m.Path) (m.File, error) {
	dir, base := filepath.Split(string(path))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	name, ok := strings.CutSuffix(stem, m.MacroSuffix)
	if ext == "" || !ok || name == "" {
		return m.File{}, fmt.Errorf("%w: %s", ErrNotMacroFile, path)
	}

	return m.File{
		Source: path,
		Target: m.Path(filepath.Join(dir, name+ext)),
		Ext:    ext,
	}, nil
}

func (w *workflow) Discover(args BuildArgs) ([]m.File, error) {
	exclude, err := compileExcludes(args.Exclude)
	if err != nil {
		return nil, err
	}

	paths := args.Paths
	if len(paths) == 0 {
		paths = []m.Path{"."}
	}

	var files []m.File

	seen := make(map[m.Path]bool)
	add := func(file m.File) {
		if seen[file.Source] || excluded(exclude, file.Source) {
			return
		}

		seen[file.Source] = true
		files = append(files, file)
	}

	for _, path := range paths {
		root, recursive := splitRecursive(path)
		recursive = recursive || args.Recursive

		info, err := w.FileInfo(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}

		if !info.IsDir() {
			file, err := ParseMacroPath(root)
			if err != nil {
				return nil, err
			}

			add(file)

			continue
		}

		err = w.Walk(root, recursive, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				return nil
			}

			if file, err := ParseMacroPath(m.Path(p)); err == nil {
				add(file)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	return files, nil
}

// splitRecursive handles the ./... suffix.
func splitRecursive(path m.Path) (m.Path, bool) {
	p := string(path)
	if p == "..." {
		return ".", true
	}

	if root, ok := strings.CutSuffix(p, "/..."); ok {
		if root == "" {
			root = "/"
		}

		return m.Path(root), true
	}

	return path, false
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		compiled = append(compiled, re)
	}

	return compiled, nil
}

func excluded(patterns []*regexp.Regexp, path m.Path) bool {
	for _, re := range patterns {
		if re.MatchString(string(path)) {
			return true
		}
	}

	return false
}

func (w *workflow) Build(ctx context.Context, args BuildArgs) error {
	args.DryRun = false
	return w.expandAll(ctx, args, controller.WithBuildMode())
}

func (w *workflow) Check(ctx context.Context, args BuildArgs) error {
	args.DryRun = true
	return w.expandAll(ctx, args, controller.WithCheckMode())
}

func (w *workflow) expandAll(ctx context.Context, args BuildArgs, mode controller.StartOption) error {
	files, err := w.Discover(args)
	if err != nil {
		slog.Error("Failed to discover macro files", "error", err)
		return fmt.Errorf("discover: %w", err)
	}

	if err := w.Start(ctx, mode); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	defer w.Close(ctx)

	w.DisplayPlan(ctx, files, args.Parallel)

	reports := w.expandFiles(ctx, args, files)

	w.DisplaySummary(ctx, reports)

	var errs []error

	for _, report := range reports {
		if report.Err != nil {
			errs = append(errs, report.Err)
		}
	}

	return errors.Join(errs...)
}

// expandFiles runs one session per file. A failure only affects its own file
// unless FailFast is set, in which case it cancels the remaining sessions.
func (w *workflow) expandFiles(ctx context.Context, args BuildArgs, files []m.File) []m.Report {
	reports := make([]m.Report, len(files))

	group := &errgroup.Group{}
	groupCtx := ctx

	if args.FailFast {
		group, groupCtx = errgroup.WithContext(ctx)
	}

	if args.Parallel > 0 {
		group.SetLimit(args.Parallel)
	}

	for i, file := range files {
		group.Go(func() error {
			w.DisplayStarted(ctx, file)

			report := w.expandFile(groupCtx, args, file)
			reports[i] = report

			w.DisplayCompleted(ctx, report)

			if args.FailFast {
				return report.Err
			}

			return nil
		})
	}

	_ = group.Wait()

	return reports
}

func (w *workflow) expandFile(ctx context.Context, args BuildArgs, file m.File) (report m.Report) {
	started := time.Now()
	report = m.Report{Source: file.Source, Target: file.Target}

	defer func() {
		report.Duration = time.Since(started)
		if report.Err != nil {
			report.Status = m.Failed
			slog.Error("Expansion failed", "source", file.Source, "error", report.Err)
		}
	}()

	if args.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, args.Timeout)
		defer cancel()
	}

	content, err := w.ReadFile(file.Source)
	if err != nil {
		report.Err = fmt.Errorf("read %s: %w", file.Source, err)
		return report
	}

	session := NewSession(
		string(content),
		w.evaluatorFor(args, file),
		WithMaxCycles(args.MaxCycles),
		WithSource(file.Source),
	)

	output, err := session.Expand(ctx)
	report.Stats = session.Stats()

	if err != nil {
		report.Err = fmt.Errorf("%s: %w", file.Source, err)
		return report
	}

	if args.DryRun {
		report.Status = m.Checked

		report.Diff, err = unifiedDiff(file, string(content), output)
		if err != nil {
			report.Err = fmt.Errorf("diff %s: %w", file.Source, err)
		}

		return report
	}

	if err := w.WriteFile(file.Target, []byte(output), outputPerm); err != nil {
		report.Err = fmt.Errorf("write %s: %w", file.Target, err)
		return report
	}

	report.Status = m.Expanded
	if output == string(content) {
		report.Status = m.Unchanged
	}

	slog.Info("Expanded macro file", "source", file.Source, "target", file.Target, "evaluations", report.Stats.Evaluations)

	return report
}

func (w *workflow) evaluatorFor(args BuildArgs, file m.File) Evaluator {
	spec := adapter.SandboxSpec{
		Dir:  m.Path(filepath.Dir(string(file.Source))),
		Ext:  file.Ext,
		Keep: args.Debug,
	}

	evaluator := NewSandboxEvaluator(w.Sandbox, spec)

	if args.Debug && w.journal != nil {
		evaluator = NewJournalingEvaluator(evaluator, w.journal, file.Source)
	}

	return evaluator
}

func unifiedDiff(file m.File, before, after string) (string, error) {
	if before == after {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: string(file.Source),
		ToFile:   string(file.Target),
		Context:  3,
	})
}

func (w *workflow) List(ctx context.Context, args BuildArgs) error {
	files, err := w.Discover(args)
	if err != nil {
		slog.Error("Failed to discover macro files", "error", err)
		return fmt.Errorf("discover: %w", err)
	}

	listings := make([]m.Listing, 0, len(files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		listings = append(listings, w.listFile(file))
	}

	return w.DisplayListing(ctx, listings)
}

func (w *workflow) listFile(file m.File) m.Listing {
	listing := m.Listing{Source: file.Source}

	content, err := w.ReadFile(file.Source)
	if err != nil {
		listing.Err = err
		return listing
	}

	snap := scan.NewSnapshot(string(content))

	for _, st := range findSites(snap) {
		switch {
		case st.Declared:
		case st.Defines:
			listing.Definitions++
		default:
			listing.Calls++
		}
	}

	listing.Imports = collectImports(snap, NewImportSet())
	listing.Directives = len(findDirectives(snap))

	return listing
}

func (w *workflow) Journal(ctx context.Context) ([]m.Evaluation, error) {
	if w.journal == nil {
		return nil, ErrNoJournal
	}

	return w.journal.Load(ctx)
}
