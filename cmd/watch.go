package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"splice.dev/pkg/splice/internal/domain"
	m "splice.dev/pkg/splice/internal/model"
)

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Rebuild macro files when they change",
		Long:  watchLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			bindBuildFlags(cmd)

			return watchMacroFiles(cmd.Context(), cmd, buildArgs(args))
		},
	}

	configureBuildFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// watchMacroFiles builds once, then rebuilds single files on write events
// until ctx ends. Build failures are reported and do not stop watching.
func watchMacroFiles(ctx context.Context, cmd *cobra.Command, args domain.BuildArgs) error {
	files, err := workflow.Discover(args)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() { _ = watcher.Close() }()

	hashes := make(map[m.Path]string, len(files))
	watched := make(map[string]bool)

	for _, file := range files {
		dir := filepath.Dir(string(file.Source))
		if watched[dir] {
			continue
		}

		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		watched[dir] = true
	}

	if err := workflow.Build(ctx, args); err != nil {
		cmd.PrintErrln(err)
	}

	for _, file := range files {
		if hash, err := fsAdapter.HashFile(file.Source); err == nil {
			hashes[file.Source] = hash
		}
	}

	cmd.Printf("Watching %d director(ies) for changes\n", len(watched))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			return fmt.Errorf("watch: %w", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			rebuild(ctx, cmd, args, m.Path(event.Name), hashes)
		}
	}
}

func rebuild(ctx context.Context, cmd *cobra.Command, args domain.BuildArgs, path m.Path, hashes map[m.Path]string) {
	file, err := domain.ParseMacroPath(path)
	if err != nil {
		return
	}

	hash, err := fsAdapter.HashFile(file.Source)
	if err != nil || hash == hashes[file.Source] {
		return
	}

	hashes[file.Source] = hash

	slog.Info("Macro file changed", "source", file.Source)

	single := args
	single.Paths = []m.Path{file.Source}

	if err := workflow.Build(ctx, single); err != nil {
		cmd.PrintErrln(err)
	}
}
