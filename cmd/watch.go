package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchFlags    runFlags
	watchJSON     bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Re-run the report whenever the source file changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := sourceArg(args)
		if err != nil {
			return err
		}
		p, err := watchFlags.newPipeline()
		if err != nil {
			return err
		}
		req, err := watchFlags.request(path)
		if err != nil {
			return err
		}
		debounce := watchDebounce
		if !cmd.Flags().Changed("debounce") {
			debounce = time.Duration(currentConfig().WatchDebounceMs) * time.Millisecond
		}

		out := cmd.OutOrStdout()
		runOnce := func() {
			res, err := p.Run(req)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "✗ Error:", friendlyError(path, err))
				return
			}
			body, err := render(res, watchJSON)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "✗ Error:", err)
				return
			}
			fmt.Fprintf(out, "--- %s (%s) ---\n", filepath.Base(path), time.Now().Format(time.TimeOnly))
			fmt.Fprintln(out, string(body))
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		runOnce()
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Watching %s (Ctrl+C to stop)\n", path)
		return watchFile(ctx, path, debounce, func() {
			if abs, err := filepath.Abs(path); err == nil {
				cache.Invalidate(abs)
			}
			runOnce()
		})
	},
}

// watchFile calls onChange once per burst of writes to path, after debounce
// has passed without further events. The parent directory is watched so
// editors that replace the file by rename are still seen. It returns when
// ctx is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("source changed", zap.String("path", abs), zap.String("op", ev.Op.String()))
			timer.Reset(debounce)
		case <-timer.C:
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchFlags.bind(watchCmd)
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "emit JSON instead of Markdown")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "quiet period before re-running (default from config)")
}
