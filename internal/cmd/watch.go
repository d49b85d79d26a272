package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/config"
	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/screen"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Classify frames as they are written to a directory",
	Long: `Watch a directory and classify every frame written to it.

Point an emulator's screenshot folder (or a capture script) at the
directory to tune templates and thresholds while playing by hand.
Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", screen.DefaultDebounce, "Quiet period before a written frame is read")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	classifier, err := buildClassifier(cfg, logger)
	if err != nil {
		return err
	}
	warnMissingTemplates(cmd.ErrOrStderr(), classifier.Library())

	watcher, err := screen.NewWatcher(dir, watchDebounce)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	candidates := cfg.SequenceConfig().Candidates
	battle := cfg.Sequence.BattleScreen
	fmt.Fprintf(out, "Watching %s for frames. Press Ctrl+C to stop.\n", dir)

	err = watcher.Run(ctx,
		func(path string) {
			frame, err := screen.LoadFrame(path)
			if err != nil {
				// Frames are often caught half written; the next write event retries.
				logger.Debug("frame not readable yet", "path", path, "error", err.Error())
				return
			}
			frame = screen.Resize(frame, cfg.Capture.ScaleWidth)
			outcome, res := classifier.ScanForOutcome(frame, candidates)
			fmt.Fprintf(out, "%s  battle=%v  %s", filepath.Base(path), classifier.IsPresent(frame, battle, 0), outcome)
			if outcome != vision.NotDetected {
				fmt.Fprintf(out, " (%s %.3f)", res.Template, res.Confidence)
			} else {
				fmt.Fprintf(out, " (best %s %.3f)", res.Template, res.Confidence)
			}
			fmt.Fprintln(out)
			logFrame(logger, path, outcome, res)
		},
		func(err error) {
			logger.Warn("watch error", "dir", dir, "error", err.Error())
		},
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
