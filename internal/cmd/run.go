package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/config"
	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/input"
	"github.com/Iron-Ham/shinyhunt/internal/logging"
	"github.com/Iron-Ham/shinyhunt/internal/metrics"
	"github.com/Iron-Ham/shinyhunt/internal/sequence"
	"github.com/Iron-Ham/shinyhunt/internal/session"
	"github.com/Iron-Ham/shinyhunt/internal/tui"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start hunting",
	Long: `Start the soft-reset loop and keep going until a rare variant is found.

The emulator window must be open and visible. With a terminal attached a
live dashboard is shown; press q to stop. Otherwise progress is printed
line by line.

Examples:
  # Hunt with the configured window and templates
  shinyhunt run

  # Rehearse against saved frames without pressing any keys
  shinyhunt run --frames ./frames --dry-run

  # Keep the frame of every encounter for later inspection
  shinyhunt run --save-frames ./encounters`,
	RunE: runHunt,
}

var (
	runFramesDir  string
	runDryRun     bool
	runBackend    string
	runSaveFrames string
	runSaveAll    bool
	runNoTUI      bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFramesDir, "frames", "", "Replay frames from this directory instead of capturing the window")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Log key presses instead of sending them")
	runCmd.Flags().StringVar(&runBackend, "backend", "", "Input backend (overrides input.backend)")
	runCmd.Flags().StringVar(&runSaveFrames, "save-frames", "", "Save the frame of every encounter to this directory")
	runCmd.Flags().BoolVar(&runSaveAll, "save-all", false, "With --save-frames, also save scans that detected nothing")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "Print progress lines even when a terminal is attached")
}

func runHunt(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if runFramesDir != "" {
		cfg.Capture.FramesDir = runFramesDir
	}
	if runBackend != "" {
		cfg.Input.Backend = runBackend
	}
	if runDryRun {
		cfg.Input.Backend = "dry-run"
	}

	logger, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	classifier, err := buildClassifier(cfg, logger)
	if err != nil {
		return err
	}
	warnMissingTemplates(cmd.ErrOrStderr(), classifier.Library())

	actuator, err := input.New(cfg.Input.Backend, cfg.Input.Hold())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collector := metrics.New()
	var dashboard *tui.App
	observers := []sequence.Observer{
		collector,
		sequence.ObserverFunc(func(e sequence.Event) {
			if dashboard != nil {
				dashboard.Observe(e)
			}
		}),
	}
	if runSaveFrames != "" {
		observers = append(observers, frameSaver(runSaveFrames, runSaveAll, logger))
	}

	useTUI := !runNoTUI && term.IsTerminal(int(os.Stdout.Fd()))
	if !useTUI {
		observers = append(observers, progressPrinter(cmd.OutOrStdout()))
	}

	ctrl, err := sequence.New(cfg.SequenceConfig(), sequence.Deps{
		Source:     src,
		Classifier: classifier,
		Actuator:   actuator,
		Notifier:   buildNotifier(cfg),
	}, sequence.WithLogger(logger), sequence.WithObserver(observers...))
	if err != nil {
		return err
	}

	snap := ctrl.Snapshot()
	target := cfg.Capture.FramesDir
	if target == "" {
		target = cfg.Capture.WindowTitle
	}
	lock, err := session.Acquire(config.StateDir(), snap.ID, target, logger)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	logger.Info("hunt starting",
		logging.AttrRunID, snap.ID,
		"backend", cfg.Input.Backend,
		"frames_dir", cfg.Capture.FramesDir,
		"stages", len(cfg.Sequence.Stages),
	)

	var wg conc.WaitGroup
	if cfg.Metrics.Listen != "" {
		wg.Go(func() {
			if err := collector.Serve(ctx, cfg.Metrics.Listen, logger); err != nil {
				logger.Error("metrics server failed", "error", err.Error())
			}
		})
	}

	var runErr error
	if useTUI {
		dashboard = tui.New(snap, cancel)
		wg.Go(func() {
			runErr = ctrl.Run(ctx)
			dashboard.Done(runErr)
		})
		if err := dashboard.Run(); err != nil {
			logger.Warn("dashboard failed", "error", err.Error())
		}
		// The dashboard is gone; stop the hunt if it is still going.
		cancel()
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Hunting (run %s). Press Ctrl+C to stop.\n", snap.ShortID())
		runErr = ctrl.Run(ctx)
		cancel()
	}
	wg.Wait()

	return reportRun(cmd.OutOrStdout(), ctrl.Snapshot(), runErr)
}

// reportRun prints how the hunt ended. Stopping by signal or by the user is
// not an error; a stuck wait or a failed source is.
func reportRun(w io.Writer, run sequence.Run, runErr error) error {
	elapsed := run.Elapsed(time.Now()).Round(time.Second)
	switch {
	case runErr == nil:
		fmt.Fprintf(w, "Rare variant found after %d resets (%s): %s matched at %.3f\n",
			run.ResetCount, elapsed, run.Last.Template, run.Last.Confidence)
		return nil
	case errors.Is(runErr, context.Canceled):
		fmt.Fprintf(w, "Stopped after %d resets (%s)\n", run.ResetCount, elapsed)
		return nil
	default:
		fmt.Fprintf(w, "Hunt stopped after %d resets (%s)\n", run.ResetCount, elapsed)
		return runErr
	}
}

// progressPrinter reports resets, encounters and problems as plain lines.
func progressPrinter(w io.Writer) sequence.Observer {
	return sequence.ObserverFunc(func(e sequence.Event) {
		stamp := e.Time.Format("15:04:05")
		switch e.Kind {
		case sequence.EventReset:
			fmt.Fprintf(w, "%s reset #%d\n", stamp, e.Run.ResetCount)
		case sequence.EventOutcome:
			if e.Outcome != vision.NotDetected {
				fmt.Fprintf(w, "%s %s: %s %.3f\n", stamp, e.Outcome, e.Result.Template, e.Result.Confidence)
			}
		case sequence.EventStuck:
			fmt.Fprintf(w, "%s stuck: %v\n", stamp, e.Err)
		case sequence.EventAlertFailed:
			fmt.Fprintf(w, "%s alert failed: %v\n", stamp, e.Err)
		}
	})
}

func warnMissingTemplates(w io.Writer, lib *vision.Library) {
	failed := lib.Failed()
	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "warning: template %q unavailable, it will never match: %v\n", name, failed[name])
	}
}
