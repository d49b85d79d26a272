package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/Iron-Ham/shinyhunt/internal/config"
	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/logging"
	"github.com/Iron-Ham/shinyhunt/internal/notify"
	"github.com/Iron-Ham/shinyhunt/internal/screen"
	"github.com/Iron-Ham/shinyhunt/internal/sequence"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
)

// openLogger opens the log file described by cfg, or a no-op logger when
// logging is disabled.
func openLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.Open(cfg.LoggingOptions())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log")
	}
	return logger, nil
}

// buildSource returns the frame source: replayed frames when a frames
// directory is configured, the emulator window otherwise.
func buildSource(cfg *config.Config) (screen.Source, error) {
	var src screen.Source
	if cfg.Capture.FramesDir != "" {
		dir, err := screen.NewDirSource(cfg.Capture.FramesDir, cfg.Capture.LoopFrames)
		if err != nil {
			return nil, err
		}
		if dir.Len() == 0 {
			return nil, fmt.Errorf("no frames in %s", cfg.Capture.FramesDir)
		}
		src = dir
	} else {
		src = screen.NewWindowSource(cfg.Capture.WindowTitle, cfg.Capture.FocusDelay())
	}
	if cfg.Capture.ScaleWidth > 0 {
		src = screen.Scaled{Source: src, Width: cfg.Capture.ScaleWidth}
	}
	return src, nil
}

// buildClassifier loads the template library and selects the matcher.
func buildClassifier(cfg *config.Config, logger *logging.Logger) (*vision.Classifier, error) {
	lib, err := vision.LoadLibrary(cfg.LoadOptions(), logger)
	if err != nil {
		return nil, err
	}
	matcher, err := vision.NewMatcher(cfg.Templates.Matcher, cfg.MatcherOptions())
	if err != nil {
		return nil, err
	}
	return vision.NewClassifier(lib, vision.WithMatcher(matcher), vision.WithLogger(logger)), nil
}

// buildNotifier combines the configured alert channels.
func buildNotifier(cfg *config.Config) notify.Notifier {
	var multi notify.Multi
	if cfg.Notify.WebhookURL != "" {
		multi = append(multi, notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout()))
	}
	if cfg.Notify.Desktop {
		multi = append(multi, notify.NewDesktop())
	}
	if len(multi) == 0 {
		return notify.Nop{}
	}
	return multi
}

// frameSaver writes the frame of every outcome scan that found something,
// and every frame when all is set.
func frameSaver(dir string, all bool, logger *logging.Logger) sequence.Observer {
	saver := screen.FrameSaver{Dir: dir}
	return sequence.ObserverFunc(func(e sequence.Event) {
		if e.Kind != sequence.EventOutcome || e.Frame == nil {
			return
		}
		if e.Outcome == vision.NotDetected && !all {
			return
		}
		prefix := fmt.Sprintf("%s-%04d", e.Outcome, e.Run.ResetCount)
		path, err := saver.Save(e.Frame, prefix, e.Time)
		if err != nil {
			logger.Warn("failed to save frame", "error", err.Error())
			return
		}
		logger.Debug("frame saved", "path", filepath.Base(path))
	})
}
