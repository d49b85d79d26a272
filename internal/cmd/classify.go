package cmd

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/config"
	"github.com/Iron-Ham/shinyhunt/internal/logging"
	"github.com/Iron-Ham/shinyhunt/internal/screen"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [frame.png]",
	Short: "Score a frame against every template",
	Long: `Score a frame against every loaded template and report the outcome a
hunt would reach for it.

With a file argument the frame is read from disk. Without one the emulator
window is captured, which is the quickest way to check that the window is
found and that thresholds suit the current screen.

Examples:
  # Check the live window and keep the capture as a new template source
  shinyhunt classify --save ./captures

  # Check a saved encounter
  shinyhunt classify encounters/ordinary-0042-20240506-101112.000.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

var classifySaveDir string

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(&classifySaveDir, "save", "", "Save the classified frame to this directory")
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	frame, source, err := loadOrCapture(cmd, cfg, args)
	if err != nil {
		return err
	}

	classifier, err := buildClassifier(cfg, logger)
	if err != nil {
		return err
	}
	warnMissingTemplates(cmd.ErrOrStderr(), classifier.Library())

	out := cmd.OutOrStdout()
	b := frame.Bounds()
	fmt.Fprintf(out, "Frame: %s (%dx%d)\n\n", source, b.Dx(), b.Dy())
	outcome, res := printClassification(out, classifier, frame, cfg)

	if classifySaveDir != "" {
		path, err := screen.FrameSaver{Dir: classifySaveDir}.Save(frame, "frame", time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nSaved frame to %s\n", path)
	}

	logFrame(logger, source, outcome, res)
	return nil
}

// loadOrCapture reads the frame named in args, or captures one from the
// configured source. Frames are scaled like the hunt would scale them.
func loadOrCapture(cmd *cobra.Command, cfg *config.Config, args []string) (image.Image, string, error) {
	if len(args) == 1 {
		frame, err := screen.LoadFrame(args[0])
		if err != nil {
			return nil, "", err
		}
		return screen.Resize(frame, cfg.Capture.ScaleWidth), args[0], nil
	}

	src, err := buildSource(cfg)
	if err != nil {
		return nil, "", err
	}
	frame, err := src.Capture(cmd.Context())
	if err != nil {
		return nil, "", fmt.Errorf("failed to capture a frame: %w", err)
	}
	name := cfg.Capture.FramesDir
	if name == "" {
		name = fmt.Sprintf("window %q", cfg.Capture.WindowTitle)
	}
	return frame, name, nil
}

// printClassification prints one row per template, then the outcome the
// hunt's candidates produce for frame.
func printClassification(w io.Writer, c *vision.Classifier, frame image.Image, cfg *config.Config) (vision.Outcome, vision.Result) {
	lib := c.Library()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TEMPLATE", "CONFIDENCE", "THRESHOLD", "MATCH", "LOCATION")
	for _, res := range c.ClassifyAll(frame) {
		threshold := "-"
		if tmpl, err := lib.Get(res.Template); err == nil {
			threshold = fmt.Sprintf("%.2f", tmpl.Threshold)
		}
		match := "no"
		if res.Matched {
			match = "yes"
		}
		t.Row(res.Template,
			fmt.Sprintf("%.3f", res.Confidence),
			threshold,
			match,
			fmt.Sprintf("(%d, %d)", res.Location.X, res.Location.Y),
		)
	}
	fmt.Fprintln(w, t.String())

	seq := cfg.SequenceConfig()
	battle := c.IsPresent(frame, seq.BattleScreen, 0)
	outcome, res := c.ScanForOutcome(frame, seq.Candidates)
	fmt.Fprintf(w, "\nBattle screen (%s): %v\n", seq.BattleScreen, battle)
	fmt.Fprintf(w, "Outcome: %s (%s %.3f)\n", outcome, res.Template, res.Confidence)
	return outcome, res
}

// logFrame is shared by classify and watch so both leave the same trail.
func logFrame(logger *logging.Logger, source string, outcome vision.Outcome, res vision.Result) {
	logger.Info("frame classified",
		"source", source,
		logging.AttrOutcome, outcome.String(),
		"template", res.Template,
		logging.AttrConfidence, res.Confidence,
	)
}
