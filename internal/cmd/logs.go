package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/config"
	"github.com/Iron-Ham/shinyhunt/internal/logging"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View hunt logs",
	Long: `View and filter the hunt log.

By default, shows the last 50 entries. Use flags to filter and format the
output.

Examples:
  # Show every entry of one run (the short ID from the dashboard works)
  shinyhunt logs -r 3f2a9c1e -n 0

  # Filter by log level
  shinyhunt logs --level warn

  # Show logs from the last hour
  shinyhunt logs --since 1h

  # Search for specific patterns
  shinyhunt logs --grep "capture|stuck"

  # One line per run: resets, outcome and errors
  shinyhunt logs --summary`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsRunID   string
	logsStage   string
	logsTail    int
	logsLevel   string
	logsSince   string
	logsGrep    string
	logsSummary bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsRunID, "run", "r", "", "Only show this run (full or short ID)")
	logsCmd.Flags().StringVar(&logsStage, "stage", "", "Only show entries from this stage")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().BoolVar(&logsSummary, "summary", false, "Summarize each run instead of listing entries")
}

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// levelColor returns the ANSI color code for a log level
func levelColor(level string) string {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return colorGray
	case logging.LevelInfo:
		return colorBlue
	case logging.LevelWarn:
		return colorYellow
	case logging.LevelError:
		return colorRed
	default:
		return colorReset
	}
}

// formatLogEntry formats a log entry for terminal output
func formatLogEntry(entry logging.LogEntry) string {
	var sb strings.Builder

	sb.WriteString(colorGray)
	sb.WriteString("[")
	sb.WriteString(entry.Timestamp.Local().Format("2006-01-02 15:04:05.000"))
	sb.WriteString("]")
	sb.WriteString(colorReset)

	sb.WriteString(" ")
	sb.WriteString(levelColor(entry.Level))
	sb.WriteString("[")
	sb.WriteString(strings.ToUpper(entry.Level))
	sb.WriteString("]")
	sb.WriteString(colorReset)

	sb.WriteString(" ")
	sb.WriteString(entry.Message)

	if entry.Stage != "" {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString("stage=")
		sb.WriteString(entry.Stage)
		sb.WriteString(colorReset)
	}

	keys := make([]string, 0, len(entry.Attrs))
	for k := range entry.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		sb.WriteString(" ")
		sb.WriteString(colorCyan)
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(colorReset)
		fmt.Fprintf(&sb, "%v", entry.Attrs[key])
	}

	return sb.String()
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	out := cmd.OutOrStdout()

	logPath := filepath.Join(cfg.LoggingOptions().Dir, logging.FileName)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No logs found.")
		fmt.Fprintln(out, "Logs are stored at:", logPath)
		return nil
	}

	filter := logging.LogFilter{Stage: logsStage}
	if logsLevel != "" {
		filter.Level = logging.ParseLevel(logsLevel)
	}
	if logsSince != "" {
		duration, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.Since = time.Now().Add(-duration)
	}

	var grepRegex *regexp.Regexp
	if logsGrep != "" {
		grepRegex, err = regexp.Compile(logsGrep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	entries, err := logging.ReadHistory(logPath)
	if err != nil {
		return err
	}
	if logsRunID != "" {
		filter.RunID = resolveRunID(entries, logsRunID)
	}
	entries = logging.FilterLogs(entries, filter)

	if grepRegex != nil {
		kept := entries[:0]
		for _, e := range entries {
			if grepRegex.MatchString(e.Message) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	if logsSummary {
		printRunSummaries(out, logging.Summarize(entries))
		return nil
	}

	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching log entries.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(out, formatLogEntry(e))
	}
	return nil
}

// resolveRunID expands a short run ID to the first full ID it prefixes.
// An ID matching no run is returned unchanged so the filter yields nothing.
func resolveRunID(entries []logging.LogEntry, id string) string {
	for _, e := range entries {
		if strings.HasPrefix(e.RunID, id) {
			return e.RunID
		}
	}
	return id
}

func printRunSummaries(w io.Writer, runs []logging.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs logged.")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "DURATION", "RESETS", "OUTCOME", "ERRORS")
	for _, r := range runs {
		id := r.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		outcome := r.Outcome
		if outcome == "" {
			outcome = "-"
		}
		t.Row(id,
			r.Started.Local().Format("2006-01-02 15:04"),
			r.Ended.Sub(r.Started).Round(time.Second).String(),
			fmt.Sprintf("%d", r.Resets),
			outcome,
			fmt.Sprintf("%d", r.Errors),
		)
	}
	fmt.Fprintln(w, t.String())
}
