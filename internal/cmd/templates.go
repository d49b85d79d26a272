package cmd

import (
	"fmt"
	"sort"

	"github.com/Iron-Ham/shinyhunt/internal/config"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the loaded templates",
	Long: `List the templates found in templates.dir with their size and
threshold, and report any template the hunt needs but cannot use.`,
	Args: cobra.NoArgs,
	RunE: runTemplates,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}

func runTemplates(cmd *cobra.Command, args []string) error {
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
	lib := classifier.Library()
	out := cmd.OutOrStdout()

	required := make(map[string]bool)
	for _, name := range cfg.RequiredTemplates() {
		required[name] = true
	}

	fmt.Fprintf(out, "Templates in %s:\n", cfg.Templates.Dir)
	if m, ok := classifier.Matcher().(vision.NCCMatcher); ok {
		fmt.Fprintf(out, "Matcher: ncc (stride %d)\n", max(m.Stride, 1))
	} else {
		fmt.Fprintf(out, "Matcher: %s\n", cfg.Templates.Matcher)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "SIZE", "THRESHOLD", "USED BY HUNT", "PATH")
	for _, name := range lib.Names() {
		tmpl, err := lib.Get(name)
		if err != nil {
			continue
		}
		size := tmpl.Size()
		used := ""
		if required[name] {
			used = "yes"
		}
		t.Row(name, fmt.Sprintf("%dx%d", size.X, size.Y), fmt.Sprintf("%.2f", tmpl.Threshold), used, tmpl.Path)
	}
	fmt.Fprintln(out, t.String())

	failed := lib.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(out, "\nUnavailable (these never match):")
	for _, name := range names {
		fmt.Fprintf(out, "  %s: %v\n", name, failed[name])
	}
	return nil
}
