package cmd

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Iron-Ham/shinyhunt/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify shinyhunt configuration",
	Long: `View or modify shinyhunt configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  shinyhunt config set notify.webhook_url https://discord.com/api/webhooks/...
  shinyhunt config set templates.default_threshold 0.92
  shinyhunt config set sequence.stage_timeout_ms 120000

Only single values can be set this way; edit the file for stage lists and
per-template thresholds.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/shinyhunt/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configInitForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing config file")
}

const configHeader = `# shinyhunt configuration
#
# Durations are in milliseconds. Every key can also be set from the
# environment, e.g. SHINYHUNT_NOTIFY_WEBHOOK_URL for notify.webhook_url.
#
# sequence.stages run in order after every reset. A stage with a screen
# waits for that template before pressing its keys; one without a screen
# presses them straight away.
#
# sequence.stage_timeout_ms is 0 by default, so a screen that never shows up
# (or an encounter that matches neither variant) is waited on forever. Set it
# for unattended hunts to get a stuck alert instead.

`

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	out := cmd.OutOrStdout()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(args[0])
	value := args[1]

	if !slices.Contains(viper.AllKeys(), key) {
		return fmt.Errorf("unknown configuration key: %s\nRun 'shinyhunt config show' to see valid keys", key)
	}

	var typedValue any
	switch current := viper.Get(key).(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = n
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected number", key)
		}
		typedValue = f
	case string:
		typedValue = value
	default:
		return fmt.Errorf("%s holds a %T; edit the config file to change it", key, current)
	}

	// Set the value in viper and make sure the result is still valid
	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return err
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists at %s\nUse 'shinyhunt config set' to modify values or --force to overwrite", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to render default configuration: %w", err)
	}
	if err := os.WriteFile(configFile, append([]byte(configHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Put your templates in templates.dir and edit the stages to match your game.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", configFile)
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: SHINYHUNT_* (e.g., SHINYHUNT_NOTIFY_WEBHOOK_URL)")
	fmt.Fprintf(out, "Logs: %s\n", config.StateDir())

	return nil
}
