package cmd

import (
	"strings"

	"github.com/Iron-Ham/shinyhunt/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "shinyhunt",
	Short: "Soft-reset shiny hunter for emulated games",
	Long: `shinyhunt drives an emulator through a scripted soft-reset loop,
watching the screen with template matching until a rare variant appears.

Each cycle resets the game, replays the configured stages of key presses,
waits for the battle screen and classifies the encounter. An ordinary
result starts the next cycle; a rare one sends an alert and stops.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/shinyhunt/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SHINYHUNT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SHINYHUNT_NOTIFY_WEBHOOK_URL for notify.webhook_url
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
