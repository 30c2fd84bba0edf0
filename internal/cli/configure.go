package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/closerlabs/salesbot/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write a default configuration file",
	Long: `Write a default configuration file to edit by hand.
An existing file is left untouched unless --force is given.`,
	RunE: runConfigure,
}

var configureForce bool

func init() {
	configureCmd.Flags().BoolVar(&configureForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	configPath := loader.GetConfigPath()

	if _, err := os.Stat(configPath); err == nil && !configureForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := loader.Save(config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("Configuration written to: %s\n", configPath)
	fmt.Println("Fill in the Telegram bot token and OpenAI API key, then run: salesbot run")

	return nil
}
