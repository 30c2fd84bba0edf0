package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/closerlabs/salesbot/internal/config"
	"github.com/closerlabs/salesbot/internal/daemon"
	"github.com/closerlabs/salesbot/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the salesbot daemon",
	Long: `Run the salesbot daemon in the foreground.
The daemon processes Telegram messages until interrupted with SIGINT or SIGTERM.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize daemon: %w", err)
	}

	return d.Run()
}
