package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/matrixise/xpr-wallet/internal/config"
	"github.com/matrixise/xpr-wallet/internal/logger"
	"github.com/matrixise/xpr-wallet/internal/scheduler"
	"github.com/matrixise/xpr-wallet/internal/signer"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without running the application.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	// Setup logger
	logger.Setup(logLevel)

	// Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		return err
	}

	net, err := cfg.ResolveNetwork("")
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		return err
	}

	schedule := "none"
	if cfg.Interval != "" {
		schedule = scheduler.DescribeSchedule(cfg.Interval, cfg.GetTimezone())
	}

	slog.Info("Configuration valid",
		"network", net.Name,
		"endpoints", len(net.Endpoints),
		"account", cfg.Account,
		"permission", cfg.Permission,
		"accounts", len(cfg.Accounts),
		"schedule", schedule,
		"log_level", cfg.LogLevel,
		"state_file", cfg.StateFile,
		"private_key_set", signer.EnvKey() != "",
		"database_url_set", databaseURLSet(),
	)

	return nil
}

func databaseURLSet() bool {
	_, err := getDatabaseURL()
	return err == nil
}
