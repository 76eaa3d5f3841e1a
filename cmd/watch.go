package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matrixise/xpr-wallet/internal/balances"
	"github.com/matrixise/xpr-wallet/internal/config"
	"github.com/matrixise/xpr-wallet/internal/health"
	"github.com/matrixise/xpr-wallet/internal/logger"
	"github.com/matrixise/xpr-wallet/internal/metrics"
	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/scheduler"
	"github.com/matrixise/xpr-wallet/internal/storage"
)

var (
	interval string
	once     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Record portfolio snapshots on a schedule",
	Long: `Aggregate the balances of every configured account and persist them to
PostgreSQL, once or on a clock-aligned schedule. In daemon mode the HTTP API,
health and metrics are served on http_port.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&interval, "interval", "", "run interval - duration (5m, 1h) or cron (\"*/5 * * * *\") - empty for one-time run")
	watchCmd.Flags().BoolVar(&once, "once", false, "run once and exit")
}

// snapshotter is the storage used by a watch run.
type snapshotter interface {
	BatchInsertSnapshots(ctx context.Context, rows []storage.PortfolioSnapshot) error
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Setup logger (log-level from global flag)
	logger.Setup(logLevel)

	ctx, cancel := signalContext()
	defer cancel()

	cfg, databaseURL, err := config.LoadWithDefaults(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}
	a, err := newAppWithConfig(cfg)
	if err != nil {
		return err
	}
	if len(cfg.Accounts) == 0 {
		return errors.New("no accounts to watch: set account or accounts in the config")
	}
	net := a.network()

	// Use interval from flag if provided, otherwise from config
	runInterval := interval
	if runInterval == "" {
		runInterval = cfg.Interval
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"network", net.Name,
		"accounts", len(cfg.Accounts),
		"interval", runInterval,
	)

	store, err := storage.NewStore(ctx, databaseURL)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		return err
	}
	defer store.Close()
	slog.Info("PostgreSQL connection established")

	if err := storage.RunMigrations(ctx, databaseURL); err != nil {
		slog.Error("Failed to apply migrations", "error", err)
		return err
	}

	// Run mode: one-time or daemon
	if runInterval == "" || once {
		return snapshotAccounts(ctx, a.aggregator, store, net, cfg.Accounts)
	}

	slog.Info("Starting daemon mode with scheduler",
		"interval", runInterval,
		"timezone", cfg.GetTimezone().String(),
		"run_immediately", cfg.ShouldRunImmediately())

	var healthChecker *health.Checker
	jobFunc := func(jobCtx context.Context) error {
		err := snapshotAccounts(jobCtx, a.aggregator, store, net, cfg.Accounts)
		if healthChecker != nil {
			healthChecker.UpdateLastRun(err == nil)
		}
		return err
	}

	sched, err := scheduler.NewScheduler(ctx, scheduler.Config{
		Name:           "portfolio-snapshot",
		Interval:       runInterval,
		Timezone:       cfg.GetTimezone(),
		RunImmediately: cfg.ShouldRunImmediately(),
		Logger:         slog.Default(),
	}, jobFunc)
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		return fmt.Errorf("scheduler creation failed: %w", err)
	}
	defer sched.Stop()

	if _, err := a.chains.For(net); err != nil {
		return err
	}
	healthChecker = health.NewChecker(store, a.probers, sched.ExpectedInterval())

	srv := a.server(healthChecker)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Run(ctx, fmt.Sprintf(":%d", cfg.HTTPPort))
	}()

	if err := sched.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		return fmt.Errorf("scheduler start failed: %w", err)
	}
	slog.Info("Daemon mode started with clock-aligned scheduling", "schedule", scheduler.DescribeSchedule(runInterval, cfg.GetTimezone()))

	select {
	case <-ctx.Done():
		slog.Info("Shutdown requested, stopping daemon")
		return <-serveErr
	case err := <-serveErr:
		return err
	}
}

// snapshotAccounts stores one snapshot per account, all under the same run
// id. A failing account does not stop the others.
func snapshotAccounts(ctx context.Context, agg balances.Fetcher, store snapshotter, net network.Network, accounts []string) error {
	runID := uuid.New()
	var errs []error

	for _, account := range accounts {
		// Check for cancellation
		if err := ctx.Err(); err != nil {
			slog.Info("Shutdown requested, stopping processing")
			return err
		}

		portfolio, err := agg.Fetch(ctx, account, net)
		if err != nil {
			slog.Error("Balance aggregation failed", "network", net.Name, "account", account, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", account, err))
			continue
		}

		rows := storage.SnapshotsFromPortfolio(runID, portfolio)
		if len(rows) == 0 {
			slog.Info("No balances to record", "account", account)
			continue
		}
		if err := store.BatchInsertSnapshots(ctx, rows); err != nil {
			slog.Error("Batch insert error", "account", account, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", account, err))
			continue
		}

		slog.Info("Snapshot recorded",
			"run_id", runID,
			"account", account,
			"tokens", len(rows),
			"total_usd", balances.FormatUSD(storage.TotalUSD(rows)),
		)
	}

	if err := errors.Join(errs...); err != nil {
		metrics.SnapshotRuns.WithLabelValues(metrics.OutcomeError).Inc()
		return err
	}
	metrics.SnapshotRuns.WithLabelValues(metrics.OutcomeOK).Inc()
	slog.Info("Processing completed successfully", "run_id", runID)
	return nil
}
