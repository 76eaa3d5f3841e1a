package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/matrixise/xpr-wallet/internal/config"
	"github.com/matrixise/xpr-wallet/internal/logger"
	"github.com/matrixise/xpr-wallet/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the snapshot database schema",
	Long: `Run, rollback, or check the status of the portfolio snapshot migrations.
The database is taken from DATABASE_URL.`,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(
		migrationCommand("up", "Apply all pending migrations", "Migrations applied successfully", storage.RunMigrations),
		migrationCommand("down", "Rollback the last migration", "Migration rolled back successfully", storage.MigrateDown),
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			Args:  cobra.NoArgs,
			RunE:  runMigrateStatus,
		},
	)
}

func getDatabaseURL() (string, error) {
	dsn := config.EnvSecret(config.DatabaseURLEnv)
	if dsn == "" {
		return "", errors.New("DATABASE_URL is required")
	}
	return dsn, nil
}

// withDatabase sets up logging and a signal-aware context, then calls fn
// with DATABASE_URL.
func withDatabase(fn func(ctx context.Context, dsn string) error) error {
	logger.Setup(logLevel)

	dsn, err := getDatabaseURL()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	return fn(ctx, dsn)
}

// migrationCommand builds a migrate subcommand that applies op and logs done
// on success.
func migrationCommand(use, short, done string, op func(ctx context.Context, dsn string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(ctx context.Context, dsn string) error {
				if err := op(ctx, dsn); err != nil {
					slog.Error("Migration failed", "command", use, "error", err)
					return err
				}
				slog.Info(done)
				return nil
			})
		},
	}
}

type migrationStatus struct {
	Version int64 `json:"version"`
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	return withDatabase(func(ctx context.Context, dsn string) error {
		if err := storage.MigrateStatus(ctx, dsn); err != nil {
			slog.Error("Failed to get migration status", "error", err)
			return err
		}
		version, err := storage.CurrentVersion(ctx, dsn)
		if err != nil {
			return err
		}
		status := migrationStatus{Version: version}
		return render(status, func(w io.Writer) {
			row(w, "VERSION", status.Version)
		})
	})
}
