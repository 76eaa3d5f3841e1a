package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoSnapshot is returned when an account has no stored snapshot
var ErrNoSnapshot = errors.New("no snapshot found")

// Store manages PostgreSQL operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store with connection pooling
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Tune connection pool
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	// NUMERIC columns map to decimal.Decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

const insertSnapshotSQL = `
	INSERT INTO portfolio_snapshots
	(run_id, taken_at, network, account, contract, symbol, amount, price_usd, usd_value)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// BatchInsertSnapshots inserts snapshot rows using pgx.Batch
func (s *Store) BatchInsertSnapshots(ctx context.Context, rows []PortfolioSnapshot) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSnapshotSQL,
			r.RunID,
			r.TakenAt,
			r.Network,
			r.Account,
			r.Contract,
			r.Symbol,
			r.Amount,
			r.PriceUSD,
			r.USDValue,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch insert failed: %w", err)
		}
	}

	return nil
}

const latestSnapshotSQL = `
	SELECT id, run_id, taken_at, network, account, contract, symbol, amount, price_usd, usd_value
	FROM portfolio_snapshots
	WHERE run_id = (
		SELECT run_id FROM portfolio_snapshots
		WHERE network = $1 AND account = $2
		ORDER BY taken_at DESC
		LIMIT 1
	) AND network = $1 AND account = $2
	ORDER BY usd_value DESC, id`

// LatestSnapshot returns the rows of the most recent run for account
func (s *Store) LatestSnapshot(ctx context.Context, network, account string) ([]PortfolioSnapshot, error) {
	rows, err := s.pool.Query(ctx, latestSnapshotSQL, network, account)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PortfolioSnapshot, error) {
		var r PortfolioSnapshot
		err := row.Scan(&r.ID, &r.RunID, &r.TakenAt, &r.Network, &r.Account,
			&r.Contract, &r.Symbol, &r.Amount, &r.PriceUSD, &r.USDValue)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNoSnapshot
	}
	return out, nil
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
