package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/matrixise/xpr-wallet/internal/balances"
	"github.com/matrixise/xpr-wallet/internal/storage"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [account]",
	Short: "Show the latest portfolio snapshot recorded by watch",
	Long: `Read the most recent snapshot of an account from PostgreSQL. The database
is taken from DATABASE_URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

type snapshotToken struct {
	Contract string          `json:"contract"`
	Symbol   string          `json:"symbol"`
	Amount   decimal.Decimal `json:"amount"`
	PriceUSD decimal.Decimal `json:"priceUsd"`
	USDValue decimal.Decimal `json:"usdValue"`
}

type snapshotView struct {
	RunID    uuid.UUID       `json:"runId"`
	TakenAt  time.Time       `json:"takenAt"`
	Network  string          `json:"network"`
	Account  string          `json:"account"`
	Tokens   []snapshotToken `json:"tokens"`
	TotalUSD decimal.Decimal `json:"totalUsdValue"`
}

// newSnapshotView groups the rows of one run. rows must not be empty.
func newSnapshotView(rows []storage.PortfolioSnapshot) snapshotView {
	v := snapshotView{
		RunID:    rows[0].RunID,
		TakenAt:  rows[0].TakenAt,
		Network:  rows[0].Network,
		Account:  rows[0].Account,
		Tokens:   make([]snapshotToken, 0, len(rows)),
		TotalUSD: storage.TotalUSD(rows),
	}
	for _, r := range rows {
		v.Tokens = append(v.Tokens, snapshotToken{
			Contract: r.Contract,
			Symbol:   r.Symbol,
			Amount:   r.Amount,
			PriceUSD: r.PriceUSD,
			USDValue: r.USDValue,
		})
	}
	return v
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	account, err := a.account(args)
	if err != nil {
		return err
	}
	dsn, err := getDatabaseURL()
	if err != nil {
		return err
	}

	store, err := storage.NewStore(ctx, dsn)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		return err
	}
	defer store.Close()

	net := a.network()
	rows, err := store.LatestSnapshot(ctx, string(net.Name), account)
	if errors.Is(err, storage.ErrNoSnapshot) {
		return fmt.Errorf("no snapshot recorded for %s on %s, run watch first", account, net.Name)
	}
	if err != nil {
		return err
	}

	view := newSnapshotView(rows)
	return render(view, func(w io.Writer) {
		row(w, "RUN", view.RunID)
		row(w, "TAKEN", view.TakenAt.Format(time.RFC3339))
		fmt.Fprintln(w)
		row(w, "SYMBOL", "CONTRACT", "AMOUNT", "PRICE", "VALUE")
		for _, t := range view.Tokens {
			row(w, t.Symbol, t.Contract, t.Amount.String(), t.PriceUSD.String(), balances.FormatUSD(t.USDValue))
		}
		row(w, "TOTAL", "", "", "", balances.FormatUSD(view.TotalUSD))
	})
}
