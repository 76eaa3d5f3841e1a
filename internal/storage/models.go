package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/matrixise/xpr-wallet/internal/balances"
)

// PortfolioSnapshot is one token of one account captured by a watch run
type PortfolioSnapshot struct {
	ID       int64
	RunID    uuid.UUID
	TakenAt  time.Time
	Network  string
	Account  string
	Contract string
	Symbol   string
	Amount   decimal.Decimal
	PriceUSD decimal.Decimal
	USDValue decimal.Decimal
}

// SnapshotsFromPortfolio flattens a portfolio into rows of run runID
func SnapshotsFromPortfolio(runID uuid.UUID, p balances.Portfolio) []PortfolioSnapshot {
	takenAt := p.LastUpdated
	if takenAt.IsZero() {
		takenAt = time.Now()
	}

	rows := make([]PortfolioSnapshot, 0, len(p.Tokens))
	for _, t := range p.Tokens {
		rows = append(rows, PortfolioSnapshot{
			RunID:    runID,
			TakenAt:  takenAt.UTC(),
			Network:  string(p.Network),
			Account:  p.Account,
			Contract: t.Contract,
			Symbol:   t.Symbol,
			Amount:   t.Balance,
			PriceUSD: t.Price,
			USDValue: t.USDValue,
		})
	}
	return rows
}

// TotalUSD sums the USD value of rows
func TotalUSD(rows []PortfolioSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.USDValue)
	}
	return total
}
