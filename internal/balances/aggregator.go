// Package balances joins raw account balances with token metadata and prices
// into a sorted, priced portfolio.
package balances

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/matrixise/xpr-wallet/internal/metrics"
	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/tokens"
)

// Token is a display-ready balance.
type Token struct {
	Contract string          `json:"contract"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Logo     string          `json:"logo"`
	Balance  decimal.Decimal `json:"balance"`
	Decimals int             `json:"decimals"`
	Price    decimal.Decimal `json:"price"`
	USDValue decimal.Decimal `json:"usdValue"`
}

// Portfolio is the result of one aggregation.
type Portfolio struct {
	Account     string          `json:"account"`
	Network     network.Name    `json:"network"`
	Tokens      []Token         `json:"tokens"`
	TotalUSD    decimal.Decimal `json:"totalUsdValue"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

type MetadataSource interface {
	FetchMetadata(ctx context.Context, net network.Network) []tokens.Metadata
}

type PriceSource interface {
	Fetch(ctx context.Context, list []tokens.Metadata) map[string]decimal.Decimal
}

type BalanceSource interface {
	FetchBalances(ctx context.Context, account string, net network.Network) ([]Raw, error)
}

// Aggregator fetches metadata, prices and balances and merges them.
type Aggregator struct {
	metadata MetadataSource
	prices   PriceSource
	balances BalanceSource
	now      func() time.Time
}

func NewAggregator(metadata MetadataSource, prices PriceSource, balances BalanceSource) *Aggregator {
	return &Aggregator{metadata: metadata, prices: prices, balances: balances, now: time.Now}
}

// WithClock replaces time.Now for LastUpdated.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Fetch retrieves metadata with prices and the raw balances concurrently and
// merges them once both are available.
func (a *Aggregator) Fetch(ctx context.Context, account string, net network.Network) (Portfolio, error) {
	var (
		meta   []tokens.Metadata
		prices map[string]decimal.Decimal
		raw    []Raw
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		meta = a.metadata.FetchMetadata(gctx, net)
		prices = a.prices.Fetch(gctx, meta)
		return nil
	})
	g.Go(func() error {
		var err error
		raw, err = a.balances.FetchBalances(gctx, account, net)
		return err
	})
	if err := g.Wait(); err != nil {
		return Portfolio{}, fmt.Errorf("failed to aggregate balances for %s: %w", account, err)
	}

	p := Merge(raw, meta, prices)
	p.Account = account
	p.Network = net.Name
	p.LastUpdated = a.now()

	total, _ := p.TotalUSD.Float64()
	metrics.PortfolioUSD.WithLabelValues(string(net.Name), account).Set(total)
	return p, nil
}

// Merge joins raw balances with metadata and prices. Tokens without metadata
// use their symbol as name and no logo; tokens without a price are worth 0.
// The result is sorted by USD value, highest first, keeping fetch order on
// ties.
func Merge(raw []Raw, meta []tokens.Metadata, prices map[string]decimal.Decimal) Portfolio {
	index := make(map[string]tokens.Metadata, len(meta))
	for _, m := range meta {
		if _, dup := index[m.Key()]; !dup {
			index[m.Key()] = m
		}
	}

	list := make([]Token, 0, len(raw))
	total := decimal.Zero
	for _, r := range raw {
		key := tokens.Key(r.Contract, r.Symbol)

		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			amount = decimal.Zero
		}
		price, ok := prices[key]
		if !ok {
			price = decimal.Zero
		}

		name, logo := r.Symbol, ""
		if m, ok := index[key]; ok {
			if m.Name != "" {
				name = m.Name
			}
			logo = m.Logo
		}

		usd := amount.Mul(price)
		total = total.Add(usd)
		list = append(list, Token{
			Contract: r.Contract,
			Symbol:   r.Symbol,
			Name:     name,
			Logo:     logo,
			Balance:  amount,
			Decimals: r.Decimals,
			Price:    price,
			USDValue: usd,
		})
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].USDValue.GreaterThan(list[j].USDValue)
	})

	return Portfolio{Tokens: list, TotalUSD: total}
}
