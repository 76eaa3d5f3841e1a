package tokens

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matrixise/xpr-wallet/internal/indexer"
	"github.com/matrixise/xpr-wallet/internal/metrics"
)

const (
	DefaultPriceAPI = "https://api.coingecko.com/api/v3"
	DefaultPriceTTL = 60 * time.Second
)

// PriceCache holds USD unit prices keyed by token identity. Entries are only
// ever added or overwritten, never removed.
type PriceCache struct {
	client  *indexer.Client
	baseURL string
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu        sync.Mutex
	prices    map[string]decimal.Decimal
	lastFetch time.Time
}

// PriceOption configures a PriceCache.
type PriceOption func(*PriceCache)

// WithTTL sets how long a successful fetch is served from memory.
func WithTTL(ttl time.Duration) PriceOption {
	return func(p *PriceCache) { p.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PriceOption {
	return func(p *PriceCache) { p.now = now }
}

// NewPriceCache creates a cache that queries the price feed at baseURL.
func NewPriceCache(client *indexer.Client, baseURL string, opts ...PriceOption) *PriceCache {
	if baseURL == "" {
		baseURL = DefaultPriceAPI
	}
	p := &PriceCache{
		client:  client,
		baseURL: baseURL,
		ttl:     DefaultPriceTTL,
		now:     time.Now,
		logger:  slog.Default().With("component", "prices"),
		prices:  make(map[string]decimal.Decimal),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type priceQuote struct {
	USD *float64 `json:"usd"`
}

// Fetch returns prices for tokens, refreshing from the feed when the cache is
// empty or older than the TTL. One batched request covers every distinct
// price feed id. On failure the previous cache content is returned.
func (p *PriceCache) Fetch(ctx context.Context, tokens []Metadata) map[string]decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if len(p.prices) > 0 && now.Sub(p.lastFetch) < p.ttl {
		metrics.PriceLookups.WithLabelValues("hit").Inc()
		return p.snapshot()
	}
	metrics.PriceLookups.WithLabelValues("miss").Inc()

	ids := distinctFeedIDs(tokens)
	if len(ids) == 0 {
		return p.snapshot()
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")

	var quotes map[string]priceQuote
	if err := p.client.GetJSON(ctx, indexer.BuildURL(p.baseURL, "/simple/price", query), &quotes); err != nil {
		p.logger.Error("Failed to fetch token prices, serving cached values", "ids", len(ids), "error", err)
		p.pinStable(tokens)
		return p.snapshot()
	}

	for _, t := range tokens {
		if t.CoingeckoID == "" {
			continue
		}
		if q, ok := quotes[t.CoingeckoID]; ok && q.USD != nil {
			p.prices[t.Key()] = decimal.NewFromFloat(*q.USD)
		}
	}
	p.pinStable(tokens)
	p.lastFetch = now

	return p.snapshot()
}

// pinStable prices XMD at 1 whatever the feed answered.
func (p *PriceCache) pinStable(tokens []Metadata) {
	for _, t := range tokens {
		if t.Symbol == StableSymbol && t.Contract == StableContract {
			p.prices[t.Key()] = decimal.NewFromInt(1)
		}
	}
}

// Price returns the cached price of a token, zero when unknown.
func (p *PriceCache) Price(contract, symbol string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prices[Key(contract, symbol)]
}

// LastFetch reports when the feed was last queried successfully.
func (p *PriceCache) LastFetch() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastFetch
}

func (p *PriceCache) snapshot() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p.prices))
	for k, v := range p.prices {
		out[k] = v
	}
	return out
}

func distinctFeedIDs(tokens []Metadata) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, t := range tokens {
		if t.CoingeckoID == "" || seen[t.CoingeckoID] {
			continue
		}
		seen[t.CoingeckoID] = true
		ids = append(ids, t.CoingeckoID)
	}
	return ids
}
