package tokens

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func priceTokens() []Metadata {
	return []Metadata{
		{Symbol: "XPR", Contract: "eosio.token", Precision: 4, CoingeckoID: "proton"},
		{Symbol: "XBTC", Contract: "xtokens", Precision: 8, CoingeckoID: "bitcoin"},
		{Symbol: "XWBTC", Contract: "xtokens", Precision: 8, CoingeckoID: "bitcoin"},
		{Symbol: "XMD", Contract: "xmd.token", Precision: 6},
	}
}

func TestPriceCacheTTL(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "proton,bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = io.WriteString(w, `{"proton":{"usd":0.5},"bitcoin":{"usd":60000}}`)
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewPriceCache(newClient(), srv.URL, WithClock(clock.Now))

	first := cache.Fetch(context.Background(), priceTokens())
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, first["eosio.token:XPR"].Equal(decimal.NewFromFloat(0.5)))
	assert.True(t, first["xtokens:XBTC"].Equal(decimal.NewFromInt(60000)))
	assert.True(t, first["xtokens:XWBTC"].Equal(decimal.NewFromInt(60000)))
	assert.True(t, first["xmd.token:XMD"].Equal(decimal.NewFromInt(1)))

	clock.Advance(30 * time.Second)
	cache.Fetch(context.Background(), priceTokens())
	assert.Equal(t, int32(1), calls.Load(), "second call within TTL must be served from cache")

	clock.Advance(31 * time.Second)
	cache.Fetch(context.Background(), priceTokens())
	assert.Equal(t, int32(2), calls.Load(), "call after TTL must refresh")
}

func TestPriceCacheKeepsEntriesOnFailure(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"proton":{"usd":0.25}}`)
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewPriceCache(newClient(), srv.URL, WithClock(clock.Now), WithTTL(time.Minute))

	cache.Fetch(context.Background(), priceTokens())
	stamped := cache.LastFetch()

	fail.Store(true)
	clock.Advance(2 * time.Minute)
	prices := cache.Fetch(context.Background(), priceTokens())

	assert.True(t, prices["eosio.token:XPR"].Equal(decimal.NewFromFloat(0.25)))
	assert.True(t, prices["xmd.token:XMD"].Equal(decimal.NewFromInt(1)))
	assert.Equal(t, stamped, cache.LastFetch())
	assert.True(t, cache.Price("eosio.token", "XPR").Equal(decimal.NewFromFloat(0.25)))
}

func TestPriceCachePinsStableWhenFeedFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewPriceCache(newClient(), srv.URL, WithClock(clock.Now))

	prices := cache.Fetch(context.Background(), priceTokens())
	assert.True(t, prices["xmd.token:XMD"].Equal(decimal.NewFromInt(1)))
	assert.True(t, prices["eosio.token:XPR"].IsZero())
	assert.True(t, cache.LastFetch().IsZero())

	cache.Fetch(context.Background(), priceTokens())
	assert.Equal(t, int32(2), calls.Load(), "a failed fetch is retried on the next call")
}

func TestPriceCacheOnlyUpdatesReturnedIDs(t *testing.T) {
	var round atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if round.Add(1) == 1 {
			_, _ = io.WriteString(w, `{"proton":{"usd":0.5},"bitcoin":{"usd":60000}}`)
			return
		}
		_, _ = io.WriteString(w, `{"proton":{"usd":0.6}}`)
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewPriceCache(newClient(), srv.URL, WithClock(clock.Now))

	cache.Fetch(context.Background(), priceTokens())
	clock.Advance(2 * time.Minute)
	prices := cache.Fetch(context.Background(), priceTokens())

	assert.True(t, prices["eosio.token:XPR"].Equal(decimal.NewFromFloat(0.6)))
	assert.True(t, prices["xtokens:XBTC"].Equal(decimal.NewFromInt(60000)))
}

func TestPriceCacheWithoutFeedIDs(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	cache := NewPriceCache(newClient(), srv.URL)
	prices := cache.Fetch(context.Background(), []Metadata{{Symbol: "CST", Contract: "cst.token"}})

	assert.Empty(t, prices)
	assert.Equal(t, int32(0), calls.Load())
	assert.True(t, cache.Price("cst.token", "CST").IsZero())
}

func TestPriceCacheReturnsCopies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"proton":{"usd":0.5}}`)
	}))
	defer srv.Close()

	cache := NewPriceCache(newClient(), srv.URL)
	prices := cache.Fetch(context.Background(), priceTokens())
	prices["eosio.token:XPR"] = decimal.NewFromInt(100)

	assert.True(t, cache.Price("eosio.token", "XPR").Equal(decimal.NewFromFloat(0.5)))
}

func TestDistinctFeedIDs(t *testing.T) {
	require.Equal(t, []string{"proton", "bitcoin"}, distinctFeedIDs(priceTokens()))
	assert.Empty(t, distinctFeedIDs(nil))
}
