package balances

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrixise/xpr-wallet/internal/network"
)

type fetchResult struct {
	portfolio Portfolio
	err       error
}

// gatedFetcher blocks every Fetch until a result is pushed for it.
type gatedFetcher struct {
	started chan struct{}
	results chan fetchResult
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{started: make(chan struct{}, 4), results: make(chan fetchResult)}
}

func (g *gatedFetcher) Fetch(ctx context.Context, account string, net network.Network) (Portfolio, error) {
	g.started <- struct{}{}
	r := <-g.results
	return r.portfolio, r.err
}

type funcFetcher func() (Portfolio, error)

func (f funcFetcher) Fetch(context.Context, string, network.Network) (Portfolio, error) {
	return f()
}

func portfolioOf(symbol, amount string) Portfolio {
	return Portfolio{
		Tokens:   []Token{{Symbol: symbol, Balance: d(amount), USDValue: d(amount)}},
		TotalUSD: d(amount),
	}
}

func TestStoreRefresh(t *testing.T) {
	s := NewStore(funcFetcher(func() (Portfolio, error) { return portfolioOf("XPR", "10"), nil }))

	require.NoError(t, s.Refresh(context.Background(), "alice", testnet(t)))
	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.NoError(t, st.Err)
	require.Len(t, st.Tokens, 1)
	assert.True(t, st.TotalUSD.Equal(d("10")))

	tok, ok := s.Find("", "XPR")
	assert.True(t, ok)
	assert.Equal(t, "XPR", tok.Symbol)
	_, ok = s.Find("", "XMD")
	assert.False(t, ok)
}

func TestStoreKeepsTokensOnError(t *testing.T) {
	fail := false
	s := NewStore(funcFetcher(func() (Portfolio, error) {
		if fail {
			return Portfolio{}, errors.New("upstream down")
		}
		return portfolioOf("XPR", "10"), nil
	}))

	require.NoError(t, s.Refresh(context.Background(), "alice", testnet(t)))
	fail = true
	err := s.Refresh(context.Background(), "alice", testnet(t))
	require.Error(t, err)

	st := s.Snapshot()
	assert.EqualError(t, st.Err, "upstream down")
	require.Len(t, st.Tokens, 1, "stale tokens must stay visible")
	assert.True(t, st.TotalUSD.Equal(d("10")))
}

func TestStoreLastRequestWins(t *testing.T) {
	g := newGatedFetcher()
	s := NewStore(g)
	net := testnet(t)

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Refresh(context.Background(), "alice", net) }()
	<-g.started

	secondDone := make(chan error, 1)
	go func() { secondDone <- s.Refresh(context.Background(), "alice", net) }()
	<-g.started

	// The newer request completes first, the older one last.
	g.results <- fetchResult{portfolio: portfolioOf("NEW", "2")}
	g.results <- fetchResult{portfolio: portfolioOf("OLD", "1")}

	errs := []error{<-firstDone, <-secondDone}
	assert.Contains(t, errs, ErrStale)
	assert.Contains(t, errs, nil)

	st := s.Snapshot()
	require.Len(t, st.Tokens, 1)
	assert.False(t, st.Loading)
}

func TestStoreClearDiscardsInFlight(t *testing.T) {
	g := newGatedFetcher()
	s := NewStore(g)

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background(), "alice", testnet(t)) }()
	<-g.started

	s.Clear()
	g.results <- fetchResult{portfolio: portfolioOf("XPR", "5")}

	assert.ErrorIs(t, <-done, ErrStale)
	assert.Empty(t, s.Snapshot().Tokens)
}

func TestStoreClearIsIdempotent(t *testing.T) {
	s := NewStore(funcFetcher(func() (Portfolio, error) { return portfolioOf("XPR", "10"), nil }))
	require.NoError(t, s.Refresh(context.Background(), "alice", testnet(t)))

	s.Clear()
	once := s.Snapshot()
	s.Clear()
	twice := s.Snapshot()

	assert.Equal(t, once, twice)
	assert.Empty(t, twice.Tokens)
	assert.True(t, twice.TotalUSD.IsZero())
	assert.True(t, twice.LastUpdated.IsZero())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(funcFetcher(func() (Portfolio, error) { return portfolioOf("XPR", "10"), nil }))
	require.NoError(t, s.Refresh(context.Background(), "alice", testnet(t)))

	st := s.Snapshot()
	st.Tokens[0].Symbol = "CHANGED"
	assert.Equal(t, "XPR", s.Snapshot().Tokens[0].Symbol)
}
