package nfts

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrixise/xpr-wallet/internal/network"
)

// pagedFetcher serves total assets in pages and records every request.
type pagedFetcher struct {
	total       int
	collections []string

	mu       sync.Mutex
	requests []Options
}

func (f *pagedFetcher) FetchNFTs(_ context.Context, _ string, _ network.Network, opts Options) Result {
	f.mu.Lock()
	f.requests = append(f.requests, opts)
	f.mu.Unlock()

	var out []Display
	start := (opts.Page - 1) * opts.Limit
	for i := start; i < min(start+opts.Limit, f.total); i++ {
		out = append(out, Display{ID: strconv.Itoa(i + 1)})
	}
	return Result{NFTs: out, Total: len(out)}
}

func (f *pagedFetcher) FetchCollections(context.Context, string, network.Network) []string {
	return f.collections
}

func (f *pagedFetcher) lastRequest() Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func TestStoreLoadAndLoadMore(t *testing.T) {
	f := &pagedFetcher{total: 45, collections: []string{"alpha", "beta"}}
	s := NewStore(f)
	ctx, net := context.Background(), testnet(t)

	require.NoError(t, s.Load(ctx, "alice", net))
	st := s.Snapshot()
	assert.Len(t, st.NFTs, PageSize)
	assert.Equal(t, []string{"alpha", "beta"}, st.Collections)
	assert.Equal(t, 1, st.Page)
	assert.True(t, st.HasMore)
	assert.False(t, st.Loading)

	require.NoError(t, s.LoadMore(ctx, "alice", net))
	st = s.Snapshot()
	assert.Len(t, st.NFTs, 40)
	assert.Equal(t, 2, st.Page)
	assert.True(t, st.HasMore)
	assert.Equal(t, "21", st.NFTs[20].ID)

	require.NoError(t, s.LoadMore(ctx, "alice", net))
	st = s.Snapshot()
	assert.Len(t, st.NFTs, 45)
	assert.Equal(t, 3, st.Page)
	assert.False(t, st.HasMore)

	calls := len(f.requests)
	require.NoError(t, s.LoadMore(ctx, "alice", net))
	assert.Len(t, f.requests, calls, "no request once the last page was reached")
}

func TestStoreSetCollection(t *testing.T) {
	f := &pagedFetcher{total: 30}
	s := NewStore(f)
	ctx, net := context.Background(), testnet(t)

	require.NoError(t, s.Load(ctx, "alice", net))
	s.SetCollection("alpha")

	st := s.Snapshot()
	assert.Empty(t, st.NFTs)
	assert.Equal(t, 1, st.Page)
	assert.True(t, st.HasMore)
	assert.Equal(t, "alpha", st.SelectedCollection)

	require.NoError(t, s.Load(ctx, "alice", net))
	assert.Equal(t, "alpha", f.lastRequest().Collection)

	require.NoError(t, s.LoadMore(ctx, "alice", net))
	assert.Equal(t, Options{Limit: PageSize, Page: 2, Collection: "alpha"}, f.lastRequest())
}

// blockingFetcher holds FetchNFTs until release is closed.
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) FetchNFTs(context.Context, string, network.Network, Options) Result {
	f.started <- struct{}{}
	<-f.release
	return Result{NFTs: []Display{{ID: "1"}}, Total: 1}
}

func (f *blockingFetcher) FetchCollections(context.Context, string, network.Network) []string {
	return []string{"alpha"}
}

func TestStoreClearDiscardsInFlightLoad(t *testing.T) {
	f := &blockingFetcher{started: make(chan struct{}, 1), release: make(chan struct{})}
	s := NewStore(f)

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background(), "alice", testnet(t)) }()
	<-f.started

	assert.NoError(t, s.LoadMore(context.Background(), "alice", testnet(t)), "load more is a no-op while loading")

	s.Clear()
	close(f.release)

	assert.ErrorIs(t, <-done, ErrStale)
	st := s.Snapshot()
	assert.Empty(t, st.NFTs)
	assert.Empty(t, st.Collections)
	assert.False(t, st.Loading)
}

func TestStoreClearIsIdempotent(t *testing.T) {
	s := NewStore(&pagedFetcher{total: 3})
	require.NoError(t, s.Load(context.Background(), "alice", testnet(t)))

	s.Clear()
	once := s.Snapshot()
	s.Clear()
	assert.Equal(t, once, s.Snapshot())
	assert.Equal(t, initialState(), once)
}
