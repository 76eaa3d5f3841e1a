package nfts

import (
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matrixise/xpr-wallet/internal/network"
)

// ErrStale is returned when a newer Load, SetCollection or Clear discarded
// the result of a request in flight.
var ErrStale = errors.New("nft request superseded by a newer request")

// Fetcher is the NFT index the store reads from.
type Fetcher interface {
	FetchNFTs(ctx context.Context, account string, net network.Network, opts Options) Result
	FetchCollections(ctx context.Context, account string, net network.Network) []string
}

// State is the NFT gallery state.
type State struct {
	NFTs               []Display `json:"nfts"`
	Collections        []string  `json:"collections"`
	SelectedCollection string    `json:"selectedCollection"`
	Loading            bool      `json:"isLoading"`
	Page               int       `json:"page"`
	HasMore            bool      `json:"hasMore"`
}

func initialState() State {
	return State{NFTs: []Display{}, Collections: []string{}, Page: 1, HasMore: true}
}

// Store pages through an account's NFTs.
type Store struct {
	fetcher Fetcher

	mu    sync.Mutex
	seq   uint64
	state State
}

func NewStore(fetcher Fetcher) *Store {
	return &Store{fetcher: fetcher, state: initialState()}
}

// Load fetches the first page of the selected collection together with the
// account's collection list.
func (s *Store) Load(ctx context.Context, account string, net network.Network) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	collection := s.state.SelectedCollection
	s.state.Loading = true
	s.state.Page = 1
	s.mu.Unlock()

	var (
		page        Result
		collections []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page = s.fetcher.FetchNFTs(gctx, account, net, Options{Limit: PageSize, Page: 1, Collection: collection})
		return nil
	})
	g.Go(func() error {
		collections = s.fetcher.FetchCollections(gctx, account, net)
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return ErrStale
	}
	s.state.NFTs = page.NFTs
	s.state.Collections = collections
	s.state.Loading = false
	s.state.HasMore = len(page.NFTs) == PageSize
	return nil
}

// LoadMore appends the next page. It does nothing while a request is in
// flight or when the previous page was the last one.
func (s *Store) LoadMore(ctx context.Context, account string, net network.Network) error {
	s.mu.Lock()
	if s.state.Loading || !s.state.HasMore {
		s.mu.Unlock()
		return nil
	}
	seq := s.seq
	next := s.state.Page + 1
	collection := s.state.SelectedCollection
	s.state.Loading = true
	s.mu.Unlock()

	page := s.fetcher.FetchNFTs(ctx, account, net, Options{Limit: PageSize, Page: next, Collection: collection})

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return ErrStale
	}
	s.state.NFTs = append(s.state.NFTs, page.NFTs...)
	s.state.Page = next
	s.state.Loading = false
	s.state.HasMore = len(page.NFTs) == PageSize
	return nil
}

// SetCollection selects a collection filter, empty for all, and resets the
// listing. Call Load afterwards to fetch it.
func (s *Store) SetCollection(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state.SelectedCollection = collection
	s.state.NFTs = []Display{}
	s.state.Page = 1
	s.state.HasMore = true
	s.state.Loading = false
}

// Clear resets the store and discards any request in flight.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state = initialState()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.NFTs = slices.Clone(s.state.NFTs)
	st.Collections = slices.Clone(s.state.Collections)
	return st
}
