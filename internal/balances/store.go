package balances

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/matrixise/xpr-wallet/internal/network"
)

// ErrStale is returned by Refresh when a newer Refresh or Clear started
// while it was in flight. Its result was discarded.
var ErrStale = errors.New("balance refresh superseded by a newer request")

// Fetcher produces a portfolio.
type Fetcher interface {
	Fetch(ctx context.Context, account string, net network.Network) (Portfolio, error)
}

// State is what the store currently displays.
type State struct {
	Tokens      []Token         `json:"tokens"`
	TotalUSD    decimal.Decimal `json:"totalUsdValue"`
	Loading     bool            `json:"isLoading"`
	Err         error           `json:"-"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// Store holds the displayed balances. Each Refresh takes a sequence number;
// only the most recently started request may update the state.
type Store struct {
	fetcher Fetcher

	mu    sync.Mutex
	seq   uint64
	state State
}

func NewStore(fetcher Fetcher) *Store {
	return &Store{fetcher: fetcher, state: initialState()}
}

func initialState() State {
	return State{TotalUSD: decimal.Zero}
}

// Refresh fetches a new portfolio. On failure the previous tokens stay in
// place and the error is recorded.
func (s *Store) Refresh(ctx context.Context, account string, net network.Network) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state.Loading = true
	s.state.Err = nil
	s.mu.Unlock()

	p, err := s.fetcher.Fetch(ctx, account, net)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		return ErrStale
	}
	s.state.Loading = false
	if err != nil {
		s.state.Err = err
		return err
	}
	s.state.Tokens = p.Tokens
	s.state.TotalUSD = p.TotalUSD
	s.state.LastUpdated = p.LastUpdated
	return nil
}

// Clear resets the store to its initial state and invalidates any refresh in
// flight.
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
	st.Tokens = slices.Clone(s.state.Tokens)
	return st
}

// Find returns the displayed token matching symbol, optionally restricted to
// a contract.
func (s *Store) Find(contract, symbol string) (Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.state.Tokens {
		if t.Symbol == symbol && (contract == "" || t.Contract == contract) {
			return t, true
		}
	}
	return Token{}, false
}
