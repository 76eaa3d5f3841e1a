package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	eos "github.com/eoscanada/eos-go"
)

const (
	unhealthyDuration  = 5 * time.Minute // Cooldown before an endpoint is tried again
	healthCheckTimeout = 5 * time.Second
)

// ErrNoHealthyEndpoint is returned when every endpoint is cooling down.
var ErrNoHealthyEndpoint = errors.New("no healthy RPC endpoints available")

type endpoint struct {
	url           string
	api           *eos.API
	healthy       bool
	lastError     error
	lastErrorTime time.Time
	mu            sync.RWMutex
}

// failover picks a healthy endpoint, moving to the next one after a failure.
// A failed call is never repeated; the next call simply lands elsewhere.
type failover struct {
	endpoints    []*endpoint
	currentIndex int
	now          func() time.Time
	mu           sync.Mutex
}

func newFailover(urls []string, now func() time.Time) (*failover, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one RPC URL is required")
	}
	f := &failover{endpoints: make([]*endpoint, 0, len(urls)), now: now}
	for _, u := range urls {
		f.endpoints = append(f.endpoints, &endpoint{url: u, api: eos.New(u), healthy: true})
	}
	return f, nil
}

// pick returns the current endpoint, or the next healthy one. Endpoints whose
// cooldown expired are handed out again.
func (f *failover) pick() (*endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := f.currentIndex
	for i := 0; i < len(f.endpoints); i++ {
		idx := (start + i) % len(f.endpoints)
		ep := f.endpoints[idx]

		ep.mu.Lock()
		usable := ep.healthy || f.now().Sub(ep.lastErrorTime) > unhealthyDuration
		if usable && !ep.healthy {
			ep.healthy = true
			slog.Info("Retrying RPC endpoint after cooldown", "url", ep.url)
		}
		ep.mu.Unlock()

		if usable {
			f.currentIndex = idx
			return ep, nil
		}
	}
	return nil, ErrNoHealthyEndpoint
}

func (f *failover) markUnhealthy(ep *endpoint, err error) {
	ep.mu.Lock()
	ep.healthy = false
	ep.lastError = err
	ep.lastErrorTime = f.now()
	ep.mu.Unlock()

	f.mu.Lock()
	if f.endpoints[f.currentIndex] == ep {
		f.currentIndex = (f.currentIndex + 1) % len(f.endpoints)
	}
	f.mu.Unlock()

	slog.Warn("Marked RPC endpoint as unhealthy",
		"url", ep.url,
		"error", err,
		"retry_after", unhealthyDuration)
}

// do runs fn once against a healthy endpoint.
func (f *failover) do(ctx context.Context, fn func(ctx context.Context, ep *endpoint) error) error {
	ep, err := f.pick()
	if err != nil {
		return err
	}
	if err := fn(ctx, ep); err != nil {
		if ctx.Err() == nil {
			f.markUnhealthy(ep, err)
		}
		return fmt.Errorf("%s: %w", ep.url, err)
	}
	return nil
}

// health returns the health flag of every endpoint keyed by URL.
func (f *failover) health() map[string]bool {
	out := make(map[string]bool, len(f.endpoints))
	for _, ep := range f.endpoints {
		ep.mu.RLock()
		out[ep.url] = ep.healthy
		ep.mu.RUnlock()
	}
	return out
}

// probe calls get_info on every endpoint and checks the chain id.
func (f *failover) probe(ctx context.Context, chainID string) {
	for _, ep := range f.endpoints {
		pctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		info, err := ep.api.GetInfo(pctx)
		cancel()

		if err == nil && chainID != "" && hex.EncodeToString(info.ChainID) != chainID {
			err = fmt.Errorf("chain id mismatch: got %s", hex.EncodeToString(info.ChainID))
		}
		if err != nil {
			f.markUnhealthy(ep, err)
			continue
		}

		ep.mu.Lock()
		ep.healthy = true
		ep.lastError = nil
		ep.mu.Unlock()
	}
}
