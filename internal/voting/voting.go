// Package voting reads block producers and an account's current votes.
package voting

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/matrixise/xpr-wallet/internal/chain"
	"github.com/matrixise/xpr-wallet/internal/indexer"
	"github.com/matrixise/xpr-wallet/internal/network"
)

// ProducerLimit is the number of producers requested from the chain.
const ProducerLimit = 100

type Producer = chain.Producer

// VoterInfo is the current vote of an account.
type VoterInfo struct {
	Producers []string        `json:"producers"`
	Proxy     string          `json:"proxy"`
	Staked    decimal.Decimal `json:"staked"`
}

// Overview combines the active producers and the account's vote.
type Overview struct {
	Producers []Producer `json:"producers"`
	Voter     *VoterInfo `json:"voter"`
}

type accountResponse struct {
	Account *struct {
		VoterInfo *struct {
			Producers []string `json:"producers"`
			Proxy     string   `json:"proxy"`
			Staked    any      `json:"staked"`
		} `json:"voter_info"`
	} `json:"account"`
}

// Service reads voting state from the chain and hyperion.
type Service struct {
	chains *chain.Pool
	client *indexer.Client
	logger *slog.Logger
}

func NewService(chains *chain.Pool, client *indexer.Client) *Service {
	return &Service{chains: chains, client: client, logger: slog.Default().With("component", "voting")}
}

// FetchProducers lists the block producers of net. Failures are logged and
// produce an empty list.
func (s *Service) FetchProducers(ctx context.Context, net network.Network) []Producer {
	c, err := s.chains.For(net)
	if err == nil {
		var producers []Producer
		producers, err = c.GetProducers(ctx, ProducerLimit)
		if err == nil {
			if producers == nil {
				producers = []Producer{}
			}
			return producers
		}
	}
	s.logger.Error("Failed to fetch producers", "network", net.Name, "error", err)
	return []Producer{}
}

// FetchVoterInfo returns the vote of account, or nil when the account has
// never voted or the lookup failed.
func (s *Service) FetchVoterInfo(ctx context.Context, account string, net network.Network) *VoterInfo {
	info, err := s.fetchVoterInfo(ctx, account, net)
	if err != nil {
		s.logger.Error("Failed to fetch voter info", "network", net.Name, "account", account, "error", err)
		return nil
	}
	return info
}

func (s *Service) fetchVoterInfo(ctx context.Context, account string, net network.Network) (*VoterInfo, error) {
	q := url.Values{}
	q.Set("account", account)

	var resp accountResponse
	if err := s.client.GetJSON(ctx, indexer.BuildURL(net.Hyperion, "/v2/state/get_account", q), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	if resp.Account == nil || resp.Account.VoterInfo == nil {
		return nil, nil
	}

	vi := resp.Account.VoterInfo
	producers := vi.Producers
	if producers == nil {
		producers = []string{}
	}
	return &VoterInfo{
		Producers: producers,
		Proxy:     vi.Proxy,
		Staked:    chain.ScaleNative(vi.Staked),
	}, nil
}

// Overview fetches the active producers and the vote of account
// concurrently. An empty account skips the voter lookup.
func (s *Service) Overview(ctx context.Context, account string, net network.Network) Overview {
	var ov Overview

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ov.Producers = Active(s.FetchProducers(gctx, net))
		return nil
	})
	if account != "" {
		g.Go(func() error {
			ov.Voter = s.FetchVoterInfo(gctx, account, net)
			return nil
		})
	}
	_ = g.Wait()
	return ov
}

// Active keeps the producers flagged active, in order.
func Active(producers []Producer) []Producer {
	out := make([]Producer, 0, len(producers))
	for _, p := range producers {
		if p.IsActive == 1 {
			out = append(out, p)
		}
	}
	return out
}
