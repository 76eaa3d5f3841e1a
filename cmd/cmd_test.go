package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrixise/xpr-wallet/internal/actions"
	"github.com/matrixise/xpr-wallet/internal/balances"
	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/nfts"
	"github.com/matrixise/xpr-wallet/internal/storage"
	"github.com/matrixise/xpr-wallet/internal/tokens"
	"github.com/matrixise/xpr-wallet/internal/voting"
)

func TestRenderTo(t *testing.T) {
	v := broadcastResult{TransactionID: "abc", BlockNum: 7, ExplorerURL: "https://explorer/transaction/abc"}
	text := func(w io.Writer) {
		row(w, "TRANSACTION", v.TransactionID)
		row(w, "BLOCK", v.BlockNum)
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTo(&buf, outputJSON, v, text))
		assert.JSONEq(t, `{"transactionId":"abc","blockNum":7,"explorerUrl":"https://explorer/transaction/abc"}`, buf.String())
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTo(&buf, outputText, v, text))
		assert.Equal(t, "TRANSACTION  abc\nBLOCK        7\n", buf.String())
	})

	t.Run("text without renderer falls back to json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderTo(&buf, outputText, v, nil))
		assert.Contains(t, buf.String(), `"transactionId": "abc"`)
	})
}

var tokenList = []tokens.Metadata{
	{Symbol: "XPR", Contract: "eosio.token", Precision: 4},
	{Symbol: "XUSDC", Contract: "xtokens", Precision: 6},
	{Symbol: "FOO", Contract: "foo.token", Precision: 2},
	{Symbol: "FOO", Contract: "bar.token", Precision: 3},
}

func TestFindToken(t *testing.T) {
	tests := []struct {
		name    string
		symbol  string
		want    string
		wantErr string
	}{
		{name: "unique symbol", symbol: "XUSDC", want: "xtokens"},
		{name: "case-insensitive", symbol: "xpr", want: "eosio.token"},
		{name: "ambiguous symbol", symbol: "FOO", wantErr: "several contracts"},
		{name: "unknown", symbol: "NOPE", wantErr: "unknown token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := findToken(tokenList, tt.symbol)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Contract)
		})
	}
}

type staticIndex struct {
	list    []tokens.Metadata
	indexed map[string]tokens.Metadata
}

func (s staticIndex) FetchMetadata(context.Context, network.Network) []tokens.Metadata {
	return s.list
}

func (s staticIndex) Lookup(_ network.Name, contract, symbol string) (tokens.Metadata, bool) {
	m, ok := s.indexed[tokens.Key(contract, symbol)]
	return m, ok
}

func TestResolveToken(t *testing.T) {
	net, err := network.Get("testnet")
	require.NoError(t, err)

	idx := staticIndex{
		list: tokenList,
		indexed: map[string]tokens.Metadata{
			"bar.token:FOO": {Symbol: "FOO", Contract: "bar.token", Precision: 3, Name: "indexed"},
		},
	}

	tests := []struct {
		name     string
		symbol   string
		contract string
		want     tokens.Metadata
		wantErr  string
	}{
		{name: "symbol only", symbol: "XUSDC", want: tokenList[1]},
		{name: "ambiguous without contract", symbol: "FOO", wantErr: "several contracts"},
		{name: "contract read from index", symbol: "foo", contract: "bar.token", want: idx.indexed["bar.token:FOO"]},
		{name: "contract not indexed falls back to list", symbol: "FOO", contract: "foo.token", want: tokenList[2]},
		{name: "unknown contract", symbol: "FOO", contract: "baz.token", wantErr: "unknown token FOO on baz.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveToken(context.Background(), idx, net, tt.symbol, tt.contract)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildSelection(t *testing.T) {
	current := []string{"bp1", "bp2"}
	producers := []voting.Producer{
		{Owner: "top1", IsActive: 1},
		{Owner: "gone", IsActive: 0},
		{Owner: "top2", IsActive: 1},
	}

	t.Run("replace", func(t *testing.T) {
		sel, err := buildSelection(current, producers, []string{"bp3", "bp1"}, false, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"bp1", "bp3"}, sel.Owners())
	})

	t.Run("toggle", func(t *testing.T) {
		sel, err := buildSelection(current, producers, []string{"bp2", "bp3"}, true, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"bp1", "bp3"}, sel.Owners())
	})

	t.Run("top active", func(t *testing.T) {
		sel, err := buildSelection(current, producers, nil, false, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"top1", "top2"}, sel.Owners())
	})

	t.Run("too many producers", func(t *testing.T) {
		args := make([]string, actions.MaxProducers+1)
		for i := range args {
			args[i] = "bp" + string(rune('a'+i))
		}
		_, err := buildSelection(nil, nil, args, false, false)
		assert.ErrorIs(t, err, actions.ErrTooManyProducers)
	})

	t.Run("unchanged", func(t *testing.T) {
		sel, err := buildSelection(current, producers, []string{"bp2", "bp1"}, false, false)
		require.NoError(t, err)
		assert.False(t, sel.Changed(current))
	})
}

type portfolioFunc func(account string) (balances.Portfolio, error)

func (f portfolioFunc) Fetch(_ context.Context, account string, _ network.Network) (balances.Portfolio, error) {
	return f(account)
}

type recordingStore struct {
	rows []storage.PortfolioSnapshot
	err  error
}

func (r *recordingStore) BatchInsertSnapshots(_ context.Context, rows []storage.PortfolioSnapshot) error {
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, rows...)
	return nil
}

func TestSnapshotAccounts(t *testing.T) {
	net, err := network.Get("testnet")
	require.NoError(t, err)

	fetch := portfolioFunc(func(account string) (balances.Portfolio, error) {
		if account == "broken" {
			return balances.Portfolio{}, errors.New("light api down")
		}
		return balances.Portfolio{
			Account: account,
			Network: net.Name,
			Tokens: []balances.Token{
				{Contract: "eosio.token", Symbol: "XPR", Balance: decimal.NewFromInt(100), Price: decimal.RequireFromString("0.5"), USDValue: decimal.NewFromInt(50)},
			},
		}, nil
	})

	t.Run("one run id for every account", func(t *testing.T) {
		store := &recordingStore{}
		require.NoError(t, snapshotAccounts(context.Background(), fetch, store, net, []string{"alice", "bob"}))

		require.Len(t, store.rows, 2)
		assert.NotEqual(t, uuid.Nil, store.rows[0].RunID)
		assert.Equal(t, store.rows[0].RunID, store.rows[1].RunID)
		assert.Equal(t, "alice", store.rows[0].Account)
		assert.Equal(t, "bob", store.rows[1].Account)
		assert.Equal(t, "testnet", store.rows[0].Network)
	})

	t.Run("failing account does not stop the others", func(t *testing.T) {
		store := &recordingStore{}
		err := snapshotAccounts(context.Background(), fetch, store, net, []string{"broken", "carol"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
		require.Len(t, store.rows, 1)
		assert.Equal(t, "carol", store.rows[0].Account)
	})

	t.Run("insert failure reported", func(t *testing.T) {
		store := &recordingStore{err: errors.New("connection refused")}
		err := snapshotAccounts(context.Background(), fetch, store, net, []string{"alice"})
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		store := &recordingStore{}
		err := snapshotAccounts(ctx, fetch, store, net, []string{"alice"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, store.rows)
	})
}

type pagedGallery struct {
	total    int
	requests []nfts.Options
}

func (g *pagedGallery) FetchNFTs(_ context.Context, _ string, _ network.Network, opts nfts.Options) nfts.Result {
	g.requests = append(g.requests, opts)
	var out []nfts.Display
	for i := (opts.Page - 1) * opts.Limit; i < opts.Page*opts.Limit && i < g.total; i++ {
		out = append(out, nfts.Display{ID: fmt.Sprint(i), CollectionName: opts.Collection})
	}
	return nfts.Result{NFTs: out, Total: len(out)}
}

func (g *pagedGallery) FetchCollections(context.Context, string, network.Network) []string {
	return []string{"monsters"}
}

func TestLoadGallery(t *testing.T) {
	net, err := network.Get("testnet")
	require.NoError(t, err)

	fetcher := &pagedGallery{total: 2*nfts.PageSize + 5}
	state, err := loadGallery(context.Background(), nfts.NewStore(fetcher), "alice", net, "monsters")
	require.NoError(t, err)

	assert.Len(t, state.NFTs, 2*nfts.PageSize+5)
	assert.False(t, state.HasMore)
	assert.Equal(t, 3, state.Page)
	assert.Equal(t, "monsters", state.SelectedCollection)
	assert.Equal(t, []string{"monsters"}, state.Collections)
	require.Len(t, fetcher.requests, 3)
	for _, r := range fetcher.requests {
		assert.Equal(t, "monsters", r.Collection)
	}
}

func TestNewSnapshotView(t *testing.T) {
	runID := uuid.New()
	taken := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	rows := []storage.PortfolioSnapshot{
		{RunID: runID, TakenAt: taken, Network: "mainnet", Account: "alice", Contract: "xtokens", Symbol: "XUSDC",
			Amount: decimal.NewFromInt(30), PriceUSD: decimal.NewFromInt(1), USDValue: decimal.NewFromInt(30)},
		{RunID: runID, TakenAt: taken, Network: "mainnet", Account: "alice", Contract: "eosio.token", Symbol: "XPR",
			Amount: decimal.NewFromInt(1000), PriceUSD: decimal.RequireFromString("0.002"), USDValue: decimal.NewFromInt(2)},
	}

	v := newSnapshotView(rows)
	assert.Equal(t, runID, v.RunID)
	assert.Equal(t, taken, v.TakenAt)
	assert.Equal(t, "alice", v.Account)
	require.Len(t, v.Tokens, 2)
	assert.Equal(t, "XUSDC", v.Tokens[0].Symbol)
	assert.True(t, v.TotalUSD.Equal(decimal.NewFromInt(32)))
}
