// Package tokens resolves token metadata from the MetalX coin list and USD
// prices from a CoinGecko compatible price feed.
package tokens

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/matrixise/xpr-wallet/internal/indexer"
	"github.com/matrixise/xpr-wallet/internal/network"
)

const (
	NativeSymbol   = "XPR"
	NativeContract = "eosio.token"
	StableSymbol   = "XMD"
	StableContract = "xmd.token"

	logoBaseURL = "https://www.metalx.com/images/coins/"
)

// Metadata describes a token identified by (Contract, Symbol).
type Metadata struct {
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Contract    string          `json:"contract"`
	Precision   int             `json:"precision"`
	Logo        string          `json:"logo"`
	Price       decimal.Decimal `json:"price"`
	CoingeckoID string          `json:"coingeckoId,omitempty"`
}

// Key returns the token identity used by every token keyed map.
func Key(contract, symbol string) string {
	return contract + ":" + symbol
}

// Key returns the token identity of m.
func (m Metadata) Key() string {
	return Key(m.Contract, m.Symbol)
}

// metalXCoin is one entry of the upstream coin list.
type metalXCoin struct {
	Name            string `json:"name"`
	Coin            string `json:"coin"`
	XTokenSymbol    string `json:"xtokenSymbol"`
	XTokenPrecision int    `json:"xtokenPrecision"`
	XTokenContract  string `json:"xtokenContract"`
	CoingeckoID     string `json:"coingeckoId"`
	Image           string `json:"image"`
}

// Resolver fetches token lists and keeps an index of every token it has seen.
type Resolver struct {
	client *indexer.Client
	index  *cache.Cache
	logger *slog.Logger
}

// NewResolver creates a resolver backed by client.
func NewResolver(client *indexer.Client) *Resolver {
	return &Resolver{
		client: client,
		index:  cache.New(cache.NoExpiration, 0),
		logger: slog.Default().With("component", "tokens"),
	}
}

// FetchMetadata returns the token list for net. It never fails: when the
// upstream list cannot be fetched the last list resolved for net is returned,
// or the built-in list when there is none.
func (r *Resolver) FetchMetadata(ctx context.Context, net network.Network) []Metadata {
	var coins []metalXCoin
	if err := r.client.GetJSON(ctx, net.TokenInfoURL, &coins); err != nil {
		if v, ok := r.index.Get(listKey(net.Name)); ok {
			r.logger.Warn("Failed to fetch token metadata, using last resolved list",
				"network", net.Name, "url", net.TokenInfoURL, "error", err)
			return slices.Clone(v.([]Metadata))
		}
		r.logger.Error("Failed to fetch token metadata, using built-in list",
			"network", net.Name, "url", net.TokenInfoURL, "error", err)
		return Known()
	}

	list := fromCoins(coins)
	r.index.Set(listKey(net.Name), slices.Clone(list), cache.NoExpiration)
	for _, t := range list {
		r.index.Set(tokenKey(net.Name, t.Contract, t.Symbol), t, cache.NoExpiration)
	}
	return list
}

// Lookup returns metadata of a token resolved by a previous FetchMetadata
// call for the network.
func (r *Resolver) Lookup(net network.Name, contract, symbol string) (Metadata, bool) {
	v, ok := r.index.Get(tokenKey(net, contract, symbol))
	if !ok {
		return Metadata{}, false
	}
	return v.(Metadata), true
}

func listKey(net network.Name) string {
	return "list/" + string(net)
}

func tokenKey(net network.Name, contract, symbol string) string {
	return "token/" + string(net) + "/" + Key(contract, symbol)
}

// fromCoins maps the upstream coin list to metadata records. Entries without
// contract or symbol are dropped, XPR is put first when missing and XMD is
// appended when missing.
func fromCoins(coins []metalXCoin) []Metadata {
	list := make([]Metadata, 0, len(coins)+2)
	for _, c := range coins {
		if c.XTokenContract == "" || c.XTokenSymbol == "" {
			continue
		}
		logo := c.Image
		if logo == "" {
			logo = logoBaseURL + strings.ToLower(c.Coin) + ".png"
		}
		list = append(list, Metadata{
			Name:        c.Name,
			Symbol:      c.XTokenSymbol,
			Contract:    c.XTokenContract,
			Precision:   c.XTokenPrecision,
			Logo:        logo,
			Price:       decimal.Zero,
			CoingeckoID: c.CoingeckoID,
		})
	}

	hasNative, hasStable := false, false
	for _, t := range list {
		if t.Symbol == NativeSymbol {
			hasNative = true
		}
		if t.Symbol == StableSymbol && t.Contract == StableContract {
			hasStable = true
		}
	}

	if !hasNative {
		list = append([]Metadata{nativeToken()}, list...)
	}
	if !hasStable {
		list = append(list, stableToken())
	}
	return list
}

func nativeToken() Metadata {
	return Metadata{
		Name:        "XPR Network",
		Symbol:      NativeSymbol,
		Contract:    NativeContract,
		Precision:   4,
		Logo:        logoBaseURL + "xpr.png",
		Price:       decimal.Zero,
		CoingeckoID: "proton",
	}
}

func stableToken() Metadata {
	return Metadata{
		Name:      "Metal Dollar",
		Symbol:    StableSymbol,
		Contract:  StableContract,
		Precision: 6,
		Logo:      logoBaseURL + "xmd.png",
		Price:     decimal.NewFromInt(1),
	}
}
