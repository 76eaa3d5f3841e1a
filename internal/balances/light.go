package balances

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/matrixise/xpr-wallet/internal/indexer"
	"github.com/matrixise/xpr-wallet/internal/network"
)

// Raw is one balance as reported by the light API.
type Raw struct {
	Contract string `json:"contract"`
	Symbol   string `json:"symbol"`
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
}

type lightBalance struct {
	Contract string `json:"contract"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Decimals string `json:"decimals"`
}

type lightResponse struct {
	AccountName string         `json:"account_name"`
	Balances    []lightBalance `json:"balances"`
}

// LightClient reads account balances from a light API.
type LightClient struct {
	client *indexer.Client
}

func NewLightClient(client *indexer.Client) *LightClient {
	return &LightClient{client: client}
}

// FetchBalances returns every token balance of account on net.
func (c *LightClient) FetchBalances(ctx context.Context, account string, net network.Network) ([]Raw, error) {
	u := indexer.BuildURL(net.LightAPI, "/api/balances/proton/"+url.PathEscape(account), nil)

	var resp lightResponse
	if err := c.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch balances: %w", err)
	}

	out := make([]Raw, 0, len(resp.Balances))
	for _, b := range resp.Balances {
		decimals, _ := strconv.Atoi(b.Decimals)
		out = append(out, Raw{
			Contract: b.Contract,
			Symbol:   b.Currency,
			Amount:   b.Amount,
			Decimals: decimals,
		})
	}
	return out, nil
}
