// Package history reads transfer history from a hyperion indexer.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/matrixise/xpr-wallet/internal/indexer"
	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/tokens"
)

// DefaultLimit is the page size used when Page.Limit is not set.
const DefaultLimit = 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Direction tells whether the queried account sent or received a transfer.
type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// Item is one transfer as displayed in the history list.
type Item struct {
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	BlockNum  uint64    `json:"blockNum"`
	Contract  string    `json:"contract"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Symbol    string    `json:"symbol"`
	Memo      string    `json:"memo"`
	Direction Direction `json:"direction"`
}

// Page windows the history query.
type Page struct {
	Limit int
	Skip  int
}

// Result is one page of transfers and the total reported by the indexer.
type Result struct {
	Transfers []Item `json:"transfers"`
	Total     int    `json:"total"`
}

// Authorization is one signer of an action.
type Authorization struct {
	Actor      string `json:"actor"`
	Permission string `json:"permission"`
}

// Act is the contract call inside an indexed action. Data keeps the raw
// payload since its shape depends on the action.
type Act struct {
	Account       string              `json:"account"`
	Name          string              `json:"name"`
	Authorization []Authorization     `json:"authorization"`
	Data          jsoniter.RawMessage `json:"data"`
}

// Action is one indexed action.
type Action struct {
	Timestamp string `json:"timestamp"`
	BlockNum  uint64 `json:"block_num"`
	TrxID     string `json:"trx_id"`
	Act       Act    `json:"act"`
}

// TransferData is the payload of a token transfer action.
type TransferData struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Quantity string `json:"quantity"`
	Memo     string `json:"memo"`
}

// Transfer decodes the action payload as a token transfer.
func (a Action) Transfer() (TransferData, error) {
	var data TransferData
	if len(a.Act.Data) == 0 || string(a.Act.Data) == "null" {
		return data, fmt.Errorf("action %s has no data", a.TrxID)
	}
	if err := json.Unmarshal(a.Act.Data, &data); err != nil {
		return data, fmt.Errorf("failed to decode transfer data: %w", err)
	}
	return data, nil
}

type actionsResponse struct {
	Actions []Action `json:"actions"`
	Total   struct {
		Value    int    `json:"value"`
		Relation string `json:"relation"`
	} `json:"total"`
}

// ParseQuantity splits "<amount> <SYMBOL>". Anything that does not split
// into exactly two space separated parts is returned whole as the amount.
func ParseQuantity(quantity string) (amount, symbol string) {
	parts := strings.Split(quantity, " ")
	if len(parts) != 2 {
		return quantity, ""
	}
	return parts[0], parts[1]
}

// BuildFilter returns the hyperion filter selecting transfers on each
// distinct contract.
func BuildFilter(contracts []string) string {
	seen := make(map[string]bool, len(contracts))
	filters := make([]string, 0, len(contracts))
	for _, c := range contracts {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		filters = append(filters, c+":transfer")
	}
	return strings.Join(filters, ",")
}

// ToItem maps a transfer action for account.
func ToItem(a Action, data TransferData, account string) Item {
	amount, symbol := ParseQuantity(data.Quantity)
	direction := Received
	if data.From == account {
		direction = Sent
	}
	return Item{
		ID:        a.TrxID,
		Timestamp: a.Timestamp,
		BlockNum:  a.BlockNum,
		Contract:  a.Act.Account,
		From:      data.From,
		To:        data.To,
		Amount:    amount,
		Symbol:    symbol,
		Memo:      data.Memo,
		Direction: direction,
	}
}

// Client queries hyperion.
type Client struct {
	client    *indexer.Client
	contracts []string
	logger    *slog.Logger
}

// NewClient creates a history client filtering on the built-in token
// contracts.
func NewClient(client *indexer.Client) *Client {
	return &Client{
		client:    client,
		contracts: tokens.KnownContracts(),
		logger:    slog.Default().With("component", "history"),
	}
}

// FetchTransfers returns one page of transfers of account, newest first.
// Failures are logged and produce an empty result with a total of 0.
func (c *Client) FetchTransfers(ctx context.Context, account string, net network.Network, page Page) Result {
	res, err := c.fetchTransfers(ctx, account, net, page)
	if err != nil {
		c.logger.Error("Failed to fetch transfer history",
			"network", net.Name, "account", account, "error", err)
		return Result{Transfers: []Item{}}
	}
	return res
}

func (c *Client) fetchTransfers(ctx context.Context, account string, net network.Network, page Page) (Result, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	skip := max(page.Skip, 0)

	q := url.Values{}
	q.Set("account", account)
	q.Set("filter", BuildFilter(c.contracts))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("skip", strconv.Itoa(skip))
	q.Set("sort", "desc")

	var resp actionsResponse
	if err := c.client.GetJSON(ctx, indexer.BuildURL(net.Hyperion, "/v2/history/get_actions", q), &resp); err != nil {
		return Result{}, fmt.Errorf("failed to fetch transfer history: %w", err)
	}

	items := make([]Item, 0, len(resp.Actions))
	for _, a := range resp.Actions {
		if a.Act.Name != "transfer" {
			continue
		}
		data, err := a.Transfer()
		if err != nil {
			c.logger.Debug("Skipping action without transfer data", "trx_id", a.TrxID, "error", err)
			continue
		}
		items = append(items, ToItem(a, data, account))
	}
	return Result{Transfers: items, Total: resp.Total.Value}, nil
}

// FetchTransaction returns the actions of one transaction.
func (c *Client) FetchTransaction(ctx context.Context, id string, net network.Network) ([]Action, error) {
	q := url.Values{}
	q.Set("id", id)

	var resp struct {
		Actions []Action `json:"actions"`
	}
	if err := c.client.GetJSON(ctx, indexer.BuildURL(net.Hyperion, "/v2/history/get_transaction", q), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", id, err)
	}
	if resp.Actions == nil {
		return []Action{}, nil
	}
	return resp.Actions, nil
}
