// Package chain reads XPR Network state from the chain RPC API with failover
// across the network's endpoints.
package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	eos "github.com/eoscanada/eos-go"

	"github.com/matrixise/xpr-wallet/internal/indexer"
	"github.com/matrixise/xpr-wallet/internal/network"
)

const rpcTimeout = 10 * time.Second

// Producer is one row of get_producers.
type Producer struct {
	Owner        string `json:"owner"`
	TotalVotes   string `json:"total_votes"`
	ProducerKey  string `json:"producer_key"`
	IsActive     int    `json:"is_active"`
	URL          string `json:"url"`
	UnpaidBlocks int    `json:"unpaid_blocks"`
	Location     int    `json:"location"`
}

// Client talks to one network's RPC endpoints.
type Client struct {
	network  network.Network
	failover *failover
	http     *indexer.Client
}

// NewClient creates a client for net. No connection is made until the first
// call.
func NewClient(net network.Network, httpClient *indexer.Client) (*Client, error) {
	fo, err := newFailover(net.Endpoints, time.Now)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = indexer.New("chain_rpc")
	}
	return &Client{network: net, failover: fo, http: httpClient}, nil
}

// Network returns the descriptor this client was built for.
func (c *Client) Network() network.Network {
	return c.network
}

// GetTableRows reads rows of code/scope/table in JSON form. lower and upper
// may be empty.
func (c *Client) GetTableRows(ctx context.Context, code, scope, table, lower, upper string, limit uint32) ([]byte, error) {
	var rows []byte
	err := c.failover.do(ctx, func(ctx context.Context, ep *endpoint) error {
		ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
		defer cancel()

		resp, err := ep.api.GetTableRows(ctx, eos.GetTableRowsRequest{
			Code:       code,
			Scope:      scope,
			Table:      table,
			LowerBound: lower,
			UpperBound: upper,
			Limit:      limit,
			JSON:       true,
		})
		if err != nil {
			return err
		}
		rows = resp.Rows
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s/%s/%s: %w", code, scope, table, err)
	}
	return rows, nil
}

// GetProducers lists up to limit block producers.
func (c *Client) GetProducers(ctx context.Context, limit int) ([]Producer, error) {
	var out struct {
		Rows []Producer `json:"rows"`
	}
	err := c.failover.do(ctx, func(ctx context.Context, ep *endpoint) error {
		body := map[string]any{"json": true, "limit": limit}
		return c.http.PostJSON(ctx, indexer.BuildURL(ep.url, "/v1/chain/get_producers", nil), body, &out)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch producers: %w", err)
	}
	return out.Rows, nil
}

// Probe checks every endpoint with get_info.
func (c *Client) Probe(ctx context.Context) {
	c.failover.probe(ctx, c.network.ChainID)
}

// EndpointsHealth reports the last known health of each endpoint.
func (c *Client) EndpointsHealth() map[string]bool {
	return c.failover.health()
}

// Pool hands out one Client per network.
type Pool struct {
	httpClient *indexer.Client
	clients    map[network.Name]*Client
	mu         sync.Mutex
}

// NewPool creates a pool sharing httpClient between networks.
func NewPool(httpClient *indexer.Client) *Pool {
	return &Pool{httpClient: httpClient, clients: make(map[network.Name]*Client)}
}

// For returns the client of net, creating it on first use.
func (p *Pool) For(net network.Network) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[net.Name]; ok {
		return c, nil
	}
	c, err := NewClient(net, p.httpClient)
	if err != nil {
		return nil, err
	}
	p.clients[net.Name] = c
	return c, nil
}

// Clients returns every client created so far.
func (p *Pool) Clients() []*Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Client, 0, len(p.clients))
	for _, name := range network.Names() {
		if c, ok := p.clients[name]; ok {
			out = append(out, c)
		}
	}
	return out
}
