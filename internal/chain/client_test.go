package chain

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matrixise/xpr-wallet/internal/indexer"
	"github.com/matrixise/xpr-wallet/internal/network"
)

func testNetwork(t *testing.T, endpoints ...string) network.Network {
	t.Helper()
	n, err := network.Get("testnet")
	require.NoError(t, err)
	return n.WithOverrides(network.Overrides{Endpoints: endpoints})
}

func newTestClient(t *testing.T, endpoints ...string) *Client {
	t.Helper()
	c, err := NewClient(testNetwork(t, endpoints...), indexer.New("rpc", indexer.WithRateLimit(0, 0)))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresEndpoints(t *testing.T) {
	n := testNetwork(t)
	n.Endpoints = nil
	_, err := NewClient(n, nil)
	assert.Error(t, err)
}

func TestGetProducers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chain/get_producers", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["json"])
		assert.Equal(t, float64(100), body["limit"])
		_, _ = io.WriteString(w, `{"rows":[
			{"owner":"protonnz","total_votes":"12345678901234567890.0","producer_key":"PUB_K1_x","is_active":1,"url":"https://nz.example","unpaid_blocks":3,"location":554},
			{"owner":"bp2","total_votes":"1.0","is_active":0}
		],"total_producer_vote_weight":"1","more":""}`)
	}))
	defer srv.Close()

	producers, err := newTestClient(t, srv.URL).GetProducers(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, producers, 2)
	assert.Equal(t, "protonnz", producers[0].Owner)
	assert.Equal(t, 1, producers[0].IsActive)
	assert.Equal(t, 554, producers[0].Location)
	assert.Equal(t, 0, producers[1].IsActive)
}

func TestFailoverMovesToNextEndpoint(t *testing.T) {
	var badCalls, goodCalls atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badCalls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		goodCalls.Add(1)
		_, _ = io.WriteString(w, `{"rows":[{"owner":"bp1"}]}`)
	}))
	defer good.Close()

	c := newTestClient(t, bad.URL, good.URL)

	_, err := c.GetProducers(context.Background(), 10)
	require.Error(t, err, "a failed call is reported, not retried")
	assert.Equal(t, int32(1), badCalls.Load())
	assert.Equal(t, int32(0), goodCalls.Load())

	producers, err := c.GetProducers(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, producers, 1)
	assert.Equal(t, int32(1), badCalls.Load())

	health := c.EndpointsHealth()
	assert.False(t, health[bad.URL])
	assert.True(t, health[good.URL])
}

func TestFailoverCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fo, err := newFailover([]string{"http://a", "http://b"}, func() time.Time { return now })
	require.NoError(t, err)

	a, err := fo.pick()
	require.NoError(t, err)
	fo.markUnhealthy(a, assert.AnError)
	b, err := fo.pick()
	require.NoError(t, err)
	assert.Equal(t, "http://b", b.url)

	fo.markUnhealthy(b, assert.AnError)
	_, err = fo.pick()
	assert.ErrorIs(t, err, ErrNoHealthyEndpoint)

	now = now.Add(unhealthyDuration + time.Second)
	ep, err := fo.pick()
	require.NoError(t, err)
	assert.Equal(t, "http://a", ep.url)
}

func TestGetStake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chain/get_table_rows", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "votersxpr", req["table"])
		assert.Equal(t, "alice", req["lower_bound"])
		_, _ = io.WriteString(w, `{"rows":[{"acc":"alice","isqualified":1,"claimamount":1234,"lastclaim":1700000000,"staked":"1500000"}],"more":false}`)
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv.URL).GetStake(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, info.Staked.Equal(decimal.NewFromInt(150)))
	assert.True(t, info.ClaimAmount.Equal(decimal.RequireFromString("0.1234")))
	assert.True(t, info.Qualified)
	assert.Equal(t, int64(1700000000), info.LastClaim.Unix())
}

func TestGetStakeNoRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"rows":[{"acc":"bob","staked":10}],"more":false}`)
	}))
	defer srv.Close()

	info, err := newTestClient(t, srv.URL).GetStake(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, info.Staked.IsZero())
	assert.False(t, info.Qualified)
}

func TestGetRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"rows":[{"owner":"alice","quantity":"10.0000 XPR","request_time":"2026-01-02T03:04:05"}],"more":false}`)
	}))
	defer srv.Close()

	refund, err := newTestClient(t, srv.URL).GetRefund(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, refund)
	assert.Equal(t, "10.0000 XPR", refund.Quantity)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), refund.RequestTime)
}

func TestScaleNative(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"number", float64(12345), "1.2345"},
		{"string", "10000", "1"},
		{"garbage", "abc", "0"},
		{"nil", nil, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScaleNative(tt.in).String())
		})
	}
}

func TestPool(t *testing.T) {
	p := NewPool(nil)
	main, _ := network.Get("mainnet")

	a, err := p.For(main)
	require.NoError(t, err)
	b, err := p.For(main)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Len(t, p.Clients(), 1)
	assert.Equal(t, network.Mainnet, a.Network().Name)
}
