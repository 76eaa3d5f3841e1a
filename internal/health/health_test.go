package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeProber struct {
	health map[string]bool
	probed int
}

func (f *fakeProber) Probe(context.Context) { f.probed++ }
func (f *fakeProber) EndpointsHealth() map[string]bool { return f.health }

func probers(p ...Prober) func() []Prober {
	return func() []Prober { return p }
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		store      Pinger
		rpc        map[string]bool
		wantStatus CheckStatus
		wantChecks []string
	}{
		{
			name:       "all healthy",
			store:      fakePinger{},
			rpc:        map[string]bool{"a": true, "b": true},
			wantStatus: StatusOK,
			wantChecks: []string{"database", "rpc_endpoints"},
		},
		{
			name:       "database down",
			store:      fakePinger{err: errors.New("refused")},
			rpc:        map[string]bool{"a": true},
			wantStatus: StatusError,
			wantChecks: []string{"database", "rpc_endpoints"},
		},
		{
			name:       "one endpoint down",
			store:      fakePinger{},
			rpc:        map[string]bool{"a": true, "b": false},
			wantStatus: StatusDegraded,
			wantChecks: []string{"database", "rpc_endpoints"},
		},
		{
			name:       "all endpoints down",
			rpc:        map[string]bool{"a": false},
			wantStatus: StatusError,
			wantChecks: []string{"rpc_endpoints"},
		},
		{
			name:       "no store configured",
			rpc:        map[string]bool{"a": true},
			wantStatus: StatusOK,
			wantChecks: []string{"rpc_endpoints"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProber{health: tt.rpc}
			c := NewChecker(tt.store, probers(p), 0)

			resp := c.Check(context.Background())
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Len(t, resp.Checks, len(tt.wantChecks))
			for _, name := range tt.wantChecks {
				assert.Contains(t, resp.Checks, name)
			}
			assert.Equal(t, 1, p.probed)
		})
	}
}

func TestCheckDaemon(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewChecker(nil, nil, time.Minute)
	c.now = func() time.Time { return now }

	assert.Equal(t, StatusOK, c.Check(context.Background()).Checks["daemon"].Status)

	c.UpdateLastRun(true)
	assert.Equal(t, StatusOK, c.Check(context.Background()).Status)

	now = now.Add(3 * time.Minute)
	resp := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Contains(t, resp.Checks["daemon"].Message, "no execution in 3m0s")

	c.UpdateLastRun(false)
	assert.Equal(t, "last execution failed", c.Check(context.Background()).Checks["daemon"].Message)
}

func TestHandler(t *testing.T) {
	ok := NewChecker(fakePinger{}, probers(&fakeProber{health: map[string]bool{"a": true}}), 0)

	rec := httptest.NewRecorder()
	ok.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusOK, body.Status)

	down := NewChecker(fakePinger{err: errors.New("down")}, nil, 0)
	rec = httptest.NewRecorder()
	down.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	ok.Handler()(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
