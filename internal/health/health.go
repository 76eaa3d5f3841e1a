package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Pinger is a database that can be pinged.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober is a set of RPC endpoints that can be probed.
type Prober interface {
	Probe(ctx context.Context)
	EndpointsHealth() map[string]bool
}

// Checker performs health checks on application dependencies
type Checker struct {
	store          Pinger
	chains         func() []Prober
	lastRunTime    time.Time
	lastRunSuccess bool
	interval       time.Duration
	now            func() time.Time
	mu             sync.RWMutex
}

// NewChecker creates a new health checker. store may be nil when snapshots
// are disabled; interval is zero outside the watch daemon.
func NewChecker(store Pinger, chains func() []Prober, interval time.Duration) *Checker {
	if chains == nil {
		chains = func() []Prober { return nil }
	}
	return &Checker{
		store:    store,
		chains:   chains,
		interval: interval,
		now:      time.Now,
	}
}

// UpdateLastRun updates the timestamp and status of the last execution
func (c *Checker) UpdateLastRun(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRunTime = c.now()
	c.lastRunSuccess = success
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

var startTime = time.Now()

// Check performs all health checks and returns the aggregated status
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overallStatus := StatusOK

	if c.store != nil {
		dbCheck := c.checkDatabase(ctx)
		checks["database"] = dbCheck
		if dbCheck.Status != StatusOK {
			overallStatus = StatusError
		}
	}

	if probers := c.chains(); len(probers) > 0 {
		rpcCheck := c.checkRPC(ctx, probers)
		checks["rpc_endpoints"] = rpcCheck
		if rpcCheck.Status == StatusError {
			overallStatus = StatusError
		} else if rpcCheck.Status == StatusDegraded && overallStatus == StatusOK {
			overallStatus = StatusDegraded
		}
	}

	if c.interval > 0 {
		daemonCheck := c.checkDaemon()
		checks["daemon"] = daemonCheck
		if daemonCheck.Status != StatusOK && overallStatus == StatusOK {
			overallStatus = StatusDegraded
		}
	}

	return HealthResponse{
		Status:    overallStatus,
		Timestamp: c.now(),
		Checks:    checks,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
}

// checkDatabase verifies PostgreSQL connectivity
func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "database unreachable: " + err.Error(),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: "database connection healthy",
	}
}

// checkRPC probes every endpoint. All down is an error, some down is degraded.
func (c *Checker) checkRPC(ctx context.Context, probers []Prober) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()

	healthyCount, totalCount := 0, 0
	for _, p := range probers {
		p.Probe(ctx)
		for url, healthy := range p.EndpointsHealth() {
			totalCount++
			if healthy {
				healthyCount++
			} else {
				slog.Warn("Health check: RPC endpoint unhealthy", "url", url)
			}
		}
	}

	switch {
	case totalCount == 0 || healthyCount == 0:
		return CheckDetail{
			Status:  StatusError,
			Message: "no healthy RPC endpoints available",
		}
	case healthyCount == totalCount:
		return CheckDetail{
			Status:  StatusOK,
			Message: "all RPC endpoints healthy",
		}
	}

	return CheckDetail{
		Status:  StatusDegraded,
		Message: fmt.Sprintf("%d/%d RPC endpoints healthy", healthyCount, totalCount),
	}
}

// checkDaemon verifies the daemon is executing at expected intervals
func (c *Checker) checkDaemon() CheckDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lastRunTime.IsZero() {
		return CheckDetail{
			Status:  StatusOK,
			Message: "daemon not yet executed (startup)",
		}
	}

	if !c.lastRunSuccess {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: "last execution failed",
		}
	}

	// 2x interval grace period
	timeSinceLastRun := c.now().Sub(c.lastRunTime)
	graceThreshold := c.interval * 2

	if timeSinceLastRun > graceThreshold {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no execution in %s (expected every %s)", timeSinceLastRun.Round(time.Second), c.interval),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("last executed %s ago", timeSinceLastRun.Round(time.Second)),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.Check(r.Context())

		statusCode := http.StatusOK
		if status.Status == StatusError {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Failed to encode health response", "error", err)
		}
	}
}
