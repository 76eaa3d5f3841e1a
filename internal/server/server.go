// Package server exposes the wallet's read operations, the payment
// signature endpoint, health and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"

	"github.com/matrixise/xpr-wallet/internal/balances"
	"github.com/matrixise/xpr-wallet/internal/history"
	"github.com/matrixise/xpr-wallet/internal/metrics"
	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/nfts"
	"github.com/matrixise/xpr-wallet/internal/validate"
	"github.com/matrixise/xpr-wallet/internal/voting"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// TransferHistory pages through an account's transfers.
type TransferHistory interface {
	FetchTransfers(ctx context.Context, account string, net network.Network, page history.Page) history.Result
}

// Voting reads producers and voter state.
type Voting interface {
	FetchProducers(ctx context.Context, net network.Network) []voting.Producer
	FetchVoterInfo(ctx context.Context, account string, net network.Network) *voting.VoterInfo
}

// Services are the backends the HTTP API reads from. Nil Health or
// Signature handlers leave the matching route unregistered.
type Services struct {
	Balances  balances.Fetcher
	History   TransferHistory
	NFTs      nfts.Fetcher
	Voting    Voting
	Tokens    balances.MetadataSource
	Resolve   func(name string) (network.Network, error)
	Health    http.Handler
	Signature http.Handler
}

// Server routes HTTP requests to the wallet services.
type Server struct {
	svc    Services
	logger *slog.Logger
	router chi.Router
}

// New builds the router.
func New(svc Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if svc.Resolve == nil {
		svc.Resolve = network.Get
	}
	s := &Server{svc: svc, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	if s.svc.Health != nil {
		r.Method(http.MethodGet, "/health", s.svc.Health)
	}
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if s.svc.Signature != nil {
		// The handler answers other methods itself
		r.Handle("/api/metalpay-signature", s.svc.Signature)
	}

	r.Route("/api/{network}", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(s.resolveNetwork)

		r.Get("/producers", s.handleProducers)
		r.Get("/tokens", s.handleTokens)

		r.Route("/accounts/{account}", func(r chi.Router) {
			r.Use(validAccount)
			r.Get("/balances", s.handleBalances)
			r.Get("/history", s.handleHistory)
			r.Get("/nfts", s.handleNFTs)
			r.Get("/collections", s.handleCollections)
			r.Get("/voter", s.handleVoter)
		})
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

type ctxKey int

const networkKey ctxKey = iota

func (s *Server) resolveNetwork(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		net, err := s.svc.Resolve(chi.URLParam(r, "network"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), networkKey, net)))
	})
}

func networkFrom(r *http.Request) network.Network {
	net, _ := r.Context().Value(networkKey).(network.Network)
	return net
}

func validAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !validate.Recipient(chi.URLParam(r, "account")) {
			writeError(w, http.StatusBadRequest, validate.ErrInvalidRecipient.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
