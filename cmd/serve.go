package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/matrixise/xpr-wallet/internal/health"
	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/server"
	"github.com/matrixise/xpr-wallet/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wallet read API over HTTP",
	Long: `Serve balances, history, NFTs, voting and token data for any account as
JSON, together with the Metal Pay signature endpoint, /health and /metrics.
When DATABASE_URL is set the health check includes the database.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// probers returns the chain clients created so far as health probers.
func (a *app) probers() []health.Prober {
	clients := a.chains.Clients()
	out := make([]health.Prober, 0, len(clients))
	for _, c := range clients {
		out = append(out, c)
	}
	return out
}

// server builds the HTTP API on top of the app's services.
func (a *app) server(checker *health.Checker) *server.Server {
	return server.New(server.Services{
		Balances:  a.aggregator,
		History:   a.history,
		NFTs:      a.nfts,
		Voting:    a.voting,
		Tokens:    a.tokens,
		Resolve:   a.cfg.ResolveNetwork,
		Health:    checker.Handler(),
		Signature: server.NewSignatureHandler(server.CredentialsFromEnv()),
	}, slog.Default())
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}

	// Create one chain client per network so /health covers every endpoint
	for _, name := range network.Names() {
		net, err := a.cfg.ResolveNetwork(string(name))
		if err != nil {
			return err
		}
		if _, err := a.chains.For(net); err != nil {
			return err
		}
	}

	var pinger health.Pinger
	if dsn, err := getDatabaseURL(); err == nil {
		store, err := storage.NewStore(ctx, dsn)
		if err != nil {
			slog.Error("Failed to connect to PostgreSQL", "error", err)
			return err
		}
		defer store.Close()
		pinger = store
	}

	if creds := server.CredentialsFromEnv(); creds.APIKey == "" || creds.SecretKey == "" {
		slog.Warn("Metal Pay credentials not set, the signature endpoint will answer 500",
			"env", []string{server.MetalPayAPIKeyEnv, server.MetalPaySecretKeyEnv})
	}

	checker := health.NewChecker(pinger, a.probers, 0)
	return a.server(checker).Run(ctx, fmt.Sprintf(":%d", a.cfg.HTTPPort))
}
