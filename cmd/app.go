package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/matrixise/xpr-wallet/internal/balances"
	"github.com/matrixise/xpr-wallet/internal/chain"
	"github.com/matrixise/xpr-wallet/internal/config"
	"github.com/matrixise/xpr-wallet/internal/history"
	"github.com/matrixise/xpr-wallet/internal/indexer"
	"github.com/matrixise/xpr-wallet/internal/logger"
	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/nfts"
	"github.com/matrixise/xpr-wallet/internal/signer"
	"github.com/matrixise/xpr-wallet/internal/tokens"
	"github.com/matrixise/xpr-wallet/internal/voting"
	"github.com/matrixise/xpr-wallet/internal/wallet"
)

const upstreamBurst = 5

var errNoAccount = errors.New("no account given: pass one as argument or set account in the config")

// app holds the services shared by every command.
type app struct {
	cfg        *config.Config
	chains     *chain.Pool
	tokens     *tokens.Resolver
	prices     *tokens.PriceCache
	light      *balances.LightClient
	aggregator *balances.Aggregator
	portfolio  *balances.Store
	history    *history.Client
	nfts       *nfts.Client
	gallery    *nfts.Store
	voting     *voting.Service
	wallet     *wallet.Store
}

// newApp loads the configuration and wires the services.
func newApp() (*app, error) {
	logger.Setup(logLevel)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return nil, err
	}
	return newAppWithConfig(cfg)
}

// newAppWithConfig wires the services for cfg. Each upstream gets its own
// rate-limited client so metrics are labelled per upstream.
func newAppWithConfig(cfg *config.Config) (*app, error) {
	// Override log level if set in config
	if cfg.LogLevel != "" && !rootCmd.PersistentFlags().Changed("log-level") {
		logger.Setup(cfg.LogLevel)
	}

	upstream := func(name string) *indexer.Client {
		return indexer.New(name, indexer.WithRateLimit(cfg.RequestsPerSecond, upstreamBurst))
	}

	a := &app{
		cfg:     cfg,
		chains:  chain.NewPool(upstream("chain_rpc")),
		tokens:  tokens.NewResolver(upstream("token_list")),
		prices:  tokens.NewPriceCache(upstream("price_feed"), cfg.PriceAPI, tokens.WithTTL(cfg.PriceTTL)),
		light:   balances.NewLightClient(upstream("light_api")),
		history: history.NewClient(upstream("hyperion")),
		nfts:    nfts.NewClient(upstream("atomic_api")),
	}
	a.aggregator = balances.NewAggregator(a.tokens, a.prices, a.light)
	a.portfolio = balances.NewStore(a.aggregator)
	a.gallery = nfts.NewStore(a.nfts)
	a.voting = voting.NewService(a.chains, upstream("hyperion"))

	opts := []wallet.Option{
		wallet.WithResolver(func(name network.Name) (network.Network, error) {
			return cfg.ResolveNetwork(string(name))
		}),
	}
	if networkFlag != "" {
		// A one-off network choice is neither read from nor saved to the state file
		if !network.Valid(networkFlag) {
			return nil, fmt.Errorf("%w: %q", network.ErrUnknownNetwork, networkFlag)
		}
		opts = append(opts, wallet.WithDefaultNetwork(network.Name(strings.ToLower(networkFlag))))
	} else {
		opts = append(opts,
			wallet.WithStateFile(wallet.NewStateFile(cfg.StateFile)),
			wallet.WithDefaultNetwork(network.Name(cfg.Network)))
	}

	var err error
	a.wallet, err = wallet.New(signer.NewKeyLinker(cfg.Account, cfg.Permission, signer.EnvKey), opts...)
	if err != nil {
		return nil, err
	}
	a.wallet.OnInvalidate(a.portfolio.Clear)
	a.wallet.OnInvalidate(a.gallery.Clear)
	return a, nil
}

// network returns the network the command runs against.
func (a *app) network() network.Network {
	return a.wallet.Network()
}

// account returns the first positional argument or the configured account.
func (a *app) account(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if a.cfg.Account != "" {
		return a.cfg.Account, nil
	}
	return "", errNoAccount
}

// connect establishes the signing session on the command's network,
// restoring an existing one when the signer has it.
func (a *app) connect(ctx context.Context) error {
	a.wallet.Restore(ctx)
	if err := a.wallet.Connect(ctx); err != nil {
		a.wallet.ClearError()
		return fmt.Errorf("failed to connect signer: %w", err)
	}
	if a.wallet.Status() != wallet.Connected {
		return errors.New("signer did not return a session")
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
