package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matrixise/xpr-wallet/internal/balances"
	"github.com/matrixise/xpr-wallet/internal/history"
	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/nfts"
	"github.com/matrixise/xpr-wallet/internal/tokens"
	"github.com/matrixise/xpr-wallet/internal/voting"
)

var (
	historyLimit  int
	historySkip   int
	nftPage       int
	nftLimit      int
	nftCollection string
	nftAll        bool
	producersAll  bool
)

var balancesCmd = &cobra.Command{
	Use:   "balances [account]",
	Short: "Show token balances and their USD value",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBalances,
}

var historyCmd = &cobra.Command{
	Use:   "history [account]",
	Short: "List token transfers sent and received",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var txCmd = &cobra.Command{
	Use:   "tx <transaction-id>",
	Short: "Show the actions of one transaction",
	Args:  cobra.ExactArgs(1),
	RunE:  runTx,
}

var nftsCmd = &cobra.Command{
	Use:   "nfts [account]",
	Short: "List NFTs owned by an account",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNFTs,
}

var collectionsCmd = &cobra.Command{
	Use:   "collections [account]",
	Short: "List the NFT collections an account holds assets of",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCollections,
}

var producersCmd = &cobra.Command{
	Use:   "producers",
	Short: "List block producers",
	Args:  cobra.NoArgs,
	RunE:  runProducers,
}

var voterCmd = &cobra.Command{
	Use:   "voter [account]",
	Short: "Show the producers an account votes for",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVoter,
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List known tokens with their USD price",
	Args:  cobra.NoArgs,
	RunE:  runTokens,
}

func init() {
	rootCmd.AddCommand(balancesCmd, historyCmd, txCmd, nftsCmd, collectionsCmd, producersCmd, voterCmd, tokensCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", history.DefaultLimit, "transfers per page")
	historyCmd.Flags().IntVar(&historySkip, "skip", 0, "transfers to skip")

	nftsCmd.Flags().IntVar(&nftPage, "page", 1, "page number, starting at 1")
	nftsCmd.Flags().IntVar(&nftLimit, "limit", nfts.PageSize, "assets per page")
	nftsCmd.Flags().StringVar(&nftCollection, "collection", "", "only list assets of this collection")
	nftsCmd.Flags().BoolVar(&nftAll, "all", false, "page through every asset; --page and --limit are ignored")

	producersCmd.Flags().BoolVar(&producersAll, "all", false, "include inactive producers")
}

func runBalances(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	account, err := a.account(args)
	if err != nil {
		return err
	}

	if err := a.portfolio.Refresh(ctx, account, a.network()); err != nil {
		return fmt.Errorf("failed to fetch balances: %w", err)
	}
	portfolio := a.portfolio.Snapshot()

	return render(portfolio, func(w io.Writer) {
		row(w, "SYMBOL", "CONTRACT", "BALANCE", "PRICE", "VALUE")
		for _, t := range portfolio.Tokens {
			row(w, t.Symbol, t.Contract, balances.FormatBalance(t.Balance, t.Decimals), t.Price.String(), balances.FormatUSD(t.USDValue))
		}
		row(w, "TOTAL", "", "", "", balances.FormatUSD(portfolio.TotalUSD))
	})
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	account, err := a.account(args)
	if err != nil {
		return err
	}

	result := a.history.FetchTransfers(ctx, account, a.network(), history.Page{Limit: historyLimit, Skip: historySkip})

	return render(result, func(w io.Writer) {
		row(w, "TIME", "DIRECTION", "FROM", "TO", "AMOUNT", "MEMO")
		for _, t := range result.Transfers {
			row(w, t.Timestamp, t.Direction, t.From, t.To, t.Amount+" "+t.Symbol, t.Memo)
		}
		fmt.Fprintf(w, "\n%d of %d transfers\n", len(result.Transfers), result.Total)
	})
}

func runTx(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	net := a.network()

	acts, err := a.history.FetchTransaction(ctx, args[0], net)
	if err != nil {
		return err
	}

	out := map[string]any{
		"transactionId": args[0],
		"explorerUrl":   net.TxURL(args[0]),
		"actions":       acts,
	}
	return render(out, func(w io.Writer) {
		row(w, "CONTRACT", "ACTION", "BLOCK", "DATA")
		for _, act := range acts {
			row(w, act.Act.Account, act.Act.Name, act.BlockNum, string(act.Act.Data))
		}
		fmt.Fprintf(w, "\n%s\n", net.TxURL(args[0]))
	})
}

func runNFTs(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	account, err := a.account(args)
	if err != nil {
		return err
	}

	if nftAll {
		gallery, err := loadGallery(ctx, a.gallery, account, a.network(), nftCollection)
		if err != nil {
			return err
		}
		return render(gallery, func(w io.Writer) {
			writeNFTRows(w, gallery.NFTs)
		})
	}

	result := a.nfts.FetchNFTs(ctx, account, a.network(), nfts.Options{
		Limit:      nftLimit,
		Page:       nftPage,
		Collection: nftCollection,
	})

	return render(result, func(w io.Writer) {
		writeNFTRows(w, result.NFTs)
	})
}

func writeNFTRows(w io.Writer, list []nfts.Display) {
	row(w, "ID", "NAME", "COLLECTION", "MINTED", "MARKET")
	for _, n := range list {
		row(w, n.ID, n.Name, n.CollectionDisplayName, n.MintedAt, n.MarketURL)
	}
}

// loadGallery loads the first page of the collection and keeps loading
// pages until the last one.
func loadGallery(ctx context.Context, gallery *nfts.Store, account string, net network.Network, collection string) (nfts.State, error) {
	gallery.SetCollection(collection)
	if err := gallery.Load(ctx, account, net); err != nil {
		return nfts.State{}, err
	}
	for gallery.Snapshot().HasMore {
		if err := ctx.Err(); err != nil {
			return nfts.State{}, err
		}
		if err := gallery.LoadMore(ctx, account, net); err != nil {
			return nfts.State{}, err
		}
	}
	return gallery.Snapshot(), nil
}

func runCollections(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	account, err := a.account(args)
	if err != nil {
		return err
	}

	collections := a.nfts.FetchCollections(ctx, account, a.network())

	return render(map[string][]string{"collections": collections}, func(w io.Writer) {
		for _, c := range collections {
			row(w, c)
		}
	})
}

func runProducers(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}

	producers := a.voting.FetchProducers(ctx, a.network())
	if !producersAll {
		producers = voting.Active(producers)
	}

	return render(map[string]any{"producers": producers}, func(w io.Writer) {
		row(w, "PRODUCER", "VOTES", "URL")
		for _, p := range producers {
			row(w, p.Owner, voting.FormatVotes(p.TotalVotes), p.URL)
		}
	})
}

func runVoter(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	account, err := a.account(args)
	if err != nil {
		return err
	}

	info := a.voting.FetchVoterInfo(ctx, account, a.network())

	return render(info, func(w io.Writer) {
		if info == nil {
			fmt.Fprintf(w, "%s has not voted\n", account)
			return
		}
		row(w, "STAKED", info.Staked.StringFixed(4)+" XPR")
		if info.Proxy != "" {
			row(w, "PROXY", info.Proxy)
		}
		for _, p := range info.Producers {
			row(w, "PRODUCER", p)
		}
	})
}

func runTokens(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}

	list := a.tokens.FetchMetadata(ctx, a.network())
	a.prices.Fetch(ctx, list)
	for i := range list {
		if p := a.prices.Price(list[i].Contract, list[i].Symbol); !p.IsZero() {
			list[i].Price = p
		}
	}

	out := tokenListView{Tokens: list}
	if at := a.prices.LastFetch(); !at.IsZero() {
		out.PricesUpdated = &at
	}
	return render(out, func(w io.Writer) {
		row(w, "SYMBOL", "CONTRACT", "PRECISION", "PRICE")
		for _, t := range list {
			row(w, t.Symbol, t.Contract, t.Precision, t.Price.String())
		}
		if out.PricesUpdated == nil {
			fmt.Fprintln(w, "\nprice feed unavailable")
		}
	})
}

type tokenListView struct {
	Tokens        []tokens.Metadata `json:"tokens"`
	PricesUpdated *time.Time        `json:"pricesUpdatedAt,omitempty"`
}
