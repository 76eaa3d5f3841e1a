package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/matrixise/xpr-wallet/internal/actions"
	"github.com/matrixise/xpr-wallet/internal/network"
	"github.com/matrixise/xpr-wallet/internal/tokens"
	"github.com/matrixise/xpr-wallet/internal/validate"
	"github.com/matrixise/xpr-wallet/internal/voting"
)

var (
	transferToken    string
	transferContract string
	transferMemo     string
	voteToggle       bool
	voteTop          bool
)

// broadcastResult is printed by every command that submits a transaction.
type broadcastResult struct {
	TransactionID string `json:"transactionId"`
	BlockNum      uint32 `json:"blockNum"`
	ExplorerURL   string `json:"explorerUrl"`
}

var transferCmd = &cobra.Command{
	Use:   "transfer <to> <amount>",
	Short: "Send tokens to another account",
	Example: `  xpr-wallet transfer bob 1.5
  xpr-wallet transfer bob 10 --token XUSDC --memo "lunch"`,
	Args: cobra.ExactArgs(2),
	RunE: runTransfer,
}

var stakeCmd = &cobra.Command{
	Use:   "stake <amount>",
	Short: "Stake XPR to vote and earn rewards",
	Args:  cobra.ExactArgs(1),
	RunE:  runStake,
}

var unstakeCmd = &cobra.Command{
	Use:   "unstake <amount>",
	Short: "Unstake XPR; the tokens become refundable after the release period",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnstake,
}

var refundCmd = &cobra.Command{
	Use:   "refund",
	Short: "Claim unstaked XPR whose release period is over",
	Args:  cobra.NoArgs,
	RunE:  runRefund,
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim staking rewards",
	Args:  cobra.NoArgs,
	RunE:  runClaim,
}

var voteCmd = &cobra.Command{
	Use:   "vote [producer...]",
	Short: "Vote for up to 30 block producers",
	Long: `Vote for block producers. The given producers replace the current vote
unless --toggle is set, in which case each one is added to or removed from
it. --top votes for the highest ranked active producers.`,
	RunE: runVote,
}

func init() {
	rootCmd.AddCommand(transferCmd, stakeCmd, unstakeCmd, refundCmd, claimCmd, voteCmd)

	transferCmd.Flags().StringVar(&transferToken, "token", tokens.NativeSymbol, "token symbol")
	transferCmd.Flags().StringVar(&transferContract, "contract", "", "token contract, when the symbol is ambiguous")
	transferCmd.Flags().StringVar(&transferMemo, "memo", "", "transfer memo")

	voteCmd.Flags().BoolVar(&voteToggle, "toggle", false, "toggle the given producers in the current vote")
	voteCmd.Flags().BoolVar(&voteTop, "top", false, "vote for the top 30 active producers")
}

// submit connects the signer, runs fn with the session and prints its result.
// The session is removed again before returning.
func submit(ctx context.Context, a *app, fn func(s actions.Session) (actions.Result, error)) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	defer a.wallet.Disconnect(context.WithoutCancel(ctx))
	res, err := fn(a.wallet.Session())
	if err != nil {
		return err
	}

	out := broadcastResult{
		TransactionID: res.TransactionID,
		BlockNum:      res.BlockNum,
		ExplorerURL:   a.network().TxURL(res.TransactionID),
	}
	return render(out, func(w io.Writer) {
		row(w, "TRANSACTION", out.TransactionID)
		row(w, "BLOCK", out.BlockNum)
		row(w, "EXPLORER", out.ExplorerURL)
	})
}

// findToken picks the token to transfer by symbol from the network's token
// list.
func findToken(list []tokens.Metadata, symbol string) (tokens.Metadata, error) {
	var matches []tokens.Metadata
	for _, t := range list {
		if strings.EqualFold(t.Symbol, symbol) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return tokens.Metadata{}, fmt.Errorf("unknown token %s", symbol)
	case 1:
		return matches[0], nil
	default:
		return tokens.Metadata{}, fmt.Errorf("token %s exists on several contracts, pass --contract", symbol)
	}
}

// tokenIndex resolves a token by its full identity.
type tokenIndex interface {
	FetchMetadata(ctx context.Context, net network.Network) []tokens.Metadata
	Lookup(net network.Name, contract, symbol string) (tokens.Metadata, bool)
}

// resolveToken returns the transfer token. With a contract the token is read
// from the resolver's index, otherwise the symbol must be unique.
func resolveToken(ctx context.Context, idx tokenIndex, net network.Network, symbol, contract string) (tokens.Metadata, error) {
	list := idx.FetchMetadata(ctx, net)
	if contract == "" {
		return findToken(list, symbol)
	}
	if m, ok := idx.Lookup(net.Name, contract, strings.ToUpper(symbol)); ok {
		return m, nil
	}
	for _, t := range list {
		if t.Contract == contract && strings.EqualFold(t.Symbol, symbol) {
			return t, nil
		}
	}
	return tokens.Metadata{}, fmt.Errorf("unknown token %s on %s", symbol, contract)
}

func runTransfer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	to, amount := args[0], args[1]
	if !validate.Recipient(to) {
		return fmt.Errorf("%w: %q", validate.ErrInvalidRecipient, to)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	token, err := resolveToken(ctx, a.tokens, a.network(), transferToken, transferContract)
	if err != nil {
		return err
	}

	return submit(ctx, a, func(s actions.Session) (actions.Result, error) {
		return actions.Transfer(ctx, s, actions.TransferParams{
			To:     to,
			Amount: amount,
			Token:  actions.Token{Contract: token.Contract, Symbol: token.Symbol, Precision: token.Precision},
			Memo:   transferMemo,
		})
	})
}

// liquidXPR refreshes the account's balances and returns its unstaked XPR.
func liquidXPR(ctx context.Context, a *app, account string) (decimal.Decimal, error) {
	if err := a.portfolio.Refresh(ctx, account, a.network()); err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch balances: %w", err)
	}
	if t, ok := a.portfolio.Find(tokens.NativeContract, tokens.NativeSymbol); ok {
		return t.Balance, nil
	}
	return decimal.Zero, nil
}

func runStake(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	account, err := a.account(nil)
	if err != nil {
		return err
	}
	available, err := liquidXPR(ctx, a, account)
	if err != nil {
		return err
	}

	return submit(ctx, a, func(s actions.Session) (actions.Result, error) {
		return actions.Stake(ctx, s, args[0], available)
	})
}

func runUnstake(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	account, err := a.account(nil)
	if err != nil {
		return err
	}
	client, err := a.chains.For(a.network())
	if err != nil {
		return err
	}
	stake, err := client.GetStake(ctx, account)
	if err != nil {
		return err
	}

	return submit(ctx, a, func(s actions.Session) (actions.Result, error) {
		return actions.Unstake(ctx, s, args[0], stake.Staked)
	})
}

func runRefund(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	account, err := a.account(nil)
	if err != nil {
		return err
	}
	client, err := a.chains.For(a.network())
	if err != nil {
		return err
	}
	refund, err := client.GetRefund(ctx, account)
	if err != nil {
		return err
	}
	if refund == nil {
		return errors.New("no pending refund")
	}

	return submit(ctx, a, func(s actions.Session) (actions.Result, error) {
		return actions.ClaimRefund(ctx, s)
	})
}

func runClaim(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}

	return submit(ctx, a, func(s actions.Session) (actions.Result, error) {
		return actions.ClaimRewards(ctx, s)
	})
}

// buildSelection applies the vote command's arguments to the current vote.
func buildSelection(current []string, producers []voting.Producer, args []string, toggle, top bool) (*voting.Selection, error) {
	if top {
		sel := voting.NewSelection(nil)
		sel.SelectTop(voting.Active(producers))
		return sel, nil
	}

	if !toggle {
		sel := voting.NewSelection(nil)
		for _, owner := range args {
			if err := sel.Add(owner); err != nil {
				return nil, err
			}
		}
		return sel, nil
	}

	sel := voting.NewSelection(current)
	for _, owner := range args {
		if err := sel.Toggle(owner); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

func runVote(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if len(args) == 0 && !voteTop {
		return errors.New("give at least one producer or --top")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	account, err := a.account(nil)
	if err != nil {
		return err
	}

	overview := a.voting.Overview(ctx, account, a.network())
	var current []string
	if overview.Voter != nil {
		current = overview.Voter.Producers
	}

	for _, owner := range args {
		if !validate.Recipient(owner) {
			return fmt.Errorf("%w: %q", validate.ErrInvalidRecipient, owner)
		}
	}
	sel, err := buildSelection(current, overview.Producers, args, voteToggle, voteTop)
	if err != nil {
		return err
	}
	if !sel.Changed(current) {
		return errors.New("vote unchanged")
	}

	return submit(ctx, a, func(s actions.Session) (actions.Result, error) {
		return actions.Vote(ctx, s, sel.Owners())
	})
}
