package actions

import (
	"context"
	"fmt"

	eos "github.com/eoscanada/eos-go"
	"github.com/eoscanada/eos-go/token"

	"github.com/matrixise/xpr-wallet/internal/validate"
)

// Token identifies what is being transferred.
type Token struct {
	Contract  string
	Symbol    string
	Precision int
}

// TransferParams is the user input of a transfer.
type TransferParams struct {
	To     string
	Amount string
	Token  Token
	Memo   string
}

// BuildTransfer validates p and returns the token contract's transfer action.
func BuildTransfer(auth Authorization, p TransferParams) (*eos.Action, error) {
	if !validate.Recipient(p.To) {
		return nil, fmt.Errorf("%w: %q", validate.ErrInvalidRecipient, p.To)
	}
	if !validate.Amount(p.Amount, p.Token.Precision) {
		return nil, fmt.Errorf("%w: %q with precision %d", validate.ErrInvalidAmount, p.Amount, p.Token.Precision)
	}

	quantity, err := validate.Quantity(p.Amount, p.Token.Precision, p.Token.Symbol)
	if err != nil {
		return nil, err
	}
	asset, err := eos.NewAssetFromString(quantity)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", validate.ErrInvalidAmount, quantity, err)
	}

	return newAction(p.Token.Contract, "transfer", auth, token.Transfer{
		From:     eos.AN(auth.Actor),
		To:       eos.AN(p.To),
		Quantity: asset,
		Memo:     p.Memo,
	}), nil
}

// Transfer validates, builds and broadcasts a token transfer.
func Transfer(ctx context.Context, s Session, p TransferParams) (Result, error) {
	if s == nil {
		return Result{}, ErrNoSession
	}
	action, err := BuildTransfer(s.Auth(), p)
	if err != nil {
		return Result{}, err
	}
	return Submit(ctx, s, action)
}
