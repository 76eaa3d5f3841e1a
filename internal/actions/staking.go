package actions

import (
	"context"
	"fmt"

	eos "github.com/eoscanada/eos-go"
	"github.com/shopspring/decimal"

	"github.com/matrixise/xpr-wallet/internal/validate"
)

const (
	SystemContract  = "eosio"
	NativeSymbol    = "XPR"
	NativePrecision = 4
)

// StakeXPR is the data of eosio::stakexpr.
type StakeXPR struct {
	From     eos.AccountName `json:"from"`
	Receiver eos.AccountName `json:"receiver"`
	Quantity eos.Asset       `json:"stake_xpr_quantity"`
}

// UnstakeXPR is the data of eosio::unstakexpr.
type UnstakeXPR struct {
	From     eos.AccountName `json:"from"`
	Receiver eos.AccountName `json:"receiver"`
	Quantity eos.Asset       `json:"unstake_xpr_quantity"`
}

// Owner is the data of eosio::refund and eosio::voterclaim.
type Owner struct {
	Owner eos.AccountName `json:"owner"`
}

// XPRQuantity formats amount as a native quantity, always with 4 decimals.
func XPRQuantity(amount string) (eos.Asset, error) {
	d, err := validate.ParseAmount(amount)
	if err != nil {
		return eos.Asset{}, err
	}
	if !d.IsPositive() {
		return eos.Asset{}, fmt.Errorf("%w: must be positive", validate.ErrInvalidAmount)
	}
	asset, err := eos.NewAssetFromString(d.StringFixed(NativePrecision) + " " + NativeSymbol)
	if err != nil {
		return eos.Asset{}, fmt.Errorf("%w: %w", validate.ErrInvalidAmount, err)
	}
	return asset, nil
}

// ValidateStakeAmount reports whether amount is positive and does not exceed
// the available balance.
func ValidateStakeAmount(amount string, available decimal.Decimal) bool {
	d, err := validate.ParseAmount(amount)
	if err != nil || !d.IsPositive() {
		return false
	}
	return d.LessThanOrEqual(available)
}

func stakeQuantity(amount string, available decimal.Decimal) (eos.Asset, error) {
	if !ValidateStakeAmount(amount, available) {
		return eos.Asset{}, fmt.Errorf("%w: %q exceeds available %s or is not positive",
			validate.ErrInvalidAmount, amount, available.StringFixed(NativePrecision))
	}
	return XPRQuantity(amount)
}

// BuildStake returns eosio::stakexpr staking to the actor itself.
func BuildStake(auth Authorization, amount string, available decimal.Decimal) (*eos.Action, error) {
	q, err := stakeQuantity(amount, available)
	if err != nil {
		return nil, err
	}
	return newAction(SystemContract, "stakexpr", auth, StakeXPR{
		From:     eos.AN(auth.Actor),
		Receiver: eos.AN(auth.Actor),
		Quantity: q,
	}), nil
}

// BuildUnstake returns eosio::unstakexpr for the actor itself.
func BuildUnstake(auth Authorization, amount string, staked decimal.Decimal) (*eos.Action, error) {
	q, err := stakeQuantity(amount, staked)
	if err != nil {
		return nil, err
	}
	return newAction(SystemContract, "unstakexpr", auth, UnstakeXPR{
		From:     eos.AN(auth.Actor),
		Receiver: eos.AN(auth.Actor),
		Quantity: q,
	}), nil
}

// BuildRefund returns eosio::refund, claiming unstaked tokens.
func BuildRefund(auth Authorization) *eos.Action {
	return newAction(SystemContract, "refund", auth, Owner{Owner: eos.AN(auth.Actor)})
}

// BuildClaimRewards returns eosio::voterclaim.
func BuildClaimRewards(auth Authorization) *eos.Action {
	return newAction(SystemContract, "voterclaim", auth, Owner{Owner: eos.AN(auth.Actor)})
}

// Stake broadcasts eosio::stakexpr.
func Stake(ctx context.Context, s Session, amount string, available decimal.Decimal) (Result, error) {
	if s == nil {
		return Result{}, ErrNoSession
	}
	action, err := BuildStake(s.Auth(), amount, available)
	if err != nil {
		return Result{}, err
	}
	return Submit(ctx, s, action)
}

// Unstake broadcasts eosio::unstakexpr.
func Unstake(ctx context.Context, s Session, amount string, staked decimal.Decimal) (Result, error) {
	if s == nil {
		return Result{}, ErrNoSession
	}
	action, err := BuildUnstake(s.Auth(), amount, staked)
	if err != nil {
		return Result{}, err
	}
	return Submit(ctx, s, action)
}

// ClaimRefund broadcasts eosio::refund.
func ClaimRefund(ctx context.Context, s Session) (Result, error) {
	if s == nil {
		return Result{}, ErrNoSession
	}
	return Submit(ctx, s, BuildRefund(s.Auth()))
}

// ClaimRewards broadcasts eosio::voterclaim.
func ClaimRewards(ctx context.Context, s Session) (Result, error) {
	if s == nil {
		return Result{}, ErrNoSession
	}
	return Submit(ctx, s, BuildClaimRewards(s.Auth()))
}
