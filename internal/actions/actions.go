// Package actions turns validated user input into single-action XPR Network
// transactions and submits them through a signing session.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	eos "github.com/eoscanada/eos-go"

	"github.com/matrixise/xpr-wallet/internal/metrics"
)

var (
	// ErrBroadcast means the signer failed or returned no transaction id.
	ErrBroadcast = errors.New("broadcast failed")
	// ErrNoSession means no signing session is active.
	ErrNoSession = errors.New("no active session")
)

// Authorization is the actor and permission a session signs with.
type Authorization struct {
	Actor      string `json:"actor"`
	Permission string `json:"permission"`
}

// Receipt is what a signer reports for a processed transaction.
type Receipt struct {
	TransactionID string
	BlockNum      uint32
}

// Session is an established signing session.
type Session interface {
	Auth() Authorization
	Transact(ctx context.Context, actions []*eos.Action) (*Receipt, error)
}

// Result is returned for every successful broadcast.
type Result struct {
	TransactionID string `json:"transactionId"`
	BlockNum      uint32 `json:"blockNum"`
}

func permissionLevel(auth Authorization) []eos.PermissionLevel {
	return []eos.PermissionLevel{{
		Actor:      eos.AN(auth.Actor),
		Permission: eos.PN(auth.Permission),
	}}
}

func newAction(contract, name string, auth Authorization, data any) *eos.Action {
	return &eos.Action{
		Account:       eos.AN(contract),
		Name:          eos.ActN(name),
		Authorization: permissionLevel(auth),
		ActionData:    eos.NewActionData(data),
	}
}

// Submit broadcasts a single action through s. Exactly one Transact call is
// made; failures are not retried.
func Submit(ctx context.Context, s Session, action *eos.Action) (Result, error) {
	if s == nil {
		return Result{}, ErrNoSession
	}
	name := string(action.Name)

	receipt, err := s.Transact(ctx, []*eos.Action{action})
	if err != nil {
		metrics.Broadcasts.WithLabelValues(name, metrics.OutcomeError).Inc()
		return Result{}, fmt.Errorf("%w: %s: %w", ErrBroadcast, name, err)
	}
	if receipt == nil || receipt.TransactionID == "" {
		metrics.Broadcasts.WithLabelValues(name, metrics.OutcomeError).Inc()
		return Result{}, fmt.Errorf("%w: %s returned no transaction id", ErrBroadcast, name)
	}

	metrics.Broadcasts.WithLabelValues(name, metrics.OutcomeOK).Inc()
	slog.Info("Transaction broadcast",
		"action", name,
		"actor", s.Auth().Actor,
		"transaction_id", receipt.TransactionID,
		"block_num", receipt.BlockNum,
	)
	return Result{TransactionID: receipt.TransactionID, BlockNum: receipt.BlockNum}, nil
}
