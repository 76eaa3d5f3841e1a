package chain

import (
	"context"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

const (
	systemContract = "eosio"
	votersTable    = "votersxpr"
	refundsTable   = "refundsxpr"

	// XPR amounts on chain are integers with 4 implied decimals.
	nativeUnitScale = 10000
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StakeInfo is the staking state of one account.
type StakeInfo struct {
	Account     string          `json:"account"`
	Staked      decimal.Decimal `json:"staked"`
	ClaimAmount decimal.Decimal `json:"claimAmount"`
	LastClaim   time.Time       `json:"lastClaim,omitempty"`
	Qualified   bool            `json:"qualified"`
}

// Refund is a pending unstake waiting for its release period.
type Refund struct {
	Owner       string    `json:"owner"`
	Quantity    string    `json:"quantity"`
	RequestTime time.Time `json:"requestTime"`
}

type voterRow struct {
	Acc         string `json:"acc"`
	IsQualified any    `json:"isqualified"`
	ClaimAmount any    `json:"claimamount"`
	LastClaim   any    `json:"lastclaim"`
	Staked      any    `json:"staked"`
}

type refundRow struct {
	Owner       string `json:"owner"`
	Quantity    string `json:"quantity"`
	RequestTime string `json:"request_time"`
}

// GetStake reads the account's row of eosio::votersxpr. An account that
// never staked has a zero StakeInfo.
func (c *Client) GetStake(ctx context.Context, account string) (StakeInfo, error) {
	raw, err := c.GetTableRows(ctx, systemContract, systemContract, votersTable, account, account, 1)
	if err != nil {
		return StakeInfo{}, err
	}
	var rows []voterRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return StakeInfo{}, fmt.Errorf("failed to decode %s rows: %w", votersTable, err)
	}

	info := StakeInfo{Account: account, Staked: decimal.Zero, ClaimAmount: decimal.Zero}
	if len(rows) == 0 || rows[0].Acc != account {
		return info, nil
	}
	row := rows[0]
	info.Staked = ScaleNative(row.Staked)
	info.ClaimAmount = ScaleNative(row.ClaimAmount)
	info.Qualified = truthy(row.IsQualified)
	if secs := toDecimal(row.LastClaim); secs.IsPositive() {
		info.LastClaim = time.Unix(secs.IntPart(), 0).UTC()
	}
	return info, nil
}

// GetRefund reads the account's pending refund, nil when there is none.
func (c *Client) GetRefund(ctx context.Context, account string) (*Refund, error) {
	raw, err := c.GetTableRows(ctx, systemContract, systemContract, refundsTable, account, account, 1)
	if err != nil {
		return nil, err
	}
	var rows []refundRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", refundsTable, err)
	}
	if len(rows) == 0 || rows[0].Owner != account {
		return nil, nil
	}

	refund := &Refund{Owner: rows[0].Owner, Quantity: rows[0].Quantity}
	if ts, err := time.Parse("2006-01-02T15:04:05", rows[0].RequestTime); err == nil {
		refund.RequestTime = ts.UTC()
	}
	return refund, nil
}

// ScaleNative converts an on-chain integer amount (number or numeric string)
// to whole XPR.
func ScaleNative(v any) decimal.Decimal {
	return toDecimal(v).Div(decimal.NewFromInt(nativeUnitScale))
}

func toDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x)
	case string:
		if d, err := decimal.NewFromString(x); err == nil {
			return d
		}
	case jsoniter.Number:
		if d, err := decimal.NewFromString(string(x)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		b, err := strconv.ParseBool(x)
		return err == nil && b
	}
	return false
}
