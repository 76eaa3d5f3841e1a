package actions

import (
	"context"
	"errors"
	"fmt"
	"slices"

	eos "github.com/eoscanada/eos-go"
	"github.com/eoscanada/eos-go/system"
)

// MaxProducers is the largest producer selection the system contract accepts.
const MaxProducers = 30

var ErrTooManyProducers = errors.New("too many producers selected")

// SortProducers returns a sorted copy of producers.
func SortProducers(producers []string) []string {
	sorted := slices.Clone(producers)
	slices.Sort(sorted)
	return sorted
}

// BuildVote returns eosio::voteproducer with the full, sorted selection and an
// empty proxy.
func BuildVote(auth Authorization, producers []string) (*eos.Action, error) {
	if len(producers) > MaxProducers {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyProducers, len(producers), MaxProducers)
	}

	names := make([]eos.AccountName, 0, len(producers))
	for _, p := range SortProducers(producers) {
		names = append(names, eos.AN(p))
	}

	return newAction(SystemContract, "voteproducer", auth, system.VoteProducer{
		Voter:     eos.AN(auth.Actor),
		Proxy:     eos.AN(""),
		Producers: names,
	}), nil
}

// Vote broadcasts eosio::voteproducer.
func Vote(ctx context.Context, s Session, producers []string) (Result, error) {
	if s == nil {
		return Result{}, ErrNoSession
	}
	action, err := BuildVote(s.Auth(), producers)
	if err != nil {
		return Result{}, err
	}
	return Submit(ctx, s, action)
}
