package voting

import (
	"fmt"
	"slices"

	"github.com/matrixise/xpr-wallet/internal/actions"
)

// Selection is a set of producers to vote for, capped at
// actions.MaxProducers. It is not safe for concurrent use.
type Selection struct {
	owners map[string]struct{}
}

// NewSelection starts from the given producers, typically the current vote.
// Entries beyond the cap are dropped.
func NewSelection(initial []string) *Selection {
	s := &Selection{owners: make(map[string]struct{}, actions.MaxProducers)}
	for _, owner := range initial {
		_ = s.Add(owner)
	}
	return s
}

// Add selects owner. Adding beyond the cap fails with
// actions.ErrTooManyProducers.
func (s *Selection) Add(owner string) error {
	if s.Has(owner) {
		return nil
	}
	if len(s.owners) >= actions.MaxProducers {
		return fmt.Errorf("%w: maximum %d producers can be selected", actions.ErrTooManyProducers, actions.MaxProducers)
	}
	s.owners[owner] = struct{}{}
	return nil
}

func (s *Selection) Remove(owner string) {
	delete(s.owners, owner)
}

// Toggle removes owner when selected and adds it otherwise.
func (s *Selection) Toggle(owner string) error {
	if s.Has(owner) {
		s.Remove(owner)
		return nil
	}
	return s.Add(owner)
}

func (s *Selection) Has(owner string) bool {
	_, ok := s.owners[owner]
	return ok
}

func (s *Selection) Len() int {
	return len(s.owners)
}

// SelectTop replaces the selection with the first producers of the list.
func (s *Selection) SelectTop(producers []Producer) {
	clear(s.owners)
	for _, p := range producers[:min(len(producers), actions.MaxProducers)] {
		s.owners[p.Owner] = struct{}{}
	}
}

// Owners returns the selection sorted, as the vote action expects it.
func (s *Selection) Owners() []string {
	out := make([]string, 0, len(s.owners))
	for owner := range s.owners {
		out = append(out, owner)
	}
	slices.Sort(out)
	return out
}

// Changed reports whether the selection differs from current.
func (s *Selection) Changed(current []string) bool {
	return !slices.Equal(s.Owners(), actions.SortProducers(current))
}
