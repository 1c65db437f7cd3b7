package resolve

import (
	"context"
	"fmt"

	"github.com/ppiankov/ticketscan/internal/ticket"
	"golang.org/x/sync/errgroup"
)

// PositionSet is a sorted set of ticket positions
type PositionSet []int

// Contains reports whether p is in the set
func (s PositionSet) Contains(p int) bool {
	for _, q := range s {
		if q == p {
			return true
		}
	}
	return false
}

// Candidates holds, for each rule (index-aligned with the rule set), the
// positions at which every ticket satisfies that rule.
type Candidates []PositionSet

// ByField returns the candidate sets keyed by field name
func (c Candidates) ByField(rules ticket.Rules) map[string][]int {
	out := make(map[string][]int, len(rules))
	for i, r := range rules {
		if i < len(c) {
			out[r.Field()] = append([]int{}, c[i]...)
		}
	}
	return out
}

// CandidatePositions returns the positions 0..width at which every ticket's
// value satisfies rule. A position is dropped the moment one ticket fails it.
// Values beyond width on a wider ticket are ignored. A negative width has
// no positions.
func CandidatePositions(rule ticket.Rule, tickets []ticket.Ticket, width int) PositionSet {
	if width < 0 {
		return nil
	}
	alive := make([]bool, width)
	for i := range alive {
		alive[i] = true
	}
	remaining := width

	for _, t := range tickets {
		for p, v := range t {
			if p >= width || !alive[p] {
				continue
			}
			if !rule.Valid(v) {
				alive[p] = false
				remaining--
			}
		}
		if remaining == 0 {
			break
		}
	}

	set := make(PositionSet, 0, remaining)
	for p, ok := range alive {
		if ok {
			set = append(set, p)
		}
	}
	return set
}

// BuildCandidates computes candidate positions for every rule.
// Tickets are expected to be pre-filtered to the valid subset.
func BuildCandidates(rules ticket.Rules, tickets []ticket.Ticket, width int) Candidates {
	candidates := make(Candidates, len(rules))
	for i, r := range rules {
		candidates[i] = CandidatePositions(r, tickets, width)
	}
	return candidates
}

// BuildCandidatesParallel computes the same result as BuildCandidates with
// one task per rule, at most workers at a time. Tickets whose width differs
// from width are rejected with a WidthError.
func BuildCandidatesParallel(ctx context.Context, rules ticket.Rules, tickets []ticket.Ticket, width, workers int) (Candidates, error) {
	for i, t := range tickets {
		if len(t) != width {
			return nil, &WidthError{Ticket: i, Width: len(t), Want: width}
		}
	}

	if workers <= 0 {
		workers = 1
	}

	candidates := make(Candidates, len(rules))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, r := range rules {
		i, r := i, r
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			candidates[i] = CandidatePositions(r, tickets, width)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("build candidates: %w", err)
	}
	return candidates, nil
}
