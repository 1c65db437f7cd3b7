// Package resolve determines which rule describes which ticket position.
//
// Candidate sets are computed per rule and then resolved greedily: rules are
// taken in ascending order of candidate count (ties keep rule order) and each
// claims its single unclaimed candidate. The greedy pass is only correct when
// every rule has exactly one unclaimed candidate at its turn; any other
// situation is reported as an AmbiguityError instead of guessed.
package resolve

import (
	"sort"

	"github.com/ppiankov/ticketscan/internal/ticket"
)

// Match binds one rule to one ticket position
type Match struct {
	Rule     ticket.Rule
	Position int
}

// Assignment is a resolved rule-to-position bijection, in processing order
type Assignment []Match

// Position returns the position assigned to field
func (a Assignment) Position(field string) (int, bool) {
	for _, m := range a {
		if m.Rule.Field() == field {
			return m.Position, true
		}
	}
	return 0, false
}

// ByField returns the assignment as a field -> position map
func (a Assignment) ByField() map[string]int {
	out := make(map[string]int, len(a))
	for _, m := range a {
		out[m.Rule.Field()] = m.Position
	}
	return out
}

// Ordered returns a copy of the assignment sorted by position
func (a Assignment) Ordered() Assignment {
	out := make(Assignment, len(a))
	copy(out, a)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Resolve turns per-rule candidate sets into a rule-to-position bijection.
// Count problems are reported as a MismatchError (rules vs width) or a
// CandidatesError (candidate sets vs rules). An AmbiguityError means the
// greedy precondition does not hold. No partial assignment is returned on
// failure.
func Resolve(rules ticket.Rules, candidates Candidates, width int) (Assignment, error) {
	if len(rules) != width {
		return nil, &MismatchError{Rules: len(rules), Positions: width}
	}
	if len(candidates) != len(rules) {
		return nil, &CandidatesError{Rules: len(rules), Candidates: len(candidates)}
	}

	order := make([]int, len(rules))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(candidates[order[i]]) < len(candidates[order[j]])
	})

	claimed := make([]bool, width)
	assignment := make(Assignment, 0, len(rules))

	for step, idx := range order {
		var unclaimed []int
		for _, p := range candidates[idx] {
			if p >= 0 && p < width && !claimed[p] {
				unclaimed = append(unclaimed, p)
			}
		}

		switch len(unclaimed) {
		case 1:
		case 0:
			return nil, &AmbiguityError{Kind: Unsatisfiable, Field: rules[idx].Field(), Step: step}
		default:
			return nil, &AmbiguityError{Kind: Ambiguous, Field: rules[idx].Field(), Step: step, Remaining: unclaimed}
		}

		claimed[unclaimed[0]] = true
		assignment = append(assignment, Match{Rule: rules[idx], Position: unclaimed[0]})
	}

	return assignment, nil
}

// Solve builds candidates from already-filtered tickets and resolves them
func Solve(rules ticket.Rules, tickets []ticket.Ticket, width int) (Assignment, Candidates, error) {
	candidates := BuildCandidates(rules, tickets, width)
	assignment, err := Resolve(rules, candidates, width)
	if err != nil {
		return nil, candidates, err
	}
	return assignment, candidates, nil
}
