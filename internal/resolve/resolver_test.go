package resolve

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/ticketscan/internal/ticket"
)

func rng(lo, hi int) ticket.Range {
	return ticket.Range{Low: lo, High: hi}
}

func scenarioRules() ticket.Rules {
	return ticket.Rules{
		ticket.NewRule("class", rng(0, 1), rng(4, 19)),
		ticket.NewRule("row", rng(0, 5), rng(8, 19)),
		ticket.NewRule("seat", rng(0, 13), rng(16, 19)),
	}
}

func scenarioTickets() []ticket.Ticket {
	return []ticket.Ticket{
		{3, 9, 18},
		{15, 1, 5},
		{5, 14, 9},
	}
}

func TestCandidatePositions(t *testing.T) {
	rules := scenarioRules()
	tickets := scenarioTickets()

	tests := []struct {
		rule ticket.Rule
		want PositionSet
	}{
		{rules[0], PositionSet{1, 2}},
		{rules[1], PositionSet{0, 1, 2}},
		{rules[2], PositionSet{2}},
	}

	for _, tt := range tests {
		t.Run(tt.rule.Field(), func(t *testing.T) {
			got := CandidatePositions(tt.rule, tickets, 3)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CandidatePositions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCandidatePositions_NoTickets(t *testing.T) {
	got := CandidatePositions(scenarioRules()[0], nil, 4)
	if diff := cmp.Diff(PositionSet{0, 1, 2, 3}, got); diff != "" {
		t.Errorf("CandidatePositions mismatch (-want +got):\n%s", diff)
	}
}

func TestCandidatePositions_NegativeWidth(t *testing.T) {
	got := CandidatePositions(scenarioRules()[0], scenarioTickets(), -1)
	if len(got) != 0 {
		t.Errorf("Expected no positions for negative width, got %v", got)
	}
}

func TestSolve_NegativeWidth(t *testing.T) {
	assignment, _, err := Solve(scenarioRules(), scenarioTickets(), -1)
	if assignment != nil {
		t.Errorf("Expected nil assignment, got %v", assignment)
	}
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("Expected ErrMismatch, got %v", err)
	}
}

func TestBuildCandidates_ByField(t *testing.T) {
	rules := scenarioRules()
	c := BuildCandidates(rules, scenarioTickets(), 3)

	want := map[string][]int{
		"class": {1, 2},
		"row":   {0, 1, 2},
		"seat":  {2},
	}
	if diff := cmp.Diff(want, c.ByField(rules)); diff != "" {
		t.Errorf("ByField mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCandidatesParallel_MatchesSerial(t *testing.T) {
	rules := scenarioRules()
	tickets := scenarioTickets()

	for _, workers := range []int{0, 1, 2, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got, err := BuildCandidatesParallel(context.Background(), rules, tickets, 3, workers)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(BuildCandidates(rules, tickets, 3), got); diff != "" {
				t.Errorf("parallel candidates differ (-serial +parallel):\n%s", diff)
			}
		})
	}
}

func TestBuildCandidatesParallel_WidthError(t *testing.T) {
	tickets := append(scenarioTickets(), ticket.Ticket{1, 2})

	_, err := BuildCandidatesParallel(context.Background(), scenarioRules(), tickets, 3, 2)

	var werr *WidthError
	if !errors.As(err, &werr) {
		t.Fatalf("Expected *WidthError, got %v", err)
	}
	if werr.Ticket != 3 || werr.Width != 2 {
		t.Errorf("Expected ticket 3 with width 2, got ticket %d with width %d", werr.Ticket, werr.Width)
	}
}

func TestBuildCandidatesParallel_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildCandidatesParallel(ctx, scenarioRules(), scenarioTickets(), 3, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestResolve_Scenario(t *testing.T) {
	rules := scenarioRules()

	assignment, _, err := Solve(rules, scenarioTickets(), 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff(map[string]int{"row": 0, "class": 1, "seat": 2}, assignment.ByField()); diff != "" {
		t.Errorf("ByField mismatch (-want +got):\n%s", diff)
	}

	// Processing order follows candidate cardinality: seat, class, row.
	if len(assignment) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(assignment))
	}
	order := []struct {
		field    string
		position int
	}{
		{"seat", 2},
		{"class", 1},
		{"row", 0},
	}
	for i, want := range order {
		m := assignment[i]
		if m.Rule.Field() != want.field || m.Position != want.position {
			t.Errorf("step %d: expected %s@%d, got %s@%d", i, want.field, want.position, m.Rule.Field(), m.Position)
		}
	}

	if pos, ok := assignment.Position("class"); !ok || pos != 1 {
		t.Errorf("Position(class) = %d, %v; want 1, true", pos, ok)
	}
	if _, ok := assignment.Position("missing"); ok {
		t.Error("Expected no position for unknown field")
	}
}

func TestResolve_WidthMismatch(t *testing.T) {
	rules := scenarioRules()[:2]
	candidates := BuildCandidates(rules, scenarioTickets(), 3)

	assignment, err := Resolve(rules, candidates, 3)

	if assignment != nil {
		t.Errorf("Expected nil assignment, got %v", assignment)
	}
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("Expected ErrMismatch, got %v", err)
	}
	if got := err.Error(); got != "cannot resolve: 2 rules for 3 positions" {
		t.Errorf("Unexpected message: %q", got)
	}
}

func TestResolve_CandidateCountMismatch(t *testing.T) {
	rules := scenarioRules()
	candidates := BuildCandidates(rules[:2], scenarioTickets(), 3)

	assignment, err := Resolve(rules, candidates, 3)

	if assignment != nil {
		t.Errorf("Expected nil assignment, got %v", assignment)
	}
	var cerr *CandidatesError
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *CandidatesError, got %v", err)
	}
	if cerr.Rules != 3 || cerr.Candidates != 2 {
		t.Errorf("Expected 3 rules and 2 candidate sets, got %+v", cerr)
	}
	if got := err.Error(); got != "cannot resolve: 2 candidate sets for 3 rules" {
		t.Errorf("Unexpected message: %q", got)
	}
	if !errors.Is(err, ErrMismatch) {
		t.Error("Expected CandidatesError to match ErrMismatch")
	}
	var merr *MismatchError
	if errors.As(err, &merr) {
		t.Error("Candidate count problem should not be reported as a MismatchError")
	}
}

func TestResolve_Ambiguous(t *testing.T) {
	rules := ticket.Rules{
		ticket.NewRule("a", rng(0, 10)),
		ticket.NewRule("b", rng(0, 10)),
	}
	candidates := BuildCandidates(rules, []ticket.Ticket{{1, 2}}, 2)

	assignment, err := Resolve(rules, candidates, 2)

	if assignment != nil {
		t.Errorf("Expected nil assignment, got %v", assignment)
	}
	if !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("Expected ErrAmbiguous, got %v", err)
	}
	var aerr *AmbiguityError
	if !errors.As(err, &aerr) {
		t.Fatalf("Expected *AmbiguityError, got %T", err)
	}
	if aerr.Field != "a" || aerr.Step != 0 {
		t.Errorf("Expected field a at step 0, got %q at step %d", aerr.Field, aerr.Step)
	}
	if diff := cmp.Diff([]int{0, 1}, aerr.Remaining); diff != "" {
		t.Errorf("Remaining mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_Unsatisfiable(t *testing.T) {
	rules := ticket.Rules{
		ticket.NewRule("a", rng(0, 10)),
		ticket.NewRule("b", rng(0, 10)),
	}
	candidates := Candidates{{0}, {0}}

	_, err := Resolve(rules, candidates, 2)

	if !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("Expected ErrUnsatisfiable, got %v", err)
	}
	if errors.Is(err, ErrAmbiguous) {
		t.Error("Unsatisfiable step should not match ErrAmbiguous")
	}
	var aerr *AmbiguityError
	if !errors.As(err, &aerr) {
		t.Fatalf("Expected *AmbiguityError, got %T", err)
	}
	if aerr.Field != "b" || aerr.Step != 1 {
		t.Errorf("Expected field b at step 1, got %q at step %d", aerr.Field, aerr.Step)
	}
}

func TestResolve_TiesKeepRuleOrder(t *testing.T) {
	rules := ticket.Rules{
		ticket.NewRule("first", rng(0, 0)),
		ticket.NewRule("second", rng(0, 0)),
	}
	// Both have one candidate; rule order decides who is processed first,
	// so the second rule is the one reported.
	_, err := Resolve(rules, Candidates{{1}, {1}}, 2)

	var aerr *AmbiguityError
	if !errors.As(err, &aerr) {
		t.Fatalf("Expected *AmbiguityError, got %v", err)
	}
	if aerr.Field != "second" {
		t.Errorf("Expected second to fail, got %q", aerr.Field)
	}
}

func TestResolve_Bijection(t *testing.T) {
	const width = 20
	r := rand.New(rand.NewSource(16))

	for round := 0; round < 25; round++ {
		perm := r.Perm(width)

		// Rule k accepts perm[0..k], so greedy elimination is always forced.
		rules := make(ticket.Rules, width)
		candidates := make(Candidates, width)
		for k := 0; k < width; k++ {
			rules[k] = ticket.NewRule(fmt.Sprintf("field %d", k))
			candidates[k] = append(PositionSet{}, perm[:k+1]...)
		}

		shuffle := r.Perm(width)
		shuffledRules := make(ticket.Rules, width)
		shuffledCandidates := make(Candidates, width)
		for i, j := range shuffle {
			shuffledRules[i] = rules[j]
			shuffledCandidates[i] = candidates[j]
		}

		assignment, err := Resolve(shuffledRules, shuffledCandidates, width)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", round, err)
		}
		if len(assignment) != width {
			t.Fatalf("round %d: expected %d matches, got %d", round, width, len(assignment))
		}

		seen := make(map[int]bool)
		for _, m := range assignment {
			if seen[m.Position] {
				t.Fatalf("round %d: position %d assigned twice", round, m.Position)
			}
			seen[m.Position] = true
		}
		for k := 0; k < width; k++ {
			pos, ok := assignment.Position(fmt.Sprintf("field %d", k))
			if !ok || pos != perm[k] {
				t.Errorf("round %d: field %d at %d (%v), want %d", round, k, pos, ok, perm[k])
			}
		}
	}
}

func TestAssignment_Project(t *testing.T) {
	rules := ticket.Rules{
		ticket.NewRule("departure location", rng(0, 100)),
		ticket.NewRule("arrival station", rng(0, 100)),
		ticket.NewRule("departure time", rng(0, 100)),
	}
	assignment := Assignment{
		{Rule: rules[2], Position: 0},
		{Rule: rules[0], Position: 2},
		{Rule: rules[1], Position: 1},
	}

	projections, product, err := assignment.Project(ticket.Ticket{11, 12, 13}, "departure")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []Projection{
		{Field: "departure time", Position: 0, Value: 11},
		{Field: "departure location", Position: 2, Value: 13},
	}
	if diff := cmp.Diff(want, projections); diff != "" {
		t.Errorf("Project mismatch (-want +got):\n%s", diff)
	}
	if product != 143 {
		t.Errorf("Expected product 143, got %d", product)
	}
}

func TestAssignment_Project_EmptySelection(t *testing.T) {
	assignment, _, err := Solve(scenarioRules(), scenarioTickets(), 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	projections, product, err := assignment.Project(ticket.Ticket{11, 12, 13}, "departure")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(projections) != 0 {
		t.Errorf("Expected no projections, got %v", projections)
	}
	if product != 1 {
		t.Errorf("Expected empty product 1, got %d", product)
	}
}

func TestAssignment_Project_ShortTarget(t *testing.T) {
	assignment, _, err := Solve(scenarioRules(), scenarioTickets(), 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, _, err := assignment.Project(ticket.Ticket{11}, ""); err == nil {
		t.Error("Expected error for target ticket shorter than the assignment")
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	err := error(&MismatchError{Rules: 1, Positions: 2})
	if !errors.Is(err, ErrMismatch) {
		t.Error("MismatchError should match ErrMismatch")
	}
	if errors.Is(err, ErrAmbiguous) {
		t.Error("MismatchError should not match ErrAmbiguous")
	}
}
