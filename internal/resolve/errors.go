package resolve

import (
	"errors"
	"fmt"
)

var (
	// ErrMismatch is matched by a MismatchError
	ErrMismatch = errors.New("rule count does not match ticket width")

	// ErrAmbiguous is matched by an AmbiguityError of kind Ambiguous
	ErrAmbiguous = errors.New("ambiguous position assignment")

	// ErrUnsatisfiable is matched by an AmbiguityError of kind Unsatisfiable
	ErrUnsatisfiable = errors.New("no position left for rule")
)

// MismatchError reports that rules and positions cannot form a bijection
type MismatchError struct {
	Rules     int
	Positions int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("cannot resolve: %d rules for %d positions", e.Rules, e.Positions)
}

// Is makes MismatchError match ErrMismatch
func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}

// CandidatesError reports candidate sets that are not one per rule
type CandidatesError struct {
	Rules      int
	Candidates int
}

func (e *CandidatesError) Error() string {
	return fmt.Sprintf("cannot resolve: %d candidate sets for %d rules", e.Candidates, e.Rules)
}

// Is makes CandidatesError match ErrMismatch
func (e *CandidatesError) Is(target error) bool {
	return target == ErrMismatch
}

// AmbiguityKind classifies a failed greedy step
type AmbiguityKind string

const (
	Ambiguous     AmbiguityKind = "ambiguous"     // more than one unclaimed candidate
	Unsatisfiable AmbiguityKind = "unsatisfiable" // no unclaimed candidate
)

// AmbiguityError reports a rule whose unclaimed candidates were not exactly
// one when its turn came in the greedy order.
type AmbiguityError struct {
	Kind      AmbiguityKind
	Field     string
	Step      int   // 0-based position in processing order
	Remaining []int // unclaimed candidates at that step
}

func (e *AmbiguityError) Error() string {
	switch e.Kind {
	case Unsatisfiable:
		return fmt.Sprintf("cannot resolve %q at step %d: every candidate position is already claimed", e.Field, e.Step)
	default:
		return fmt.Sprintf("cannot resolve %q at step %d: %d unclaimed candidates %v", e.Field, e.Step, len(e.Remaining), e.Remaining)
	}
}

// Is makes AmbiguityError match ErrAmbiguous or ErrUnsatisfiable by kind
func (e *AmbiguityError) Is(target error) bool {
	switch e.Kind {
	case Unsatisfiable:
		return target == ErrUnsatisfiable
	default:
		return target == ErrAmbiguous
	}
}

// WidthError reports a ticket whose width differs from the batch width
type WidthError struct {
	Ticket int
	Width  int
	Want   int
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("ticket %d has %d fields, expected %d", e.Ticket, e.Width, e.Want)
}
