package validate

import (
	"context"
	"sync"

	"github.com/ppiankov/ticketscan/internal/ticket"
)

// TicketResult is the validation outcome for one ticket of a batch
type TicketResult struct {
	Index         int    `json:"index"`
	Valid         bool   `json:"valid"`
	InvalidValues []int  `json:"invalid_values,omitempty"`
	ErrorRate     int    `json:"error_rate"`
	Error         string `json:"error,omitempty"`
}

// Summary reduces a batch of ticket results
type Summary struct {
	ErrorRate    int `json:"error_rate"`
	ValidCount   int `json:"valid_count"`
	InvalidCount int `json:"invalid_count"`
}

// Validator validates tickets concurrently
type Validator struct {
	maxWorkers int
}

// NewValidator creates a new validator
func NewValidator(maxWorkers int) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = 20
	}
	return &Validator{maxWorkers: maxWorkers}
}

// Validate checks every ticket against the rule set concurrently.
// Results are index-aligned with the input, so the outcome does not depend
// on scheduling.
func (v *Validator) Validate(ctx context.Context, tickets []ticket.Ticket, rules ticket.Rules) ([]TicketResult, error) {
	if len(tickets) == 0 {
		return []TicketResult{}, nil
	}

	results := make([]TicketResult, len(tickets))
	var wg sync.WaitGroup

	// Create semaphore to limit concurrent checks
	semaphore := make(chan struct{}, v.maxWorkers)

	for i, t := range tickets {
		wg.Add(1)
		go func(idx int, tk ticket.Ticket) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = TicketResult{Index: idx, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = validateSingle(idx, tk, rules)
		}(i, t)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func validateSingle(idx int, t ticket.Ticket, rules ticket.Rules) TicketResult {
	result := TicketResult{Index: idx, Valid: true}
	for _, check := range CheckFields(t, rules) {
		if check.Valid {
			continue
		}
		result.Valid = false
		result.InvalidValues = append(result.InvalidValues, check.Value)
		result.ErrorRate += check.Value
	}
	return result
}

// Summarize reduces ticket results into a batch summary
func Summarize(results []TicketResult) Summary {
	var s Summary
	for _, r := range results {
		s.ErrorRate += r.ErrorRate
		if r.Valid {
			s.ValidCount++
		} else {
			s.InvalidCount++
		}
	}
	return s
}

// ValidTickets selects the tickets whose results are valid, preserving order
func ValidTickets(tickets []ticket.Ticket, results []TicketResult) []ticket.Ticket {
	valid := make([]ticket.Ticket, 0, len(tickets))
	for _, r := range results {
		if r.Valid && r.Index < len(tickets) {
			valid = append(valid, tickets[r.Index])
		}
	}
	return valid
}
