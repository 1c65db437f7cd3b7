package score

import (
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/ticketscan/internal/model"
	"github.com/ppiankov/ticketscan/internal/resolve"
	"github.com/ppiankov/ticketscan/internal/ticket"
)

// Input carries everything a solve produced that the scorer inspects
type Input struct {
	Rules      ticket.Rules
	Nearby     int
	Valid      int
	Candidates resolve.Candidates
	ResolveErr error
	Selected   int // fields picked by the prefix
	Prefix     string
}

// Scorer generates diagnostic signals for a solve
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate generates transparent diagnostic signals. Signals never change
// the solve result; they explain it.
func (s *Scorer) Calculate(in Input) []model.Signal {
	var signals []model.Signal

	// 1. Ticket validity
	signals = append(signals, s.invalidTickets(in.Nearby, in.Valid))

	// 2. Candidate spread
	if len(in.Candidates) > 0 {
		signals = append(signals, s.candidateSpread(in.Candidates))
	}

	// 3. Greedy precondition
	signals = append(signals, s.greedyForced(in.ResolveErr))

	// 4. Rules with no candidate position
	signals = append(signals, s.deadRules(in.Rules, in.Candidates)...)

	// 5. Inverted ranges
	signals = append(signals, s.unusedRanges(in.Rules)...)

	// 6. Prefix selection
	if in.ResolveErr == nil && in.Selected == 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalEmptySelection,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("No field starts with %q; product defaults to 1", in.Prefix),
			Data: map[string]interface{}{
				"prefix": in.Prefix,
			},
		})
	}

	return signals
}

// invalidTickets reports the share of nearby tickets dropped by the filter
func (s *Scorer) invalidTickets(nearby, valid int) model.Signal {
	if nearby == 0 {
		return model.Signal{
			Type:        model.SignalInvalidTickets,
			Severity:    model.SeverityWarning,
			Description: "No nearby tickets; every position is a candidate for every rule",
			Data: map[string]interface{}{
				"nearby": 0,
				"valid":  0,
			},
		}
	}

	invalid := nearby - valid
	ratio := float64(invalid) / float64(nearby)

	severity := model.SeverityInfo
	if valid == 0 {
		severity = model.SeverityCritical
	} else if ratio > 0.5 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalInvalidTickets,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d nearby tickets dropped (%.1f%%)", invalid, nearby, ratio*100),
		Data: map[string]interface{}{
			"nearby":  nearby,
			"valid":   valid,
			"invalid": invalid,
			"ratio":   math.Round(ratio*1000) / 1000,
			"formula": "invalid / nearby",
		},
	}
}

// candidateSpread summarizes candidate set sizes. A fully forced instance
// has pairwise distinct sizes 1..n.
func (s *Scorer) candidateSpread(candidates resolve.Candidates) model.Signal {
	minSize, maxSize, total := math.MaxInt, 0, 0
	sizes := make(map[int]int)
	for _, c := range candidates {
		n := len(c)
		sizes[n]++
		total += n
		if n < minSize {
			minSize = n
		}
		if n > maxSize {
			maxSize = n
		}
	}

	distinct := len(sizes) == len(candidates)
	mean := float64(total) / float64(len(candidates))

	severity := model.SeverityInfo
	description := fmt.Sprintf("Candidate set sizes range %d..%d (mean %.2f)", minSize, maxSize, mean)
	if !distinct {
		severity = model.SeverityWarning
		description += "; some rules share a size"
	}

	return model.Signal{
		Type:        model.SignalCandidateSpread,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"min":            minSize,
			"max":            maxSize,
			"mean":           math.Round(mean*100) / 100,
			"distinct_sizes": distinct,
		},
	}
}

// greedyForced reports whether every greedy step had exactly one choice
func (s *Scorer) greedyForced(err error) model.Signal {
	if err == nil {
		return model.Signal{
			Type:        model.SignalGreedyForced,
			Severity:    model.SeverityInfo,
			Description: "Every rule had exactly one unclaimed candidate at its turn",
		}
	}

	data := map[string]interface{}{"error": err.Error()}

	var aerr *resolve.AmbiguityError
	var merr *resolve.MismatchError
	var cerr *resolve.CandidatesError
	switch {
	case errors.As(err, &aerr):
		data["field"] = aerr.Field
		data["step"] = aerr.Step
		data["kind"] = string(aerr.Kind)
		if len(aerr.Remaining) > 0 {
			data["remaining"] = aerr.Remaining
		}
	case errors.As(err, &merr):
		data["rules"] = merr.Rules
		data["positions"] = merr.Positions
	case errors.As(err, &cerr):
		data["rules"] = cerr.Rules
		data["candidates"] = cerr.Candidates
	}

	return model.Signal{
		Type:        model.SignalGreedyForced,
		Severity:    model.SeverityCritical,
		Description: "Resolution failed: " + err.Error(),
		Data:        data,
	}
}

// deadRules flags rules that no position satisfies
func (s *Scorer) deadRules(rules ticket.Rules, candidates resolve.Candidates) []model.Signal {
	var signals []model.Signal
	for i, c := range candidates {
		if len(c) > 0 || i >= len(rules) {
			continue
		}
		signals = append(signals, model.Signal{
			Type:        model.SignalDeadRule,
			Severity:    model.SeverityCritical,
			Description: fmt.Sprintf("Rule %q matches no position on every valid ticket", rules[i].Field()),
			Data: map[string]interface{}{
				"field": rules[i].Field(),
			},
		})
	}
	return signals
}

// unusedRanges flags inverted ranges, which are accepted but match nothing
func (s *Scorer) unusedRanges(rules ticket.Rules) []model.Signal {
	var signals []model.Signal
	for _, r := range rules {
		for _, rg := range r.Ranges() {
			if rg.Low <= rg.High {
				continue
			}
			signals = append(signals, model.Signal{
				Type:        model.SignalUnusedRange,
				Severity:    model.SeverityWarning,
				Description: fmt.Sprintf("Rule %q has inverted range %s that matches nothing", r.Field(), rg),
				Data: map[string]interface{}{
					"field": r.Field(),
					"low":   rg.Low,
					"high":  rg.High,
				},
			})
		}
	}
	return signals
}

// Worst returns the most severe severity among signals
func Worst(signals []model.Signal) model.SignalSeverity {
	worst := model.SeverityInfo
	for _, sig := range signals {
		switch sig.Severity {
		case model.SeverityCritical:
			return model.SeverityCritical
		case model.SeverityWarning:
			worst = model.SeverityWarning
		}
	}
	return worst
}
