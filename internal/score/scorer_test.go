package score

import (
	"testing"

	"github.com/ppiankov/ticketscan/internal/model"
	"github.com/ppiankov/ticketscan/internal/resolve"
	"github.com/ppiankov/ticketscan/internal/ticket"
)

func findSignal(signals []model.Signal, typ model.SignalType) *model.Signal {
	for i := range signals {
		if signals[i].Type == typ {
			return &signals[i]
		}
	}
	return nil
}

func exampleRules() ticket.Rules {
	return ticket.Rules{
		ticket.NewRule("class", ticket.Range{Low: 0, High: 1}, ticket.Range{Low: 4, High: 19}),
		ticket.NewRule("row", ticket.Range{Low: 0, High: 5}, ticket.Range{Low: 8, High: 19}),
		ticket.NewRule("seat", ticket.Range{Low: 0, High: 13}, ticket.Range{Low: 16, High: 19}),
	}
}

func TestScorer_Calculate_Resolved(t *testing.T) {
	scorer := NewScorer()

	signals := scorer.Calculate(Input{
		Rules:      exampleRules(),
		Nearby:     4,
		Valid:      3,
		Candidates: resolve.Candidates{{1, 2}, {0, 1, 2}, {2}},
		Selected:   1,
		Prefix:     "class",
	})

	if len(signals) == 0 {
		t.Fatal("Expected at least one signal")
	}

	invalid := findSignal(signals, model.SignalInvalidTickets)
	if invalid == nil {
		t.Fatal("Expected invalid_tickets signal")
	}
	if invalid.Severity != model.SeverityInfo {
		t.Errorf("Expected info severity for 1/4 invalid, got %s", invalid.Severity)
	}
	if invalid.Data["invalid"] != 1 {
		t.Errorf("Expected 1 invalid ticket, got %v", invalid.Data["invalid"])
	}

	spread := findSignal(signals, model.SignalCandidateSpread)
	if spread == nil {
		t.Fatal("Expected candidate_spread signal")
	}
	if spread.Data["distinct_sizes"] != true {
		t.Error("Expected distinct candidate sizes")
	}

	greedy := findSignal(signals, model.SignalGreedyForced)
	if greedy == nil || greedy.Severity != model.SeverityInfo {
		t.Errorf("Expected info greedy_forced signal, got %+v", greedy)
	}

	if findSignal(signals, model.SignalEmptySelection) != nil {
		t.Error("Did not expect empty_selection signal")
	}

	if Worst(signals) != model.SeverityInfo {
		t.Errorf("Expected worst severity info, got %s", Worst(signals))
	}
}

func TestScorer_Calculate_Ambiguous(t *testing.T) {
	scorer := NewScorer()
	rules := ticket.Rules{
		ticket.NewRule("a", ticket.Range{Low: 0, High: 10}),
		ticket.NewRule("b", ticket.Range{Low: 0, High: 10}),
	}
	candidates := resolve.Candidates{{0, 1}, {0, 1}}
	_, err := resolve.Resolve(rules, candidates, 2)
	if err == nil {
		t.Fatal("Expected ambiguous resolution")
	}

	signals := scorer.Calculate(Input{
		Rules:      rules,
		Nearby:     1,
		Valid:      1,
		Candidates: candidates,
		ResolveErr: err,
		Prefix:     "departure",
	})

	greedy := findSignal(signals, model.SignalGreedyForced)
	if greedy == nil {
		t.Fatal("Expected greedy_forced signal")
	}
	if greedy.Severity != model.SeverityCritical {
		t.Errorf("Expected critical severity, got %s", greedy.Severity)
	}
	if greedy.Data["field"] != "a" || greedy.Data["kind"] != "ambiguous" {
		t.Errorf("Unexpected data: %v", greedy.Data)
	}

	spread := findSignal(signals, model.SignalCandidateSpread)
	if spread == nil || spread.Severity != model.SeverityWarning {
		t.Errorf("Expected warning candidate_spread, got %+v", spread)
	}

	// No empty_selection when resolution failed
	if findSignal(signals, model.SignalEmptySelection) != nil {
		t.Error("Did not expect empty_selection signal on failure")
	}

	if Worst(signals) != model.SeverityCritical {
		t.Errorf("Expected critical worst severity, got %s", Worst(signals))
	}
}

func TestScorer_Calculate_Mismatch(t *testing.T) {
	_, err := resolve.Resolve(exampleRules()[:2], resolve.Candidates{{0}, {1}}, 3)

	signals := NewScorer().Calculate(Input{Rules: exampleRules()[:2], ResolveErr: err})

	greedy := findSignal(signals, model.SignalGreedyForced)
	if greedy == nil {
		t.Fatal("Expected greedy_forced signal")
	}
	if greedy.Data["rules"] != 2 || greedy.Data["positions"] != 3 {
		t.Errorf("Unexpected data: %v", greedy.Data)
	}
}

func TestScorer_Calculate_NoNearby(t *testing.T) {
	signals := NewScorer().Calculate(Input{Rules: exampleRules()})

	invalid := findSignal(signals, model.SignalInvalidTickets)
	if invalid == nil || invalid.Severity != model.SeverityWarning {
		t.Errorf("Expected warning invalid_tickets signal, got %+v", invalid)
	}
}

func TestScorer_Calculate_AllInvalid(t *testing.T) {
	signals := NewScorer().Calculate(Input{Rules: exampleRules(), Nearby: 5, Valid: 0})

	invalid := findSignal(signals, model.SignalInvalidTickets)
	if invalid == nil || invalid.Severity != model.SeverityCritical {
		t.Errorf("Expected critical invalid_tickets signal, got %+v", invalid)
	}
}

func TestScorer_Calculate_DeadRuleAndInvertedRange(t *testing.T) {
	rules := ticket.Rules{
		ticket.NewRule("ok", ticket.Range{Low: 0, High: 10}),
		ticket.NewRule("broken", ticket.Range{Low: 10, High: 1}),
	}

	signals := NewScorer().Calculate(Input{
		Rules:      rules,
		Nearby:     1,
		Valid:      1,
		Candidates: resolve.Candidates{{0, 1}, {}},
	})

	dead := findSignal(signals, model.SignalDeadRule)
	if dead == nil || dead.Data["field"] != "broken" {
		t.Errorf("Expected dead_rule signal for broken, got %+v", dead)
	}

	unused := findSignal(signals, model.SignalUnusedRange)
	if unused == nil || unused.Data["low"] != 10 {
		t.Errorf("Expected unused_range signal, got %+v", unused)
	}
}

func TestScorer_Calculate_EmptySelection(t *testing.T) {
	signals := NewScorer().Calculate(Input{
		Rules:      exampleRules(),
		Nearby:     3,
		Valid:      3,
		Candidates: resolve.Candidates{{1, 2}, {0, 1, 2}, {2}},
		Prefix:     "departure",
	})

	sel := findSignal(signals, model.SignalEmptySelection)
	if sel == nil {
		t.Fatal("Expected empty_selection signal")
	}
	if sel.Severity != model.SeverityWarning {
		t.Errorf("Expected warning, got %s", sel.Severity)
	}
}
