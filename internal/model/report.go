package model

import "time"

// Report represents the complete result of solving one set of ticket notes
type Report struct {
	ID          string    `json:"id" yaml:"id"`         // Run identifier
	Source      string    `json:"source" yaml:"source"` // Path, "-" or URL the notes came from
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	Rules  []RuleSummary `json:"rules" yaml:"rules"`
	Width  int           `json:"width" yaml:"width"`
	Yours  []int         `json:"your_ticket" yaml:"your_ticket"`
	Nearby int           `json:"nearby" yaml:"nearby"` // Nearby ticket count

	// ErrorRate is the sum of nearby values matching no rule
	ErrorRate int `json:"error_rate" yaml:"error_rate"`
	// ValidTickets counts the nearby tickets kept for resolution
	ValidTickets int `json:"valid_tickets" yaml:"valid_tickets"`
	// InvalidTickets lists indices of dropped nearby tickets
	InvalidTickets []int `json:"invalid_tickets,omitempty" yaml:"invalid_tickets,omitempty"`

	Candidates map[string][]int `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Assignment []FieldPosition  `json:"assignment,omitempty" yaml:"assignment,omitempty"` // Ordered by position
	Resolved   bool             `json:"resolved" yaml:"resolved"`
	ResolveErr string           `json:"resolve_error,omitempty" yaml:"resolve_error,omitempty"`

	Prefix     string          `json:"prefix" yaml:"prefix"`
	Projection []FieldPosition `json:"projection,omitempty" yaml:"projection,omitempty"`
	Product    int             `json:"product" yaml:"product"`

	Signals []Signal    `json:"signals" yaml:"signals"`
	LLM     *LLMSummary `json:"llm,omitempty" yaml:"llm,omitempty"` // Optional narrative, never affects results
}

// RuleSummary is a rule as rendered in a report
type RuleSummary struct {
	Field  string `json:"field" yaml:"field"`
	Ranges string `json:"ranges" yaml:"ranges"` // e.g. "1-3 or 5-7"
}

// FieldPosition ties a field to a ticket position, optionally with the value
// read from the target ticket
type FieldPosition struct {
	Field    string `json:"field" yaml:"field"`
	Position int    `json:"position" yaml:"position"`
	Value    *int   `json:"value,omitempty" yaml:"value,omitempty"`
}

// Signal represents a diagnostic signal with transparent data
type Signal struct {
	Type        SignalType             `json:"type" yaml:"type"`
	Severity    SignalSeverity         `json:"severity" yaml:"severity"`
	Description string                 `json:"description" yaml:"description"`
	Data        map[string]interface{} `json:"data,omitempty" yaml:"data,omitempty"`
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalInvalidTickets  SignalType = "invalid_tickets"  // Share of nearby tickets dropped
	SignalCandidateSpread SignalType = "candidate_spread" // Distribution of candidate set sizes
	SignalGreedyForced    SignalType = "greedy_forced"    // Whether every greedy step was forced
	SignalDeadRule        SignalType = "dead_rule"        // Rule matching no position at all
	SignalUnusedRange     SignalType = "unused_range"     // Inverted range that can never match
	SignalEmptySelection  SignalType = "empty_selection"  // Prefix selected no fields
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// LLMSummary contains an optional LLM-generated narrative of a report
type LLMSummary struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	Provider   string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model      string   `json:"model,omitempty" yaml:"model,omitempty"`
	SummaryMD  string   `json:"summary_md,omitempty" yaml:"summary_md,omitempty"`
	TokensUsed int      `json:"tokens_used,omitempty" yaml:"tokens_used,omitempty"`
	Warnings   []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}
