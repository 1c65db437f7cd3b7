package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/ticketscan/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize narrates a solve report. Numbers in the answer must come
	// from the report when strict mode is on.
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Report is the solve report to narrate
	Report model.Report

	// AllowedNumbers is the set of integers the narrative may mention
	AllowedNumbers []int

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	Summary string

	// CitedNumbers are the integers found in Summary
	CitedNumbers []int

	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama" or "" (disabled)
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	// StrictNumbers rejects narratives quoting numbers absent from the report
	StrictNumbers bool

	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout:       30,
		StrictNumbers: true,
		MaxTokens:     600,
	}
}

// BuildPrompt constructs the default prompt for a report narrative
func BuildPrompt(report model.Report, allowed []int) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are describing the result of a ticket field resolution. The solver already decided every value below; do not recompute or correct anything.

RULES:
1. Only mention numbers from this list: %s
2. If the solve failed, explain the failure using the error text only.
3. Keep to 3-4 sentences.

Report:
- Source: %s
- Rules: %d, positions: %d
- Nearby tickets: %d (%d valid)
- Scanning error rate: %d
`, joinNumbers(allowed), report.Source, len(report.Rules), report.Width, report.Nearby, report.ValidTickets, report.ErrorRate)

	if report.Resolved {
		fmt.Fprintf(&b, "- Fields starting with %q multiply to %d\n", report.Prefix, report.Product)
		b.WriteString("\nAssignment:\n")
		for _, fp := range report.Assignment {
			fmt.Fprintf(&b, "- %s -> position %d\n", fp.Field, fp.Position)
		}
	} else {
		fmt.Fprintf(&b, "- Resolution failed: %s\n", report.ResolveErr)
	}

	b.WriteString("\nKey signals:\n")
	for i, signal := range report.Signals {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", signal.Type, signal.Description)
	}

	return b.String()
}

// AllowedNumbers collects every integer a narrative of report may quote
func AllowedNumbers(report model.Report) []int {
	seen := make(map[int]bool)
	var out []int
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	add(len(report.Rules))
	add(report.Width)
	add(report.Nearby)
	add(report.ValidTickets)
	add(report.Nearby - report.ValidTickets)
	add(report.ErrorRate)
	add(report.Product)
	for _, v := range report.Yours {
		add(v)
	}
	for _, fp := range report.Assignment {
		add(fp.Position)
		// People count from one.
		add(fp.Position + 1)
	}
	for _, fp := range report.Projection {
		if fp.Value != nil {
			add(*fp.Value)
		}
	}
	return out
}

func joinNumbers(nums []int) string {
	if len(nums) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(nums))
	for i, n := range nums {
		if i >= 40 {
			parts = append(parts, fmt.Sprintf("... and %d more", len(nums)-40))
			break
		}
		parts = append(parts, fmt.Sprint(n))
	}
	return strings.Join(parts, ", ")
}
