package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/ticketscan/internal/model"
)

// Summarizer wraps a Provider and turns its output into a model.LLMSummary.
// A failing provider never fails the solve; it yields warnings instead.
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer; a disabled config gives a summarizer
// whose IsEnabled reports false
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider name, or ""
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary narrates report. Returns (nil, nil) when disabled.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) (*model.LLMSummary, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	if !s.provider.IsAvailable(ctx) {
		return &model.LLMSummary{
			Enabled:  false,
			Provider: s.provider.Name(),
			Warnings: []string{fmt.Sprintf("LLM provider %s is not available", s.provider.Name())},
		}, nil
	}

	allowed := AllowedNumbers(report)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:         report,
		AllowedNumbers: allowed,
		Model:          s.config.Model,
		MaxTokens:      s.config.MaxTokens,
	})
	if err != nil {
		return &model.LLMSummary{
			Enabled:  true,
			Provider: s.provider.Name(),
			Model:    s.config.Model,
			Warnings: []string{fmt.Sprintf("Summary generation failed: %v", err)},
		}, nil
	}

	summary := &model.LLMSummary{
		Enabled:    true,
		Provider:   s.provider.Name(),
		Model:      resp.Model,
		SummaryMD:  resp.Summary,
		TokensUsed: resp.TokensUsed,
	}
	summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if s.config.StrictNumbers {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Verified %d numbers against the report", len(resp.CitedNumbers)))
	}
	return summary, nil
}

// RenderSeparateMarkdown renders a narrative as its own Markdown document
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> GENERATED CONTENT. The assignment and product were determined independently by the solver; this text only describes them.\n\n")
	fmt.Fprintf(&b, "- **Provider**: %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", summary.Model)
	}
	b.WriteString("\n")

	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}
