package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/ticketscan/internal/model"
	"github.com/ppiankov/ticketscan/internal/score"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// Renderer writes reports as JSON, YAML or Markdown
type Renderer struct {
	includeFooter bool
	out           io.Writer
	printer       *message.Printer
}

// NewRenderer creates a new renderer. Outputs named "-" and the summary go
// to out.
func NewRenderer(includeFooter bool, out io.Writer) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	return &Renderer{
		includeFooter: includeFooter,
		out:           out,
		printer:       message.NewPrinter(language.English),
	}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return r.write(path, append(data, '\n'))
}

// RenderYAML writes the report as YAML
func (r *Renderer) RenderYAML(report *model.Report, path string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal YAML: %w", err)
	}
	return r.write(path, data)
}

// RenderMarkdown writes the report as a Markdown document
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return r.write(path, []byte(r.Markdown(report)))
}

// RenderLLMMarkdown writes an already rendered narrative
func (r *Renderer) RenderLLMMarkdown(content, path string) error {
	return r.write(path, []byte(content))
}

// Markdown renders the report as Markdown
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	p := r.printer

	b.WriteString("# Ticket Field Report\n\n")
	fmt.Fprintf(&b, "- **Source**: %s\n", report.Source)
	fmt.Fprintf(&b, "- **Generated**: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- **Run**: `%s`\n\n", report.ID)

	b.WriteString("## Scan\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	b.WriteString(p.Sprintf("| Rules | %d |\n", len(report.Rules)))
	b.WriteString(p.Sprintf("| Positions | %d |\n", report.Width))
	b.WriteString(p.Sprintf("| Nearby tickets | %d |\n", report.Nearby))
	b.WriteString(p.Sprintf("| Valid tickets | %d |\n", report.ValidTickets))
	b.WriteString(p.Sprintf("| Scanning error rate | %d |\n\n", report.ErrorRate))

	b.WriteString("## Rules\n\n")
	for _, rule := range report.Rules {
		positions := report.Candidates[rule.Field]
		fmt.Fprintf(&b, "- **%s**: %s (candidates: %s)\n", rule.Field, rule.Ranges, joinInts(positions))
	}
	b.WriteString("\n")

	b.WriteString("## Assignment\n\n")
	if report.Resolved {
		b.WriteString("| Position | Field | Your value |\n|---|---|---|\n")
		for _, fp := range report.Assignment {
			b.WriteString(p.Sprintf("| %d | %s | %s |\n", fp.Position, fp.Field, r.value(fp.Value)))
		}
		b.WriteString("\n")
		if len(report.Projection) == 0 {
			fmt.Fprintf(&b, "No field starts with `%s`; the product is 1.\n\n", report.Prefix)
		} else {
			b.WriteString(p.Sprintf("Product of `%s` fields: **%d**\n\n", report.Prefix, report.Product))
		}
	} else {
		fmt.Fprintf(&b, "Resolution failed: %s\n\n", report.ResolveErr)
	}

	if len(report.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		for _, s := range report.Signals {
			fmt.Fprintf(&b, "- %s **%s**: %s\n", severityIcon(s.Severity), s.Type, s.Description)
		}
		b.WriteString("\n")
	}

	if report.LLM != nil && report.LLM.Enabled && report.LLM.SummaryMD != "" {
		b.WriteString("## Narrative\n\n")
		b.WriteString(report.LLM.SummaryMD)
		b.WriteString("\n\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n_Generated by ticketscan. Results come from rule matching alone; the narrative, when present, never changes them._\n")
	}

	return b.String()
}

// RenderSummary prints a short human summary to the renderer's output
func (r *Renderer) RenderSummary(report *model.Report) {
	p := r.printer
	_, _ = fmt.Fprintf(r.out, "\n%s\n", report.Source)
	_, _ = p.Fprintf(r.out, "  Error rate:    %d (%d of %d nearby tickets valid)\n", report.ErrorRate, report.ValidTickets, report.Nearby)
	if report.Resolved {
		_, _ = p.Fprintf(r.out, "  Product:       %d (%s*, %d fields)\n", report.Product, report.Prefix, len(report.Projection))
	} else {
		_, _ = fmt.Fprintf(r.out, "  Unresolved:    %s\n", report.ResolveErr)
	}
	_, _ = fmt.Fprintf(r.out, "  Signals:       %d (worst: %s)\n", len(report.Signals), score.Worst(report.Signals))
}

func (r *Renderer) write(path string, data []byte) error {
	if path == StdinSource {
		_, err := r.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (r *Renderer) value(v *int) string {
	if v == nil {
		return "-"
	}
	return r.printer.Sprintf("%d", *v)
}

func severityIcon(s model.SignalSeverity) string {
	switch s {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityWarning:
		return "🟡"
	default:
		return "🟢"
	}
}

func joinInts(nums []int) string {
	if len(nums) == 0 {
		return "none"
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
