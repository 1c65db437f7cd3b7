package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ppiankov/ticketscan/internal/model"
	"gopkg.in/yaml.v3"
)

func TestRenderer_StdoutTarget(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(false, &out)

	report := &model.Report{ID: "run-1", ErrorRate: 71, Resolved: true, Product: 1}
	if err := r.RenderYAML(report, "-"); err != nil {
		t.Fatalf("RenderYAML: %v", err)
	}

	var decoded model.Report
	if err := yaml.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("decode YAML: %v", err)
	}
	if decoded.ErrorRate != 71 || decoded.ID != "run-1" {
		t.Errorf("Unexpected decoded report: %+v", decoded)
	}
}

func TestRenderer_MarkdownUnresolved(t *testing.T) {
	r := NewRenderer(false, &bytes.Buffer{})
	md := r.Markdown(&model.Report{
		Rules:      []model.RuleSummary{{Field: "a", Ranges: "0-10"}},
		ResolveErr: "cannot resolve: 1 rules for 2 positions",
		Signals: []model.Signal{
			{Type: model.SignalGreedyForced, Severity: model.SeverityCritical, Description: "Mismatch"},
		},
	})

	for _, want := range []string{"Resolution failed: cannot resolve: 1 rules for 2 positions", "**a**: 0-10 (candidates: none)", "🔴 **greedy_forced**"} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected Markdown to contain %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Generated by ticketscan") {
		t.Error("Expected no footer")
	}
}

func TestRenderer_MarkdownEmptySelection(t *testing.T) {
	r := NewRenderer(true, &bytes.Buffer{})
	md := r.Markdown(&model.Report{Resolved: true, Prefix: "departure", Product: 1})
	if !strings.Contains(md, "No field starts with `departure`; the product is 1.") {
		t.Errorf("Unexpected Markdown:\n%s", md)
	}
}
