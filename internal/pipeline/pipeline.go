package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/ticketscan/internal/cache"
	"github.com/ppiankov/ticketscan/internal/llm"
	"github.com/ppiankov/ticketscan/internal/logging"
	"github.com/ppiankov/ticketscan/internal/model"
	"github.com/ppiankov/ticketscan/internal/parse"
	"github.com/ppiankov/ticketscan/internal/resolve"
	"github.com/ppiankov/ticketscan/internal/score"
	"github.com/ppiankov/ticketscan/internal/ticket"
	"github.com/ppiankov/ticketscan/internal/validate"
	"github.com/ppiankov/ticketscan/internal/worker"
	"go.uber.org/zap"
)

// Options carries the collaborators a pipeline does not build from config
type Options struct {
	Stdin  io.Reader   // defaults to os.Stdin
	Stdout io.Writer   // defaults to os.Stdout
	Cache  cache.Cache // overrides the configured input cache
	Logger *zap.Logger
}

// Pipeline orchestrates the complete solve process
type Pipeline struct {
	loader     *Loader
	validator  *validate.Validator
	scorer     *score.Scorer
	renderer   *Renderer
	summarizer *llm.Summarizer // nil if disabled
	config     *model.Config
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, opts Options) (*Pipeline, error) {
	logger := logging.OrNop(opts.Logger)
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	inputCache := opts.Cache
	if inputCache == nil {
		if cfg.Cache.Enabled {
			inputCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		} else {
			inputCache = cache.Nop{}
		}
	}

	fetcher, err := NewFetcher(FetcherOptions{
		Timeout:       cfg.HTTP.Timeout,
		UserAgent:     cfg.HTTP.UserAgent,
		MaxBytes:      cfg.HTTP.MaxBodyBytes,
		Session:       cfg.HTTP.Session,
		RespectRobots: cfg.HTTP.RespectRobots,
		HTTPProxy:     cfg.HTTP.HTTPProxy,
		HTTPSProxy:    cfg.HTTP.HTTPSProxy,
		NoProxy:       cfg.HTTP.NoProxy,
		CacheTTL:      cfg.Cache.DiskTTL,
		Limiter:       worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		Cache:         inputCache,
		Logger:        logger.Named("fetch"),
	})
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			logger.Warn("LLM provider disabled", zap.Error(err))
		} else {
			summarizer = s
		}
	}

	return &Pipeline{
		loader:     NewLoader(fetcher, opts.Stdin, cfg.HTTP.MaxBodyBytes),
		validator:  validate.NewValidator(cfg.Concurrency.ValidationWorkers),
		scorer:     score.NewScorer(),
		renderer:   NewRenderer(cfg.Output.IncludeFooter, stdout),
		summarizer: summarizer,
		config:     cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}, nil
}

// Load reads and parses source
func (p *Pipeline) Load(ctx context.Context, source string) (*parse.Document, error) {
	data, err := p.loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	doc, err := parse.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	return doc, nil
}

// ErrorRate computes only the scanning error rate of source
func (p *Pipeline) ErrorRate(ctx context.Context, source string) (int, error) {
	doc, err := p.Load(ctx, source)
	if err != nil {
		return 0, err
	}
	return validate.FieldErrorRate(doc.Nearby, doc.Rules), nil
}

// Solve loads source and produces a complete report. When resolution fails
// the partially filled report is returned together with the error.
func (p *Pipeline) Solve(ctx context.Context, source string) (*model.Report, error) {
	doc, err := p.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return p.SolveDocument(ctx, source, doc)
}

// SolveDocument runs validation, candidate building, resolution, projection
// and scoring over an already parsed document
func (p *Pipeline) SolveDocument(ctx context.Context, source string, doc *parse.Document) (*model.Report, error) {
	rules := ticket.Rules(doc.Rules)
	width := doc.Width()
	prefix := p.config.Solve.Prefix

	log := p.logger.With(zap.String("source", source))
	log.Debug("solving", zap.Int("rules", len(rules)), zap.Int("width", width), zap.Int("nearby", len(doc.Nearby)))

	report := &model.Report{
		ID:          p.newID(),
		Source:      source,
		GeneratedAt: p.now(),
		Rules:       summarizeRules(rules),
		Width:       width,
		Yours:       append([]int(nil), doc.Yours...),
		Nearby:      len(doc.Nearby),
		Prefix:      prefix,
		Product:     1,
	}

	// 1. Scanning error rate and valid subset
	var valid []ticket.Ticket
	if p.config.Solve.Parallel {
		results, err := p.validator.Validate(ctx, doc.Nearby, rules)
		if err != nil {
			return nil, fmt.Errorf("validate tickets: %w", err)
		}
		summary := validate.Summarize(results)
		report.ErrorRate = summary.ErrorRate
		valid = validate.ValidTickets(doc.Nearby, results)
		for _, r := range results {
			if !r.Valid {
				report.InvalidTickets = append(report.InvalidTickets, r.Index)
			}
		}
	} else {
		report.ErrorRate = validate.FieldErrorRate(doc.Nearby, rules)
		valid = validate.FilterValid(doc.Nearby, rules)
		for i, t := range doc.Nearby {
			if !validate.IsValid(t, rules) {
				report.InvalidTickets = append(report.InvalidTickets, i)
			}
		}
	}
	report.ValidTickets = len(valid)

	// 2. Candidate positions
	var candidates resolve.Candidates
	if p.config.Solve.Parallel {
		c, err := resolve.BuildCandidatesParallel(ctx, rules, valid, width, p.config.Concurrency.ValidationWorkers)
		if err != nil {
			return nil, err
		}
		candidates = c
	} else {
		candidates = resolve.BuildCandidates(rules, valid, width)
	}
	report.Candidates = candidates.ByField(rules)

	// 3. Resolution and projection
	assignment, resolveErr := resolve.Resolve(rules, candidates, width)
	selected := 0
	if resolveErr == nil {
		report.Resolved = true
		for _, m := range assignment.Ordered() {
			report.Assignment = append(report.Assignment, fieldPosition(m.Rule.Field(), m.Position, doc.Yours))
		}

		projection, product, err := assignment.Project(doc.Yours, prefix)
		if err != nil {
			return nil, fmt.Errorf("project: %w", err)
		}
		for _, pr := range projection {
			v := pr.Value
			report.Projection = append(report.Projection, model.FieldPosition{Field: pr.Field, Position: pr.Position, Value: &v})
		}
		report.Product = product
		selected = len(projection)
	} else {
		report.ResolveErr = resolveErr.Error()
		log.Debug("resolution failed", zap.Error(resolveErr))
	}

	// 4. Diagnostics
	report.Signals = p.scorer.Calculate(score.Input{
		Rules:      rules,
		Nearby:     len(doc.Nearby),
		Valid:      len(valid),
		Candidates: candidates,
		ResolveErr: resolveErr,
		Selected:   selected,
		Prefix:     prefix,
	})

	// 5. Narrative, after every result is fixed
	if p.summarizer.IsEnabled() {
		summary, err := p.summarizer.GenerateSummary(ctx, *report)
		if err != nil {
			log.Warn("LLM summary generation failed", zap.Error(err))
		} else if summary != nil {
			report.LLM = summary
		}
	}

	if resolveErr != nil {
		return report, fmt.Errorf("resolve: %w", resolveErr)
	}
	return report, nil
}

func summarizeRules(rules ticket.Rules) []model.RuleSummary {
	out := make([]model.RuleSummary, 0, len(rules))
	for _, r := range rules {
		ranges := r.Ranges()
		parts := make([]string, 0, len(ranges))
		for _, rg := range ranges {
			parts = append(parts, rg.String())
		}
		out = append(out, model.RuleSummary{Field: r.Field(), Ranges: strings.Join(parts, " or ")})
	}
	return out
}

func fieldPosition(field string, position int, yours ticket.Ticket) model.FieldPosition {
	fp := model.FieldPosition{Field: field, Position: position}
	if position < len(yours) {
		v := yours[position]
		fp.Value = &v
	}
	return fp
}

// OutputPaths names the report files to write; empty entries are skipped
// and "-" writes to standard output
type OutputPaths struct {
	JSON     string
	YAML     string
	Markdown string
}

// RenderReport renders the report to the specified outputs and prints a
// summary
func (p *Pipeline) RenderReport(report *model.Report, paths OutputPaths, verbose bool) error {
	if paths.JSON != "" {
		if err := p.renderer.RenderJSON(report, paths.JSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", paths.JSON)
		}
	}

	if paths.YAML != "" {
		if err := p.renderer.RenderYAML(report, paths.YAML); err != nil {
			return fmt.Errorf("render YAML: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote YAML: %s\n", paths.YAML)
		}
	}

	if paths.Markdown != "" {
		if err := p.renderer.RenderMarkdown(report, paths.Markdown); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", paths.Markdown)
		}
	}

	if report.LLM != nil && report.LLM.Enabled && paths.Markdown != "" && paths.Markdown != "-" {
		llmPath := strings.TrimSuffix(paths.Markdown, ".md") + ".llm.md"
		if err := p.renderer.RenderLLMMarkdown(llm.RenderSeparateMarkdown(report.LLM), llmPath); err != nil {
			p.logger.Warn("failed to write LLM summary", zap.String("path", llmPath), zap.Error(err))
		} else if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote LLM Summary: %s\n", llmPath)
		}
	}

	p.renderer.RenderSummary(report)
	return nil
}
