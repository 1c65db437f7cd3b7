package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/ticketscan/internal/logging"
	"github.com/ppiankov/ticketscan/internal/model"
	"go.uber.org/zap"
)

// Solver produces a report for one input source
type Solver interface {
	Solve(ctx context.Context, source string) (*model.Report, error)
}

// SolveJob solves one input source
type SolveJob struct {
	Index  int
	Source string
	Solver Solver
}

// Execute executes the solve job
func (j *SolveJob) Execute(ctx context.Context) Result {
	report, err := j.Solver.Solve(ctx, j.Source)
	return &SolveResult{
		Index:  j.Index,
		Source: j.Source,
		Report: report,
		Error:  err,
	}
}

// SolveResult represents the result of a solve job
type SolveResult struct {
	Index  int
	Source string
	Report *model.Report
	Error  error
}

// GetError returns the error from the solve result
func (r *SolveResult) GetError() error {
	return r.Error
}

// BatchProcessor solves multiple inputs concurrently
type BatchProcessor struct {
	solver      Solver
	concurrency int
	logger      *zap.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(solver Solver, concurrency int, logger *zap.Logger) *BatchProcessor {
	return &BatchProcessor{
		solver:      solver,
		concurrency: concurrency,
		logger:      logging.OrNop(logger),
	}
}

// ProcessSources solves every source and returns results in input order.
// A failing source does not stop the others.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []string) []*SolveResult {
	if len(sources) == 0 {
		return []*SolveResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	submitted := 0
	for i, src := range sources {
		if !pool.Submit(&SolveJob{Index: i, Source: src, Solver: b.solver}) {
			break
		}
		submitted++
	}

	results := pool.Wait()

	out := make([]*SolveResult, 0, len(sources))
	done := make(map[int]bool, len(results))
	for _, r := range results {
		sr := r.(*SolveResult)
		done[sr.Index] = true
		if sr.Error != nil {
			b.logger.Warn("solve failed", zap.String("source", sr.Source), zap.Error(sr.Error))
		} else {
			b.logger.Debug("solved", zap.String("source", sr.Source))
		}
		out = append(out, sr)
	}

	// Sources never run because the context ended still get a result
	for i, src := range sources {
		if done[i] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("not processed")
		}
		out = append(out, &SolveResult{Index: i, Source: src, Error: err})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	b.logger.Debug("batch complete", zap.Int("sources", len(sources)), zap.Int("submitted", submitted))
	return out
}

// ProcessFile reads sources from a list file and solves them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*SolveResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// ReadSourcesFromFile reads input sources from a file, one per line.
// Blank lines and # comments are skipped, duplicates dropped. Relative paths
// are resolved against the list file's directory; URLs are kept as-is.
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	baseDir := filepath.Dir(filePath)
	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !IsRemote(line) && line != "-" && !filepath.IsAbs(line) {
			line = filepath.Join(baseDir, line)
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}

// IsRemote reports whether a source is an http(s) URL
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
