package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/ticketscan/internal/model"
	"github.com/ppiankov/ticketscan/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	outJSON     string
	outYAML     string
	outMD       string
	timeout     time.Duration
	noCache     bool
	noFooter    bool
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// solveCmd represents the solve command
var solveCmd = &cobra.Command{
	Use:   "solve <input>",
	Short: "Validate tickets and resolve field positions",
	Long: `Solve reads ticket notes and:
- Computes the scanning error rate of the nearby tickets
- Discards tickets holding a value no rule accepts
- Finds the positions each field can occupy
- Resolves every field to exactly one position by elimination
- Multiplies your ticket's values for fields with the given prefix

<input> is a file path, "-" for standard input, or an http(s) URL.

Example:
  ticketscan solve input.txt
  ticketscan solve input.txt --json report.json --md report.md
  cat input.txt | ticketscan solve - --prefix seat
  ticketscan solve https://adventofcode.com/2020/day/16/input --session $SESSION`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)

	// Output flags
	solveCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (\"-\" for stdout)")
	solveCmd.Flags().StringVar(&outYAML, "yaml", "", "output YAML path (\"-\" for stdout)")
	solveCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (\"-\" for stdout)")
	solveCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// Solver flags
	solveCmd.Flags().String("prefix", "departure", "field name prefix whose values are multiplied")
	solveCmd.Flags().Bool("parallel", false, "validate tickets and build candidates concurrently")
	solveCmd.Flags().Int("workers", 8, "concurrent workers for --parallel")
	solveCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall solve timeout")

	// Remote input flags
	solveCmd.Flags().String("session", "", "session cookie for remote inputs (env TICKETSCAN_SESSION)")
	solveCmd.Flags().String("ua", "", "HTTP User-Agent")
	solveCmd.Flags().String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	solveCmd.Flags().String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	solveCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable input cache (force fresh fetch)")

	// LLM flags
	solveCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM narrative of the report")
	solveCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, ollama)")
	solveCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

var solveFlagKeys = map[string]string{
	"solve.prefix":                   "prefix",
	"solve.parallel":                 "parallel",
	"concurrency.validation_workers": "workers",
	"http.session":                   "session",
	"http.user_agent":                "ua",
	"http.http_proxy":                "http-proxy",
	"http.https_proxy":               "https-proxy",
}

// commandConfig loads the configuration and applies the flags that are not
// bound to viper keys
func commandConfig(cmd *cobra.Command, keys map[string]string) (*model.Config, error) {
	if err := bindFlags(cmd, keys); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	cfg.Output.Verbose = verbose || cfg.Output.Verbose

	if !llmEnabled {
		cfg.LLM.Provider = ""
		return cfg, nil
	}

	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	return cfg, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cfg, err := commandConfig(cmd, solveFlagKeys)
	if err != nil {
		return err
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Solving: %s\n", source)
		fmt.Fprintf(os.Stderr, "Prefix:  %q\n", cfg.Solve.Prefix)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache:   %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(cfg, pipeline.Options{
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Logger: logger,
	})
	if err != nil {
		return err
	}

	report, solveErr := p.Solve(ctx, source)
	if report == nil {
		return fmt.Errorf("solve failed: %w", solveErr)
	}

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Scanning error rate: %d\n", report.ErrorRate)
		fmt.Fprintf(os.Stderr, "✓ Kept %d of %d nearby tickets\n", report.ValidTickets, report.Nearby)
		if report.Resolved {
			fmt.Fprintf(os.Stderr, "✓ Resolved %d fields\n", len(report.Assignment))
		}
		if report.LLM != nil && report.LLM.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Generated LLM narrative using %s/%s\n", report.LLM.Provider, report.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	paths := pipeline.OutputPaths{JSON: outJSON, YAML: outYAML, Markdown: outMD}
	if err := p.RenderReport(report, paths, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if solveErr != nil {
		return fmt.Errorf("solve failed: %w", solveErr)
	}
	return nil
}
