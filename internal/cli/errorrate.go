package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/ticketscan/internal/pipeline"
	"github.com/spf13/cobra"
)

// errorRateCmd prints only the scanning error rate
var errorRateCmd = &cobra.Command{
	Use:   "error-rate <input>",
	Short: "Print the scanning error rate of the nearby tickets",
	Long: `Error-rate sums every nearby ticket value that no rule accepts and
prints the total. No field resolution is attempted.

Example:
  ticketscan error-rate input.txt
  cat input.txt | ticketscan error-rate -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		cfg, err := commandConfig(cmd, map[string]string{"http.session": "session"})
		if err != nil {
			return err
		}

		p, err := pipeline.NewPipeline(cfg, pipeline.Options{
			Stdin:  cmd.InOrStdin(),
			Stdout: cmd.OutOrStdout(),
			Logger: logger,
		})
		if err != nil {
			return err
		}

		rate, err := p.ErrorRate(ctx, args[0])
		if err != nil {
			return fmt.Errorf("error rate failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), rate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(errorRateCmd)

	errorRateCmd.Flags().String("session", "", "session cookie for remote inputs (env TICKETSCAN_SESSION)")
	errorRateCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	errorRateCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable input cache (force fresh fetch)")
}
