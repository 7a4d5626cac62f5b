// Package cli defines the txgen command tree.
package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	cfgFile         string
	seed            int64
	logOutput       string
	runDuration     time.Duration
	maxTransactions int64
)

var rootCmd = &cobra.Command{
	Use:   "txgen",
	Short: "Synthetic payment transaction generator",
	Long: `txgen generates synthetic payment transactions from configurable
distributions, injects compliance violations per the configured scenarios,
and publishes batches to the configured sink. It runs until interrupted
unless bounded by --duration or --max-transactions.`,
	RunE:          runSimulation,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "generator.yaml", "path to the configuration file")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "override the configured random seed (0 keeps the configured value)")
	rootCmd.Flags().StringVar(&logOutput, "log-output", "stdout", "process log destination: stdout or none")
	rootCmd.Flags().DurationVar(&runDuration, "duration", 0, "stop after this wall-clock duration (0 runs until interrupted)")
	rootCmd.Flags().Int64Var(&maxTransactions, "max-transactions", 0, "stop after this many transactions (0 is unbounded)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}
