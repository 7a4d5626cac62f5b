package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesenki/payments-ingestion-sub001/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			var verr *config.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s:\n", cfgFile)
				for _, issue := range verr.Issues {
					fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", issue)
				}
				return fmt.Errorf("%d issue(s) found", len(verr.Issues))
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (rate=%g/s batch_size=%d scenarios=%d sink=%s)\n",
			cfgFile, cfg.Rate, cfg.BatchSize, len(cfg.Scenarios), cfg.Sink.Kind)
		for _, warning := range cfg.Telemetry.Warnings() {
			fmt.Fprintf(cmd.OutOrStdout(), "  warning: %s\n", warning)
		}
		return nil
	},
}
