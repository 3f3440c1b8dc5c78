package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evidex/trialqa/internal/qa"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report <batch-id>",
	Short: "Rebuild the QA report for a stored batch",
	Long:  "Re-validates a stored (possibly reviewer-edited) batch. Derivation only fills fields that are still missing; edited values are never overwritten.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		batch, err := st.GetBatch(ctx, args[0])
		if err != nil {
			return err
		}

		report, res := qa.Build(batch.SingleArm, batch.Comparative)

		// Persist the refreshed findings so the UI sees the same report.
		if err := st.SaveValidation(ctx, batch.ID, res); err != nil {
			return err
		}

		zap.L().Info("report rebuilt",
			zap.String("batch_id", batch.ID),
			zap.Bool("passed", report.Passed),
			zap.Int("completeness", report.CompletenessScore),
		)

		if reportJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return printReport(batch, report, res)
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "emit the report as JSON")
	rootCmd.AddCommand(reportCmd)
}
