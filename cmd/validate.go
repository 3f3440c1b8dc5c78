package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/evidex/trialqa/internal/ingest"
	"github.com/evidex/trialqa/internal/model"
	"github.com/evidex/trialqa/internal/qa"
	"github.com/evidex/trialqa/internal/store"
)

var (
	validateSave bool
	validateJSON bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <file...>",
	Short: "Validate extracted record batches and fill derivable gaps",
	Long:  "Loads one or more record batches (json, csv, or xlsx), validates each row, mines notes for missing values, derives effect sizes, and prints a QA report per batch.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var st store.Store
		if validateSave {
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			st = s
		}

		// The engine is pure, so independent batches validate concurrently;
		// output is serialized to keep reports readable.
		var mu sync.Mutex
		failed := false

		g, gctx := errgroup.WithContext(ctx)
		for _, path := range args {
			path := path
			g.Go(func() error {
				batch, err := ingest.Load(path)
				if err != nil {
					return err
				}

				report, res := qa.Build(batch.SingleArm, batch.Comparative)

				zap.L().Info("batch validated",
					zap.String("batch_id", batch.ID),
					zap.String("document", batch.Document),
					zap.Int("single_arm", len(batch.SingleArm)),
					zap.Int("comparative", len(batch.Comparative)),
					zap.Int("errors", len(res.Errors)),
					zap.Int("warnings", len(res.Warnings)),
					zap.Int("enhancements", len(res.Enhancements)),
					zap.Int("completeness", res.CompletenessScore),
				)

				if st != nil {
					enhanced := *batch
					enhanced.SingleArm = res.SingleArm
					enhanced.Comparative = res.Comparative
					if err := st.SaveBatch(gctx, &enhanced); err != nil {
						return err
					}
					if err := st.SaveValidation(gctx, enhanced.ID, res); err != nil {
						return err
					}
				}

				mu.Lock()
				defer mu.Unlock()
				if !res.IsValid {
					failed = true
				}
				return printReport(batch, report, res)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if failed {
			return eris.New("validation failed: one or more batches have errors")
		}
		return nil
	},
}

func printReport(batch *model.RecordBatch, report model.QAReport, res model.ValidationResult) error {
	if validateJSON {
		out := struct {
			BatchID  string                 `json:"batch_id"`
			Document string                 `json:"document"`
			Report   model.QAReport         `json:"report"`
			Result   model.ValidationResult `json:"result"`
		}{batch.ID, batch.Document, report, res}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("%s (%s): %s\n", batch.Document, batch.ID, qa.Summary(report))
	for _, issue := range report.Errors {
		fmt.Printf("  error   [row %d] %s: %s\n", issue.RowIndex, issue.Field, issue.Message)
	}
	for _, issue := range report.Warnings {
		fmt.Printf("  warning [row %d] %s: %s\n", issue.RowIndex, issue.Field, issue.Message)
	}
	for _, issue := range report.Info {
		fmt.Printf("  info    [row %d] %s: %s\n", issue.RowIndex, issue.Field, issue.Message)
	}
	for _, enh := range res.Enhancements {
		fmt.Printf("  filled  [row %d] %s = %v (%s)\n", enh.RowIndex, enh.Field, enh.NewValue, enh.Calculation)
	}
	return nil
}

func init() {
	validateCmd.Flags().BoolVar(&validateSave, "save", false, "persist the enhanced batch and findings to the store")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "emit the full report as JSON")
	rootCmd.AddCommand(validateCmd)
}
