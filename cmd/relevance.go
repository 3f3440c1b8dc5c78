package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/evidex/trialqa/internal/model"
	"github.com/evidex/trialqa/internal/relevance"
)

var (
	relevanceCriteriaPath string
	relevanceJSON         bool
	relevanceSave         bool
)

var relevanceCmd = &cobra.Command{
	Use:   "relevance <textfile>",
	Short: "Score a document's relevance against the project PICOTS criteria",
	Long:  "Reads extracted document text and scores it against the configured criteria (or a standalone --criteria file). The exit status is non-zero when the document is classified low or none.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		criteria := cfg.Criteria
		if relevanceCriteriaPath != "" {
			c, err := loadCriteria(relevanceCriteriaPath)
			if err != nil {
				return err
			}
			criteria = *c
		}

		text, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read document text")
		}
		document := filepath.Base(args[0])

		scorer := relevance.NewScorer(cfg.Relevance, criteria)
		res := scorer.Score(document, string(text))

		zap.L().Info("document scored",
			zap.String("document", document),
			zap.Float64("match_score", res.MatchScore),
			zap.String("classification", string(res.Classification)),
			zap.Bool("is_relevant", res.IsRelevant),
			zap.Bool("criteria_configured", res.CriteriaConfigured),
		)

		if relevanceSave {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.SaveRelevance(ctx, document, res); err != nil {
				return err
			}
		}

		if relevanceJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			printRelevance(document, res)
		}

		if res.CriteriaConfigured && !res.IsRelevant {
			return eris.Errorf("document classified %q; explicit confirmation required", res.Classification)
		}
		return nil
	},
}

// loadCriteria reads a standalone PICOTS criteria file in YAML.
func loadCriteria(path string) (*model.MatchCriteria, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read criteria file")
	}
	var criteria model.MatchCriteria
	if err := yaml.Unmarshal(data, &criteria); err != nil {
		return nil, eris.Wrap(err, "parse criteria file")
	}
	return &criteria, nil
}

func printRelevance(document string, res model.RelevanceResult) {
	if !res.CriteriaConfigured {
		fmt.Printf("%s: no criteria configured; relevance gating skipped\n", document)
		return
	}
	fmt.Printf("%s: %.0f%% match (%s)\n", document, res.MatchScore*100, res.Classification)
	fmt.Printf("  condition=%.2f intervention=%.2f outcome=%.2f population=%.2f\n",
		res.Components.Condition, res.Components.Intervention,
		res.Components.Outcome, res.Components.Population)
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	for _, m := range res.Mismatches {
		fmt.Printf("  mismatch: %s\n", m)
	}
	for _, s := range res.Suggestions {
		fmt.Printf("  suggestion: %s\n", s)
	}
}

func init() {
	relevanceCmd.Flags().StringVar(&relevanceCriteriaPath, "criteria", "", "path to a YAML criteria file (overrides configured criteria)")
	relevanceCmd.Flags().BoolVar(&relevanceJSON, "json", false, "emit the result as JSON")
	relevanceCmd.Flags().BoolVar(&relevanceSave, "save", false, "persist the relevance verdict to the store")
	rootCmd.AddCommand(relevanceCmd)
}
