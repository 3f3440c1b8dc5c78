package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evidex/trialqa/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "trialqa",
	Short: "Quality assurance for extracted clinical-trial outcome data",
	Long:  "Validates extracted trial records, derives missing effect sizes from counts and free-text notes, and scores document relevance against project PICOTS criteria.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
