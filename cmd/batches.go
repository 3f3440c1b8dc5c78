package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var batchesLimit int

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List stored record batches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		batches, err := st.ListBatches(ctx, batchesLimit)
		if err != nil {
			return err
		}

		if len(batches) == 0 {
			fmt.Println("no batches stored")
			return nil
		}
		for _, b := range batches {
			fmt.Printf("%s  %-40s  rows=%d+%d  completeness=%d%%  %s\n",
				b.ID, b.Document, b.SingleArm, b.Comparative,
				b.CompletenessScore, b.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	batchesCmd.Flags().IntVar(&batchesLimit, "limit", 50, "maximum number of batches to list")
	rootCmd.AddCommand(batchesCmd)
}
