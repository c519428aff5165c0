package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rd-benefit/internal/batch"
)

var (
	batchCSV         string
	batchOutput      string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Evaluate every scenario in a CSV file",
	Long: `Reads scenarios from a CSV with the columns
name,sales,operating_expenses,rd_spend,regime,tax_rate and writes one result
row per scenario. Rows that cannot be evaluated keep their position and carry
the reason in the error column.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if batchConcurrency > 0 {
			cfg.Batch.MaxConcurrency = batchConcurrency
		}
		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		catalog, err := loadCatalog()
		if err != nil {
			return err
		}

		in, err := os.Open(batchCSV)
		if err != nil {
			return eris.Wrapf(err, "batch: open %s", batchCSV)
		}
		defer in.Close() //nolint:errcheck

		scenarios, err := batch.ParseCSV(in)
		if err != nil {
			return err
		}
		zap.L().Info("parsed csv", zap.Int("scenarios", len(scenarios)))

		runner := batch.NewRunner(catalog, cfg.Regimes.Default, cfg.Batch.MaxConcurrency)
		outcomes := runner.Run(cmd.Context(), scenarios)

		out := cmd.OutOrStdout()
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrapf(err, "batch: create %s", batchOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		return batch.WriteCSV(out, outcomes)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "input CSV of scenarios")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "output CSV (default stdout)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel evaluations (default from config)")
	_ = batchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(batchCmd)
}
