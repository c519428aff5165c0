package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sells-group/rd-benefit/internal/regime"
)

var regimesCmd = &cobra.Command{
	Use:   "regimes",
	Short: "List the available tax regimes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		formatRegimes(cmd.OutOrStdout(), catalog.All(), cfg.Regimes.Default)
		return nil
	},
}

func formatRegimes(out io.Writer, regimes []regime.Regime, defaultKey string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tNAME\tRATE\tDEFAULT")
	_, _ = fmt.Fprintln(w, "---\t----\t----\t-------")

	for _, r := range regimes {
		def := ""
		if r.Key == defaultKey {
			def = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s%%\t%s\n", r.Key, r.Name, r.Rate.Mul(decimal.NewFromInt(100)).String(), def)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(regimesCmd)
}
