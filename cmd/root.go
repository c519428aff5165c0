package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rd-benefit/internal/config"
	"github.com/sells-group/rd-benefit/internal/regime"
	"github.com/sells-group/rd-benefit/internal/report"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rd-benefit",
	Short: "R&D tax incentive benefit simulator",
	Long:  "Compares the tax and cash-flow effect of R&D spending with and without the R&D incentive scheme (65% deductible expense, 35% direct tax credit) and finds the break-even investment.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// loadCatalog returns the configured regime catalog, or the built-in one.
func loadCatalog() (*regime.Catalog, error) {
	if cfg.Regimes.File == "" {
		return regime.Default(), nil
	}
	return regime.LoadCatalog(cfg.Regimes.File)
}

func newFormatter() (*report.Formatter, error) {
	return report.NewFormatter(cfg.Report.Locale, cfg.Report.CurrencySymbol)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
