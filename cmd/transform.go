package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"retailpipe/internal/report"
	"retailpipe/internal/transform"
	"retailpipe/internal/ui"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Normalize staging data into the production schema",
	Long: `Rebuild the production tables from staging: names are title-cased,
emails lowercased, and all four tables are replaced in one transaction.`,
	RunE: runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := stageLogger(cfg, "load_production")

	ui.ShowHeader("Production Load")

	service, err := connectService(cfg)
	if err != nil {
		ui.ShowError(err)
		return err
	}
	defer service.Close()

	summary := transform.NewTransformer(service, log).Run(cmd.Context())

	reportPath := filepath.Join(cfg.Paths.ReportsDir, "transformation_summary.json")
	if err := report.Write(reportPath, summary); err != nil {
		ui.ShowError(err)
		return err
	}

	if summary.Status != report.StatusSuccess {
		ui.ShowError(fmt.Errorf("production load failed: %s", summary.Error))
		return fmt.Errorf("production load run %s failed", summary.RunID)
	}

	ui.ShowSuccess(fmt.Sprintf("Loaded %d production tables, summary at %s", len(summary.TablesLoaded), reportPath))
	return nil
}
