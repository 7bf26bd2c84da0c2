package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"retailpipe/internal/ingest"
	"retailpipe/internal/report"
	"retailpipe/internal/ui"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the raw CSV files into the staging schema",
	Long: `Bulk-load the generated CSV files into the staging tables inside a
single transaction. A failure on any table rolls back the whole load.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := stageLogger(cfg, "ingestion")

	ui.ShowHeader("Staging Ingestion")

	service, err := connectService(cfg)
	if err != nil {
		ui.ShowError(err)
		return err
	}
	defer service.Close()

	summary := ingest.NewLoader(service, cfg.Paths.RawDir, log).Run(cmd.Context())

	reportPath := filepath.Join(cfg.Paths.ReportsDir, "ingestion_summary.json")
	if err := report.Write(reportPath, summary); err != nil {
		ui.ShowError(err)
		return err
	}

	if summary.Status != report.StatusSuccess {
		ui.ShowError(fmt.Errorf("ingestion failed: %s", summary.Error))
		return fmt.Errorf("ingestion run %s failed", summary.RunID)
	}

	ui.ShowSuccess(fmt.Sprintf("Loaded %d staging tables, summary at %s", len(summary.TablesLoaded), reportPath))
	return nil
}
