package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"retailpipe/internal/report"
	"retailpipe/internal/ui"
	"retailpipe/internal/warehouse"
)

var warehouseCmd = &cobra.Command{
	Use:   "warehouse",
	Short: "Rebuild the warehouse star schema from production data",
	Long: `Truncate and reload the four dimension tables and the sales fact
table from production data in a single transaction.`,
	RunE: runWarehouse,
}

func init() {
	rootCmd.AddCommand(warehouseCmd)
}

func runWarehouse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := stageLogger(cfg, "load_warehouse")

	ui.ShowHeader("Warehouse Load")

	service, err := connectService(cfg)
	if err != nil {
		ui.ShowError(err)
		return err
	}
	defer service.Close()

	summary := warehouse.NewLoader(service, log).Run(cmd.Context())

	reportPath := filepath.Join(cfg.Paths.ReportsDir, "warehouse_load_summary.json")
	if err := report.Write(reportPath, summary); err != nil {
		ui.ShowError(err)
		return err
	}

	if summary.Status != report.StatusSuccess {
		ui.ShowError(fmt.Errorf("warehouse load failed: %s", summary.Error))
		return fmt.Errorf("warehouse load run %s failed", summary.RunID)
	}

	ui.ShowSuccess(fmt.Sprintf("Rebuilt %d warehouse tables, summary at %s", len(summary.TablesLoaded), reportPath))
	return nil
}
