package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"retailpipe/internal/monitor"
	"retailpipe/internal/report"
	"retailpipe/internal/ui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Report on the health of the latest pipeline run",
	Long: `Inspect the latest execution and quality reports and write a
monitoring report with alerts for failed steps and low quality scores.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := stageLogger(cfg, "monitor")

	ui.ShowHeader("Pipeline Health")

	health := monitor.NewMonitor(cfg.Paths.ReportsDir, log).Run()

	reportPath := filepath.Join(cfg.Paths.ReportsDir, "monitoring_report.json")
	if err := report.Write(reportPath, health); err != nil {
		ui.ShowError(err)
		return err
	}

	if health.PipelineHealth == "healthy" {
		ui.ShowSuccess("Pipeline is healthy")
	} else {
		ui.ShowWarning(fmt.Sprintf("Pipeline is %s", health.PipelineHealth))
		for _, alert := range health.Alerts {
			ui.ShowWarning(alert)
		}
	}

	ui.ShowInfo(fmt.Sprintf("Monitoring report written to %s", reportPath))
	return nil
}
