package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"retailpipe/internal/quality"
	"retailpipe/internal/report"
	"retailpipe/internal/ui"
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "Run the data quality check battery against staging",
	Long: `Run the null, duplicate, referential integrity, range and consistency
checks against the staging tables and compute the overall quality score.`,
	RunE: runQuality,
}

func init() {
	rootCmd.AddCommand(qualityCmd)
}

func runQuality(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := stageLogger(cfg, "quality_checks")

	ui.ShowHeader("Quality Checks")

	service, err := connectService(cfg)
	if err != nil {
		ui.ShowError(err)
		return err
	}
	defer service.Close()

	qualityReport, runErr := quality.NewChecker(service, log).Run(cmd.Context())

	// The report is written even when the battery aborted partway, so the
	// checks that did run stay inspectable.
	reportPath := filepath.Join(cfg.Paths.ReportsDir, "quality", "quality_report.json")
	if err := report.Write(reportPath, qualityReport); err != nil {
		ui.ShowError(err)
		return err
	}

	if runErr != nil {
		ui.ShowError(runErr)
		return runErr
	}

	showQualityReport(qualityReport)
	ui.ShowSuccess(fmt.Sprintf("Quality report written to %s", reportPath))
	return nil
}

func showQualityReport(qualityReport *quality.Report) {
	table := ui.NewTable()
	table.AddHeader("Check", "Failures")
	for _, family := range []map[string]int{
		qualityReport.Checks.NullChecks,
		qualityReport.Checks.DuplicateChecks,
		qualityReport.Checks.ReferentialIntegrity,
		qualityReport.Checks.RangeChecks,
		qualityReport.Checks.ConsistencyChecks,
	} {
		for name, count := range family {
			table.AddRow(name, fmt.Sprintf("%d", count))
		}
	}
	table.Render()

	score := fmt.Sprintf("Overall quality score: %.2f", qualityReport.OverallQualityScore)
	if qualityReport.OverallQualityScore < 100 {
		ui.ShowWarning(score)
	} else {
		ui.ShowInfo(score)
	}
}
