package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"retailpipe/internal/pipeline"
	"retailpipe/internal/report"
	"retailpipe/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline end to end",
	Long: `Execute all five pipeline stages in order: data generation, staging
ingestion, quality checks, production load and warehouse load. A stage that
keeps failing after its retry budget aborts the run; later stages never start.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := stageLogger(cfg, "pipeline")

	ui.ShowHeader("Pipeline Run")

	steps := pipeline.DefaultSteps(cfg.Pipeline.Command)
	if cfgFile != "" {
		for i := range steps {
			steps[i].Args = append(steps[i].Args, "--config", cfgFile)
		}
	}

	execution := pipeline.NewRunner(steps, cfg.Pipeline.Retries, log).Run(cmd.Context())

	reportPath := filepath.Join(cfg.Paths.ReportsDir, "pipeline_execution_report.json")
	if err := report.Write(reportPath, execution); err != nil {
		ui.ShowError(err)
		return err
	}

	table := ui.NewTable()
	table.AddHeader("Step", "State", "Attempts")
	for _, step := range execution.Steps {
		table.AddRow(step.Name, string(step.State), strconv.Itoa(step.Attempts))
	}
	table.Render()

	if execution.Status != report.StatusSuccess {
		ui.ShowError(fmt.Errorf("pipeline run %s failed, report at %s", execution.RunID, reportPath))
		return fmt.Errorf("pipeline run %s failed", execution.RunID)
	}

	ui.ShowSuccess(fmt.Sprintf("Pipeline run %s completed, report at %s", execution.RunID, reportPath))
	return nil
}
