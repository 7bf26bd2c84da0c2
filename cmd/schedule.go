package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"retailpipe/internal/pipeline"
	"retailpipe/internal/report"
	"retailpipe/internal/ui"
)

var (
	scheduleAt string

	scheduleCmd = &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline daily at a fixed time",
		Long: `Start a long-running scheduler that fires the full pipeline once a
day at the configured wall-clock time. Stops on SIGINT or SIGTERM.`,
		RunE: runSchedule,
	}
)

func init() {
	scheduleCmd.Flags().StringVar(&scheduleAt, "at", "", "daily trigger time HH:MM (overrides config)")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := stageLogger(cfg, "scheduler")

	at := cfg.Schedule.At
	if scheduleAt != "" {
		at = scheduleAt
	}

	steps := pipeline.DefaultSteps(cfg.Pipeline.Command)
	if cfgFile != "" {
		for i := range steps {
			steps[i].Args = append(steps[i].Args, "--config", cfgFile)
		}
	}
	runner := pipeline.NewRunner(steps, cfg.Pipeline.Retries, log)

	scheduler, err := pipeline.NewScheduler(at, func(ctx context.Context) {
		execution := runner.Run(ctx)
		reportPath := filepath.Join(cfg.Paths.ReportsDir, "pipeline_execution_report.json")
		if err := report.Write(reportPath, execution); err != nil {
			log.WithError(err).Error("failed to write execution report")
		}
		if execution.Status != report.StatusSuccess {
			ui.ShowError(fmt.Errorf("scheduled pipeline run %s failed", execution.RunID))
			return
		}
		ui.ShowSuccess(fmt.Sprintf("Scheduled pipeline run %s completed", execution.RunID))
	}, log)
	if err != nil {
		return err
	}

	ui.ShowInfo(fmt.Sprintf("Scheduler started, pipeline fires daily at %s", at))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Start(ctx); err == context.Canceled {
		ui.ShowInfo("Scheduler stopped")
		return nil
	} else if err != nil {
		return err
	}
	return nil
}
