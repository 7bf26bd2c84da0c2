package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"retailpipe/internal/pipeline"
	"retailpipe/internal/quality"
	"retailpipe/internal/report"
)

// QualityScoreThreshold is the score below which staging data raises an alert
const QualityScoreThreshold = 90.0

// ExecutionReportFile is the runner's report name under the reports directory
const ExecutionReportFile = "pipeline_execution_report.json"

// Report is the monitoring_report.json payload
type Report struct {
	Timestamp      string   `json:"timestamp"`
	PipelineHealth string   `json:"pipeline_health"`
	Alerts         []string `json:"alerts"`
}

// Monitor inspects the stage reports of the latest pipeline run
type Monitor struct {
	reportsDir string
	log        *logrus.Entry
}

// NewMonitor creates a pipeline monitor
func NewMonitor(reportsDir string, log *logrus.Entry) *Monitor {
	return &Monitor{reportsDir: reportsDir, log: log}
}

// Run builds the health report. Reports that do not exist yet are skipped;
// a run is healthy when no alert fires.
func (m *Monitor) Run() *Report {
	rep := &Report{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		PipelineHealth: "healthy",
		Alerts:         []string{},
	}

	m.checkExecution(rep)
	m.checkQuality(rep)

	if len(rep.Alerts) > 0 {
		rep.PipelineHealth = "degraded"
	}

	m.log.WithFields(logrus.Fields{
		"health": rep.PipelineHealth,
		"alerts": len(rep.Alerts),
	}).Info("monitoring report built")

	return rep
}

func (m *Monitor) checkExecution(rep *Report) {
	path := filepath.Join(m.reportsDir, ExecutionReportFile)
	if _, err := os.Stat(path); err != nil {
		return
	}

	var execution pipeline.ExecutionReport
	if err := report.Read(path, &execution); err != nil {
		rep.Alerts = append(rep.Alerts, fmt.Sprintf("unreadable execution report: %v", err))
		return
	}

	if execution.Status == report.StatusFailed {
		for _, step := range execution.Steps {
			if step.State == pipeline.StateFailed {
				rep.Alerts = append(rep.Alerts, fmt.Sprintf(
					"pipeline failed at step %s after %d attempts", step.Name, step.Attempts))
			}
		}
	}
}

func (m *Monitor) checkQuality(rep *Report) {
	path := filepath.Join(m.reportsDir, "quality", "quality_report.json")
	if _, err := os.Stat(path); err != nil {
		return
	}

	var qualityReport quality.Report
	if err := report.Read(path, &qualityReport); err != nil {
		rep.Alerts = append(rep.Alerts, fmt.Sprintf("unreadable quality report: %v", err))
		return
	}

	if qualityReport.OverallQualityScore < QualityScoreThreshold {
		rep.Alerts = append(rep.Alerts, fmt.Sprintf(
			"quality score %.2f below threshold %.0f",
			qualityReport.OverallQualityScore, QualityScoreThreshold))
	}
}
