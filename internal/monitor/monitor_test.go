package monitor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpipe/internal/pipeline"
	"retailpipe/internal/quality"
	"retailpipe/internal/report"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log.WithField("stage", "monitor-test")
}

func writeQualityReport(t *testing.T, dir string, score float64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "quality"), 0750))
	require.NoError(t, report.Write(
		filepath.Join(dir, "quality", "quality_report.json"),
		&quality.Report{CheckTimestamp: "2024-07-06T02:00:00Z", OverallQualityScore: score}))
}

func TestRunHealthyPipeline(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, report.Write(filepath.Join(dir, ExecutionReportFile), &pipeline.ExecutionReport{
		RunID:  "run-1",
		Status: report.StatusSuccess,
		Steps: []pipeline.StepResult{
			{Name: "data_generation", State: pipeline.StateSucceeded, Attempts: 1},
			{Name: "ingestion", State: pipeline.StateSucceeded, Attempts: 1},
		},
	}))
	writeQualityReport(t, dir, 100)

	rep := NewMonitor(dir, testLogger()).Run()

	assert.Equal(t, "healthy", rep.PipelineHealth)
	assert.Empty(t, rep.Alerts)
	assert.NotEmpty(t, rep.Timestamp)
}

func TestRunAlertsOnFailedStep(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, report.Write(filepath.Join(dir, ExecutionReportFile), &pipeline.ExecutionReport{
		RunID:  "run-2",
		Status: report.StatusFailed,
		Steps: []pipeline.StepResult{
			{Name: "data_generation", State: pipeline.StateSucceeded, Attempts: 1},
			{Name: "ingestion", State: pipeline.StateFailed, Attempts: 3, Error: "exit status 1"},
			{Name: "quality_checks", State: pipeline.StatePending},
		},
	}))

	rep := NewMonitor(dir, testLogger()).Run()

	assert.Equal(t, "degraded", rep.PipelineHealth)
	require.Len(t, rep.Alerts, 1)
	assert.Contains(t, rep.Alerts[0], "ingestion")
	assert.Contains(t, rep.Alerts[0], "3 attempts")
}

func TestRunAlertsOnLowQualityScore(t *testing.T) {
	dir := t.TempDir()
	writeQualityReport(t, dir, 87.5)

	rep := NewMonitor(dir, testLogger()).Run()

	assert.Equal(t, "degraded", rep.PipelineHealth)
	require.Len(t, rep.Alerts, 1)
	assert.Contains(t, rep.Alerts[0], "87.50")
}

func TestRunScoreAtThresholdStaysHealthy(t *testing.T) {
	dir := t.TempDir()
	writeQualityReport(t, dir, 90)

	rep := NewMonitor(dir, testLogger()).Run()

	assert.Equal(t, "healthy", rep.PipelineHealth)
	assert.Empty(t, rep.Alerts)
}

func TestRunWithoutReportsIsHealthy(t *testing.T) {
	rep := NewMonitor(t.TempDir(), testLogger()).Run()

	assert.Equal(t, "healthy", rep.PipelineHealth)
	assert.Empty(t, rep.Alerts)
}
