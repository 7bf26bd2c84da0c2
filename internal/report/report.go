package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"retailpipe/internal/common"
)

// Stage status values used across every summary and report file
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Write persists a report as indented JSON, creating parent directories as
// needed. Every stage writes its report unconditionally, success or failure.
func Write(path string, report interface{}) error {
	if err := common.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}

	return nil
}

// Read loads a report file into out; used by the monitor
func Read(path string, out interface{}) error {
	data, err := os.ReadFile(path) // #nosec G304 - report paths come from config
	if err != nil {
		return fmt.Errorf("failed to read report %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return nil
}
