package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"retailpipe/internal/db"
	"retailpipe/internal/generate"
	"retailpipe/internal/report"
	"retailpipe/pkg/errors"
)

// tableFiles maps staging tables to their CSV artifacts, in load order
var tableFiles = []struct {
	Table string
	File  string
}{
	{"staging.customers", generate.CustomersFile},
	{"staging.products", generate.ProductsFile},
	{"staging.transactions", generate.TransactionsFile},
	{"staging.transaction_items", generate.ItemsFile},
}

// Summary is the ingestion_summary.json payload
type Summary struct {
	RunID        string            `json:"run_id"`
	StartTime    string            `json:"start_time"`
	TablesLoaded map[string]string `json:"tables_loaded"`
	Status       string            `json:"status"`
	Error        string            `json:"error,omitempty"`
	EndTime      string            `json:"end_time"`
}

// Loader bulk-inserts the generated CSV files into the staging schema
type Loader struct {
	service *db.Service
	rawDir  string
	log     *logrus.Entry
}

// NewLoader creates a staging loader
func NewLoader(service *db.Service, rawDir string, log *logrus.Entry) *Loader {
	return &Loader{service: service, rawDir: rawDir, log: log}
}

// Run loads all four tables inside one transaction. Any failure rolls back
// every table and the summary reports FAILED; the summary itself is returned
// in both cases so the caller can always persist it.
func (l *Loader) Run(ctx context.Context) *Summary {
	summary := &Summary{
		RunID:        uuid.NewString(),
		StartTime:    time.Now().UTC().Format(time.RFC3339),
		TablesLoaded: make(map[string]string),
		Status:       report.StatusSuccess,
	}

	err := l.service.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, tf := range tableFiles {
			path := filepath.Join(l.rawDir, tf.File)
			rows, err := l.loadTable(ctx, tx, path, tf.Table)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeSQLExecution,
					fmt.Sprintf("Failed to load %s", tf.Table)).
					WithContext("table", tf.Table).
					WithContext("file", tf.File)
			}
			summary.TablesLoaded[tf.Table] = tf.File
			l.log.WithFields(logrus.Fields{"table": tf.Table, "rows": rows}).Info("table loaded")
		}
		return nil
	})

	if err != nil {
		summary.Status = report.StatusFailed
		summary.Error = err.Error()
		l.log.WithError(err).Error("ingestion rolled back")
	}

	summary.EndTime = time.Now().UTC().Format(time.RFC3339)
	return summary
}

// loadTable streams one CSV file into its staging table. The column list is
// taken from the file header; the loader trusts file columns to match the
// table columns and performs no type validation.
func (l *Loader) loadTable(ctx context.Context, tx *sql.Tx, path, table string) (int, error) {
	f, err := os.Open(path) // #nosec G304 - path built from validated raw dir
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeFileNotFound,
			fmt.Sprintf("Failed to open %s", path))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStatement(table, header))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read row %d of %s: %w", count+1, path, err)
		}

		args := make([]interface{}, len(record))
		for i, v := range record {
			args[i] = v
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func insertStatement(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ","),
		strings.Join(placeholders, ","),
	)
}
