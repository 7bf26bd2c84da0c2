package transform

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"retailpipe/internal/db"
	"retailpipe/internal/report"
	"retailpipe/pkg/errors"
)

// tableSpec describes one staging table and how its rows are cleaned on the
// way into production. Normalize mutates the row in place; tables without a
// normalizer are copied verbatim.
type tableSpec struct {
	Staging    string
	Production string
	Columns    []string
	Normalize  func(row []string)
}

var tableSpecs = []tableSpec{
	{
		Staging:    "staging.customers",
		Production: "production.customers",
		Columns: []string{
			"customer_id", "first_name", "last_name", "email", "phone",
			"registration_date", "city", "state", "country", "age_group",
		},
		Normalize: func(row []string) {
			row[1] = TitleCase(row[1])
			row[2] = TitleCase(row[2])
			row[3] = NormalizeEmail(row[3])
		},
	},
	{
		Staging:    "staging.products",
		Production: "production.products",
		Columns: []string{
			"product_id", "product_name", "category", "sub_category",
			"price", "cost", "brand", "stock_quantity", "supplier_id",
		},
		Normalize: func(row []string) {
			row[1] = TitleCase(row[1])
		},
	},
	{
		Staging:    "staging.transactions",
		Production: "production.transactions",
		Columns: []string{
			"transaction_id", "customer_id", "transaction_date", "transaction_time",
			"payment_method", "shipping_address", "total_amount",
		},
	},
	{
		Staging:    "staging.transaction_items",
		Production: "production.transaction_items",
		Columns: []string{
			"item_id", "transaction_id", "product_id", "quantity",
			"unit_price", "discount_percentage", "line_total",
		},
	},
}

// Summary is the transformation_summary.json payload
type Summary struct {
	RunID        string            `json:"run_id"`
	StartTime    string            `json:"start_time"`
	TablesLoaded map[string]string `json:"tables_loaded"`
	Status       string            `json:"status"`
	Error        string            `json:"error,omitempty"`
	EndTime      string            `json:"end_time"`
}

// Transformer moves cleaned staging rows into the production schema
type Transformer struct {
	service *db.Service
	log     *logrus.Entry
}

// NewTransformer creates a staging-to-production transformer
func NewTransformer(service *db.Service, log *logrus.Entry) *Transformer {
	return &Transformer{service: service, log: log}
}

// Run truncates and repopulates all four production tables in one
// transaction. The summary is returned regardless of outcome.
func (t *Transformer) Run(ctx context.Context) *Summary {
	summary := &Summary{
		RunID:        uuid.NewString(),
		StartTime:    time.Now().UTC().Format(time.RFC3339),
		TablesLoaded: make(map[string]string),
		Status:       report.StatusSuccess,
	}

	err := t.service.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, spec := range tableSpecs {
			rows, err := t.loadTable(ctx, tx, spec)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeSQLExecution,
					fmt.Sprintf("Failed to load %s", spec.Production)).
					WithContext("table", spec.Production)
			}
			summary.TablesLoaded[spec.Production] = report.StatusSuccess
			t.log.WithFields(logrus.Fields{"table": spec.Production, "rows": rows}).Info("table transformed")
		}
		return nil
	})

	if err != nil {
		summary.Status = report.StatusFailed
		summary.Error = err.Error()
		t.log.WithError(err).Error("transformation rolled back")
	}

	summary.EndTime = time.Now().UTC().Format(time.RFC3339)
	return summary
}

func (t *Transformer) loadTable(ctx context.Context, tx *sql.Tx, spec tableSpec) (int, error) {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", spec.Production)); err != nil {
		return 0, err
	}

	selectStmt := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(spec.Columns, ", "), spec.Staging)

	rows, err := tx.QueryContext(ctx, selectStmt)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		record := make([]string, len(spec.Columns))
		scanTargets := make([]interface{}, len(spec.Columns))
		for i := range record {
			scanTargets[i] = &record[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return 0, err
		}
		if spec.Normalize != nil {
			spec.Normalize(record)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	placeholders := make([]string, len(spec.Columns))
	for i := range spec.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insertStmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		spec.Production,
		strings.Join(spec.Columns, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.PrepareContext(ctx, insertStmt)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, record := range records {
		args := make([]interface{}, len(record))
		for i, v := range record {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, err
		}
	}

	return len(records), nil
}
