package transform

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpipe/internal/db"
	"retailpipe/internal/report"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return log.WithField("stage", "transform-test")
}

func customerRows() *sqlmock.Rows {
	return sqlmock.NewRows(tableSpecs[0].Columns).
		AddRow("CUST0001", "john", "DOE", "User1@Example.COM", "9876543210",
			"2024-03-01", "Mumbai", "Maharashtra", "India", "26-35")
}

func emptyRows(spec tableSpec) *sqlmock.Rows {
	return sqlmock.NewRows(spec.Columns)
}

func TestRunNormalizesAndCommits(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()

	// customers: one row, normalized on the way through
	mock.ExpectExec("TRUNCATE TABLE production.customers CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM staging.customers").WillReturnRows(customerRows())
	prep := mock.ExpectPrepare("INSERT INTO production.customers")
	prep.ExpectExec().
		WithArgs("CUST0001", "John", "Doe", "user1@example.com", "9876543210",
			"2024-03-01", "Mumbai", "Maharashtra", "India", "26-35").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// remaining tables: empty pass-through
	for _, spec := range tableSpecs[1:] {
		mock.ExpectExec("TRUNCATE TABLE " + spec.Production + " CASCADE").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM " + spec.Staging).WillReturnRows(emptyRows(spec))
		mock.ExpectPrepare("INSERT INTO " + spec.Production)
	}

	mock.ExpectCommit()

	transformer := NewTransformer(db.NewServiceWithDB(mockDB), testLogger())
	summary := transformer.Run(context.Background())

	assert.Equal(t, report.StatusSuccess, summary.Status)
	assert.Len(t, summary.TablesLoaded, 4)
	assert.Equal(t, report.StatusSuccess, summary.TablesLoaded["production.customers"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRollsBackOnTruncateFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE TABLE production.customers CASCADE").
		WillReturnError(fmt.Errorf("permission denied for schema production"))
	mock.ExpectRollback()

	transformer := NewTransformer(db.NewServiceWithDB(mockDB), testLogger())
	summary := transformer.Run(context.Background())

	assert.Equal(t, report.StatusFailed, summary.Status)
	assert.Contains(t, summary.Error, "permission denied")
	assert.Empty(t, summary.TablesLoaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRollsBackOnInsertFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE TABLE production.customers CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM staging.customers").WillReturnRows(customerRows())
	prep := mock.ExpectPrepare("INSERT INTO production.customers")
	prep.ExpectExec().WillReturnError(fmt.Errorf("null value in column"))
	mock.ExpectRollback()

	transformer := NewTransformer(db.NewServiceWithDB(mockDB), testLogger())
	summary := transformer.Run(context.Background())

	assert.Equal(t, report.StatusFailed, summary.Status)
	// The customers table must not be marked loaded after rollback
	assert.Empty(t, summary.TablesLoaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableSpecsCoverAllProductionTables(t *testing.T) {
	want := []string{
		"production.customers", "production.products",
		"production.transactions", "production.transaction_items",
	}
	var got []string
	for _, spec := range tableSpecs {
		got = append(got, spec.Production)
	}
	assert.Equal(t, want, got)
}
