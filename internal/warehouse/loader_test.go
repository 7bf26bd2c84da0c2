package warehouse

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

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
	return log.WithField("stage", "warehouse-test")
}

func expectStarRebuild(mock sqlmock.Sqlmock, effectiveDate string) {
	mock.ExpectBegin()

	// dim_date: one distinct Saturday
	mock.ExpectExec("TRUNCATE TABLE warehouse.dim_date CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT DISTINCT transaction_date::text").
		WillReturnRows(sqlmock.NewRows([]string{"transaction_date"}).AddRow("2024-07-06"))
	datePrep := mock.ExpectPrepare("INSERT INTO warehouse.dim_date")
	datePrep.ExpectExec().
		WithArgs(20240706, "2024-07-06", 2024, 3, 7, 6, "July", "Saturday", 27, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// dim_payment_method
	mock.ExpectExec("TRUNCATE TABLE warehouse.dim_payment_method CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT DISTINCT payment_method").
		WillReturnRows(sqlmock.NewRows([]string{"payment_method"}).AddRow("UPI"))
	mock.ExpectQuery("INSERT INTO warehouse.dim_payment_method").
		WithArgs("UPI", "Online").
		WillReturnRows(sqlmock.NewRows([]string{"payment_method_key"}).AddRow(1))

	// dim_customers
	mock.ExpectExec("TRUNCATE TABLE warehouse.dim_customers CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT customer_id, first_name").
		WillReturnRows(sqlmock.NewRows([]string{
			"customer_id", "first_name", "last_name", "email", "city", "state",
			"country", "age_group", "registration_date",
		}).AddRow("CUST0001", "John", "Doe", "user1@example.com", "Mumbai",
			"Maharashtra", "India", "26-35", "2024-01-15"))
	mock.ExpectQuery("INSERT INTO warehouse.dim_customers").
		WithArgs("CUST0001", "John Doe", "user1@example.com", "Mumbai", "Maharashtra",
			"India", "26-35", "Young", "2024-01-15", effectiveDate).
		WillReturnRows(sqlmock.NewRows([]string{"customer_key"}).AddRow(11))

	// dim_products
	mock.ExpectExec("TRUNCATE TABLE warehouse.dim_products CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT product_id, product_name").
		WillReturnRows(sqlmock.NewRows([]string{
			"product_id", "product_name", "category", "sub_category", "brand", "price", "cost",
		}).AddRow("PROD0001", "Nova", "Electronics", "Audio", "Sharma Brands", 100.0, 70.0))
	mock.ExpectQuery("INSERT INTO warehouse.dim_products").
		WithArgs("PROD0001", "Nova", "Electronics", "Audio", "Sharma Brands",
			"Mid-range", effectiveDate).
		WillReturnRows(sqlmock.NewRows([]string{"product_key"}).AddRow(21))

	// fact_sales: qty 2 at 100.00 with line total 180.00
	mock.ExpectExec("TRUNCATE TABLE warehouse.fact_sales CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT ti.transaction_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"transaction_id", "product_id", "quantity", "unit_price",
			"line_total", "transaction_date", "payment_method", "customer_id",
		}).AddRow("TXN00001", "PROD0001", 2, 100.0, 180.0, "2024-07-06", "UPI", "CUST0001"))
	factPrep := mock.ExpectPrepare("INSERT INTO warehouse.fact_sales")
	factPrep.ExpectExec().
		WithArgs(20240706, 11, 21, 1, "TXN00001", 2, 100.0,
			20.0,  // discount amount: 2*100 - 180
			180.0, // line total
			40.0). // profit: 180 - 2*70
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()
}

func TestRunRebuildsStarSchema(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	fixed := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
	expectStarRebuild(mock, "2024-08-01")

	loader := NewLoader(db.NewServiceWithDB(mockDB), testLogger())
	loader.now = func() time.Time { return fixed }

	summary := loader.Run(context.Background())

	assert.Equal(t, report.StatusSuccess, summary.Status)
	assert.Len(t, summary.TablesLoaded, 5)
	for _, table := range []string{
		"warehouse.dim_date", "warehouse.dim_payment_method",
		"warehouse.dim_customers", "warehouse.dim_products", "warehouse.fact_sales",
	} {
		assert.Equal(t, report.StatusSuccess, summary.TablesLoaded[table], table)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunIsIdempotentOnUnchangedData(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	fixed := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)

	// Two consecutive rebuilds over identical production data issue the same
	// statements with the same arguments
	expectStarRebuild(mock, "2024-08-01")
	expectStarRebuild(mock, "2024-08-01")

	loader := NewLoader(db.NewServiceWithDB(mockDB), testLogger())
	loader.now = func() time.Time { return fixed }

	first := loader.Run(context.Background())
	second := loader.Run(context.Background())

	assert.Equal(t, report.StatusSuccess, first.Status)
	assert.Equal(t, report.StatusSuccess, second.Status)
	assert.Equal(t, first.TablesLoaded, second.TablesLoaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRollsBackOnDimensionFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE TABLE warehouse.dim_date CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT DISTINCT transaction_date::text").
		WillReturnError(fmt.Errorf("relation production.transactions does not exist"))
	mock.ExpectRollback()

	loader := NewLoader(db.NewServiceWithDB(mockDB), testLogger())
	summary := loader.Run(context.Background())

	assert.Equal(t, report.StatusFailed, summary.Status)
	assert.Contains(t, summary.Error, "does not exist")
	assert.Empty(t, summary.TablesLoaded["warehouse.dim_date"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunFailsOnMissingDimensionRow(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectBegin()

	mock.ExpectExec("TRUNCATE TABLE warehouse.dim_date CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT DISTINCT transaction_date::text").
		WillReturnRows(sqlmock.NewRows([]string{"transaction_date"}))
	mock.ExpectPrepare("INSERT INTO warehouse.dim_date")

	mock.ExpectExec("TRUNCATE TABLE warehouse.dim_payment_method CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT DISTINCT payment_method").
		WillReturnRows(sqlmock.NewRows([]string{"payment_method"}))

	mock.ExpectExec("TRUNCATE TABLE warehouse.dim_customers CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT customer_id, first_name").
		WillReturnRows(sqlmock.NewRows([]string{
			"customer_id", "first_name", "last_name", "email", "city", "state",
			"country", "age_group", "registration_date",
		}))

	mock.ExpectExec("TRUNCATE TABLE warehouse.dim_products CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT product_id, product_name").
		WillReturnRows(sqlmock.NewRows([]string{
			"product_id", "product_name", "category", "sub_category", "brand", "price", "cost",
		}))

	// A fact row referencing a customer with no dimension row fails the load
	mock.ExpectExec("TRUNCATE TABLE warehouse.fact_sales CASCADE").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT ti.transaction_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"transaction_id", "product_id", "quantity", "unit_price",
			"line_total", "transaction_date", "payment_method", "customer_id",
		}).AddRow("TXN00001", "PROD0001", 1, 50.0, 50.0, "2024-07-06", "UPI", "CUST0404"))
	mock.ExpectPrepare("INSERT INTO warehouse.fact_sales")

	mock.ExpectRollback()

	loader := NewLoader(db.NewServiceWithDB(mockDB), testLogger())
	summary := loader.Run(context.Background())

	assert.Equal(t, report.StatusFailed, summary.Status)
	assert.Contains(t, summary.Error, "CUST0404")
}
