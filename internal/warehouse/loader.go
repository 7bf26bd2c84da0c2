package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"retailpipe/internal/db"
	"retailpipe/internal/report"
	"retailpipe/internal/transform"
	"retailpipe/pkg/errors"
)

// Summary is the warehouse_load_summary.json payload
type Summary struct {
	RunID        string            `json:"run_id"`
	StartTime    string            `json:"start_time"`
	TablesLoaded map[string]string `json:"tables_loaded"`
	Status       string            `json:"status"`
	Error        string            `json:"error,omitempty"`
	EndTime      string            `json:"end_time"`
}

// Loader rebuilds the star schema from production data. Every run truncates
// and fully replaces all five tables; dimension rows are stamped current but
// no historical versions are kept.
type Loader struct {
	service *db.Service
	log     *logrus.Entry
	now     func() time.Time
}

// NewLoader creates a warehouse loader
func NewLoader(service *db.Service, log *logrus.Entry) *Loader {
	return &Loader{service: service, log: log, now: time.Now}
}

// Run rebuilds the star schema inside one transaction. The summary is
// returned regardless of outcome.
func (l *Loader) Run(ctx context.Context) *Summary {
	summary := &Summary{
		RunID:        uuid.NewString(),
		StartTime:    time.Now().UTC().Format(time.RFC3339),
		TablesLoaded: make(map[string]string),
		Status:       report.StatusSuccess,
	}

	err := l.service.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := l.loadDimDate(ctx, tx); err != nil {
			return errors.Wrap(err, errors.ErrCodeSQLExecution, "Failed to load warehouse.dim_date")
		}
		summary.TablesLoaded["warehouse.dim_date"] = report.StatusSuccess

		paymentKeys, err := l.loadDimPaymentMethod(ctx, tx)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSQLExecution, "Failed to load warehouse.dim_payment_method")
		}
		summary.TablesLoaded["warehouse.dim_payment_method"] = report.StatusSuccess

		customerKeys, err := l.loadDimCustomers(ctx, tx)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSQLExecution, "Failed to load warehouse.dim_customers")
		}
		summary.TablesLoaded["warehouse.dim_customers"] = report.StatusSuccess

		productKeys, productCosts, err := l.loadDimProducts(ctx, tx)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSQLExecution, "Failed to load warehouse.dim_products")
		}
		summary.TablesLoaded["warehouse.dim_products"] = report.StatusSuccess

		facts, err := l.loadFactSales(ctx, tx, paymentKeys, customerKeys, productKeys, productCosts)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSQLExecution, "Failed to load warehouse.fact_sales")
		}
		summary.TablesLoaded["warehouse.fact_sales"] = report.StatusSuccess
		l.log.WithField("fact_rows", facts).Info("star schema rebuilt")

		return nil
	})

	if err != nil {
		summary.Status = report.StatusFailed
		summary.Error = err.Error()
		l.log.WithError(err).Error("warehouse load rolled back")
	}

	summary.EndTime = time.Now().UTC().Format(time.RFC3339)
	return summary
}

// loadDimDate builds one row per distinct transaction date
func (l *Loader) loadDimDate(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE warehouse.dim_date CASCADE"); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT DISTINCT transaction_date::text FROM production.transactions")
	if err != nil {
		return err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid transaction_date %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO warehouse.dim_date (
			date_key, full_date, year, quarter, month, day,
			month_name, day_name, week_of_year, is_weekend
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range dates {
		p := transform.CalendarParts(d)
		if _, err := stmt.ExecContext(ctx,
			p.DateKey, p.FullDate.Format("2006-01-02"), p.Year, p.Quarter, p.Month,
			p.Day, p.MonthName, p.DayName, p.WeekOfYear, p.IsWeekend); err != nil {
			return err
		}
	}

	return nil
}

// loadDimPaymentMethod builds one row per distinct payment method and
// returns method name to surrogate key
func (l *Loader) loadDimPaymentMethod(ctx context.Context, tx *sql.Tx) (map[string]int, error) {
	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE warehouse.dim_payment_method CASCADE"); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		"SELECT DISTINCT payment_method FROM production.transactions ORDER BY payment_method")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	keys := make(map[string]int, len(methods))
	for _, m := range methods {
		var key int
		err := tx.QueryRowContext(ctx, `
			INSERT INTO warehouse.dim_payment_method (payment_method_name, payment_type)
			VALUES ($1, $2) RETURNING payment_method_key`,
			m, transform.PaymentType(m)).Scan(&key)
		if err != nil {
			return nil, err
		}
		keys[m] = key
	}

	return keys, nil
}

// loadDimCustomers builds the customer dimension and returns customer_id to
// surrogate key for the current rows
func (l *Loader) loadDimCustomers(ctx context.Context, tx *sql.Tx) (map[string]int, error) {
	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE warehouse.dim_customers CASCADE"); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT customer_id, first_name, last_name, email, city, state,
		       country, age_group, registration_date::text
		FROM production.customers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type customer struct {
		id, firstName, lastName, email, city, state string
		country, ageGroup, registrationDate         string
	}

	var customers []customer
	for rows.Next() {
		var c customer
		if err := rows.Scan(&c.id, &c.firstName, &c.lastName, &c.email, &c.city,
			&c.state, &c.country, &c.ageGroup, &c.registrationDate); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	effectiveDate := l.now().Format("2006-01-02")
	keys := make(map[string]int, len(customers))

	for _, c := range customers {
		var key int
		err := tx.QueryRowContext(ctx, `
			INSERT INTO warehouse.dim_customers (
				customer_id, full_name, email, city, state, country,
				age_group, customer_segment, registration_date,
				effective_date, is_current
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
			RETURNING customer_key`,
			c.id, c.firstName+" "+c.lastName, c.email, c.city, c.state, c.country,
			c.ageGroup, transform.CustomerSegment(c.ageGroup), c.registrationDate,
			effectiveDate).Scan(&key)
		if err != nil {
			return nil, err
		}
		keys[c.id] = key
	}

	return keys, nil
}

// loadDimProducts builds the product dimension and returns product_id to
// surrogate key plus each product's cost for the profit measure
func (l *Loader) loadDimProducts(ctx context.Context, tx *sql.Tx) (map[string]int, map[string]float64, error) {
	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE warehouse.dim_products CASCADE"); err != nil {
		return nil, nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, product_name, category, sub_category, brand, price, cost
		FROM production.products`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	type product struct {
		id, name, category, subCategory, brand string
		price, cost                            float64
	}

	var products []product
	for rows.Next() {
		var p product
		if err := rows.Scan(&p.id, &p.name, &p.category, &p.subCategory,
			&p.brand, &p.price, &p.cost); err != nil {
			return nil, nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	effectiveDate := l.now().Format("2006-01-02")
	keys := make(map[string]int, len(products))
	costs := make(map[string]float64, len(products))

	for _, p := range products {
		var key int
		err := tx.QueryRowContext(ctx, `
			INSERT INTO warehouse.dim_products (
				product_id, product_name, category, sub_category, brand,
				price_range, effective_date, is_current
			) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
			RETURNING product_key`,
			p.id, p.name, p.category, p.subCategory, p.brand,
			transform.PriceRange(p.price), effectiveDate).Scan(&key)
		if err != nil {
			return nil, nil, err
		}
		keys[p.id] = key
		costs[p.id] = p.cost
	}

	return keys, costs, nil
}

// loadFactSales builds one fact row per production transaction item, keyed
// by the surrogate keys of the current dimension rows
func (l *Loader) loadFactSales(ctx context.Context, tx *sql.Tx,
	paymentKeys, customerKeys, productKeys map[string]int,
	productCosts map[string]float64) (int, error) {

	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE warehouse.fact_sales CASCADE"); err != nil {
		return 0, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT ti.transaction_id, ti.product_id, ti.quantity, ti.unit_price,
		       ti.line_total, t.transaction_date::text, t.payment_method, t.customer_id
		FROM production.transaction_items ti
		JOIN production.transactions t ON ti.transaction_id = t.transaction_id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	type item struct {
		transactionID, productID        string
		quantity                        int
		unitPrice, lineTotal            float64
		date, paymentMethod, customerID string
	}

	var items []item
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.transactionID, &it.productID, &it.quantity,
			&it.unitPrice, &it.lineTotal, &it.date, &it.paymentMethod,
			&it.customerID); err != nil {
			return 0, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO warehouse.fact_sales (
			date_key, customer_key, product_key, payment_method_key,
			transaction_id, quantity, unit_price, discount_amount,
			line_total, profit
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, it := range items {
		d, err := time.Parse("2006-01-02", it.date)
		if err != nil {
			return 0, fmt.Errorf("invalid transaction_date %q: %w", it.date, err)
		}

		customerKey, ok := customerKeys[it.customerID]
		if !ok {
			return 0, fmt.Errorf("no dimension row for customer %s", it.customerID)
		}
		productKey, ok := productKeys[it.productID]
		if !ok {
			return 0, fmt.Errorf("no dimension row for product %s", it.productID)
		}
		paymentKey, ok := paymentKeys[it.paymentMethod]
		if !ok {
			return 0, fmt.Errorf("no dimension row for payment method %s", it.paymentMethod)
		}

		discountAmount := round2(it.unitPrice*float64(it.quantity) - it.lineTotal)
		profit := round2(it.lineTotal - float64(it.quantity)*productCosts[it.productID])

		if _, err := stmt.ExecContext(ctx,
			transform.DateKey(d), customerKey, productKey, paymentKey,
			it.transactionID, it.quantity, it.unitPrice, discountAmount,
			it.lineTotal, profit); err != nil {
			return 0, err
		}
	}

	return len(items), nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
