package quality

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"retailpipe/internal/db"
)

// Report is the quality_report.json payload
type Report struct {
	CheckTimestamp      string  `json:"check_timestamp"`
	Checks              Checks  `json:"checks"`
	OverallQualityScore float64 `json:"overall_quality_score"`
}

// Checks groups the check battery results by family
type Checks struct {
	NullChecks           map[string]int `json:"null_checks"`
	DuplicateChecks      map[string]int `json:"duplicate_checks"`
	ReferentialIntegrity map[string]int `json:"referential_integrity"`
	RangeChecks          map[string]int `json:"range_checks"`
	ConsistencyChecks    map[string]int `json:"consistency_checks"`
}

// Checker runs the aggregate check battery against the staging schema.
// It is read-only; no check mutates data.
type Checker struct {
	service *db.Service
	log     *logrus.Entry
}

// NewChecker creates a quality checker
func NewChecker(service *db.Service, log *logrus.Entry) *Checker {
	return &Checker{service: service, log: log}
}

const (
	queryNullEmails = `SELECT COUNT(*) FROM staging.customers WHERE email IS NULL`

	queryDuplicateCustomers = `
		SELECT COUNT(*) FROM (
			SELECT customer_id
			FROM staging.customers
			GROUP BY customer_id
			HAVING COUNT(*) > 1
		) sub`

	queryOrphanTransactions = `
		SELECT COUNT(*)
		FROM staging.transactions t
		LEFT JOIN staging.customers c
		ON t.customer_id = c.customer_id
		WHERE c.customer_id IS NULL`

	queryOrphanItemsTransactions = `
		SELECT COUNT(*)
		FROM staging.transaction_items ti
		LEFT JOIN staging.transactions t
		ON ti.transaction_id = t.transaction_id
		WHERE t.transaction_id IS NULL`

	queryOrphanItemsProducts = `
		SELECT COUNT(*)
		FROM staging.transaction_items ti
		LEFT JOIN staging.products p
		ON ti.product_id = p.product_id
		WHERE p.product_id IS NULL`

	queryInvalidPrices = `SELECT COUNT(*) FROM staging.products WHERE price <= 0`

	queryInvalidDiscounts = `
		SELECT COUNT(*)
		FROM staging.transaction_items
		WHERE discount_percentage < 0 OR discount_percentage > 100`

	// 0.01 tolerance absorbs the 2-decimal rounding applied at generation time
	queryInconsistentLines = `
		SELECT COUNT(*)
		FROM staging.transaction_items
		WHERE ABS(
			line_total - (quantity * unit_price * (1 - discount_percentage / 100.0))
		) > 0.01`

	queryTotalItems = `SELECT COUNT(*) FROM staging.transaction_items`
)

// Run executes the full battery and computes the quality score. On a query
// error the partially filled report is returned together with the error so
// the caller can still flush whatever checks completed.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	rep := &Report{
		CheckTimestamp: time.Now().UTC().Format(time.RFC3339),
		Checks: Checks{
			NullChecks:           make(map[string]int),
			DuplicateChecks:      make(map[string]int),
			ReferentialIntegrity: make(map[string]int),
			RangeChecks:          make(map[string]int),
			ConsistencyChecks:    make(map[string]int),
		},
	}

	nullEmails, err := c.service.QueryInt(ctx, queryNullEmails)
	if err != nil {
		return rep, err
	}
	rep.Checks.NullChecks["customers.email"] = nullEmails

	duplicates, err := c.service.QueryInt(ctx, queryDuplicateCustomers)
	if err != nil {
		return rep, err
	}
	rep.Checks.DuplicateChecks["duplicate_customers"] = duplicates

	orphanTxns, err := c.service.QueryInt(ctx, queryOrphanTransactions)
	if err != nil {
		return rep, err
	}
	rep.Checks.ReferentialIntegrity["orphan_transactions"] = orphanTxns

	orphanItemsTxns, err := c.service.QueryInt(ctx, queryOrphanItemsTransactions)
	if err != nil {
		return rep, err
	}
	rep.Checks.ReferentialIntegrity["orphan_items_transactions"] = orphanItemsTxns

	orphanItemsProds, err := c.service.QueryInt(ctx, queryOrphanItemsProducts)
	if err != nil {
		return rep, err
	}
	rep.Checks.ReferentialIntegrity["orphan_items_products"] = orphanItemsProds

	invalidPrices, err := c.service.QueryInt(ctx, queryInvalidPrices)
	if err != nil {
		return rep, err
	}
	rep.Checks.RangeChecks["invalid_prices"] = invalidPrices

	invalidDiscounts, err := c.service.QueryInt(ctx, queryInvalidDiscounts)
	if err != nil {
		return rep, err
	}
	rep.Checks.RangeChecks["invalid_discounts"] = invalidDiscounts

	inconsistent, err := c.service.QueryInt(ctx, queryInconsistentLines)
	if err != nil {
		return rep, err
	}
	rep.Checks.ConsistencyChecks["inconsistent_line_totals"] = inconsistent

	totalItems, err := c.service.QueryInt(ctx, queryTotalItems)
	if err != nil {
		return rep, err
	}

	rep.OverallQualityScore = Score(inconsistent, totalItems)
	c.log.WithField("score", rep.OverallQualityScore).Info("quality checks completed")

	return rep, nil
}

// Score grades staging data from the consistency check alone: the penalty is
// the inconsistent-row share of all line items. The other check families are
// reported but deliberately do not feed the score.
func Score(inconsistent, totalItems int) float64 {
	if totalItems == 0 {
		return 100
	}
	penalty := float64(inconsistent) / float64(totalItems) * 100
	return math.Round((100-penalty)*100) / 100
}
