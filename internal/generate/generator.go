package generate

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Category price bands for the product catalog
var categories = map[string][2]float64{
	"Electronics":    {100, 1000},
	"Clothing":       {20, 200},
	"Home & Kitchen": {50, 500},
	"Books":          {10, 100},
	"Sports":         {30, 300},
	"Beauty":         {15, 150},
}

var categoryNames = []string{
	"Electronics", "Clothing", "Home & Kitchen", "Books", "Sports", "Beauty",
}

var ageGroups = []string{"18-25", "26-35", "36-45", "46-60"}

var paymentMethods = []string{
	"Credit Card", "Debit Card", "UPI", "Cash on Delivery", "Net Banking",
}

var discountLevels = []int{0, 5, 10, 15, 20}

// Options configures a generation run
type Options struct {
	Customers    int
	Products     int
	Transactions int
	StartDate    time.Time
	EndDate      time.Time
	Seed         int64 // zero means seed from the clock
}

// Generator produces the four related retail datasets
type Generator struct {
	opts  Options
	rng   *rand.Rand
	faker *Faker
}

// Dataset holds one full generation run
type Dataset struct {
	Customers    []Customer
	Products     []Product
	Transactions []Transaction
	Items        []TransactionItem
}

// IntegrityReport is the result of the post-generation orphan validation
type IntegrityReport struct {
	OrphanTransactions      int    `json:"orphan_transactions"`
	OrphanItemsTransactions int    `json:"orphan_items_transactions"`
	OrphanItemsProducts     int    `json:"orphan_items_products"`
	Status                  string `json:"status"`
}

// NewGenerator creates a generator for the given options
func NewGenerator(opts Options) *Generator {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Generator{opts: opts, rng: rng, faker: NewFaker(rng)}
}

// Generate builds all four datasets with referential integrity by construction
func (g *Generator) Generate() *Dataset {
	ds := &Dataset{}
	ds.Customers = g.generateCustomers()
	ds.Products = g.generateProducts()
	ds.Transactions = g.generateTransactions(ds.Customers)
	ds.Items = g.generateItems(ds.Transactions, ds.Products)
	return ds
}

func (g *Generator) generateCustomers() []Customer {
	customers := make([]Customer, 0, g.opts.Customers)

	for i := 1; i <= g.opts.Customers; i++ {
		customers = append(customers, Customer{
			CustomerID: fmt.Sprintf("CUST%04d", i),
			FirstName:  g.faker.FirstName(),
			LastName:   g.faker.LastName(),
			// Index-derived emails are unique by construction
			Email:            fmt.Sprintf("user%d@example.com", i),
			Phone:            g.faker.Phone(),
			RegistrationDate: g.faker.DateBetween(g.opts.StartDate, g.opts.EndDate),
			City:             g.faker.City(),
			State:            g.faker.State(),
			Country:          "India",
			AgeGroup:         ageGroups[g.rng.Intn(len(ageGroups))],
		})
	}

	return customers
}

func (g *Generator) generateProducts() []Product {
	products := make([]Product, 0, g.opts.Products)

	for i := 1; i <= g.opts.Products; i++ {
		category := categoryNames[g.rng.Intn(len(categoryNames))]
		band := categories[category]

		price := round2(band[0] + g.rng.Float64()*(band[1]-band[0]))
		cost := round2(price * (0.6 + g.rng.Float64()*0.25)) // cost < price

		products = append(products, Product{
			ProductID:     fmt.Sprintf("PROD%04d", i),
			ProductName:   g.faker.Word(),
			Category:      category,
			SubCategory:   g.faker.Word(),
			Price:         price,
			Cost:          cost,
			Brand:         g.faker.Company(),
			StockQuantity: 10 + g.rng.Intn(491),
			SupplierID:    fmt.Sprintf("SUP%03d", 1+g.rng.Intn(50)),
		})
	}

	return products
}

func (g *Generator) generateTransactions(customers []Customer) []Transaction {
	transactions := make([]Transaction, 0, g.opts.Transactions)

	for i := 1; i <= g.opts.Transactions; i++ {
		transactions = append(transactions, Transaction{
			TransactionID:   fmt.Sprintf("TXN%05d", i),
			CustomerID:      customers[g.rng.Intn(len(customers))].CustomerID,
			TransactionDate: g.faker.DateBetween(g.opts.StartDate, g.opts.EndDate),
			TransactionTime: g.faker.TimeOfDay(),
			PaymentMethod:   paymentMethods[g.rng.Intn(len(paymentMethods))],
			ShippingAddress: g.faker.Address(),
			TotalAmount:     0.0, // backfilled from line items
		})
	}

	return transactions
}

// generateItems builds 1-5 line items per transaction from distinct products
// and backfills each transaction's total in a second pass over its lines.
func (g *Generator) generateItems(transactions []Transaction, products []Product) []TransactionItem {
	var items []TransactionItem
	itemCounter := 1

	for ti := range transactions {
		numItems := 1 + g.rng.Intn(5)
		if numItems > len(products) {
			numItems = len(products)
		}

		transactionTotal := 0.0

		for _, pi := range g.rng.Perm(len(products))[:numItems] {
			prod := products[pi]
			quantity := 1 + g.rng.Intn(4)
			discount := discountLevels[g.rng.Intn(len(discountLevels))]

			lineTotal := round2(float64(quantity) * prod.Price * (1 - float64(discount)/100))
			transactionTotal += lineTotal

			items = append(items, TransactionItem{
				ItemID:             fmt.Sprintf("ITEM%05d", itemCounter),
				TransactionID:      transactions[ti].TransactionID,
				ProductID:          prod.ProductID,
				Quantity:           quantity,
				UnitPrice:          prod.Price,
				DiscountPercentage: discount,
				LineTotal:          lineTotal,
			})

			itemCounter++
		}

		transactions[ti].TotalAmount = round2(transactionTotal)
	}

	return items
}

// ValidateReferentialIntegrity recomputes the three orphan counts instead of
// assuming construction got them right
func ValidateReferentialIntegrity(ds *Dataset) IntegrityReport {
	customerIDs := make(map[string]struct{}, len(ds.Customers))
	for _, c := range ds.Customers {
		customerIDs[c.CustomerID] = struct{}{}
	}

	productIDs := make(map[string]struct{}, len(ds.Products))
	for _, p := range ds.Products {
		productIDs[p.ProductID] = struct{}{}
	}

	transactionIDs := make(map[string]struct{}, len(ds.Transactions))
	for _, t := range ds.Transactions {
		transactionIDs[t.TransactionID] = struct{}{}
	}

	var report IntegrityReport

	for _, t := range ds.Transactions {
		if _, ok := customerIDs[t.CustomerID]; !ok {
			report.OrphanTransactions++
		}
	}

	for _, item := range ds.Items {
		if _, ok := transactionIDs[item.TransactionID]; !ok {
			report.OrphanItemsTransactions++
		}
		if _, ok := productIDs[item.ProductID]; !ok {
			report.OrphanItemsProducts++
		}
	}

	if report.OrphanTransactions == 0 &&
		report.OrphanItemsTransactions == 0 &&
		report.OrphanItemsProducts == 0 {
		report.Status = "PASS"
	} else {
		report.Status = "FAIL"
	}

	return report
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
