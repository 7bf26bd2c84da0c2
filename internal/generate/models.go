package generate

import (
	"strconv"
	"time"
)

// Customer is one row of the generated customer dataset
type Customer struct {
	CustomerID       string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	RegistrationDate time.Time
	City             string
	State            string
	Country          string
	AgeGroup         string
}

// Product is one row of the generated product catalog
type Product struct {
	ProductID     string
	ProductName   string
	Category      string
	SubCategory   string
	Price         float64
	Cost          float64
	Brand         string
	StockQuantity int
	SupplierID    string
}

// Transaction is one generated order. TotalAmount starts at zero and is
// backfilled once all of its line items exist.
type Transaction struct {
	TransactionID   string
	CustomerID      string
	TransactionDate time.Time
	TransactionTime string
	PaymentMethod   string
	ShippingAddress string
	TotalAmount     float64
}

// TransactionItem is one line of a transaction
type TransactionItem struct {
	ItemID             string
	TransactionID      string
	ProductID          string
	Quantity           int
	UnitPrice          float64
	DiscountPercentage int
	LineTotal          float64
}

// CSV headers, in the column order the staging tables expect

var customerHeader = []string{
	"customer_id", "first_name", "last_name", "email", "phone",
	"registration_date", "city", "state", "country", "age_group",
}

var productHeader = []string{
	"product_id", "product_name", "category", "sub_category",
	"price", "cost", "brand", "stock_quantity", "supplier_id",
}

var transactionHeader = []string{
	"transaction_id", "customer_id", "transaction_date", "transaction_time",
	"payment_method", "shipping_address", "total_amount",
}

var itemHeader = []string{
	"item_id", "transaction_id", "product_id", "quantity",
	"unit_price", "discount_percentage", "line_total",
}

func (c Customer) record() []string {
	return []string{
		c.CustomerID, c.FirstName, c.LastName, c.Email, c.Phone,
		c.RegistrationDate.Format("2006-01-02"),
		c.City, c.State, c.Country, c.AgeGroup,
	}
}

func (p Product) record() []string {
	return []string{
		p.ProductID, p.ProductName, p.Category, p.SubCategory,
		formatMoney(p.Price), formatMoney(p.Cost),
		p.Brand, strconv.Itoa(p.StockQuantity), p.SupplierID,
	}
}

func (t Transaction) record() []string {
	return []string{
		t.TransactionID, t.CustomerID,
		t.TransactionDate.Format("2006-01-02"), t.TransactionTime,
		t.PaymentMethod, t.ShippingAddress, formatMoney(t.TotalAmount),
	}
}

func (i TransactionItem) record() []string {
	return []string{
		i.ItemID, i.TransactionID, i.ProductID, strconv.Itoa(i.Quantity),
		formatMoney(i.UnitPrice), strconv.Itoa(i.DiscountPercentage),
		formatMoney(i.LineTotal),
	}
}

func formatMoney(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
