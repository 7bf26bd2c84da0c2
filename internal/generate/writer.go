package generate

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"retailpipe/internal/common"
	"retailpipe/internal/report"
)

// Artifact file names under the raw data directory
const (
	CustomersFile    = "customers.csv"
	ProductsFile     = "products.csv"
	TransactionsFile = "transactions.csv"
	ItemsFile        = "transaction_items.csv"
	MetadataFile     = "generation_metadata.json"
)

// Metadata is the generation_metadata.json payload
type Metadata struct {
	GenerationTimestamp  string          `json:"generation_timestamp"`
	Records              RecordCounts    `json:"records"`
	ReferentialIntegrity IntegrityReport `json:"referential_integrity"`
}

// RecordCounts holds per-dataset row counts
type RecordCounts struct {
	Customers        int `json:"customers"`
	Products         int `json:"products"`
	Transactions     int `json:"transactions"`
	TransactionItems int `json:"transaction_items"`
}

// WriteArtifacts persists the four CSV files and the metadata record. I/O
// errors are fatal to the stage and propagate to the caller unchanged.
func WriteArtifacts(ds *Dataset, integrity IntegrityReport, rawDir string) (*Metadata, error) {
	if err := common.EnsureDir(rawDir); err != nil {
		return nil, err
	}

	if err := writeCSV(filepath.Join(rawDir, CustomersFile), customerHeader, len(ds.Customers),
		func(i int) []string { return ds.Customers[i].record() }); err != nil {
		return nil, err
	}

	if err := writeCSV(filepath.Join(rawDir, ProductsFile), productHeader, len(ds.Products),
		func(i int) []string { return ds.Products[i].record() }); err != nil {
		return nil, err
	}

	if err := writeCSV(filepath.Join(rawDir, TransactionsFile), transactionHeader, len(ds.Transactions),
		func(i int) []string { return ds.Transactions[i].record() }); err != nil {
		return nil, err
	}

	if err := writeCSV(filepath.Join(rawDir, ItemsFile), itemHeader, len(ds.Items),
		func(i int) []string { return ds.Items[i].record() }); err != nil {
		return nil, err
	}

	metadata := &Metadata{
		GenerationTimestamp: time.Now().UTC().Format(time.RFC3339),
		Records: RecordCounts{
			Customers:        len(ds.Customers),
			Products:         len(ds.Products),
			Transactions:     len(ds.Transactions),
			TransactionItems: len(ds.Items),
		},
		ReferentialIntegrity: integrity,
	}

	if err := report.Write(filepath.Join(rawDir, MetadataFile), metadata); err != nil {
		return nil, err
	}

	return metadata, nil
}

func writeCSV(path string, header []string, n int, record func(int) []string) error {
	f, err := os.Create(path) // #nosec G304 - path built from validated raw dir
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}

	for i := 0; i < n; i++ {
		if err := w.Write(record(i)); err != nil {
			return fmt.Errorf("failed to write row %d to %s: %w", i, path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	return nil
}
