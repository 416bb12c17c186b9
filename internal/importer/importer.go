// Package importer loads supplier price lists into the catalog. The input is
// a CSV export with one row per watch.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads supplier CSV exports and inserts/updates products.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

// Run parses CSV rows and upserts one product per row. It stops on the first
// invalid row so partial imports are visible instead of silent.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		product, err := parseRow(record, index)
		if err != nil {
			return imported, err
		}
		if product == nil {
			continue
		}

		if _, err := i.productRepo.Upsert(ctx, *product); err != nil {
			return imported, fmt.Errorf("upsert product %q: %w", product.SKU, err)
		}
		imported++
	}

	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (*domain.Product, error) {
	sku := pick(record, index, "sku")
	name := pick(record, index, "name")
	brand := pick(record, index, "brand")
	priceRaw := pick(record, index, "price")
	currency := pick(record, index, "currency")
	imageURL := pick(record, index, "image_url")

	// Blank separator rows are common in supplier exports.
	if sku == "" && name == "" && priceRaw == "" {
		return nil, nil
	}
	if sku == "" || name == "" || priceRaw == "" {
		return nil, fmt.Errorf("invalid product row (missing required fields) for sku %q", sku)
	}

	price, err := decimal.NewFromString(priceRaw)
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("invalid price %q for sku %q", priceRaw, sku)
	}
	if currency == "" {
		currency = "AED"
	}

	return &domain.Product{
		SKU:      sku,
		Name:     name,
		Brand:    brand,
		Price:    price,
		Currency: strings.ToUpper(currency),
		ImageURL: imageURL,
	}, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
