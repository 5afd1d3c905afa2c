package ingest

import (
	"io"
	"strings"

	"fintechbi/pkg/models"
)

// SourceProducts names the products source in errors and stats.
const SourceProducts = "products"

// ParseActive accepts true, 1 and yes in any case as true.
func ParseActive(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// LoadProducts reads the product catalogue CSV, keeping the first row per product_id.
func LoadProducts(path string) ([]models.Product, Stats, error) {
	var stats Stats

	src, closeFn, err := openCSV(path, models.ProductHeader)
	if err != nil {
		return nil, stats, err
	}
	defer closeFn()

	seen := make(map[string]struct{})
	var products []models.Product
	for {
		record, _, err := src.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, err
		}
		stats.Read++

		id := src.field(record, "product_id")
		if _, dup := seen[id]; dup {
			stats.Duplicates++
			continue
		}
		seen[id] = struct{}{}

		products = append(products, models.Product{
			ProductID:   id,
			ProductName: src.field(record, "product_name"),
			Category:    src.field(record, "category"),
			Active:      ParseActive(src.field(record, "active")),
		})
	}

	stats.Kept = len(products)
	return products, stats, nil
}
