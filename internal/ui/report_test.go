package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fintechbi/internal/ingest"
	"fintechbi/internal/pipeline"
	"fintechbi/internal/synth"
	"fintechbi/internal/warehouse"
)

func TestShowRunReport(t *testing.T) {
	buf := captureOutput(t)

	ShowRunReport(&pipeline.Report{
		RunID:     "3f1c",
		Warehouse: "sqlite://dw.db",
		Sources: map[string]ingest.Stats{
			ingest.SourceTransactions: {Read: 5, Duplicates: 1, Kept: 4},
			ingest.SourceUsers:        {Read: 2, Kept: 2},
			ingest.SourceProducts:     {Read: 2, Kept: 2},
		},
		Excluded: map[string]int{"pending": 1},
		Orphans:  2,
		Loaded: warehouse.LoadResult{
			warehouse.TableUsers:        2,
			warehouse.TableProducts:     2,
			warehouse.TableTransactions: 3,
		},
		Duration: 1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "Pipeline Run 3f1c")
	assert.Contains(t, out, "sqlite://dw.db")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "transactions")
	assert.Contains(t, out, "Excluded 1 pending transaction(s)")
	assert.Contains(t, out, "2 transaction(s) reference unknown users or products")
	assert.Contains(t, out, warehouse.TableTransactions)
	assert.Contains(t, out, "SUCCESS:")
}

func TestShowGenerateSummary(t *testing.T) {
	buf := captureOutput(t)

	ShowGenerateSummary(&synth.Summary{
		Products:         3,
		Users:            10,
		Txns:             20000,
		ProductsPath:     "ref/products.csv",
		UsersPath:        "raw/users.json",
		TransactionsPath: "raw/transactions.csv",
	})

	out := buf.String()
	assert.Contains(t, out, "Wrote 3 products to ref/products.csv")
	assert.Contains(t, out, "Wrote 10 users to raw/users.json")
	assert.Contains(t, out, "Wrote 20,000 transactions to raw/transactions.csv")
}
