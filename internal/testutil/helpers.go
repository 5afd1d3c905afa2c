// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fintechbi/internal/config"
	"fintechbi/internal/observability"
	"fintechbi/internal/synth"
	"fintechbi/pkg/models"
)

// TransactionsHeader is the header line of a transactions source.
const TransactionsHeader = "txn_id,user_id,product_id,amount,txn_ts,status\n"

// DefaultUsers is a users source with U000001 and U000002.
const DefaultUsers = `[
  {"user_id": "U000001", "signup_dt": "2025-07-01", "segment": "retail", "region": "CA"},
  {"user_id": "U000002", "signup_dt": "2025-07-02", "segment": "vip", "region": "NY"}
]`

// DefaultProducts is a products source with the single product P001.
const DefaultProducts = "product_id,product_name,category,active\nP001,Debit Card,card,true\n"

// WriteFile writes content under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// SQLiteURL returns a warehouse URL for a database file under dir.
func SQLiteURL(dir string) string {
	return "sqlite://" + filepath.Join(dir, "warehouse", "fintech.db")
}

// Config returns the default configuration with every path redirected into dir.
func Config(dir string) *config.Config {
	cfg := config.Default()
	cfg.Warehouse.URL = SQLiteURL(dir)
	cfg.Sources.TransactionsCSV = filepath.Join(dir, "raw", synth.TransactionsFile)
	cfg.Sources.UsersJSON = filepath.Join(dir, "raw", synth.UsersFile)
	cfg.Sources.ProductsCSV = filepath.Join(dir, "reference", synth.ProductsFile)
	cfg.Synth.RawDir = filepath.Join(dir, "raw")
	cfg.Synth.RefDir = filepath.Join(dir, "reference")
	return cfg
}

// WriteSources writes hand-written sources for cfg. transactions holds data
// rows only; the header is added. Users and products use the defaults.
func WriteSources(t *testing.T, cfg *config.Config, transactions string) {
	t.Helper()
	WriteFile(t, filepath.Dir(cfg.Sources.TransactionsCSV), filepath.Base(cfg.Sources.TransactionsCSV), TransactionsHeader+transactions)
	WriteFile(t, filepath.Dir(cfg.Sources.UsersJSON), filepath.Base(cfg.Sources.UsersJSON), DefaultUsers)
	WriteFile(t, filepath.Dir(cfg.Sources.ProductsCSV), filepath.Base(cfg.Sources.ProductsCSV), DefaultProducts)
}

// Generate writes seed-42 synthetic sources for cfg covering ten days
// from 2025-07-01.
func Generate(t *testing.T, cfg *config.Config, users, products, txns int) *synth.Summary {
	t.Helper()
	start, err := time.Parse(models.DateLayout, "2025-07-01")
	require.NoError(t, err)

	summary, err := synth.Generate(synth.Config{
		Users:     users,
		Products:  products,
		Txns:      txns,
		StartDate: start,
		Days:      10,
		RawDir:    cfg.Synth.RawDir,
		RefDir:    cfg.Synth.RefDir,
		Seed:      42,
	})
	require.NoError(t, err)
	return summary
}

// CaptureLogger returns an info-level JSON logger writing into a buffer.
func CaptureLogger() (*observability.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.LoggerConfig{
		Level:   observability.InfoLevel,
		Output:  &buf,
		Service: "fintechbi",
	})
	return logger, &buf
}
