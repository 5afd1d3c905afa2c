package synth

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"fintechbi/pkg/errors"
	"fintechbi/pkg/models"
)

// Output file names under the raw and reference directories
const (
	UsersFile        = "users.json"
	TransactionsFile = "transactions.csv"
	ProductsFile     = "products.csv"
)

// Summary reports what Generate wrote.
type Summary struct {
	Products         int    `json:"products"`
	Users            int    `json:"users"`
	Txns             int    `json:"txns"`
	ProductsPath     string `json:"products_path"`
	UsersPath        string `json:"users_path"`
	TransactionsPath string `json:"transactions_path"`
}

type userRecord struct {
	UserID   string `json:"user_id"`
	SignupDt string `json:"signup_dt"`
	Segment  string `json:"segment"`
	Region   string `json:"region"`
}

// Generate builds products, users and transactions from cfg.Seed and writes
// them. The same configuration always produces byte-identical files.
func Generate(cfg Config) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.RawDir, cfg.RefDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create output directory").
				WithContext("path", dir)
		}
	}

	rng := NewRand(cfg.Seed)
	products := MakeProducts(cfg.Products, rng)
	users := MakeUsers(cfg.Users, cfg.StartDate, cfg.Days, rng)
	txns := MakeTxns(cfg.Txns, cfg.StartDate, cfg.Days, cfg.Users, cfg.Products, rng)

	summary := &Summary{
		Products:         len(products),
		Users:            len(users),
		Txns:             len(txns),
		ProductsPath:     filepath.Join(cfg.RefDir, ProductsFile),
		UsersPath:        filepath.Join(cfg.RawDir, UsersFile),
		TransactionsPath: filepath.Join(cfg.RawDir, TransactionsFile),
	}

	if err := WriteProducts(summary.ProductsPath, products); err != nil {
		return nil, err
	}
	if err := WriteUsers(summary.UsersPath, users); err != nil {
		return nil, err
	}
	if err := WriteTransactions(summary.TransactionsPath, txns); err != nil {
		return nil, err
	}
	return summary, nil
}

// WriteProducts writes the product catalogue as CSV
func WriteProducts(path string, products []models.Product) error {
	records := make([][]string, 0, len(products))
	for _, p := range products {
		records = append(records, []string{p.ProductID, p.ProductName, p.Category, strconv.FormatBool(p.Active)})
	}
	return writeCSV(path, models.ProductHeader, records)
}

// WriteTransactions writes the transaction log as CSV
func WriteTransactions(path string, txns []models.Transaction) error {
	records := make([][]string, 0, len(txns))
	for _, t := range txns {
		records = append(records, t.Record())
	}
	return writeCSV(path, models.TransactionHeader, records)
}

// WriteUsers writes users as an indented JSON array
func WriteUsers(path string, users []models.User) error {
	records := make([]userRecord, 0, len(users))
	for _, u := range users {
		records = append(records, userRecord{
			UserID:   u.UserID,
			SignupDt: u.SignupDt.Format(models.DateLayout),
			Segment:  u.Segment,
			Region:   u.Region,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "Failed to encode users")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to write users").
			WithContext("path", path)
	}
	return nil
}

func writeCSV(path string, header []string, records [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create file").
			WithContext("path", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrCodeFileOperation, "Failed to close file").
				WithContext("path", path)
		}
	}()

	buf := bufio.NewWriter(f)
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to write header").
			WithContext("path", path)
	}
	if err := w.WriteAll(records); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to write records").
			WithContext("path", path)
	}
	if err := buf.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to flush file").
			WithContext("path", path)
	}
	return nil
}
