package ingest

import (
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"fintechbi/pkg/errors"
	"fintechbi/pkg/models"
)

// SourceTransactions names the transactions source in errors and stats.
const SourceTransactions = "transactions"

// LoadTransactions reads the transactions CSV. Duplicate txn_id rows after the
// first are dropped, as are rows whose txn_ts cannot be parsed. Validated rows
// that violate the schema abort the load.
func LoadTransactions(path string, opts Options) ([]models.Transaction, Stats, error) {
	var stats Stats

	src, closeFn, err := openCSV(path, models.TransactionHeader)
	if err != nil {
		return nil, stats, err
	}
	defer closeFn()

	seen := make(map[string]struct{})
	var txns []models.Transaction

	for {
		record, line, err := src.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, err
		}
		stats.Read++

		id := src.field(record, "txn_id")
		if _, dup := seen[id]; dup {
			stats.Duplicates++
			continue
		}
		seen[id] = struct{}{}

		ts, ok := parseTime(src.field(record, "txn_ts"), timestampLayouts)
		if !ok {
			stats.Malformed++
			continue
		}

		checked := opts.validates(len(txns))
		amount, err := decimal.NewFromString(src.field(record, "amount"))
		if err != nil {
			if checked {
				return nil, stats, errors.SchemaError(SourceTransactions, line, err).
					WithContext("column", "amount")
			}
			stats.Malformed++
			continue
		}

		txn := models.Transaction{
			TxnID:     id,
			UserID:    src.field(record, "user_id"),
			ProductID: src.field(record, "product_id"),
			Amount:    amount,
			TxnTs:     ts,
			Status:    strings.ToLower(src.field(record, "status")),
		}
		if checked {
			if err := validate.Struct(txn); err != nil {
				return nil, stats, errors.SchemaError(SourceTransactions, line, err)
			}
		}
		txns = append(txns, txn)
	}

	stats.Kept = len(txns)
	return txns, stats, nil
}
