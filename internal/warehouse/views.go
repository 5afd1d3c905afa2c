package warehouse

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"fintechbi/pkg/errors"
	"fintechbi/pkg/models"
)

// KPI view names
const (
	ViewDAU          = "v_dau"
	ViewGMV          = "v_gmv"
	ViewProductUsage = "v_product_usage"
)

// DAURow is one day of v_dau.
type DAURow struct {
	Day time.Time
	DAU int64
}

// GMVRow is one day of v_gmv.
type GMVRow struct {
	Day        time.Time
	Txns       int64
	GMV        decimal.Decimal
	SettledGMV decimal.Decimal
	FeeRevenue decimal.Decimal
}

// ProductUsageRow is one product of v_product_usage.
type ProductUsageRow struct {
	ProductID   string
	ProductName string
	Category    string
	Txns        int64
	GMV         decimal.Decimal
}

func kpiViews(d *Dialect, feeRate float64) []struct{ name, query string } {
	day := d.dateOf("txn_ts")
	fee := strconv.FormatFloat(feeRate, 'f', -1, 64)

	return []struct{ name, query string }{
		{ViewDAU, fmt.Sprintf(`SELECT %s AS d, COUNT(DISTINCT user_id) AS dau
FROM fact_transactions
GROUP BY %s`, day, day)},
		{ViewGMV, fmt.Sprintf(`SELECT %s AS d,
    COUNT(*) AS txns,
    SUM(amount) AS gmv,
    SUM(CASE WHEN status = '%s' THEN amount ELSE 0 END) AS settled_gmv,
    SUM(CASE WHEN status = '%s' THEN amount ELSE 0 END) * %s AS fee_revenue
FROM fact_transactions
GROUP BY %s`, day, models.StatusSettled, models.StatusSettled, fee, day)},
		{ViewProductUsage, `SELECT p.product_id, p.product_name, p.category,
    COUNT(t.txn_id) AS txns,
    COALESCE(SUM(t.amount), 0) AS gmv
FROM dim_products p
LEFT JOIN fact_transactions t ON t.product_id = p.product_id
GROUP BY p.product_id, p.product_name, p.category`},
	}
}

// CreateKPIViews replaces the KPI views. fee_revenue in v_gmv is the
// settled GMV times feeRate, left unrounded.
func (w *Warehouse) CreateKPIViews(ctx context.Context, feeRate float64) error {
	if feeRate < 0 {
		return errors.ValidationError("kpi.fee_rate", feeRate, "must not be negative")
	}
	return w.inTx(ctx, func(q querier) error {
		for _, v := range kpiViews(w.dialect, feeRate) {
			if _, err := q.ExecContext(ctx, "DROP VIEW IF EXISTS "+v.name); err != nil {
				return errors.StorageError(errors.ErrCodeViewCreate, v.name, err)
			}
			if _, err := q.ExecContext(ctx, fmt.Sprintf("CREATE VIEW %s AS\n%s", v.name, v.query)); err != nil {
				return errors.StorageError(errors.ErrCodeViewCreate, v.name, err)
			}
		}
		return nil
	})
}

// DAU reads v_dau ordered by day
func (w *Warehouse) DAU(ctx context.Context) ([]DAURow, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT d, dau FROM "+ViewDAU+" ORDER BY d")
	if err != nil {
		return nil, queryError(ViewDAU, err)
	}
	defer rows.Close()

	var out []DAURow
	for rows.Next() {
		var (
			d   interface{}
			row DAURow
		)
		if err := rows.Scan(&d, &row.DAU); err != nil {
			return nil, queryError(ViewDAU, err)
		}
		if row.Day, err = scanDay(d); err != nil {
			return nil, queryError(ViewDAU, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ViewDAU, err)
	}
	return out, nil
}

// GMV reads v_gmv ordered by day
func (w *Warehouse) GMV(ctx context.Context) ([]GMVRow, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT d, txns, gmv, settled_gmv, fee_revenue FROM "+ViewGMV+" ORDER BY d")
	if err != nil {
		return nil, queryError(ViewGMV, err)
	}
	defer rows.Close()

	var out []GMVRow
	for rows.Next() {
		var (
			d   interface{}
			row GMVRow
		)
		if err := rows.Scan(&d, &row.Txns, &row.GMV, &row.SettledGMV, &row.FeeRevenue); err != nil {
			return nil, queryError(ViewGMV, err)
		}
		if row.Day, err = scanDay(d); err != nil {
			return nil, queryError(ViewGMV, err)
		}
		row.GMV = row.GMV.Round(2)
		row.SettledGMV = row.SettledGMV.Round(2)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ViewGMV, err)
	}
	return out, nil
}

// ProductUsage reads v_product_usage ordered by GMV, highest first
func (w *Warehouse) ProductUsage(ctx context.Context) ([]ProductUsageRow, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT product_id, product_name, category, txns, gmv FROM "+
		ViewProductUsage+" ORDER BY gmv DESC, product_id")
	if err != nil {
		return nil, queryError(ViewProductUsage, err)
	}
	defer rows.Close()

	var out []ProductUsageRow
	for rows.Next() {
		var row ProductUsageRow
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.Category, &row.Txns, &row.GMV); err != nil {
			return nil, queryError(ViewProductUsage, err)
		}
		row.GMV = row.GMV.Round(2)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(ViewProductUsage, err)
	}
	return out, nil
}

// Count returns the number of rows in a table or view
func (w *Warehouse) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, queryError(table, err)
	}
	return n, nil
}

func queryError(name string, err error) error {
	return errors.Wrap(err, errors.ErrCodeQueryFailed, "Failed to query "+name).
		WithContext("relation", name).
		WithSuggestions("Run 'fintechbi run' to build the warehouse and KPI views")
}

// scanDay normalizes a date column read as text or as a driver time.
func scanDay(v interface{}) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case []byte:
		return parseDay(string(d))
	case string:
		return parseDay(d)
	}
	return time.Time{}, fmt.Errorf("unexpected date value %T", v)
}

func parseDay(s string) (time.Time, error) {
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	return time.Parse(models.DateLayout, s)
}
