package warehouse

import (
	"context"
	"fmt"
	"strings"

	"fintechbi/pkg/errors"
)

// Upsert writes rows into table so that each primary key ends up with
// exactly the batch's values. Rows must follow t.Columns order and carry
// unique keys. The whole batch commits or rolls back as one unit; an empty
// batch touches nothing.
func (w *Warehouse) Upsert(ctx context.Context, t Table, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	keyIdx := -1
	for i, c := range t.Columns {
		if c.Name == t.Key {
			keyIdx = i
		}
	}
	if keyIdx < 0 {
		return errors.New(errors.ErrCodeInternal, "Table has no key column").WithContext("table", t.Name)
	}

	err := w.inTx(ctx, func(q querier) error {
		if w.strategy == StrategyNative {
			return w.upsertNative(ctx, q, t, rows)
		}
		return w.deleteInsert(ctx, q, t, rows, keyIdx)
	})
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeUpsertFailed) {
			return err
		}
		return errors.StorageError(errors.ErrCodeUpsertFailed, t.Name, err)
	}

	w.logger.WithFields(map[string]interface{}{
		"table":    t.Name,
		"rows":     len(rows),
		"strategy": w.strategy,
	}).Debug("Upserted batch")
	return nil
}

func (w *Warehouse) upsertNative(ctx context.Context, q querier, t Table, rows [][]interface{}) error {
	cols := t.ColumnNames()
	suffix := upsertClause(w.dialect, t)
	return forChunks(rows, w.dialect.rowsPerStatement(len(cols)), func(chunk [][]interface{}) error {
		query, args := w.insertSQL(t.Name, cols, chunk)
		if _, err := q.ExecContext(ctx, query+" "+suffix, args...); err != nil {
			return errors.StorageError(errors.ErrCodeUpsertFailed, t.Name, err).
				WithContext("strategy", StrategyNative)
		}
		return nil
	})
}

func (w *Warehouse) deleteInsert(ctx context.Context, q querier, t Table, rows [][]interface{}, keyIdx int) error {
	keys := make([]interface{}, len(rows))
	for i, row := range rows {
		keys[i] = row[keyIdx]
	}

	err := forChunks(keys, w.dialect.rowsPerStatement(1), func(chunk []interface{}) error {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", t.Name, t.Key, w.dialect.placeholders(0, len(chunk)))
		if _, err := q.ExecContext(ctx, query, chunk...); err != nil {
			return errors.StorageError(errors.ErrCodeUpsertFailed, t.Name, err).
				WithContext("strategy", StrategyDeleteInsert).
				WithContext("step", "delete")
		}
		return nil
	})
	if err != nil {
		return err
	}

	cols := t.ColumnNames()
	return forChunks(rows, w.dialect.rowsPerStatement(len(cols)), func(chunk [][]interface{}) error {
		query, args := w.insertSQL(t.Name, cols, chunk)
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return errors.StorageError(errors.ErrCodeUpsertFailed, t.Name, err).
				WithContext("strategy", StrategyDeleteInsert).
				WithContext("step", "insert")
		}
		return nil
	})
}

func (w *Warehouse) insertSQL(table string, cols []string, rows [][]interface{}) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(cols, ", "))

	args := make([]interface{}, 0, len(rows)*len(cols))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(w.dialect.placeholders(len(args), len(cols)))
		b.WriteString(")")
		args = append(args, row...)
	}
	return b.String(), args
}

func upsertClause(d *Dialect, t Table) string {
	var sets []string
	for _, c := range t.Columns {
		if c.Name == t.Key {
			continue
		}
		switch d.upsertStyle {
		case upsertOnDuplicateKey:
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c.Name, c.Name))
		default:
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c.Name, c.Name))
		}
	}
	if d.upsertStyle == upsertOnDuplicateKey {
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", t.Key, strings.Join(sets, ", "))
}

func forChunks[T any](items []T, size int, fn func([]T) error) error {
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		if err := fn(items[start:end]); err != nil {
			return err
		}
	}
	return nil
}
