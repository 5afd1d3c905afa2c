package warehouse

import (
	"context"
	"fmt"
	"strings"

	"fintechbi/pkg/errors"
)

// Table names of the star schema
const (
	TableUsers        = "dim_users"
	TableProducts     = "dim_products"
	TableTransactions = "fact_transactions"
)

// Column is one column of a table definition.
type Column struct {
	Name string
	kind columnKind
}

// ForeignKey references the primary key of another table.
type ForeignKey struct {
	Column string
	Table  string
	Ref    string
}

// Table describes a warehouse table and its primary key.
type Table struct {
	Name        string
	Key         string
	Columns     []Column
	ForeignKeys []ForeignKey
}

// ColumnNames returns the columns in definition order
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

var (
	UsersTable = Table{
		Name: TableUsers,
		Key:  "user_id",
		Columns: []Column{
			{"user_id", kindID},
			{"signup_dt", kindDate},
			{"segment", kindText},
			{"region", kindText},
		},
	}

	ProductsTable = Table{
		Name: TableProducts,
		Key:  "product_id",
		Columns: []Column{
			{"product_id", kindID},
			{"product_name", kindText},
			{"category", kindText},
			{"active", kindBool},
		},
	}

	TransactionsTable = Table{
		Name: TableTransactions,
		Key:  "txn_id",
		Columns: []Column{
			{"txn_id", kindID},
			{"user_id", kindID},
			{"product_id", kindID},
			{"amount", kindAmount},
			{"txn_ts", kindTimestamp},
			{"status", kindText},
		},
		ForeignKeys: []ForeignKey{
			{Column: "user_id", Table: TableUsers, Ref: "user_id"},
			{Column: "product_id", Table: TableProducts, Ref: "product_id"},
		},
	}
)

// Tables lists the schema in load order: dimensions before facts.
var Tables = []Table{UsersTable, ProductsTable, TransactionsTable}

func createTableSQL(d *Dialect, t Table) string {
	lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys))
	for _, c := range t.Columns {
		line := fmt.Sprintf("    %s %s", c.Name, d.columnType(c.kind))
		if c.Name == t.Key {
			line += " PRIMARY KEY"
		}
		lines = append(lines, line)
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s(%s)", fk.Column, fk.Table, fk.Ref))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", t.Name, strings.Join(lines, ",\n"))
}

// CreateTables creates any missing star schema table in one transaction.
// Existing tables and their rows are left alone.
func (w *Warehouse) CreateTables(ctx context.Context) error {
	return w.inTx(ctx, func(q querier) error {
		for _, t := range Tables {
			if _, err := q.ExecContext(ctx, createTableSQL(w.dialect, t)); err != nil {
				return errors.StorageError(errors.ErrCodeSchemaCreate, t.Name, err)
			}
		}
		return nil
	})
}
