package warehouse

import (
	"context"

	"fintechbi/internal/transform"
	"fintechbi/pkg/models"
)

// LoadResult maps each table to the rows written to it.
type LoadResult map[string]int

// Load creates the schema if needed and upserts the batch, dimensions first.
// Each table commits independently, so a failure on a later table leaves the
// earlier ones loaded.
func (w *Warehouse) Load(ctx context.Context, batch transform.Batch) (LoadResult, error) {
	if err := w.CreateTables(ctx); err != nil {
		return nil, err
	}

	steps := []struct {
		table Table
		rows  [][]interface{}
	}{
		{UsersTable, UserRows(batch.Users)},
		{ProductsTable, ProductRows(batch.Products)},
		{TransactionsTable, TransactionRows(batch.Transactions)},
	}

	result := make(LoadResult, len(steps))
	for _, step := range steps {
		if err := w.Upsert(ctx, step.table, step.rows); err != nil {
			return result, err
		}
		result[step.table.Name] = len(step.rows)
		w.logger.WithField("table", step.table.Name).Infof("Loaded %d rows", len(step.rows))
	}
	return result, nil
}

// UserRows converts users to dim_users rows
func UserRows(users []models.User) [][]interface{} {
	rows := make([][]interface{}, len(users))
	for i, u := range users {
		rows[i] = []interface{}{u.UserID, u.SignupDt.Format(models.DateLayout), u.Segment, u.Region}
	}
	return rows
}

// ProductRows converts products to dim_products rows
func ProductRows(products []models.Product) [][]interface{} {
	rows := make([][]interface{}, len(products))
	for i, p := range products {
		rows[i] = []interface{}{p.ProductID, p.ProductName, p.Category, p.Active}
	}
	return rows
}

// TransactionRows converts transactions to fact_transactions rows
func TransactionRows(txns []models.Transaction) [][]interface{} {
	rows := make([][]interface{}, len(txns))
	for i, t := range txns {
		rows[i] = []interface{}{t.TxnID, t.UserID, t.ProductID, t.Amount, t.TxnTs.Format(models.TimestampLayout), t.Status}
	}
	return rows
}
