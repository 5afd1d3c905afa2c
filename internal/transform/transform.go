// Package transform prepares ingested rows for the warehouse.
package transform

import (
	"fintechbi/pkg/models"
)

// Batch is the set of rows one load writes.
type Batch struct {
	Users        []models.User
	Products     []models.Product
	Transactions []models.Transaction
}

// Result is a Batch plus what the transform observed on the way.
type Result struct {
	Batch
	// Excluded counts transactions per status that is not load eligible.
	Excluded map[string]int
	// Orphans counts facts whose user or product is absent from the batch.
	// They are loaded regardless.
	Orphans int
}

// ExcludedTotal sums Excluded
func (r Result) ExcludedTotal() int {
	total := 0
	for _, n := range r.Excluded {
		total += n
	}
	return total
}

// FilterLoadEligible keeps settled, refunded and chargeback transactions in
// input order and counts the rest by status.
func FilterLoadEligible(txns []models.Transaction) ([]models.Transaction, map[string]int) {
	kept := make([]models.Transaction, 0, len(txns))
	excluded := make(map[string]int)
	for _, t := range txns {
		if models.IsLoadEligible(t.Status) {
			kept = append(kept, t)
			continue
		}
		excluded[t.Status]++
	}
	return kept, excluded
}

// Join filters the transactions and passes the dimensions through unchanged.
func Join(txns []models.Transaction, users []models.User, products []models.Product) Result {
	kept, excluded := FilterLoadEligible(txns)

	userIDs := make(map[string]struct{}, len(users))
	for _, u := range users {
		userIDs[u.UserID] = struct{}{}
	}
	productIDs := make(map[string]struct{}, len(products))
	for _, p := range products {
		productIDs[p.ProductID] = struct{}{}
	}

	orphans := 0
	for _, t := range kept {
		_, okUser := userIDs[t.UserID]
		_, okProduct := productIDs[t.ProductID]
		if !okUser || !okProduct {
			orphans++
		}
	}

	return Result{
		Batch: Batch{
			Users:        users,
			Products:     products,
			Transactions: kept,
		},
		Excluded: excluded,
		Orphans:  orphans,
	}
}
