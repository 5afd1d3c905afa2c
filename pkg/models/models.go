// Package models holds the entities of the fintech star schema and the
// fixed vocabularies the generator and the ingesters share.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wire layouts used in raw files and warehouse columns
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Transaction statuses eligible for the fact table
const (
	StatusSettled    = "settled"
	StatusRefunded   = "refunded"
	StatusChargeback = "chargeback"
)

// LoadEligibleStatuses lists the statuses kept by the transform step.
var LoadEligibleStatuses = []string{StatusSettled, StatusRefunded, StatusChargeback}

// IsLoadEligible reports whether status may be written to fact_transactions.
func IsLoadEligible(status string) bool {
	for _, s := range LoadEligibleStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// CSV headers of the raw files
var (
	ProductHeader     = []string{"product_id", "product_name", "category", "active"}
	TransactionHeader = []string{"txn_id", "user_id", "product_id", "amount", "txn_ts", "status"}
)

// Product is a row of dim_products.
type Product struct {
	ProductID   string `json:"product_id" validate:"required"`
	ProductName string `json:"product_name" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Active      bool   `json:"active"`
}

// User is a row of dim_users. SignupDt carries a date only.
type User struct {
	UserID   string    `json:"user_id" validate:"required"`
	SignupDt time.Time `json:"signup_dt" validate:"required"`
	Segment  string    `json:"segment" validate:"required"`
	Region   string    `json:"region" validate:"required"`
}

// Transaction is a row of fact_transactions.
type Transaction struct {
	TxnID     string          `validate:"required"`
	UserID    string          `validate:"required"`
	ProductID string          `validate:"required"`
	Amount    decimal.Decimal `validate:"gte=0"`
	TxnTs     time.Time       `validate:"required"`
	Status    string          `validate:"required"`
}

// Record formats t in TransactionHeader column order.
func (t Transaction) Record() []string {
	return []string{
		t.TxnID,
		t.UserID,
		t.ProductID,
		t.Amount.StringFixed(2),
		t.TxnTs.Format(TimestampLayout),
		t.Status,
	}
}
