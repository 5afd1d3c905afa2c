// Package synth produces a reproducible synthetic fintech dataset: a product
// catalogue, a user base and a transaction log with realistic skew.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintechbi/pkg/errors"
	"fintechbi/pkg/models"
)

// Amount distribution parameters. The median amount is about 24.5.
const (
	amountMu    = 3.2
	amountSigma = 0.6
)

var (
	minAmount = decimal.NewFromInt(1)
	maxAmount = decimal.NewFromInt(5000)
)

// hourWeights peaks at 9-11 and 17-21.
var hourWeights = []float64{
	1, 1, 1, 1, 1,
	1, 1, 2, 5, 7, 6, 3,
	2, 2, 2, 2, 2,
	6, 8, 7, 3, 2, 1, 1,
}

var cumHourWeights = cumulative(hourWeights)

// Config controls the size and shape of the generated dataset.
type Config struct {
	Users     int
	Products  int
	Txns      int
	StartDate time.Time
	Days      int
	RawDir    string
	RefDir    string
	Seed      uint64
}

// DefaultConfig returns the demo-sized dataset configuration
func DefaultConfig() Config {
	return Config{
		Users:     50000,
		Products:  25,
		Txns:      200000,
		StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Days:      45,
		RawDir:    "data/raw",
		RefDir:    "data/reference",
		Seed:      42,
	}
}

// Validate checks that every count and the day span are usable
func (c Config) Validate() error {
	checks := []struct {
		field string
		value int
	}{
		{"users", c.Users},
		{"products", c.Products},
		{"txns", c.Txns},
		{"days", c.Days},
	}
	for _, check := range checks {
		if check.value <= 0 {
			return errors.ValidationError(check.field, check.value, "must be positive")
		}
	}
	if c.StartDate.IsZero() {
		return errors.ValidationError("start_date", c.StartDate, "is required")
	}
	if c.RawDir == "" || c.RefDir == "" {
		return errors.ValidationError("output", c.RawDir+","+c.RefDir, "raw and reference directories are required")
	}
	return nil
}

// ParseStartDate parses an ISO date such as 2025-07-01
func ParseStartDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, errors.ValidationError("start_date", s, "expected YYYY-MM-DD")
	}
	return t, nil
}

// NewRand returns the single random stream every maker draws from.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// MakeProducts cycles through the categories. Product i takes name i modulo
// the length of its category's name list.
func MakeProducts(n int, rng *rand.Rand) []models.Product {
	products := make([]models.Product, 0, n)
	for i := 0; i < n; i++ {
		category := models.Categories[i%len(models.Categories)]
		names := models.ProductNames[category]
		name := names[i%len(names)]

		products = append(products, models.Product{
			ProductID:   fmt.Sprintf("P%03d", i+1),
			ProductName: name,
			Category:    category,
			Active:      rng.Float64() > 0.05,
		})
	}
	return products
}

// MakeUsers draws a signup day in [0, days] and a uniform segment and region.
func MakeUsers(n int, start time.Time, days int, rng *rand.Rand) []models.User {
	users := make([]models.User, 0, n)
	for i := 1; i <= n; i++ {
		offset := randInt(rng, 0, days)
		users = append(users, models.User{
			UserID:   fmt.Sprintf("U%06d", i),
			SignupDt: start.AddDate(0, 0, offset),
			Segment:  choice(rng, models.Segments),
			Region:   choice(rng, models.Regions),
		})
	}
	return users
}

// MakeTxns draws transactions that only reference generated users and
// products. The draw order per transaction is fixed: day, hour, minute,
// second, user, product, amount, status.
func MakeTxns(n int, start time.Time, days, nUsers, nProducts int, rng *rand.Rand) []models.Transaction {
	txns := make([]models.Transaction, 0, n)
	for i := 1; i <= n; i++ {
		day := randInt(rng, 0, days-1)
		hour := sampleHour(rng)
		minute := randInt(rng, 0, 59)
		second := randInt(rng, 0, 59)

		base := start.AddDate(0, 0, day)
		ts := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, second, 0, time.UTC)

		userIdx := randInt(rng, 1, nUsers)
		productIdx := randInt(rng, 1, nProducts)

		amount := SampleAmount(rng)
		status := StatusFromRisk(Risk(amount), rng)

		txns = append(txns, models.Transaction{
			TxnID:     fmt.Sprintf("T%07d", i),
			UserID:    fmt.Sprintf("U%06d", userIdx),
			ProductID: fmt.Sprintf("P%03d", productIdx),
			Amount:    amount,
			TxnTs:     ts,
			Status:    status,
		})
	}
	return txns
}

// SampleAmount draws a log-normal amount clamped to [1.00, 5000.00] with two decimals.
func SampleAmount(rng *rand.Rand) decimal.Decimal {
	m := math.Exp(amountMu + amountSigma*rng.NormFloat64())
	amount := decimal.NewFromFloat(m)
	if amount.LessThan(minAmount) {
		amount = minAmount
	}
	if amount.GreaterThan(maxAmount) {
		amount = maxAmount
	}
	return amount.Round(2)
}

// Risk grows linearly from 0 at 50.00 to 1 at 5050.00.
func Risk(amount decimal.Decimal) float64 {
	r := (amount.InexactFloat64() - 50) / 5000
	return math.Min(math.Max(r, 0), 1)
}

// StatusFromRisk draws chargeback, then refunded, then settled.
func StatusFromRisk(r float64, rng *rand.Rand) string {
	if rng.Float64() < 0.02+0.05*r {
		return models.StatusChargeback
	}
	if rng.Float64() < 0.03+0.03*r {
		return models.StatusRefunded
	}
	return models.StatusSettled
}

func sampleHour(rng *rand.Rand) int {
	total := cumHourWeights[len(cumHourWeights)-1]
	x := rng.Float64() * total
	return sort.Search(len(cumHourWeights), func(i int) bool { return cumHourWeights[i] > x })
}

func cumulative(weights []float64) []float64 {
	out := make([]float64, len(weights))
	var sum float64
	for i, w := range weights {
		sum += w
		out[i] = sum
	}
	return out
}

// randInt returns a uniform integer in [lo, hi].
func randInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}

func choice(rng *rand.Rand, items []string) string {
	return items[rng.IntN(len(items))]
}
