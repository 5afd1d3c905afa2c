package ui

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintechbi/internal/warehouse"
)

type fakeKPIs struct {
	dau   []warehouse.DAURow
	gmv   []warehouse.GMVRow
	usage []warehouse.ProductUsageRow
	err   error
}

func (f *fakeKPIs) DAU(context.Context) ([]warehouse.DAURow, error) { return f.dau, f.err }
func (f *fakeKPIs) GMV(context.Context) ([]warehouse.GMVRow, error) { return f.gmv, nil }
func (f *fakeKPIs) ProductUsage(context.Context) ([]warehouse.ProductUsageRow, error) {
	return f.usage, nil
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func sampleKPIs() *fakeKPIs {
	return &fakeKPIs{
		dau: []warehouse.DAURow{
			{Day: day("2025-07-01"), DAU: 1200},
			{Day: day("2025-07-02"), DAU: 600},
		},
		gmv: []warehouse.GMVRow{
			{
				Day:        day("2025-07-01"),
				Txns:       1500,
				GMV:        decimal.RequireFromString("1234.50"),
				SettledGMV: decimal.RequireFromString("1000.00"),
				FeeRevenue: decimal.RequireFromString("12.5"),
			},
			{
				Day:        day("2025-07-02"),
				Txns:       700,
				GMV:        decimal.RequireFromString("765.50"),
				SettledGMV: decimal.RequireFromString("700.00"),
				FeeRevenue: decimal.RequireFromString("8.75"),
			},
		},
		usage: []warehouse.ProductUsageRow{
			{ProductID: "P002", ProductName: "Personal Loan", Category: "credit", Txns: 1200, GMV: decimal.RequireFromString("1500")},
			{ProductID: "P003", ProductName: "Savings Account", Category: "deposit", Txns: 0, GMV: decimal.Zero},
		},
	}
}

func TestSummarize(t *testing.T) {
	kpis := sampleKPIs()
	h := Summarize(kpis.dau, kpis.gmv)

	assert.Equal(t, 2, h.DaysCovered)
	assert.Equal(t, int64(1200), h.PeakDAU)
	assert.True(t, decimal.RequireFromString("2000").Equal(h.TotalGMV))
}

func TestSummarizeEmpty(t *testing.T) {
	h := Summarize(nil, nil)
	assert.Zero(t, h.DaysCovered)
	assert.Zero(t, h.PeakDAU)
	assert.True(t, h.TotalGMV.IsZero())
}

func TestDashboardRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDashboard(&buf, false).Render(context.Background(), sampleKPIs()))

	out := buf.String()
	assert.Contains(t, out, "Fintech ETL & BI Demo")
	assert.Contains(t, out, "Days covered: 2")
	assert.Contains(t, out, "Total GMV: $2,000.00")
	assert.Contains(t, out, "Peak DAU: 1,200")

	assert.Contains(t, out, "GMV over time")
	assert.Contains(t, out, "2025-07-01")
	assert.Contains(t, out, "$1,234.50")
	assert.Contains(t, out, "$12.50")

	assert.Contains(t, out, "Daily active users")
	assert.Contains(t, out, strings.Repeat("#", barWidth))
	assert.Contains(t, out, strings.Repeat("#", barWidth/2))

	assert.Contains(t, out, "Product usage")
	assert.Contains(t, out, "Personal Loan")
	assert.Contains(t, out, "Savings Account")
	assert.Less(t, strings.Index(out, "Personal Loan"), strings.Index(out, "Savings Account"))

	assert.NotContains(t, out, "\x1b[", "no escape codes without color")
}

func TestDashboardRenderError(t *testing.T) {
	kpis := sampleKPIs()
	kpis.err = stderrors.New("no such table: v_dau")

	var buf bytes.Buffer
	err := NewDashboard(&buf, false).Render(context.Background(), kpis)
	assert.EqualError(t, err, "no such table: v_dau")
	assert.Empty(t, buf.String())
}

func TestDashboardMissing(t *testing.T) {
	var buf bytes.Buffer
	NewDashboard(&buf, false).Missing("sqlite://warehouse/fintech.db")

	assert.Contains(t, buf.String(), "sqlite://warehouse/fintech.db")
	assert.Contains(t, buf.String(), "run 'fintechbi run' first")
}

func TestBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("#", 30), Bar(3, 3, 30))
	assert.Equal(t, strings.Repeat("#", 10), Bar(1, 3, 30))
	assert.Equal(t, "#", Bar(1, 1000, 30), "positive values always show")
	assert.Equal(t, "", Bar(0, 10, 30))
	assert.Equal(t, "", Bar(5, 0, 30))
	assert.Equal(t, strings.Repeat("#", 30), Bar(40, 30, 30))
}
