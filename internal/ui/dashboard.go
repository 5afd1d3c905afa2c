package ui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"fintechbi/internal/warehouse"
)

const (
	dashboardTitle    = "Fintech ETL & BI Demo"
	dashboardSubtitle = "ETL -> Star Schema -> KPIs -> Dashboard"
	barWidth          = 30
)

// KPISource provides the rows behind each dashboard panel.
type KPISource interface {
	DAU(ctx context.Context) ([]warehouse.DAURow, error)
	GMV(ctx context.Context) ([]warehouse.GMVRow, error)
	ProductUsage(ctx context.Context) ([]warehouse.ProductUsageRow, error)
}

// Headline holds the metrics shown above the panels.
type Headline struct {
	DaysCovered int
	TotalGMV    decimal.Decimal
	PeakDAU     int64
}

// Summarize computes the headline metrics.
func Summarize(dau []warehouse.DAURow, gmv []warehouse.GMVRow) Headline {
	h := Headline{DaysCovered: len(dau), TotalGMV: decimal.Zero}
	for _, row := range dau {
		if row.DAU > h.PeakDAU {
			h.PeakDAU = row.DAU
		}
	}
	for _, row := range gmv {
		h.TotalGMV = h.TotalGMV.Add(row.GMV)
	}
	return h
}

// Dashboard renders KPI panels as text tables.
type Dashboard struct {
	out   io.Writer
	title *color.Color
	label *color.Color
	value *color.Color
	bar   *color.Color
}

// NewDashboard creates a dashboard writing to out. Colors are emitted only
// when useColor is set.
func NewDashboard(out io.Writer, useColor bool) *Dashboard {
	d := &Dashboard{
		out:   out,
		title: color.New(color.FgCyan, color.Bold),
		label: color.New(color.Faint),
		value: color.New(color.FgGreen, color.Bold),
		bar:   color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{d.title, d.label, d.value, d.bar} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return d
}

// Render queries src and writes every panel.
func (d *Dashboard) Render(ctx context.Context, src KPISource) error {
	dau, err := src.DAU(ctx)
	if err != nil {
		return err
	}
	gmv, err := src.GMV(ctx)
	if err != nil {
		return err
	}
	usage, err := src.ProductUsage(ctx)
	if err != nil {
		return err
	}

	d.header(Summarize(dau, gmv))
	d.section("GMV over time", gmvTable(gmv))
	d.section("Daily active users", d.dauTable(dau))
	d.section("Product usage", usageTable(usage))
	return nil
}

// Missing reports that the warehouse has not been built yet.
func (d *Dashboard) Missing(target string) {
	fmt.Fprintf(d.out, "%s\n", d.title.Sprint(dashboardTitle))
	fmt.Fprintf(d.out, "Warehouse not found at %s; run 'fintechbi run' first\n", target)
}

func (d *Dashboard) header(h Headline) {
	fmt.Fprintf(d.out, "%s\n", d.title.Sprint(dashboardTitle))
	fmt.Fprintf(d.out, "%s\n\n", d.label.Sprint(dashboardSubtitle))
	fmt.Fprintf(d.out, "%s %s   %s %s   %s %s\n",
		d.label.Sprint("Days covered:"), d.value.Sprint(h.DaysCovered),
		d.label.Sprint("Total GMV:"), d.value.Sprint(FormatMoney(h.TotalGMV)),
		d.label.Sprint("Peak DAU:"), d.value.Sprint(FormatCount(h.PeakDAU)),
	)
}

func (d *Dashboard) section(name, body string) {
	fmt.Fprintf(d.out, "\n%s\n%s", d.title.Sprint(name), body)
}

func newTable(buf *bytes.Buffer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func gmvTable(rows []warehouse.GMVRow) string {
	var buf bytes.Buffer
	table := newTable(&buf, []string{"Date", "Txns", "GMV", "Settled GMV", "Fee Revenue"})
	for _, row := range rows {
		table.Append([]string{
			row.Day.Format("2006-01-02"),
			FormatCount(row.Txns),
			FormatMoney(row.GMV),
			FormatMoney(row.SettledGMV),
			FormatMoney(row.FeeRevenue),
		})
	}
	table.Render()
	return buf.String()
}

func (d *Dashboard) dauTable(rows []warehouse.DAURow) string {
	var peak int64
	for _, row := range rows {
		if row.DAU > peak {
			peak = row.DAU
		}
	}

	var buf bytes.Buffer
	table := newTable(&buf, []string{"Date", "DAU", ""})
	for _, row := range rows {
		table.Append([]string{
			row.Day.Format("2006-01-02"),
			FormatCount(row.DAU),
			d.bar.Sprint(Bar(row.DAU, peak, barWidth)),
		})
	}
	table.Render()
	return buf.String()
}

func usageTable(rows []warehouse.ProductUsageRow) string {
	var buf bytes.Buffer
	table := newTable(&buf, []string{"Product", "Name", "Category", "Txns", "GMV"})
	for _, row := range rows {
		table.Append([]string{
			row.ProductID,
			row.ProductName,
			row.Category,
			FormatCount(row.Txns),
			FormatMoney(row.GMV),
		})
	}
	table.Render()
	return buf.String()
}

// Bar draws value as a run of blocks scaled so that peak fills width.
// Any positive value gets at least one block.
func Bar(value, peak int64, width int) string {
	if value <= 0 || peak <= 0 || width <= 0 {
		return ""
	}
	n := int(value * int64(width) / peak)
	if n == 0 {
		n = 1
	}
	if n > width {
		n = width
	}
	return strings.Repeat("#", n)
}
