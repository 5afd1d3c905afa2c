package ui

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/fatih/color"

	"fintechbi/internal/ingest"
	"fintechbi/internal/pipeline"
	"fintechbi/internal/synth"
	"fintechbi/internal/warehouse"
)

// ShowRunReport prints per-source ingest stats and per-table load counts.
func ShowRunReport(report *pipeline.Report) {
	ShowHeader("Pipeline Run " + report.RunID)
	fmt.Fprintf(Out, "%s %s\n", ColorDim("Warehouse:"), report.Warehouse)
	fmt.Fprintf(Out, "%s %s\n\n", ColorDim("Duration: "), formatDuration(report.Duration))

	fmt.Fprint(Out, sourcesTable(report.Sources))

	if len(report.Excluded) > 0 {
		statuses := make([]string, 0, len(report.Excluded))
		for status := range report.Excluded {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			ShowInfo(fmt.Sprintf("Excluded %d %s transaction(s)", report.Excluded[status], status))
		}
	}
	if report.Orphans > 0 {
		ShowWarning(fmt.Sprintf("%d transaction(s) reference unknown users or products", report.Orphans))
	}

	fmt.Fprintln(Out)
	fmt.Fprint(Out, loadedTable(report.Loaded))
	ShowSuccess("Warehouse and KPI views are up to date")
}

func sourcesTable(sources map[string]ingest.Stats) string {
	var buf bytes.Buffer
	table := newTable(&buf, []string{"Source", "Read", "Duplicates", "Malformed", "Kept"})
	for _, name := range []string{ingest.SourceTransactions, ingest.SourceUsers, ingest.SourceProducts} {
		stats, ok := sources[name]
		if !ok {
			continue
		}
		malformed := strconv.Itoa(stats.Malformed)
		if stats.Malformed > 0 {
			malformed = color.YellowString(malformed)
		}
		table.Append([]string{
			name,
			strconv.Itoa(stats.Read),
			strconv.Itoa(stats.Duplicates),
			malformed,
			strconv.Itoa(stats.Kept),
		})
	}
	table.Render()
	return buf.String()
}

func loadedTable(loaded warehouse.LoadResult) string {
	var buf bytes.Buffer
	table := newTable(&buf, []string{"Table", "Rows Upserted"})
	for _, t := range warehouse.Tables {
		table.Append([]string{t.Name, color.GreenString(strconv.Itoa(loaded[t.Name]))})
	}
	table.Render()
	return buf.String()
}

// ShowGenerateSummary prints where the synthetic files were written.
func ShowGenerateSummary(summary *synth.Summary) {
	ShowSuccess(fmt.Sprintf("Wrote %s products to %s", FormatCount(int64(summary.Products)), summary.ProductsPath))
	ShowSuccess(fmt.Sprintf("Wrote %s users to %s", FormatCount(int64(summary.Users)), summary.UsersPath))
	ShowSuccess(fmt.Sprintf("Wrote %s transactions to %s", FormatCount(int64(summary.Txns)), summary.TransactionsPath))
}
