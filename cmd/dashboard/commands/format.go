package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/africa-covid/backend/internal/contracts"
	"github.com/wonny/africa-covid/backend/internal/ingest"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	doubleLine = "═══════════════════════════════════════════════════════════"
	singleLine = "───────────────────────────────────────────────────────────"
)

// PrintHeader prints a framed title with optional key/value lines
func PrintHeader(w io.Writer, title string, fields [][2]string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	if len(fields) > 0 {
		fmt.Fprintln(w, singleLine)
		for _, f := range fields {
			fmt.Fprintf(w, "  %-10s: %s\n", f[0], f[1])
		}
	}
	fmt.Fprintln(w, singleLine)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a left aligned table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintList prints a bulleted list
func PrintList(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "   • %s\n", item)
	}
}

// formatCount renders 1234567 as 1,234,567
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}

// formatOptional renders an optional forecast value, "-" when absent
func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatCount(int64(*v + 0.5))
}

func formatDate(d contracts.TrendDatum) string {
	s := d.Date.Format(contracts.DateLayout)
	if d.IsPrediction {
		s += "*"
	}
	return s
}

// PrintReport prints an ingestion report
func PrintReport(w io.Writer, report *ingest.Report) {
	PrintHeader(w, "Ingestion Report", nil)

	PrintKeyValue(w, "Countries", strconv.Itoa(report.Countries), 18)
	PrintKeyValue(w, "Predictions", strconv.Itoa(report.Predictions), 18)
	PrintKeyValue(w, "Stats", strconv.Itoa(report.Stats), 18)
	if !report.FirstDate.IsZero() {
		PrintKeyValue(w, "Period", report.FirstDate.Format(contracts.DateLayout)+" ~ "+report.LastDate.Format(contracts.DateLayout), 18)
	}
	PrintKeyValue(w, "Subnational rows", strconv.Itoa(report.SubnationalRows), 18)
	PrintKeyValue(w, "Outside continent", strconv.Itoa(report.OutsideContinent), 18)
	PrintKeyValue(w, "Duplicate rows", strconv.Itoa(report.DuplicateRows), 18)
	PrintKeyValue(w, "Bad cells", strconv.Itoa(report.BadCells), 18)
	PrintKeyValue(w, "Bad forecast rows", strconv.Itoa(report.BadForecastRows), 18)
	if report.Generation > 0 {
		PrintKeyValue(w, "Generation", strconv.FormatUint(report.Generation, 10), 18)
		PrintKeyValue(w, "Duration", report.Duration.String(), 18)
	}

	if n := report.UnresolvedCount(); n > 0 {
		fmt.Fprintln(w)
		PrintWarning(w, fmt.Sprintf("%d unresolved names", n))
		for _, source := range sortedKeys(report.Unresolved) {
			PrintList(w, []string{source + ": " + strings.Join(report.Unresolved[source], ", ")})
		}
	}
	if len(report.MissingMetricRows) > 0 {
		fmt.Fprintln(w)
		PrintWarning(w, "countries missing from a metric table (zero-filled)")
		for _, metric := range sortedKeys(report.MissingMetricRows) {
			PrintList(w, []string{metric + ": " + strings.Join(report.MissingMetricRows[metric], ", ")})
		}
	}
	if len(report.MissingPopulation) > 0 {
		fmt.Fprintln(w)
		PrintWarning(w, "no population: "+strings.Join(report.MissingPopulation, ", "))
	}
	if len(report.SkippedSources) > 0 {
		fmt.Fprintln(w)
		PrintWarning(w, "skipped optional sources: "+strings.Join(report.SkippedSources, ", "))
	}
}

// PrintSeries prints a trend series as a table; forecast dates are starred
func PrintSeries(w io.Writer, title string, series []contracts.TrendDatum) {
	PrintHeader(w, title, [][2]string{{"Points", strconv.Itoa(len(series))}})

	widths := []int{12, 12, 10, 10, 12, 14}
	PrintTableHeader(w, []string{"Date", "Confirmed", "New", "Deaths", "Recoveries", "Forecast"}, widths)
	for _, d := range series {
		PrintTableRow(w, []string{
			formatDate(d),
			formatCount(d.Confirmed),
			formatCount(d.NewCase),
			formatCount(d.Deaths),
			formatCount(d.Recoveries),
			formatOptional(d.ConfirmedPrediction),
		}, widths)
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
