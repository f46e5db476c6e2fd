package query

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/urbanmart/sales-dashboard/internal/domain"
)

// KeyFunc extracts a grouping key from a line.
type KeyFunc func(domain.TransactionLine) string

// ValueFunc extracts the metric value from a line.
type ValueFunc func(domain.TransactionLine) decimal.Decimal

// Common grouping keys. Keys are compared exactly; the engine performs no
// normalization.
var (
	ByStore    KeyFunc = func(l domain.TransactionLine) string { return l.StoreLocation }
	ByCategory KeyFunc = func(l domain.TransactionLine) string { return l.ProductCategory }
	ByChannel  KeyFunc = func(l domain.TransactionLine) string { return l.Channel }
	BySegment  KeyFunc = func(l domain.TransactionLine) string { return l.CustomerSegment }
	ByCustomer KeyFunc = func(l domain.TransactionLine) string { return l.CustomerID }
	ByPayment  KeyFunc = func(l domain.TransactionLine) string { return l.PaymentMethod }
	ByWeekday  KeyFunc = func(l domain.TransactionLine) string { return l.DayOfWeek }

	// ByProduct pairs the product ID with its display name, matching the
	// ranking tables which show both.
	ByProduct KeyFunc = func(l domain.TransactionLine) string { return l.ProductID + " " + l.ProductName }
)

// Common metric values.
var (
	LineRevenue     ValueFunc = func(l domain.TransactionLine) decimal.Decimal { return l.LineRevenue }
	EstimatedProfit ValueFunc = func(l domain.TransactionLine) decimal.Decimal { return l.EstimatedProfit }
	QuantitySold    ValueFunc = func(l domain.TransactionLine) decimal.Decimal { return decimal.NewFromInt(int64(l.Quantity)) }
)

// GroupTotal is one entry of a grouped rollup.
type GroupTotal struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
}

// GroupSum sums val per key and returns the groups in descending order of the
// sum. Ties keep the first-seen order of the key in the input, so the ranking
// is deterministic for identical inputs.
func GroupSum(rows []domain.TransactionLine, key KeyFunc, val ValueFunc) []GroupTotal {
	totals := make(map[string]decimal.Decimal, len(rows))
	order := make([]string, 0, len(rows))
	for _, line := range rows {
		k := key(line)
		if _, seen := totals[k]; !seen {
			order = append(order, k)
		}
		totals[k] = totals[k].Add(val(line))
	}

	out := make([]GroupTotal, 0, len(order))
	for _, k := range order {
		out = append(out, GroupTotal{Key: k, Total: totals[k]})
	}
	// Stable sort over first-seen order gives the explicit tie-break.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out
}

// GroupCountDistinct counts distinct values of distinct per grouping key.
func GroupCountDistinct(rows []domain.TransactionLine, key, distinct KeyFunc) map[string]int {
	seen := make(map[string]map[string]struct{})
	for _, line := range rows {
		k := key(line)
		if seen[k] == nil {
			seen[k] = make(map[string]struct{})
		}
		seen[k][distinct(line)] = struct{}{}
	}

	out := make(map[string]int, len(seen))
	for k, values := range seen {
		out[k] = len(values)
	}
	return out
}

// TopN returns the first n groups of GroupSum. The result length is
// min(n, distinct key count).
func TopN(rows []domain.TransactionLine, key KeyFunc, val ValueFunc, n int) []GroupTotal {
	ranked := GroupSum(rows, key, val)
	if n < 0 {
		n = 0
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// PivotTable is a zero-filled two-key cross-tab. Every (row, col) combination
// present in the axes has a cell.
type PivotTable struct {
	RowKeys []string                              `json:"row_keys"`
	ColKeys []string                              `json:"col_keys"`
	Cells   map[string]map[string]decimal.Decimal `json:"cells"`
}

// Pivot cross-tabulates val by (rowKey, colKey). rowOrder fixes the row axis;
// pass domain.Weekdays for the calendar-ordered day-of-week axis. A nil
// rowOrder sorts the observed row keys; column keys are always sorted.
func Pivot(rows []domain.TransactionLine, rowKey, colKey KeyFunc, val ValueFunc, rowOrder []string) PivotTable {
	sums := make(map[string]map[string]decimal.Decimal)
	colSeen := make(map[string]struct{})
	rowSeen := make(map[string]struct{})
	for _, line := range rows {
		rk, ck := rowKey(line), colKey(line)
		if sums[rk] == nil {
			sums[rk] = make(map[string]decimal.Decimal)
		}
		sums[rk][ck] = sums[rk][ck].Add(val(line))
		rowSeen[rk] = struct{}{}
		colSeen[ck] = struct{}{}
	}

	rowKeys := rowOrder
	if rowKeys == nil {
		rowKeys = sortedKeys(rowSeen)
	}
	colKeys := sortedKeys(colSeen)

	cells := make(map[string]map[string]decimal.Decimal, len(rowKeys))
	for _, rk := range rowKeys {
		cells[rk] = make(map[string]decimal.Decimal, len(colKeys))
		for _, ck := range colKeys {
			cells[rk][ck] = sums[rk][ck] // zero value fills missing combinations
		}
	}
	return PivotTable{RowKeys: rowKeys, ColKeys: colKeys, Cells: cells}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ShareEntry is one entry of a Pareto series.
type ShareEntry struct {
	Key               string          `json:"key"`
	Total             decimal.Decimal `json:"total"`
	Cumulative        decimal.Decimal `json:"cumulative"`
	CumulativePercent float64         `json:"cumulative_percent"`
}

// CumulativeShare annotates a ranked series with cumulative sums and the
// cumulative percent of the grand total. When the grand total is zero every
// percent is 0; there is no division fault.
func CumulativeShare(ranked []GroupTotal) []ShareEntry {
	grand := decimal.Zero
	for _, g := range ranked {
		grand = grand.Add(g.Total)
	}

	out := make([]ShareEntry, 0, len(ranked))
	running := decimal.Zero
	for _, g := range ranked {
		running = running.Add(g.Total)
		entry := ShareEntry{Key: g.Key, Total: g.Total, Cumulative: running}
		if !grand.IsZero() {
			entry.CumulativePercent = running.InexactFloat64() / grand.InexactFloat64() * 100
		}
		out = append(out, entry)
	}
	return out
}

// SeriesPoint is one bucket of a time series.
type SeriesPoint struct {
	Period string          `json:"period"`
	Total  decimal.Decimal `json:"total"`
}

// DailySeries sums line revenue per calendar date, ascending.
func DailySeries(rows []domain.TransactionLine) []SeriesPoint {
	return series(rows, func(l domain.TransactionLine) string { return l.Date.String() })
}

// MonthlySeries sums line revenue per month key, ascending.
func MonthlySeries(rows []domain.TransactionLine) []SeriesPoint {
	return series(rows, func(l domain.TransactionLine) string { return l.Month })
}

// QuarterlySeries sums line revenue per quarter key, ascending.
func QuarterlySeries(rows []domain.TransactionLine) []SeriesPoint {
	return series(rows, func(l domain.TransactionLine) string { return l.Quarter })
}

// series buckets by a period key. All period keys sort chronologically as
// strings ("2006-01-02", "2006-01", "2006-Q1").
func series(rows []domain.TransactionLine, period KeyFunc) []SeriesPoint {
	totals := make(map[string]decimal.Decimal)
	for _, line := range rows {
		k := period(line)
		totals[k] = totals[k].Add(line.LineRevenue)
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]SeriesPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, SeriesPoint{Period: k, Total: totals[k]})
	}
	return out
}

// PeriodOverPeriodGrowth returns the percent change between the last two
// points of an ordered series. Fewer than two periods, or a zero baseline,
// reports 0% rather than an undefined value.
func PeriodOverPeriodGrowth(ordered []SeriesPoint) float64 {
	if len(ordered) < 2 {
		return 0
	}
	prev := ordered[len(ordered)-2].Total
	last := ordered[len(ordered)-1].Total
	if prev.IsZero() {
		return 0
	}
	return last.Sub(prev).InexactFloat64() / prev.InexactFloat64() * 100
}
