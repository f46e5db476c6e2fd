package query

import (
	"github.com/shopspring/decimal"

	"github.com/urbanmart/sales-dashboard/internal/dataset"
	"github.com/urbanmart/sales-dashboard/internal/domain"
)

// Filter applies the criteria to the base table and returns the matching rows
// in table order. All predicates compose by AND. The high-value customer pass
// runs last, over the rows the other predicates kept. The table is never
// mutated and an empty result is a normal outcome.
func Filter(t *dataset.Table, c Criteria) ([]domain.TransactionLine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	stores := newStringSet(c.StoreLocations)
	categories := newStringSet(c.Categories)
	segments := newStringSet(c.Segments)
	payments := newStringSet(c.PaymentMethods)
	channelFiltered := c.Channel != "" && c.Channel != ChannelAll

	out := make([]domain.TransactionLine, 0, t.Len())
	for _, line := range t.Lines() {
		if !c.DateRange.contains(line.Date) {
			continue
		}
		if !stores.keeps(line.StoreLocation) {
			continue
		}
		if channelFiltered && line.Channel != c.Channel {
			continue
		}
		if !categories.keeps(line.ProductCategory) {
			continue
		}
		if !segments.keeps(line.CustomerSegment) {
			continue
		}
		if !payments.keeps(line.PaymentMethod) {
			continue
		}
		if !c.DiscountRange.contains(line.DiscountApplied) {
			continue
		}
		if !c.QuantityRange.contains(line.Quantity) {
			continue
		}
		out = append(out, line)
	}

	if c.HighValue.Enabled {
		out = keepHighValueCustomers(out, c.HighValue.Threshold)
	}
	return out, nil
}

// keepHighValueCustomers totals line revenue per customer over rows and keeps
// only rows whose customer total meets the threshold.
func keepHighValueCustomers(rows []domain.TransactionLine, threshold decimal.Decimal) []domain.TransactionLine {
	totals := make(map[string]decimal.Decimal, len(rows))
	for _, line := range rows {
		totals[line.CustomerID] = totals[line.CustomerID].Add(line.LineRevenue)
	}

	out := make([]domain.TransactionLine, 0, len(rows))
	for _, line := range rows {
		if totals[line.CustomerID].GreaterThanOrEqual(threshold) {
			out = append(out, line)
		}
	}
	return out
}

// stringSet implements the select-all-on-empty membership policy: a nil set
// keeps everything.
type stringSet map[string]struct{}

func newStringSet(values []string) stringSet {
	if len(values) == 0 {
		return nil
	}
	s := make(stringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s stringSet) keeps(v string) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}
