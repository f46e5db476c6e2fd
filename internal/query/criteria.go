// Package query is the filter-and-aggregate engine over the immutable sales
// table. Every operation takes rows in and returns a freshly allocated result;
// nothing here mutates the base table. An empty row set is a valid input and a
// valid outcome everywhere, never an error.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ConfigurationError reports a structurally invalid criteria object, such as
// an inverted range. It is the only per-query error surfaced to callers.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid criteria: %s: %s", e.Field, e.Reason)
}

// DateRange bounds the line date, inclusive on both sides. A nil bound means
// unbounded on that side.
type DateRange struct {
	Start *civil.Date
	End   *civil.Date
}

func (r DateRange) contains(d civil.Date) bool {
	if r.Start != nil && d.Before(*r.Start) {
		return false
	}
	if r.End != nil && d.After(*r.End) {
		return false
	}
	return true
}

// DecimalRange bounds a decimal field, inclusive. Nil bounds are open.
type DecimalRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

func (r DecimalRange) contains(v decimal.Decimal) bool {
	if r.Min != nil && v.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && v.GreaterThan(*r.Max) {
		return false
	}
	return true
}

// IntRange bounds an integer field, inclusive. Nil bounds are open.
type IntRange struct {
	Min *int
	Max *int
}

func (r IntRange) contains(v int) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// HighValueFilter keeps only rows belonging to customers whose total line
// revenue over the already-filtered set meets the threshold. It always runs
// after every other predicate because its population is the filtered set, not
// the raw table.
type HighValueFilter struct {
	Enabled   bool
	Threshold decimal.Decimal
}

// Criteria is the full, explicit filter state for one query evaluation. There
// is no process-wide filter state; callers pass a Criteria into each call.
//
// Selection-set semantics: an empty or nil set means "no filtering on this
// dimension". This mirrors the dashboard's default-select-all controls and is
// a deliberate policy, not an accident of widget initialization.
type Criteria struct {
	DateRange      DateRange
	StoreLocations []string
	Channel        string // exact match unless empty or "All"
	Categories     []string
	Segments       []string
	PaymentMethods []string
	DiscountRange  DecimalRange
	QuantityRange  IntRange
	HighValue      HighValueFilter
}

// ChannelAll is the sentinel that disables channel filtering.
const ChannelAll = "All"

// Validate fails fast on internally inconsistent criteria before any
// filtering runs.
func (c Criteria) Validate() error {
	if c.DateRange.Start != nil && c.DateRange.End != nil && c.DateRange.End.Before(*c.DateRange.Start) {
		return &ConfigurationError{Field: "date_range", Reason: fmt.Sprintf("start %s is after end %s", c.DateRange.Start, c.DateRange.End)}
	}
	if c.DiscountRange.Min != nil && c.DiscountRange.Max != nil && c.DiscountRange.Max.LessThan(*c.DiscountRange.Min) {
		return &ConfigurationError{Field: "discount_range", Reason: fmt.Sprintf("min %s exceeds max %s", c.DiscountRange.Min, c.DiscountRange.Max)}
	}
	if c.QuantityRange.Min != nil && c.QuantityRange.Max != nil && *c.QuantityRange.Max < *c.QuantityRange.Min {
		return &ConfigurationError{Field: "quantity_range", Reason: fmt.Sprintf("min %d exceeds max %d", *c.QuantityRange.Min, *c.QuantityRange.Max)}
	}
	if c.HighValue.Enabled && c.HighValue.Threshold.IsNegative() {
		return &ConfigurationError{Field: "high_value", Reason: "threshold must not be negative"}
	}
	return nil
}

// Fingerprint returns a stable structural key for the criteria, used as the
// result-cache key. Equal criteria always produce equal fingerprints, and
// distinct criteria never share one: values are quoted so that opaque
// selection values containing the separators cannot collide.
func (c Criteria) Fingerprint() string {
	var b strings.Builder
	writeBound := func(label, v string) {
		b.WriteString(label)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(v))
		b.WriteByte(';')
	}
	if c.DateRange.Start != nil {
		writeBound("start", c.DateRange.Start.String())
	}
	if c.DateRange.End != nil {
		writeBound("end", c.DateRange.End.String())
	}
	writeBound("stores", sortedList(c.StoreLocations))
	writeBound("channel", c.Channel)
	writeBound("categories", sortedList(c.Categories))
	writeBound("segments", sortedList(c.Segments))
	writeBound("payments", sortedList(c.PaymentMethods))
	if c.DiscountRange.Min != nil {
		writeBound("discount_min", c.DiscountRange.Min.String())
	}
	if c.DiscountRange.Max != nil {
		writeBound("discount_max", c.DiscountRange.Max.String())
	}
	if c.QuantityRange.Min != nil {
		writeBound("qty_min", fmt.Sprintf("%d", *c.QuantityRange.Min))
	}
	if c.QuantityRange.Max != nil {
		writeBound("qty_max", fmt.Sprintf("%d", *c.QuantityRange.Max))
	}
	if c.HighValue.Enabled {
		writeBound("high_value", c.HighValue.Threshold.String())
	}
	return b.String()
}

func sortedList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sorted := make([]string, len(values))
	for i, v := range values {
		sorted[i] = strconv.Quote(v)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
