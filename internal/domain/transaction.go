package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionLine is one line item of a retail bill. A bill groups the lines
// purchased in a single checkout. Categorical fields are opaque strings and
// compared exactly; no case or whitespace normalization is applied.
type TransactionLine struct {
	TransactionID string
	BillID        string
	CustomerID    string
	ProductID     string

	Date            civil.Date // calendar date, no time component
	StoreLocation   string
	Channel         string // e.g. "In-store", "Online"
	ProductCategory string
	ProductName     string
	CustomerSegment string
	PaymentMethod   string

	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountApplied decimal.Decimal

	// Derived once at load time; treated as immutable afterwards.
	LineRevenue     decimal.Decimal // quantity*unit_price - discount, may go negative
	DayOfWeek       string
	Month           string // "2006-01"
	Quarter         string // "2006-Q1"
	ProfitMargin    Margin
	EstimatedProfit decimal.Decimal // zero when ProfitMargin is unknown
}

// Weekday returns the day name for the line's date.
func (l TransactionLine) Weekday() string {
	return l.Date.In(time.UTC).Weekday().String()
}

// Margin is a category profit margin. The zero value means "unknown", which
// must stay distinguishable from a known margin of zero.
type Margin struct {
	Rate  decimal.Decimal
	Known bool
}

// KnownMargin builds a known margin from a rate such as 0.22.
func KnownMargin(rate float64) Margin {
	return Margin{Rate: decimal.NewFromFloat(rate), Known: true}
}

// UnknownMargin is the sentinel for categories outside the margin table.
var UnknownMargin = Margin{}

// DefaultMargins is the fixed category→margin table used when the
// configuration does not override it. Categories not listed here get
// UnknownMargin, not zero.
var DefaultMargins = map[string]Margin{
	"Groceries":     KnownMargin(0.22),
	"Beverages":     KnownMargin(0.30),
	"Snacks":        KnownMargin(0.35),
	"Household":     KnownMargin(0.28),
	"Personal Care": KnownMargin(0.40),
	"Electronics":   KnownMargin(0.12),
	"Clothing":      KnownMargin(0.45),
}

// Weekdays is the fixed Monday-first display order for day-of-week axes.
var Weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// MonthKey returns the month period key for a date, e.g. "2024-03".
func MonthKey(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

// QuarterKey returns the quarter period key for a date, e.g. "2024-Q1".
func QuarterKey(d civil.Date) string {
	return fmt.Sprintf("%04d-Q%d", d.Year, (int(d.Month)+2)/3)
}
