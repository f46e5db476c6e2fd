package dataset

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/urbanmart/sales-dashboard/internal/domain"
)

// requiredColumns is the column layout of the source table. Export writes the
// filtered view back in this same order.
var requiredColumns = []string{
	"date",
	"bill_id",
	"transaction_id",
	"customer_id",
	"product_id",
	"product_name",
	"product_category",
	"store_location",
	"channel",
	"customer_segment",
	"payment_method",
	"quantity",
	"unit_price",
	"discount_applied",
}

// Columns returns the source column layout in order.
func Columns() []string {
	out := make([]string, len(requiredColumns))
	copy(out, requiredColumns)
	return out
}

// FormatError reports a malformed or missing required field at load time.
// The whole load fails on the first bad row; there is no per-row recovery.
type FormatError struct {
	Row    int // 1-based data row, 0 for header-level problems
	Column string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("dataset format: column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("dataset format: row %d, column %q: %v", e.Row, e.Column, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Table is the immutable base table the query engine works against. It is
// built once at startup and safely shared across concurrent query evaluations.
type Table struct {
	lines    []domain.TransactionLine
	source   string
	loadedAt time.Time
}

// Lines returns the backing row slice. Callers must treat it as read-only;
// every query operation allocates its own output.
func (t *Table) Lines() []domain.TransactionLine { return t.lines }

// Len returns the number of rows in the table.
func (t *Table) Len() int { return len(t.lines) }

// Source describes where the table was loaded from.
func (t *Table) Source() string { return t.source }

// LoadedAt returns the load timestamp.
func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// Load reads all rows from src, coerces every field and computes the derived
// fields. margins maps product categories to profit margins; nil selects
// domain.DefaultMargins. Any missing or non-coercible required field fails the
// entire load with a *FormatError.
func Load(ctx context.Context, src RowSource, margins map[string]domain.Margin) (*Table, error) {
	raw, err := src.Rows(ctx)
	if err != nil {
		return nil, err
	}
	if margins == nil {
		margins = domain.DefaultMargins
	}

	lines := make([]domain.TransactionLine, 0, len(raw))
	for i, row := range raw {
		line, err := deriveLine(row, margins)
		if err != nil {
			if fe, ok := err.(*FormatError); ok {
				fe.Row = i + 1
				return nil, fe
			}
			return nil, err
		}
		lines = append(lines, line)
	}

	return &Table{lines: lines, source: src.Name(), loadedAt: time.Now()}, nil
}

// deriveLine coerces one raw row and computes its derived fields.
func deriveLine(row RawRow, margins map[string]domain.Margin) (domain.TransactionLine, error) {
	var line domain.TransactionLine

	date, err := parseDateField(row, "date")
	if err != nil {
		return line, err
	}
	quantity, err := parseIntField(row, "quantity")
	if err != nil {
		return line, err
	}
	unitPrice, err := parseDecimalField(row, "unit_price")
	if err != nil {
		return line, err
	}
	discount, err := parseDecimalField(row, "discount_applied")
	if err != nil {
		return line, err
	}

	line = domain.TransactionLine{
		TransactionID:   row["transaction_id"],
		BillID:          row["bill_id"],
		CustomerID:      row["customer_id"],
		ProductID:       row["product_id"],
		Date:            date,
		StoreLocation:   row["store_location"],
		Channel:         row["channel"],
		ProductCategory: row["product_category"],
		ProductName:     row["product_name"],
		CustomerSegment: row["customer_segment"],
		PaymentMethod:   row["payment_method"],
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		DiscountApplied: discount,
	}

	for _, id := range []struct{ col, val string }{
		{"transaction_id", line.TransactionID},
		{"bill_id", line.BillID},
		{"customer_id", line.CustomerID},
		{"product_id", line.ProductID},
	} {
		if strings.TrimSpace(id.val) == "" {
			return line, &FormatError{Column: id.col, Err: fmt.Errorf("missing required field")}
		}
	}

	// Derived fields. Revenue is not clamped: a discount larger than gross
	// revenue makes the line negative.
	line.LineRevenue = decimal.NewFromInt(int64(quantity)).Mul(unitPrice).Sub(discount)
	line.DayOfWeek = line.Weekday()
	line.Month = domain.MonthKey(date)
	line.Quarter = domain.QuarterKey(date)

	margin, ok := margins[line.ProductCategory]
	if !ok {
		margin = domain.UnknownMargin
	}
	line.ProfitMargin = margin
	if margin.Known {
		line.EstimatedProfit = line.LineRevenue.Mul(margin.Rate)
	}

	return line, nil
}

func parseDateField(row RawRow, col string) (civil.Date, error) {
	s := strings.TrimSpace(row[col])
	if s == "" {
		return civil.Date{}, &FormatError{Column: col, Err: fmt.Errorf("missing required field")}
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, &FormatError{Column: col, Err: fmt.Errorf("invalid date %q: %w", s, err)}
	}
	return d, nil
}

func parseIntField(row RawRow, col string) (int, error) {
	s := strings.TrimSpace(row[col])
	if s == "" {
		return 0, &FormatError{Column: col, Err: fmt.Errorf("missing required field")}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &FormatError{Column: col, Err: fmt.Errorf("invalid integer %q: %w", s, err)}
	}
	if n < 0 {
		return 0, &FormatError{Column: col, Err: fmt.Errorf("negative value %d", n)}
	}
	return n, nil
}

func parseDecimalField(row RawRow, col string) (decimal.Decimal, error) {
	s := strings.TrimSpace(row[col])
	if s == "" {
		return decimal.Zero, &FormatError{Column: col, Err: fmt.Errorf("missing required field")}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &FormatError{Column: col, Err: fmt.Errorf("invalid number %q: %w", s, err)}
	}
	if d.IsNegative() {
		return decimal.Zero, &FormatError{Column: col, Err: fmt.Errorf("negative value %s", s)}
	}
	return d, nil
}
