package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/urbanmart/sales-dashboard/internal/domain"
)

func TestSummarizeSingleBillWithTwoLines(t *testing.T) {
	// One checkout: 2 x 10.00 with 2.50 off, plus 1 x 7.00 with 0.50 off.
	rows := []domain.TransactionLine{
		saleLine(func(l *domain.TransactionLine) {
			l.TransactionID = "T1"
			l.Quantity = 2
			l.UnitPrice = decimal.RequireFromString("10.00")
			l.DiscountApplied = decimal.RequireFromString("2.50")
		}),
		saleLine(func(l *domain.TransactionLine) {
			l.TransactionID = "T2"
			l.Quantity = 1
			l.UnitPrice = decimal.RequireFromString("7.00")
			l.DiscountApplied = decimal.RequireFromString("0.50")
		}),
	}

	s := Summarize(rows, decimal.NewFromInt(1000))

	assert.True(t, s.TotalRevenue.Equal(decimal.RequireFromString("24")), "got %s", s.TotalRevenue)
	assert.Equal(t, 1, s.TransactionCount, "two lines of one bill are one transaction")
	assert.True(t, s.AvgRevenuePerTransaction.Equal(decimal.RequireFromString("24")))
	assert.Equal(t, 1, s.UniqueCustomers)
	assert.Equal(t, 3, s.TotalQuantity)
	assert.True(t, s.TotalDiscount.Equal(decimal.RequireFromString("3")))
}

func TestSummarizeEmptyRows(t *testing.T) {
	s := Summarize(nil, decimal.NewFromInt(1000))

	assert.True(t, s.TotalRevenue.IsZero())
	assert.Zero(t, s.TransactionCount)
	assert.True(t, s.AvgRevenuePerTransaction.IsZero())
	assert.Zero(t, s.UniqueCustomers)
	assert.True(t, s.AvgCustomerValue.IsZero())
	assert.Zero(t, s.RepeatPurchaseRate)
	assert.Zero(t, s.HighValueCustomers)
	assert.Zero(t, s.MarginCoverage)
}

func TestSummarizeCustomerMetrics(t *testing.T) {
	forCustomer := func(customer, bill string, amount int64) domain.TransactionLine {
		return saleLine(func(l *domain.TransactionLine) {
			l.CustomerID = customer
			l.BillID = bill
			l.UnitPrice = decimal.NewFromInt(amount)
		})
	}

	rows := []domain.TransactionLine{
		forCustomer("C1", "B1", 600), // repeat customer, 1100 total
		forCustomer("C1", "B2", 500),
		forCustomer("C2", "B3", 200), // single bill, below threshold
	}

	s := Summarize(rows, decimal.NewFromInt(1000))

	assert.Equal(t, 3, s.TransactionCount)
	assert.Equal(t, 2, s.UniqueCustomers)
	assert.True(t, s.AvgCustomerValue.Equal(decimal.NewFromInt(650)))
	assert.InDelta(t, 50.0, s.RepeatPurchaseRate, 1e-9, "one of two customers repeats")
	assert.Equal(t, 1, s.HighValueCustomers)
}

func TestSummarizeMarginCoverage(t *testing.T) {
	rows := []domain.TransactionLine{
		saleLine(withRevenue("S", 60)), // Groceries, margin 0.22
		saleLine(func(l *domain.TransactionLine) {
			l.ProductCategory = "Gift Cards" // no margin on file
			l.UnitPrice = decimal.NewFromInt(40)
		}),
	}

	s := Summarize(rows, decimal.NewFromInt(1000))

	assert.True(t, s.EstimatedProfit.Equal(decimal.RequireFromString("13.2")),
		"profit only from margin-covered revenue, got %s", s.EstimatedProfit)
	assert.InDelta(t, 60.0, s.MarginCoverage, 1e-9)
}

func TestGrowthSummary(t *testing.T) {
	onMonth := func(m int, amount int64) domain.TransactionLine {
		return saleLine(func(l *domain.TransactionLine) {
			l.Date.Month = time.Month(m)
			l.UnitPrice = decimal.NewFromInt(amount)
		})
	}

	rows := []domain.TransactionLine{
		onMonth(1, 100),
		onMonth(2, 150),
	}

	g := GrowthSummary(rows)
	assert.InDelta(t, 50.0, g.MonthOverMonth, 1e-9)
	assert.Zero(t, g.QuarterOverQuarter, "both months fall in Q1")
}
