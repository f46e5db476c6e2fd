package query

import (
	"github.com/shopspring/decimal"

	"github.com/urbanmart/sales-dashboard/internal/domain"
)

// Summary holds the scalar dashboard KPIs for one filtered row set. Every
// quantity with a zero denominator is reported as 0, never an error or NaN,
// so an empty filter result renders as an all-zero dashboard.
type Summary struct {
	TotalRevenue             decimal.Decimal `json:"total_revenue"`
	TransactionCount         int             `json:"transaction_count"` // distinct bills
	AvgRevenuePerTransaction decimal.Decimal `json:"avg_revenue_per_transaction"`
	UniqueCustomers          int             `json:"unique_customers"`
	AvgOrderValue            decimal.Decimal `json:"avg_order_value"`
	AvgCustomerValue         decimal.Decimal `json:"avg_customer_value"`
	RepeatPurchaseRate       float64         `json:"repeat_purchase_rate"` // percent of customers with >1 bill
	HighValueCustomers       int             `json:"high_value_customers"`
	TotalQuantity            int             `json:"total_quantity"`
	TotalDiscount            decimal.Decimal `json:"total_discount"`
	EstimatedProfit          decimal.Decimal `json:"estimated_profit"`
	MarginCoverage           float64         `json:"margin_coverage"` // percent of revenue with a known margin
}

// Summarize computes the KPI summary over rows. highValueThreshold is the
// per-customer revenue floor for the high-value customer count.
func Summarize(rows []domain.TransactionLine, highValueThreshold decimal.Decimal) Summary {
	var s Summary

	bills := make(map[string]struct{})
	customerBills := make(map[string]map[string]struct{})
	customerRevenue := make(map[string]decimal.Decimal)
	coveredRevenue := decimal.Zero

	for _, line := range rows {
		s.TotalRevenue = s.TotalRevenue.Add(line.LineRevenue)
		s.TotalDiscount = s.TotalDiscount.Add(line.DiscountApplied)
		s.TotalQuantity += line.Quantity

		bills[line.BillID] = struct{}{}
		if customerBills[line.CustomerID] == nil {
			customerBills[line.CustomerID] = make(map[string]struct{})
		}
		customerBills[line.CustomerID][line.BillID] = struct{}{}
		customerRevenue[line.CustomerID] = customerRevenue[line.CustomerID].Add(line.LineRevenue)

		if line.ProfitMargin.Known {
			s.EstimatedProfit = s.EstimatedProfit.Add(line.EstimatedProfit)
			coveredRevenue = coveredRevenue.Add(line.LineRevenue)
		}
	}

	s.TransactionCount = len(bills)
	s.UniqueCustomers = len(customerBills)

	if s.TransactionCount > 0 {
		perBill := s.TotalRevenue.Div(decimal.NewFromInt(int64(s.TransactionCount)))
		s.AvgRevenuePerTransaction = perBill
		s.AvgOrderValue = perBill
	}
	if s.UniqueCustomers > 0 {
		s.AvgCustomerValue = s.TotalRevenue.Div(decimal.NewFromInt(int64(s.UniqueCustomers)))

		repeat := 0
		for _, billSet := range customerBills {
			if len(billSet) > 1 {
				repeat++
			}
		}
		s.RepeatPurchaseRate = float64(repeat) / float64(s.UniqueCustomers) * 100
	}
	for _, total := range customerRevenue {
		if total.GreaterThanOrEqual(highValueThreshold) {
			s.HighValueCustomers++
		}
	}
	if !s.TotalRevenue.IsZero() {
		s.MarginCoverage = coveredRevenue.InexactFloat64() / s.TotalRevenue.InexactFloat64() * 100
	}

	return s
}

// Growth holds period-over-period revenue growth percentages.
type Growth struct {
	MonthOverMonth     float64 `json:"month_over_month"`
	QuarterOverQuarter float64 `json:"quarter_over_quarter"`
}

// GrowthSummary derives the growth KPIs from the monthly and quarterly
// revenue series of rows.
func GrowthSummary(rows []domain.TransactionLine) Growth {
	return Growth{
		MonthOverMonth:     PeriodOverPeriodGrowth(MonthlySeries(rows)),
		QuarterOverQuarter: PeriodOverPeriodGrowth(QuarterlySeries(rows)),
	}
}
