package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/urbanmart/sales-dashboard/internal/dataset"
	"github.com/urbanmart/sales-dashboard/internal/domain"
	"github.com/urbanmart/sales-dashboard/internal/query"
)

const (
	sheetTransactions = "Transactions"
	sheetSummary      = "Summary"
)

// WriteXLSX writes the filtered view and its KPI summary to an Excel workbook
// at path.
func WriteXLSX(path string, rows []domain.TransactionLine, summary query.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetTransactions)
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	for col, name := range dataset.Columns() {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetTransactions, cell, name); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, line := range rows {
		values := []interface{}{
			line.Date.String(),
			line.BillID,
			line.TransactionID,
			line.CustomerID,
			line.ProductID,
			line.ProductName,
			line.ProductCategory,
			line.StoreLocation,
			line.Channel,
			line.CustomerSegment,
			line.PaymentMethod,
			line.Quantity,
			line.UnitPrice.InexactFloat64(),
			line.DiscountApplied.InexactFloat64(),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetTransactions, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	metrics := []struct {
		name  string
		value interface{}
	}{
		{"Total Revenue", summary.TotalRevenue.InexactFloat64()},
		{"Transactions", summary.TransactionCount},
		{"Avg Revenue / Transaction", summary.AvgRevenuePerTransaction.InexactFloat64()},
		{"Unique Customers", summary.UniqueCustomers},
		{"Avg Order Value", summary.AvgOrderValue.InexactFloat64()},
		{"Avg Customer Value", summary.AvgCustomerValue.InexactFloat64()},
		{"Repeat Purchase Rate (%)", summary.RepeatPurchaseRate},
		{"High-Value Customers", summary.HighValueCustomers},
		{"Total Quantity", summary.TotalQuantity},
		{"Total Discount", summary.TotalDiscount.InexactFloat64()},
		{"Estimated Profit", summary.EstimatedProfit.InexactFloat64()},
		{"Margin Coverage (%)", summary.MarginCoverage},
	}
	for i, m := range metrics {
		nameCell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		valueCell, err := excelize.CoordinatesToCellName(2, i+1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetSummary, nameCell, m.name); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		if err := f.SetCellValue(sheetSummary, valueCell, m.value); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %q: %w", path, err)
	}
	return nil
}
