package export

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/urbanmart/sales-dashboard/internal/domain"
	"github.com/urbanmart/sales-dashboard/internal/query"
)

func TestWriteXLSX(t *testing.T) {
	lines := []domain.TransactionLine{exportLine("T1", "B1")}
	summary := query.Summarize(lines, decimal.NewFromInt(1000))

	path := filepath.Join(t.TempDir(), "export.xlsx")
	if err := WriteXLSX(path, lines, summary); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Failed to reopen workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 {
		t.Fatalf("Expected 2 sheets, got %v", sheets)
	}

	header, err := f.GetCellValue(sheetTransactions, "A1")
	if err != nil {
		t.Fatalf("Failed to read header cell: %v", err)
	}
	if header != "date" {
		t.Errorf("Expected header 'date', got %q", header)
	}

	bill, err := f.GetCellValue(sheetTransactions, "B2")
	if err != nil {
		t.Fatalf("Failed to read data cell: %v", err)
	}
	if bill != "B1" {
		t.Errorf("Expected bill B1, got %q", bill)
	}

	metric, err := f.GetCellValue(sheetSummary, "A1")
	if err != nil {
		t.Fatalf("Failed to read summary cell: %v", err)
	}
	if metric != "Total Revenue" {
		t.Errorf("Expected 'Total Revenue', got %q", metric)
	}
}
