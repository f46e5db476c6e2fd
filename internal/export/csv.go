// Package export serializes filtered views back out for download. It is a
// consumer of the query engine, not part of it.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/urbanmart/sales-dashboard/internal/dataset"
	"github.com/urbanmart/sales-dashboard/internal/domain"
)

// WriteCSV writes rows in the same column layout as the source table, so a
// filtered export can be re-loaded as a dataset.
func WriteCSV(w io.Writer, rows []domain.TransactionLine) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(dataset.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, line := range rows {
		record := []string{
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
			strconv.Itoa(line.Quantity),
			line.UnitPrice.String(),
			line.DiscountApplied.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
