package dataset

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// BigQuerySource reads the sales table from BigQuery instead of a CSV file.
// Every column is selected as a string so that coercion stays in one place,
// the loader.
type BigQuerySource struct {
	ProjectID string
	Dataset   string
	Table     string
}

func (s BigQuerySource) Name() string {
	return fmt.Sprintf("bq://%s.%s.%s", s.ProjectID, s.Dataset, s.Table)
}

// bqLine mirrors the source column layout with everything cast to STRING.
type bqLine struct {
	Date            string `bigquery:"date"`
	BillID          string `bigquery:"bill_id"`
	TransactionID   string `bigquery:"transaction_id"`
	CustomerID      string `bigquery:"customer_id"`
	ProductID       string `bigquery:"product_id"`
	ProductName     string `bigquery:"product_name"`
	ProductCategory string `bigquery:"product_category"`
	StoreLocation   string `bigquery:"store_location"`
	Channel         string `bigquery:"channel"`
	CustomerSegment string `bigquery:"customer_segment"`
	PaymentMethod   string `bigquery:"payment_method"`
	Quantity        string `bigquery:"quantity"`
	UnitPrice       string `bigquery:"unit_price"`
	DiscountApplied string `bigquery:"discount_applied"`
}

func (s BigQuerySource) Rows(ctx context.Context) ([]RawRow, error) {
	client, err := bigquery.NewClient(ctx, s.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("BigQuerySource: creating client: %w", err)
	}
	defer client.Close()

	query := fmt.Sprintf(`
		SELECT
			CAST(date AS STRING) AS date,
			CAST(bill_id AS STRING) AS bill_id,
			CAST(transaction_id AS STRING) AS transaction_id,
			CAST(customer_id AS STRING) AS customer_id,
			CAST(product_id AS STRING) AS product_id,
			product_name,
			product_category,
			store_location,
			channel,
			customer_segment,
			payment_method,
			CAST(quantity AS STRING) AS quantity,
			CAST(unit_price AS STRING) AS unit_price,
			CAST(discount_applied AS STRING) AS discount_applied
		FROM `+"`%s.%s.%s`"+`
		ORDER BY date, bill_id, transaction_id
	`, s.ProjectID, s.Dataset, s.Table)

	q := client.Query(query)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("BigQuerySource: reading query: %w", err)
	}

	var rows []RawRow
	for {
		var line bqLine
		err := it.Next(&line)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("BigQuerySource: iterating: %w", err)
		}
		rows = append(rows, RawRow{
			"date":             line.Date,
			"bill_id":          line.BillID,
			"transaction_id":   line.TransactionID,
			"customer_id":      line.CustomerID,
			"product_id":       line.ProductID,
			"product_name":     line.ProductName,
			"product_category": line.ProductCategory,
			"store_location":   line.StoreLocation,
			"channel":          line.Channel,
			"customer_segment": line.CustomerSegment,
			"payment_method":   line.PaymentMethod,
			"quantity":         line.Quantity,
			"unit_price":       line.UnitPrice,
			"discount_applied": line.DiscountApplied,
		})
	}

	return rows, nil
}
