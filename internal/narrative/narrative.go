// Package narrative turns insight selections into short recommendation text.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/urbanmart/sales-dashboard/internal/query"
)

// Generator produces recommendation text from the per-dimension insights.
// This interface enables mocking and swapping the model-backed implementation
// out in tests and in deployments without credentials.
type Generator interface {
	Narrate(ctx context.Context, ins query.Insights, sum query.Summary) (string, error)
}

// TemplateGenerator renders deterministic sentences from the available
// insights. Unavailable dimensions are skipped, never an error.
type TemplateGenerator struct{}

func (TemplateGenerator) Narrate(ctx context.Context, ins query.Insights, sum query.Summary) (string, error) {
	var lines []string

	if ins.TopStore.Available {
		lines = append(lines, fmt.Sprintf(
			"%s is the strongest store location with %s in revenue.",
			ins.TopStore.Key, formatMoney(ins.TopStore.Value.InexactFloat64())))
	}
	if ins.TopCategory.Available {
		lines = append(lines, fmt.Sprintf(
			"%s leads all product categories at %s; keep it stocked and promoted.",
			ins.TopCategory.Key, formatMoney(ins.TopCategory.Value.InexactFloat64())))
	}
	if ins.BestChannelByAOV.Available {
		lines = append(lines, fmt.Sprintf(
			"The %s channel has the highest average order value (%s).",
			ins.BestChannelByAOV.Key, formatMoney(ins.BestChannelByAOV.Value.InexactFloat64())))
	}
	if ins.BestSegmentByACV.Available {
		lines = append(lines, fmt.Sprintf(
			"%s customers are the most valuable segment, averaging %s each.",
			ins.BestSegmentByACV.Key, formatMoney(ins.BestSegmentByACV.Value.InexactFloat64())))
	}
	if sum.UniqueCustomers > 0 {
		lines = append(lines, fmt.Sprintf(
			"%.1f%% of customers purchased more than once; %d qualify as high-value.",
			sum.RepeatPurchaseRate, sum.HighValueCustomers))
	}

	if len(lines) == 0 {
		return "No data matches the current filters.", nil
	}
	return strings.Join(lines, " "), nil
}

func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

var _ Generator = TemplateGenerator{}
