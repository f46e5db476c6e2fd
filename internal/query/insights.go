package query

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/urbanmart/sales-dashboard/internal/domain"
)

// Insight is the best-performing entity of one dimension. Available is false
// when the dimension had no rows; consumers must render the absent case, the
// selector never errors on emptiness.
type Insight struct {
	Dimension string          `json:"dimension"`
	Key       string          `json:"key"`
	Value     decimal.Decimal `json:"value"`
	Available bool            `json:"available"`
}

// Insights collects the per-dimension winners that drive recommendation text.
type Insights struct {
	TopStore         Insight `json:"top_store"`          // by revenue
	TopCategory      Insight `json:"top_category"`       // by revenue
	BestChannelByAOV Insight `json:"best_channel_by_aov"`
	BestSegmentByACV Insight `json:"best_segment_by_acv"`
}

// SelectInsights picks the arg-max entity per dimension from rows.
func SelectInsights(rows []domain.TransactionLine) Insights {
	byBill := func(l domain.TransactionLine) string { return l.BillID }

	return Insights{
		TopStore:         argmax("store", GroupSum(rows, ByStore, LineRevenue)),
		TopCategory:      argmax("category", GroupSum(rows, ByCategory, LineRevenue)),
		BestChannelByAOV: argmax("channel", perEntityAverage(rows, ByChannel, GroupCountDistinct(rows, ByChannel, byBill))),
		BestSegmentByACV: argmax("segment", perEntityAverage(rows, BySegment, GroupCountDistinct(rows, BySegment, ByCustomer))),
	}
}

// perEntityAverage divides each group's revenue by its distinct-entity count,
// keeping the ranking order deterministic. Groups with a zero count average
// to zero.
func perEntityAverage(rows []domain.TransactionLine, key KeyFunc, counts map[string]int) []GroupTotal {
	totals := GroupSum(rows, key, LineRevenue)
	averaged := make([]GroupTotal, 0, len(totals))
	for _, g := range totals {
		avg := decimal.Zero
		if n := counts[g.Key]; n > 0 {
			avg = g.Total.Div(decimal.NewFromInt(int64(n)))
		}
		averaged = append(averaged, GroupTotal{Key: g.Key, Total: avg})
	}
	// Re-rank by the averaged metric; ties keep the revenue-ranked order.
	sort.SliceStable(averaged, func(i, j int) bool {
		return averaged[i].Total.GreaterThan(averaged[j].Total)
	})
	return averaged
}

func argmax(dimension string, ranked []GroupTotal) Insight {
	if len(ranked) == 0 {
		return Insight{Dimension: dimension}
	}
	return Insight{
		Dimension: dimension,
		Key:       ranked[0].Key,
		Value:     ranked[0].Total,
		Available: true,
	}
}
