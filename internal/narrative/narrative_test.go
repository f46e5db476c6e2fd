package narrative

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/urbanmart/sales-dashboard/internal/query"
)

func TestTemplateGeneratorEmptyInsights(t *testing.T) {
	text, err := TemplateGenerator{}.Narrate(context.Background(), query.Insights{}, query.Summary{})
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}
	if text != "No data matches the current filters." {
		t.Errorf("Unexpected empty-state text: %q", text)
	}
}

func TestTemplateGeneratorMentionsWinners(t *testing.T) {
	ins := query.Insights{
		TopStore: query.Insight{
			Dimension: "store", Key: "Airport",
			Value: decimal.NewFromInt(350), Available: true,
		},
		TopCategory: query.Insight{
			Dimension: "category", Key: "Groceries",
			Value: decimal.NewFromInt(400), Available: true,
		},
	}
	sum := query.Summary{UniqueCustomers: 10, RepeatPurchaseRate: 30, HighValueCustomers: 2}

	text, err := TemplateGenerator{}.Narrate(context.Background(), ins, sum)
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}

	for _, want := range []string{"Airport", "Groceries", "30.0%", "2 qualify as high-value"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected narrative to mention %q, got: %s", want, text)
		}
	}
}

func TestTemplateGeneratorSkipsUnavailableDimensions(t *testing.T) {
	ins := query.Insights{
		TopStore: query.Insight{
			Dimension: "store", Key: "Downtown",
			Value: decimal.NewFromInt(100), Available: true,
		},
	}

	text, err := TemplateGenerator{}.Narrate(context.Background(), ins, query.Summary{})
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}
	if !strings.Contains(text, "Downtown") {
		t.Errorf("Expected the available dimension to appear, got: %s", text)
	}
	if strings.Contains(text, "channel") || strings.Contains(text, "segment") {
		t.Errorf("Unavailable dimensions must be skipped, got: %s", text)
	}
}
