package narrative

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/urbanmart/sales-dashboard/internal/query"
)

// DefaultModelName is the Gemini model used when the configuration does not
// name one.
const DefaultModelName = "gemini-2.0-flash"

// GeminiGenerator rewrites the templated insight sentences into a short
// executive narrative using Gemini. Requires GEMINI_API_KEY (or Vertex
// credentials) in the environment.
type GeminiGenerator struct {
	model    string
	fallback TemplateGenerator
}

// NewGeminiGenerator creates a generator for the given model name; an empty
// name selects DefaultModelName.
func NewGeminiGenerator(model string) *GeminiGenerator {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiGenerator{model: model}
}

func (g *GeminiGenerator) Narrate(ctx context.Context, ins query.Insights, sum query.Summary) (string, error) {
	facts, err := g.fallback.Narrate(ctx, ins, sum)
	if err != nil {
		return "", err
	}

	prompt := "You are writing a short summary for a retail sales dashboard.\n\n" +
		"Rewrite the following facts as 2-3 plain sentences of business guidance.\n" +
		"Do not invent numbers, do not use Markdown, do not add caveats.\n\n" +
		"Facts:\n" + facts + "\n"

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("narrate: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("narrate: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("narrate: empty response from model")
	}
	return text, nil
}

var _ Generator = (*GeminiGenerator)(nil)
