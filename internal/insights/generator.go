// Package insights generates a short narrative summary of the latest metrics
// using OpenAI's API. It is strictly optional: the dashboard works without it.
package insights

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"covidash/internal/httputil"
	"covidash/internal/metrics"
	"covidash/internal/models"
)

// Generator produces narrative summaries of the dashboard's headline metrics.
type Generator struct {
	client openai.Client
	model  string

	mu    sync.Mutex
	cache map[string]string
}

// NewGenerator creates a narrative generator. It reads the OPENAI_API_KEY
// environment variable for authentication; callers treat an error as
// "insights disabled" rather than fatal.
func NewGenerator(apiKey string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httputil.NewClient()),
	)

	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
		cache:  make(map[string]string),
	}, nil
}

// Generate returns a narrative for the given latest-per-location rows. Results
// are cached by cacheKey (callers pass the dataset version) so repeated page
// loads do not repeat API calls.
func (g *Generator) Generate(ctx context.Context, latest []models.Observation, cacheKey string) (string, error) {
	g.mu.Lock()
	if text, ok := g.cache[cacheKey]; ok {
		g.mu.Unlock()
		return text, nil
	}
	g.mu.Unlock()

	prompt := buildPrompt(latest)
	log.Printf("insights: generating narrative for %d locations", len(latest))

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a public-health data analyst. Summarise the supplied COVID-19 metrics in 3-5 plain sentences. Note vaccination progress, mortality differences, and any outliers. Do not speculate beyond the data."),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		metrics.InsightsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("narrative generation failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.InsightsTotal.WithLabelValues("error").Inc()
		return "", errors.New("no narrative returned")
	}

	text := resp.Choices[0].Message.Content
	g.mu.Lock()
	g.cache[cacheKey] = text
	g.mu.Unlock()

	metrics.InsightsTotal.WithLabelValues("ok").Inc()
	return text, nil
}

func buildPrompt(latest []models.Observation) string {
	var b strings.Builder
	b.WriteString("Latest COVID-19 figures per location:\n")
	for i := range latest {
		o := &latest[i]
		fmt.Fprintf(&b, "- %s: total cases %s, total deaths %s, mortality rate %s%%, vaccination rate %s%%, fully vaccinated %s%%\n",
			o.Location,
			formatNull(o.TotalCases, "%.0f"),
			formatNull(o.TotalDeaths, "%.0f"),
			formatNull(o.MortalityRate, "%.2f"),
			formatNull(o.VaccinationRate, "%.1f"),
			formatNull(o.FullyVaccinatedRate, "%.1f"),
		)
	}
	return b.String()
}

func formatNull(v sql.NullFloat64, format string) string {
	if !v.Valid {
		return "n/a"
	}
	return fmt.Sprintf(format, v.Float64)
}
