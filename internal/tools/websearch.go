package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/haandol/open-perplexity/internal/models"
)

// WebSearchName is the tool name the planner binds search tasks to.
const WebSearchName = "web_search"

const searchQueryTimeout = 10 * time.Second

// Searcher maps one query to ranked web results.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.Source, error)
}

// WebSearchTool fans a set of model-generated queries out to the search
// backend and returns the merged hits as a JSON array of sources.
type WebSearchTool struct {
	Searcher       Searcher
	MaxResults     int     // per-query result cap
	ScoreThreshold float64 // hits at or below this relevance are dropped
}

func (w *WebSearchTool) Name() string { return WebSearchName }

func (w *WebSearchTool) Description() string {
	return "Searches given queries on the web and returns the search results. " +
		"Generate 2-3 relevant English search queries per task, each capturing the main intent " +
		"from a different perspective or context. Use clear, well-formed questions or keyword combinations."
}

func (w *WebSearchTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"queries": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Query strings for web search. Each query must be in English and specific enough to yield relevant results.",
			},
		},
		"required": []string{"queries"},
	}
}

// Execute dispatches all queries concurrently, each with its own
// timeout. A failed or timed-out query contributes nothing; the others
// still count. Results are collected in query order so output is
// deterministic for a given backend response set.
func (w *WebSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	queries := parseQueries(args)
	if len(queries) == 0 {
		return "", fmt.Errorf("web_search: missing queries")
	}

	perQuery := make([][]models.Source, len(queries))
	var g errgroup.Group
	g.SetLimit(len(queries))
	for i, q := range queries {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, searchQueryTimeout)
			defer cancel()
			hits, err := w.Searcher.Search(qctx, q, w.MaxResults)
			if err != nil {
				log.Warn().Err(err).Str("query", q).Msg("web search query failed")
				return nil
			}
			kept := hits[:0]
			for _, h := range hits {
				if h.Score > w.ScoreThreshold {
					kept = append(kept, h)
				}
			}
			perQuery[i] = kept
			return nil
		})
	}
	_ = g.Wait()

	var results []models.Source
	for _, hits := range perQuery {
		results = append(results, hits...)
	}
	log.Info().Int("queries", len(queries)).Int("results", len(results)).Msg("web search done")

	b, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseQueries(args map[string]any) []string {
	var queries []string
	switch v := args["queries"].(type) {
	case []string:
		queries = v
	case []any:
		for _, q := range v {
			if s, ok := q.(string); ok && s != "" {
				queries = append(queries, s)
			}
		}
	}
	// models sometimes emit a single "query" instead
	if len(queries) == 0 {
		if s, ok := args["query"].(string); ok && s != "" {
			queries = append(queries, s)
		}
	}
	return queries
}
