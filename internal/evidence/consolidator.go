// Package evidence turns the raw sources gathered during task execution
// into the deduplicated, reranked subset the summarizer cites.
package evidence

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/haandol/open-perplexity/internal/models"
	"github.com/haandol/open-perplexity/internal/rerank"
)

// document is the minimal projection submitted for ranking. URL rides
// along with the content so identity survives the round trip.
type document struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Consolidator applies dedupe -> rerank -> truncate.
type Consolidator struct {
	Reranker rerank.Client
	TopK     int
}

// Consolidate returns at most TopK sources with pairwise-distinct URLs.
// Output order is the insertion order of the deduplicated set filtered
// to the reranker's selection, not the reranker's rank order: for the
// small corpora seen here the backend's ordering is not trustworthy, so
// citation indices stay stable across runs instead.
//
// When the rerank backend fails, the deduplicated set truncated to TopK
// is returned so an otherwise complete turn can still be answered.
func (c *Consolidator) Consolidate(ctx context.Context, query string, sources []models.Source) ([]models.Source, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	deduped := dedupeByURL(sources)
	topN := c.TopK
	if len(deduped) < topN {
		topN = len(deduped)
	}

	docs := make([]string, 0, len(deduped))
	for _, s := range deduped {
		b, err := json.Marshal(document{Title: s.Title, URL: s.URL, Content: s.Content})
		if err != nil {
			return nil, err
		}
		docs = append(docs, string(b))
	}

	indices, err := c.Reranker.Rerank(ctx, query, docs, topN)
	if err != nil {
		log.Warn().Err(err).Msg("rerank failed, falling back to insertion order")
		return deduped[:topN], nil
	}

	selected := map[int]bool{}
	for _, i := range indices {
		if i >= 0 && i < len(docs) {
			selected[i] = true
		}
	}

	out := make([]models.Source, 0, len(selected))
	for i, raw := range docs {
		if len(out) == topN {
			break
		}
		if !selected[i] {
			continue
		}
		var d document
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, err
		}
		out = append(out, models.Source{Title: d.Title, URL: d.URL, Content: d.Content})
	}
	return out, nil
}

// dedupeByURL keeps one source per URL: the first occurrence fixes the
// position, the last occurrence supplies the value.
func dedupeByURL(sources []models.Source) []models.Source {
	index := map[string]int{}
	out := make([]models.Source, 0, len(sources))
	for _, s := range sources {
		if i, seen := index[s.URL]; seen {
			out[i] = s
			continue
		}
		index[s.URL] = len(out)
		out = append(out, s)
	}
	return out
}
