package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haandol/open-perplexity/internal/models"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]models.Source
	errs    map[string]error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]models.Source, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

func TestWebSearchFiltersByScoreThreshold(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.Source{
		"tokyo weather": {
			{Title: "good", URL: "https://a.example.com", Content: "x", Score: 0.9},
			{Title: "borderline", URL: "https://b.example.com", Content: "y", Score: 0.45},
			{Title: "bad", URL: "https://c.example.com", Content: "z", Score: 0.1},
		},
	}}
	w := &WebSearchTool{Searcher: searcher, MaxResults: 3, ScoreThreshold: 0.45}
	out, err := w.Execute(context.Background(), map[string]any{"queries": []any{"tokyo weather"}})
	require.NoError(t, err)

	var hits []models.Source
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1, "only hits strictly above the threshold survive")
	assert.Equal(t, "https://a.example.com", hits[0].URL)
}

func TestWebSearchFanOutCollectsInQueryOrder(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.Source{
		"q1": {{Title: "one", URL: "https://1.example.com", Content: "a", Score: 0.8}},
		"q2": {{Title: "two", URL: "https://2.example.com", Content: "b", Score: 0.8}},
	}}
	w := &WebSearchTool{Searcher: searcher, MaxResults: 3, ScoreThreshold: 0.45}
	out, err := w.Execute(context.Background(), map[string]any{"queries": []any{"q1", "q2"}})
	require.NoError(t, err)

	var hits []models.Source
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 2)
	assert.Equal(t, "https://1.example.com", hits[0].URL)
	assert.Equal(t, "https://2.example.com", hits[1].URL)
}

func TestWebSearchPartialFailureKeepsOtherResults(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]models.Source{
			"ok": {{Title: "one", URL: "https://1.example.com", Content: "a", Score: 0.8}},
		},
		errs: map[string]error{"broken": errors.New("backend down")},
	}
	w := &WebSearchTool{Searcher: searcher, MaxResults: 3, ScoreThreshold: 0.45}
	out, err := w.Execute(context.Background(), map[string]any{"queries": []any{"broken", "ok"}})
	require.NoError(t, err)

	var hits []models.Source
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "https://1.example.com", hits[0].URL)
}

func TestWebSearchMissingQueries(t *testing.T) {
	w := &WebSearchTool{Searcher: &fakeSearcher{}, MaxResults: 3, ScoreThreshold: 0.45}
	_, err := w.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestWebSearchAcceptsSingleQueryArg(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]models.Source{
		"solo": {{Title: "one", URL: "https://1.example.com", Content: "a", Score: 0.8}},
	}}
	w := &WebSearchTool{Searcher: searcher, MaxResults: 3, ScoreThreshold: 0.45}
	_, err := w.Execute(context.Background(), map[string]any{"query": "solo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, searcher.queries)
}

func TestTavilyClientDecodesResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tokyo weather", body["query"])
		assert.Equal(t, float64(3), body["max_results"])

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Tokyo Forecast", "url": "https://weather.example.com/tokyo", "content": "Sunny", "score": 0.91},
			},
		})
	}))
	defer ts.Close()

	c := NewTavilyClient("test-key")
	c.BaseURL = ts.URL
	hits, err := c.Search(context.Background(), "tokyo weather", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Tokyo Forecast", hits[0].Title)
	assert.InDelta(t, 0.91, hits[0].Score, 1e-9)
}

func TestTavilyClientRequiresAPIKey(t *testing.T) {
	c := NewTavilyClient("")
	_, err := c.Search(context.Background(), "q", 3)
	require.Error(t, err)
}

func TestTavilyClientHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewTavilyClient("test-key")
	c.BaseURL = ts.URL
	_, err := c.Search(context.Background(), "q", 3)
	require.Error(t, err)
}
