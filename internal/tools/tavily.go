package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/haandol/open-perplexity/internal/models"
)

// TavilyClient calls the Tavily search API.
type TavilyClient struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

func NewTavilyClient(apiKey string) *TavilyClient {
	return &TavilyClient{
		APIKey:  apiKey,
		BaseURL: "https://api.tavily.com",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Search posts a single query and returns ranked results.
func (t *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]models.Source, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}
	body := map[string]any{
		"api_key":     t.APIKey,
		"query":       query,
		"max_results": maxResults,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	results := make([]models.Source, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, models.Source{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
	}
	return results, nil
}
