package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client reorders documents by relevance to a query and returns the
// indices of the selected top-n subset.
type Client interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]int, error)
}

// CohereClient calls the Cohere v2 rerank endpoint.
type CohereClient struct {
	APIKey  string
	Model   string
	BaseURL string
	client  *http.Client
}

func NewCohereClient(apiKey, model string) *CohereClient {
	return &CohereClient{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://api.cohere.com",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *CohereClient) Rerank(ctx context.Context, query string, documents []string, topN int) ([]int, error) {
	body := map[string]any{
		"model":     c.Model,
		"query":     query,
		"documents": documents,
		"top_n":     topN,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v2/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var eresp map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		return nil, fmt.Errorf("cohere rerank status %d: %v", resp.StatusCode, eresp)
	}

	var response struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	indices := make([]int, 0, len(response.Results))
	for _, r := range response.Results {
		indices = append(indices, r.Index)
	}
	return indices, nil
}
