package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	APIKey string
	Model  string
}

const anthropicMaxTokens = 2048

type anthropicResponse struct {
	Content []struct {
		Type  string         `json:"type"`
		Text  string         `json:"text,omitempty"`
		Name  string         `json:"name,omitempty"`
		Input map[string]any `json:"input,omitempty"`
	} `json:"content"`
}

func (c *AnthropicClient) GenerateJSON(ctx context.Context, prompt string, out any) error {
	body := map[string]any{
		"model":      c.Model,
		"max_tokens": anthropicMaxTokens,
		"messages": []map[string]any{{
			"role":    "user",
			"content": []map[string]string{{"type": "text", "text": prompt + "\n\nRespond with a single JSON object only, no prose, no code fences."}},
		}},
	}
	var resp anthropicResponse
	if err := c.postJSON(ctx, body, &resp); err != nil {
		return err
	}
	txt := firstAnthropicText(resp)
	if txt == "" {
		return errors.New("anthropic: empty response")
	}
	return decodeJSON(txt, out)
}

func (c *AnthropicClient) GenerateToolCalls(ctx context.Context, prompt string, tools []ToolSpec) ([]ToolCall, error) {
	specs := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.Parameters,
		})
	}
	body := map[string]any{
		"model":      c.Model,
		"max_tokens": anthropicMaxTokens,
		"tools":      specs,
		"messages": []map[string]any{{
			"role":    "user",
			"content": []map[string]string{{"type": "text", "text": prompt}},
		}},
	}
	var resp anthropicResponse
	if err := c.postJSON(ctx, body, &resp); err != nil {
		return nil, err
	}
	var calls []ToolCall
	for _, block := range resp.Content {
		if block.Type == "tool_use" {
			calls = append(calls, ToolCall{Name: block.Name, Args: block.Input})
		}
	}
	return calls, nil
}

func (c *AnthropicClient) GenerateStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	body := map[string]any{
		"model":      c.Model,
		"max_tokens": anthropicMaxTokens,
		"stream":     true,
		"messages": []map[string]any{{
			"role":    "user",
			"content": []map[string]string{{"type": "text", "text": prompt}},
		}},
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(b))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	httpClient := &http.Client{Timeout: clientTimeout()}
	res, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var eresp map[string]any
		_ = json.NewDecoder(res.Body).Decode(&eresp)
		return fmt.Errorf("anthropic status %d: %v", res.StatusCode, eresp)
	}
	sc := newLineReader(res.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		var ev struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				if err := onDelta(ev.Delta.Text); err != nil {
					return err
				}
			}
		case "message_stop":
			return sc.Err()
		}
	}
	return sc.Err()
}

func (c *AnthropicClient) postJSON(ctx context.Context, body any, out any) error {
	b, _ := json.Marshal(body)
	httpClient := &http.Client{Timeout: clientTimeout()}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(b))
		if err != nil {
			return err
		}
		c.setHeaders(req)
		res, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			if isTimeout(err) {
				time.Sleep(backoff(attempt))
				continue
			}
			return err
		}
		if res.StatusCode >= 200 && res.StatusCode < 300 {
			err = json.NewDecoder(res.Body).Decode(out)
			res.Body.Close()
			return err
		}
		var eresp map[string]any
		_ = json.NewDecoder(res.Body).Decode(&eresp)
		res.Body.Close()
		lastErr = fmt.Errorf("anthropic status %d: %v", res.StatusCode, eresp)
		if retryableStatus(res.StatusCode) {
			time.Sleep(backoff(attempt))
			continue
		}
		return lastErr
	}
	return lastErr
}

func (c *AnthropicClient) endpoint() string {
	if url := os.Getenv("ANTHROPIC_API_URL"); url != "" {
		return url
	}
	return "https://api.anthropic.com/v1/messages"
}

func (c *AnthropicClient) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")
}

func firstAnthropicText(resp anthropicResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text
		}
	}
	return ""
}
