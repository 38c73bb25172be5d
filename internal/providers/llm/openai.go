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

// OpenAIClient talks to the Chat Completions API, which keeps it
// compatible with OpenAI-style proxies via OPENAI_API_BASE.
type OpenAIClient struct {
	APIKey  string
	Model   string
	BaseURL string
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) GenerateJSON(ctx context.Context, prompt string, out any) error {
	body := map[string]any{
		"model":           c.Model,
		"messages":        []map[string]string{{"role": "user", "content": prompt}},
		"temperature":     0.2,
		"response_format": map[string]string{"type": "json_object"},
	}
	var resp openAIResponse
	if err := c.postJSON(ctx, c.endpoint("/v1/chat/completions"), body, &resp); err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return errors.New("openai: no choices")
	}
	return decodeJSON(resp.Choices[0].Message.Content, out)
}

func (c *OpenAIClient) GenerateToolCalls(ctx context.Context, prompt string, tools []ToolSpec) ([]ToolCall, error) {
	specs := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	body := map[string]any{
		"model":       c.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": 0.2,
		"tools":       specs,
	}
	var resp openAIResponse
	if err := c.postJSON(ctx, c.endpoint("/v1/chat/completions"), body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: no choices")
	}
	var calls []ToolCall
	for _, tc := range resp.Choices[0].Message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			// a malformed arguments blob drops just that call
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				continue
			}
		}
		calls = append(calls, ToolCall{Name: tc.Function.Name, Args: args})
	}
	return calls, nil
}

func (c *OpenAIClient) GenerateStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	body := map[string]any{
		"model":       c.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": 0.3,
		"stream":      true,
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/chat/completions"), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	httpClient := &http.Client{Timeout: clientTimeout()}
	res, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var eresp map[string]any
		_ = json.NewDecoder(res.Body).Decode(&eresp)
		return fmt.Errorf("openai status %d: %v", res.StatusCode, eresp)
	}
	sc := newLineReader(res.Body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if err := onDelta(chunk.Choices[0].Delta.Content); err != nil {
				return err
			}
		}
	}
	return sc.Err()
}

func (c *OpenAIClient) postJSON(ctx context.Context, url string, body any, out any) error {
	b, _ := json.Marshal(body)
	httpClient := &http.Client{Timeout: clientTimeout()}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		req.Header.Set("Content-Type", "application/json")
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
		lastErr = fmt.Errorf("openai status %d: %v", res.StatusCode, eresp)
		if retryableStatus(res.StatusCode) {
			time.Sleep(backoff(attempt))
			continue
		}
		return lastErr
	}
	return lastErr
}

func (c *OpenAIClient) endpoint(path string) string {
	base := c.BaseURL
	if base == "" {
		base = os.Getenv("OPENAI_API_BASE")
	}
	if base == "" {
		base = "https://api.openai.com"
	}
	return strings.TrimRight(base, "/") + path
}
