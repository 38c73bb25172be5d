package llm

import (
	"context"
	"errors"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient wraps the official generative-ai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: c, model: model}, nil
}

func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, out any) error {
	m := c.client.GenerativeModel(c.model)
	m.ResponseMIMEType = "application/json"
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return err
	}
	txt := firstGeminiText(resp)
	if txt == "" {
		return errors.New("gemini: empty response")
	}
	return decodeJSON(txt, out)
}

func (c *GeminiClient) GenerateToolCalls(ctx context.Context, prompt string, tools []ToolSpec) ([]ToolCall, error) {
	m := c.client.GenerativeModel(c.model)
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.Parameters),
		})
	}
	m.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}
	var calls []ToolCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if fc, ok := part.(genai.FunctionCall); ok {
				calls = append(calls, ToolCall{Name: fc.Name, Args: fc.Args})
			}
		}
	}
	return calls, nil
}

func (c *GeminiClient) GenerateStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	m := c.client.GenerativeModel(c.model)
	it := m.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return err
		}
		if txt := firstGeminiText(resp); txt != "" {
			if err := onDelta(txt); err != nil {
				return err
			}
		}
	}
}

func firstGeminiText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

// toGeminiSchema converts the subset of JSON schema used by tool
// parameter declarations (object/array/string/number/integer/boolean).
func toGeminiSchema(s map[string]any) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{}
	if d, ok := s["description"].(string); ok {
		out.Description = d
	}
	switch s["type"] {
	case "object":
		out.Type = genai.TypeObject
		if props, ok := s["properties"].(map[string]any); ok {
			out.Properties = map[string]*genai.Schema{}
			for name, p := range props {
				if pm, ok := p.(map[string]any); ok {
					out.Properties[name] = toGeminiSchema(pm)
				}
			}
		}
		if req, ok := s["required"].([]string); ok {
			out.Required = req
		} else if req, ok := s["required"].([]any); ok {
			for _, r := range req {
				if rs, ok := r.(string); ok {
					out.Required = append(out.Required, rs)
				}
			}
		}
	case "array":
		out.Type = genai.TypeArray
		if items, ok := s["items"].(map[string]any); ok {
			out.Items = toGeminiSchema(items)
		}
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	return out
}
