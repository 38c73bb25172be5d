package llm

import (
	"context"
	"strings"
)

// MockClient is used when no real provider is configured. It produces
// just enough structure to exercise the full flow locally.
type MockClient struct{}

func (m *MockClient) GenerateJSON(ctx context.Context, prompt string, out any) error {
	p := strings.ToLower(prompt)
	var raw string
	switch {
	case strings.Contains(p, "classify"):
		raw = `{"name":"Unknown","user_input":"","revised_user_input":"","reason":"mock classification"}`
	case strings.Contains(p, "plan"):
		raw = `{"revised_user_input":"","category":"Unknown","overview":"mock plan","tasks":[]}`
	default:
		raw = `{}`
	}
	return decodeJSON(raw, out)
}

func (m *MockClient) GenerateToolCalls(ctx context.Context, prompt string, tools []ToolSpec) ([]ToolCall, error) {
	return nil, nil
}

func (m *MockClient) GenerateStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error {
	return onDelta("(no generation backend configured)")
}
