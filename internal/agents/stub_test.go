package agents

import (
	"context"
	"encoding/json"

	"github.com/haandol/open-perplexity/internal/providers/llm"
)

// stubClient scripts the generation backend for agent tests.
type stubClient struct {
	jsonReply string
	jsonErr   error

	toolCalls []llm.ToolCall
	toolErr   error

	streamChunks []string
	streamErr    error

	lastPrompt string
	lastTools  []llm.ToolSpec
}

func (s *stubClient) GenerateJSON(_ context.Context, prompt string, out any) error {
	s.lastPrompt = prompt
	if s.jsonErr != nil {
		return s.jsonErr
	}
	return json.Unmarshal([]byte(s.jsonReply), out)
}

func (s *stubClient) GenerateToolCalls(_ context.Context, prompt string, tools []llm.ToolSpec) ([]llm.ToolCall, error) {
	s.lastPrompt = prompt
	s.lastTools = tools
	return s.toolCalls, s.toolErr
}

func (s *stubClient) GenerateStream(_ context.Context, prompt string, onDelta func(chunk string) error) error {
	s.lastPrompt = prompt
	if s.streamErr != nil {
		return s.streamErr
	}
	for _, c := range s.streamChunks {
		if err := onDelta(c); err != nil {
			return err
		}
	}
	return nil
}
