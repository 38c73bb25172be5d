package llm

import "context"

// ToolSpec describes one invocable capability to the model.
type ToolSpec struct {
	Name        string
	Description string
	// Parameters is a JSON schema object for the tool's arguments.
	Parameters map[string]any
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Client is the narrow contract the agents need from a generation
// backend: schema-constrained structured output, tool calling, and
// streamed plain text. Implementations must be safe for concurrent use.
type Client interface {
	// GenerateJSON prompts the model and decodes its JSON reply into out.
	GenerateJSON(ctx context.Context, prompt string, out any) error
	// GenerateToolCalls prompts the model with the given tools and returns
	// the tool invocations it requested, possibly none.
	GenerateToolCalls(ctx context.Context, prompt string, tools []ToolSpec) ([]ToolCall, error)
	// GenerateStream prompts the model and delivers text fragments to
	// onDelta as they arrive. A non-nil error from onDelta stops the stream.
	GenerateStream(ctx context.Context, prompt string, onDelta func(chunk string) error) error
}
