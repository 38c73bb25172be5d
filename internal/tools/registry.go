package tools

import (
	"context"
	"strings"
)

// Tool is one invocable capability: the planner sees its name and
// description, the executor invokes it with model-generated arguments.
type Tool interface {
	Name() string
	Description() string
	// InputSchema is a JSON schema object describing the tool arguments.
	InputSchema() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Registry is a fixed, name-keyed tool catalog. Lookup is
// case-insensitive because model-emitted tool names vary in casing.
// Register at startup only; lookups are read-only afterwards.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

func (r *Registry) Register(t Tool) {
	key := strings.ToLower(t.Name())
	if _, exists := r.tools[key]; !exists {
		r.order = append(r.order, key)
	}
	r.tools[key] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[strings.ToLower(name)]
	return t, ok
}

// List returns the registered tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.tools[key])
	}
	return out
}

// Describe renders the catalog as tagged blocks for prompt embedding.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, t := range r.List() {
		b.WriteString("<tool>\n")
		b.WriteString(" <name>" + t.Name() + "</name>\n")
		b.WriteString(" <description>" + t.Description() + "</description>\n")
		b.WriteString("</tool>\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
