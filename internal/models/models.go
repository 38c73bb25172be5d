package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Required classification labels. The rest of the category list is
// configuration; these two drive control flow.
const (
	CategoryNonCompliant = "NonCompliant"
	CategoryUnknown      = "Unknown"
)

// Message is a single conversation history entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Task is one tool-bound unit of work produced by the planner.
// Tasks are immutable after planning; the executor consumes them
// from State.RemainingTasks.
type Task struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	ToolName    string         `json:"tool_name"`
	ToolArgs    map[string]any `json:"tool_args,omitempty"`
}

// Plan is the planner's output for one turn. Tasks is empty exactly
// when the request needs no tool-assisted work. A Plan is never
// mutated after creation; State.RemainingTasks holds the working copy.
type Plan struct {
	RevisedUserInput string `json:"revised_user_input"`
	Category         string `json:"category"`
	Overview         string `json:"overview"`
	Tasks            []Task `json:"tasks"`
}

// Source is a single piece of web evidence. URL is the identity key
// used for deduplication.
type Source struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// ToolExecution records the last tool invocation of an executor step,
// kept for observability.
type ToolExecution struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Result string         `json:"result,omitempty"`
}

// State is the single mutable record threaded through the state
// machine for one user turn. It is created fresh per turn from the
// session's accumulated history and discarded afterwards, except for
// Messages which the session carries forward.
type State struct {
	Phase string `json:"phase"`

	UserInput string    `json:"user_input"`
	Messages  []Message `json:"messages"`

	Category string `json:"category,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Plan           *Plan          `json:"plan,omitempty"`
	RemainingTasks []Task         `json:"remaining_tasks,omitempty"`
	ToolExecution  *ToolExecution `json:"tool_execution,omitempty"`
	Sources        []Source       `json:"sources,omitempty"`

	// TaskResults maps a task title to the raw tool output of the most
	// recent execution step.
	TaskResults map[string]string `json:"task_results,omitempty"`
}

// NewState builds the turn record from the incoming user message and
// the conversation history so far.
func NewState(userInput string, history []Message) *State {
	msgs := make([]Message, len(history))
	copy(msgs, history)
	return &State{
		UserInput:   userInput,
		Messages:    msgs,
		TaskResults: map[string]string{},
	}
}
