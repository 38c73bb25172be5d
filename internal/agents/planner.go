package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/haandol/open-perplexity/internal/models"
	"github.com/haandol/open-perplexity/internal/providers/llm"
	"github.com/haandol/open-perplexity/internal/tools"
)

const plannerSystemPrompt = `You are a strategic expert AI assistant generating a plan consisting of tasks for a given user input.
Each task must be executable using specific tools that are provided.
Your goal is to create a comprehensive and logical plan that addresses the user's input effectively.

## Tools
First, review the available tools provided within the <available-tools> tags.

## Plan Generation
Follow these steps to generate the plan:
1. Analyze the user input: identify the main goal, sub-goals, and any constraints or preferences.
2. Create tasks: break the input into smaller, manageable tasks, each executable with one of the available tools.
   If no proper tool is available for a sub-goal, skip that sub-goal. Arrange tasks in the order they must run.
3. Generate the plan: a brief overview plus the ordered task list.

## Review Tasks
Refine the tasks to remove ambiguity. Replace vague terms like "recent" or "latest" with concrete values
derived from the provided current datetime, and substitute vague pronouns with specifics from the input context.
If the user input needs no tool-assisted work at all, return an empty task list.

Respond with a JSON object:
{"revised_user_input": "...", "category": "...", "overview": "...", "tasks": [{"title": "...", "description": "...", "tool_name": "...", "tool_args": {}}]}`

// Planner decomposes the revised input into an ordered task list bound
// to registered tools. Like the classifier, a structured-output failure
// is fatal for the turn.
type Planner struct {
	Client   llm.Client
	Registry *tools.Registry
	Now      func() time.Time
}

func (p *Planner) Plan(ctx context.Context, state *models.State) error {
	var plan models.Plan
	if err := p.Client.GenerateJSON(ctx, p.buildPrompt(state), &plan); err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	state.Plan = &plan
	state.RemainingTasks = append([]models.Task(nil), plan.Tasks...)
	log.Info().Int("tasks", len(plan.Tasks)).Str("overview", plan.Overview).Msg("plan generated")
	return nil
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func (p *Planner) buildPrompt(state *models.State) string {
	var b strings.Builder
	b.WriteString(plannerSystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(renderHistory(state.Messages))
	b.WriteString("\n\n<current-datetime>" + p.now().Format(time.RFC3339) + "</current-datetime>\n")
	b.WriteString("\nHere is the user input for planning:\n<user-input>\n")
	b.WriteString(state.UserInput)
	b.WriteString("\n</user-input>\n\nAnd the available tools to use:\n<available-tools>\n")
	b.WriteString(p.Registry.Describe())
	b.WriteString("\n</available-tools>")
	return b.String()
}
