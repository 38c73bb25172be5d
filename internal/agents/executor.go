package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/haandol/open-perplexity/internal/models"
	"github.com/haandol/open-perplexity/internal/providers/llm"
	"github.com/haandol/open-perplexity/internal/tools"
)

const executorSystemPrompt = `You are an AI assistant tasked with completing a specific task using a given tool.
Your goal is to understand the tool's capabilities and use it effectively to accomplish the assigned task.

## Tool Selection
- Only use the capabilities of the tools provided. Do not assume any additional functionality.
- If a tool has limitations or specific usage instructions, adhere to them strictly.

## Take Action with The Tool
1. Carefully read and understand the capabilities of the provided tools.
2. Analyze the task and determine how a tool can be used to accomplish it.
3. If a tool is sufficient to complete the task, call it as needed.
4. If no tool is sufficient, do not call anything.`

// TaskExecutor is the loop body of the executing phase: each invocation
// consumes exactly one task from the front of the remaining queue,
// regardless of whether the step succeeds. All failures inside a step
// are logged and skipped; the turn continues on partial evidence.
type TaskExecutor struct {
	Client   llm.Client
	Registry *tools.Registry
}

func (e *TaskExecutor) ExecuteOne(ctx context.Context, state *models.State) error {
	if len(state.RemainingTasks) == 0 {
		return nil
	}
	task := state.RemainingTasks[0]
	state.RemainingTasks = state.RemainingTasks[1:]

	calls, err := e.Client.GenerateToolCalls(ctx, e.buildPrompt(task), e.toolSpecs())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Str("task", task.Title).Msg("tool-call generation failed, step contributes nothing")
		return nil
	}

	var lastExec *models.ToolExecution
	for _, call := range calls {
		name := strings.ToLower(call.Name)
		tool, ok := e.Registry.Get(name)
		if !ok {
			log.Error().Str("tool", name).Msg("tool not found in registry, skipping call")
			continue
		}
		args := mergeArgs(task.ToolArgs, call.Args)
		result, err := tool.Execute(ctx, args)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Str("tool", name).Msg("tool execution failed, skipping call")
			continue
		}
		state.TaskResults[task.Title] = result
		lastExec = &models.ToolExecution{Name: name, Args: args, Result: result}

		if name == tools.WebSearchName {
			var hits []models.Source
			if err := json.Unmarshal([]byte(result), &hits); err != nil {
				log.Error().Err(err).Msg("error deserializing web search result")
			} else {
				state.Sources = append(state.Sources, hits...)
			}
		}
	}
	state.ToolExecution = lastExec
	return nil
}

// mergeArgs overlays the model's call arguments onto the planner's
// task arguments; the call wins on conflict.
func mergeArgs(taskArgs, callArgs map[string]any) map[string]any {
	if len(taskArgs) == 0 {
		return callArgs
	}
	merged := make(map[string]any, len(taskArgs)+len(callArgs))
	for k, v := range taskArgs {
		merged[k] = v
	}
	for k, v := range callArgs {
		merged[k] = v
	}
	return merged
}

func (e *TaskExecutor) toolSpecs() []llm.ToolSpec {
	list := e.Registry.List()
	specs := make([]llm.ToolSpec, 0, len(list))
	for _, t := range list {
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.InputSchema(),
		})
	}
	return specs
}

func (e *TaskExecutor) buildPrompt(task models.Task) string {
	var b strings.Builder
	b.WriteString(executorSystemPrompt)
	b.WriteString("\n\n<current-datetime>" + time.Now().UTC().Format(time.RFC3339) + "</current-datetime>\n")
	fmt.Fprintf(&b, "\nHere is the task to complete:\n<task>\n<title>%s</title>\n<description>%s</description>\n<tool-name>%s</tool-name>\n</task>\n", task.Title, task.Description, task.ToolName)
	b.WriteString("\nHere are the available tools to use:\n<available-tools>\n")
	b.WriteString(e.Registry.Describe())
	b.WriteString("\n</available-tools>\n\nSelect the appropriate tool and take action to complete the task.")
	return b.String()
}
