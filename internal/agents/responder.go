package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haandol/open-perplexity/internal/models"
	"github.com/haandol/open-perplexity/internal/providers/llm"
)

// RefusalMessage is the fixed reply for non-compliant input. It is not
// generated; the turn handler emits it verbatim.
const RefusalMessage = "I cannot perform that action as it goes against Open Perplexity's values."

const quickResponderSystemPrompt = `You are Open Perplexity's ethical AI assistant.
Your goal is to read the user input and generate an appropriate, helpful response using only the
conversation context. No external sources are available, so do not fabricate citations.

` + valuesBlock + `

## Response Format Instructions
<format-instructions>
- The language of your response must match the user input
- Ensure the response is clear, succinct, and easy to understand
- Use natural language and a friendly, professional tone
- Use markdown formatting for lists and emphasis, only if needed
</format-instructions>`

const summarizerSystemPrompt = `You are Open Perplexity's ethical AI assistant.
Your goal is to read the task results and generate an appropriate response for the user, including relevant citations from provided sources.

` + valuesBlock + `

## Response Generation with Task Results and Sources
1. Analyze and summarize the key points from the task results: common themes, important findings, discrepancies, and relevant information from the source URLs.
2. Generate a response that addresses the user's query, incorporates relevant information from the task results, and is clear, concise, and informative.
3. When citing sources:
 - Use inline citations in the format [#] where # is the index of the source in the provided list
 - Place citations immediately after the referenced information
 - Only cite information that directly comes from the provided sources
 - If multiple sources support a statement, include all relevant citations [#, #]
4. If the user's input cannot be fully addressed by the task results, acknowledge this and suggest next steps.

## Response Format Instructions
<format-instructions>
- The language of your response must match the user input
- Ensure the response is clear, succinct, and easy to understand
- Use natural language and a friendly, professional tone
- Include appropriate inline citations [#] when referencing source material
- Use markdown formatting for lists and emphasis, only if needed
</format-instructions>`

// QuickResponder answers directly from input and history when the plan
// produced no tasks. Fragments stream to onFragment as they arrive.
type QuickResponder struct {
	Client llm.Client
}

func (r *QuickResponder) Respond(ctx context.Context, state *models.State, onFragment func(chunk string) error) error {
	var b strings.Builder
	b.WriteString(quickResponderSystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(renderHistory(state.Messages))
	b.WriteString("\n\n<current-datetime>" + time.Now().UTC().Format(time.RFC3339) + "</current-datetime>\n")
	b.WriteString("\nHere is the user input to answer:\n<user-input>\n")
	b.WriteString(state.UserInput)
	b.WriteString("\n</user-input>")
	return r.Client.GenerateStream(ctx, b.String(), onFragment)
}

// TaskSummarizer synthesizes the cited final answer from consolidated
// evidence. Citation indices are 1-based positions in state.Sources.
type TaskSummarizer struct {
	Client llm.Client
}

func (r *TaskSummarizer) Respond(ctx context.Context, state *models.State, onFragment func(chunk string) error) error {
	var b strings.Builder
	b.WriteString(summarizerSystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(renderHistory(state.Messages))
	b.WriteString("\n\n<current-datetime>" + time.Now().UTC().Format(time.RFC3339) + "</current-datetime>\n")
	b.WriteString("\nHere is the user input to answer:\n<user-input>\n")
	b.WriteString(state.UserInput)
	b.WriteString("\n</user-input>\n")
	b.WriteString("\nHere are the source URLs to cite in [#] format:\n<sources>\n")
	b.WriteString(renderSources(state.Sources))
	b.WriteString("\n</sources>")
	return r.Client.GenerateStream(ctx, b.String(), onFragment)
}

func renderSources(sources []models.Source) string {
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "<source>\n<index>%d</index>\n<url>%s</url>\n<content>%s</content>\n</source>\n", i+1, s.URL, s.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
