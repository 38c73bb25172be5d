package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/haandol/open-perplexity/internal/models"
	"github.com/haandol/open-perplexity/internal/providers/llm"
)

// Category is one classification label. The list is configuration:
// NonCompliant and Unknown are required, anything else is domain flavor.
type Category struct {
	Name        string
	Description string
}

func DefaultCategories() []Category {
	return []Category{
		{Name: models.CategoryNonCompliant, Description: "Input is related to unethical or illegal activities."},
		{Name: models.CategoryUnknown, Description: "Input is not related to any of the other categories."},
		{Name: "Game", Description: "Input is related to mobile and PC games."},
	}
}

const classifierSystemPrompt = `You are a highly accurate topic classifier for the user input.
Your goal is to classify the user input into one of the categories and generate the reason.

` + valuesBlock + `

## Input Analysis and Revise
Before classification, analyze the user input for revision:
1. Check if the input contains incomplete sentences or context-dependent references
2. If incomplete, review the chat history context provided
3. Reconstruct a complete statement by resolving pronouns and references using context, adding implied subjects or objects, and expanding abbreviated or partial phrases

## Classification
Now, classify the completed input into one of the categories provided within the <categories> tags.
If the input does not fit into any of the categories, classify it as "Unknown".

Respond with a JSON object: {"name": "<category name>", "user_input": "<original input>", "revised_user_input": "<completed input>", "reason": "<why>"}`

type classification struct {
	Name             string `json:"name"`
	UserInput        string `json:"user_input"`
	RevisedUserInput string `json:"revised_user_input"`
	Reason           string `json:"reason"`
}

// Classifier normalizes the raw user input against history and assigns
// exactly one category. A backend or schema failure here is fatal for
// the turn: no fallback category is invented.
type Classifier struct {
	Client     llm.Client
	Categories []Category
}

func (c *Classifier) Classify(ctx context.Context, state *models.State) error {
	var result classification
	if err := c.Client.GenerateJSON(ctx, c.buildPrompt(state), &result); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if result.Name == "" {
		return errors.New("classifier: empty category in structured output")
	}
	if result.RevisedUserInput != "" {
		state.UserInput = result.RevisedUserInput
	}
	state.Category = result.Name
	state.Reason = result.Reason
	log.Info().Str("category", result.Name).Str("reason", result.Reason).Msg("classified user input")
	return nil
}

func (c *Classifier) buildPrompt(state *models.State) string {
	var b strings.Builder
	b.WriteString(classifierSystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(renderHistory(state.Messages))
	b.WriteString("\n\nHere is the user input to classify:\n<user-input>\n")
	b.WriteString(state.UserInput)
	b.WriteString("\n</user-input>\n\nHere are the categories:\n<categories>\n")
	for _, cat := range c.Categories {
		b.WriteString("<category>\n")
		b.WriteString("<name>" + cat.Name + "</name>\n")
		b.WriteString("<description>" + cat.Description + "</description>\n")
		b.WriteString("</category>\n")
	}
	b.WriteString("</categories>")
	return b.String()
}
