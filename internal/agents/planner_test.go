package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haandol/open-perplexity/internal/models"
	"github.com/haandol/open-perplexity/internal/tools"
)

func testRegistry() *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(&tools.WebSearchTool{MaxResults: 3, ScoreThreshold: 0.45})
	return reg
}

func TestPlanBindsTasksAndQueue(t *testing.T) {
	client := &stubClient{jsonReply: `{
		"revised_user_input": "What's the weather in Tokyo on 2026-09-01?",
		"category": "Unknown",
		"overview": "search the forecast",
		"tasks": [
			{"title": "search weather", "description": "find the Tokyo forecast for 2026-09-01", "tool_name": "web_search", "tool_args": {}}
		]
	}`}
	p := &Planner{Client: client, Registry: testRegistry()}
	state := models.NewState("What's the weather in Tokyo tomorrow?", nil)
	require.NoError(t, p.Plan(context.Background(), state))

	require.NotNil(t, state.Plan)
	require.Len(t, state.Plan.Tasks, 1)
	assert.Equal(t, "web_search", state.Plan.Tasks[0].ToolName)
	require.Len(t, state.RemainingTasks, 1)

	// the queue is a separate copy; draining it must not touch the plan
	state.RemainingTasks = state.RemainingTasks[1:]
	assert.Len(t, state.Plan.Tasks, 1)
}

func TestPlanEmptyTaskList(t *testing.T) {
	client := &stubClient{jsonReply: `{"revised_user_input": "Hi, how are you?", "category": "Unknown", "overview": "greeting", "tasks": []}`}
	p := &Planner{Client: client, Registry: testRegistry()}
	state := models.NewState("Hi, how are you?", nil)
	require.NoError(t, p.Plan(context.Background(), state))

	require.NotNil(t, state.Plan)
	assert.Empty(t, state.Plan.Tasks)
	assert.Empty(t, state.RemainingTasks)
}

func TestPlanPromptCarriesToolsAndDatetime(t *testing.T) {
	client := &stubClient{jsonReply: `{"tasks": []}`}
	fixed := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	p := &Planner{Client: client, Registry: testRegistry(), Now: func() time.Time { return fixed }}
	require.NoError(t, p.Plan(context.Background(), models.NewState("latest LLM news", nil)))

	assert.Contains(t, client.lastPrompt, "<name>web_search</name>")
	assert.Contains(t, client.lastPrompt, "2026-08-31T12:00:00Z")
}

func TestPlanBackendFailureIsFatal(t *testing.T) {
	p := &Planner{Client: &stubClient{jsonErr: errors.New("boom")}, Registry: testRegistry()}
	err := p.Plan(context.Background(), models.NewState("hi", nil))
	require.Error(t, err)
}
