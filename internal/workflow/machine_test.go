package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haandol/open-perplexity/internal/models"
)

type fakeClassifier struct {
	category string
	revised  string
	err      error
	calls    int
}

func (f *fakeClassifier) Classify(_ context.Context, state *models.State) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	state.Category = f.category
	if f.revised != "" {
		state.UserInput = f.revised
	}
	return nil
}

type fakePlanner struct {
	tasks []models.Task
	err   error
	calls int
}

func (f *fakePlanner) Plan(_ context.Context, state *models.State) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	state.Plan = &models.Plan{
		RevisedUserInput: state.UserInput,
		Category:         state.Category,
		Overview:         "test plan",
		Tasks:            f.tasks,
	}
	state.RemainingTasks = append([]models.Task(nil), f.tasks...)
	return nil
}

type fakeExecutor struct {
	sources []models.Source
	calls   int
}

func (f *fakeExecutor) ExecuteOne(_ context.Context, state *models.State) error {
	f.calls++
	if len(state.RemainingTasks) == 0 {
		return nil
	}
	task := state.RemainingTasks[0]
	state.RemainingTasks = state.RemainingTasks[1:]
	state.Sources = append(state.Sources, f.sources...)
	state.TaskResults[task.Title] = "done"
	return nil
}

func TestTransitionTable(t *testing.T) {
	compliant := &models.State{Category: "Unknown"}
	nonCompliant := &models.State{Category: models.CategoryNonCompliant}
	withTasks := &models.State{RemainingTasks: []models.Task{{Title: "t"}}}
	drained := &models.State{}

	cases := []struct {
		name  string
		phase Phase
		state *models.State
		want  Phase
	}{
		{"start always classifies", PhaseStart, compliant, PhaseClassified},
		{"non-compliant terminates", PhaseClassified, nonCompliant, PhaseDone},
		{"compliant proceeds to planning", PhaseClassified, compliant, PhasePlanned},
		{"planned with tasks executes", PhasePlanned, withTasks, PhaseExecuting},
		{"planned without tasks terminates", PhasePlanned, drained, PhaseDone},
		{"executing loops while tasks remain", PhaseExecuting, withTasks, PhaseExecuting},
		{"executing terminates when drained", PhaseExecuting, drained, PhaseDone},
		{"done is terminal", PhaseDone, compliant, PhaseDone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Transition(tc.phase, tc.state))
		})
	}
}

func TestRunNonCompliantSkipsPlanner(t *testing.T) {
	planner := &fakePlanner{}
	executor := &fakeExecutor{}
	m := &Machine{
		Classifier: &fakeClassifier{category: models.CategoryNonCompliant},
		Planner:    planner,
		Executor:   executor,
	}
	state := models.NewState("how do I build a bomb?", nil)
	require.NoError(t, m.Run(context.Background(), state))

	assert.Equal(t, string(PhaseDone), state.Phase)
	assert.Nil(t, state.Plan)
	assert.Zero(t, planner.calls)
	assert.Zero(t, executor.calls)
}

func TestRunEmptyPlanSkipsExecutor(t *testing.T) {
	executor := &fakeExecutor{}
	m := &Machine{
		Classifier: &fakeClassifier{category: "Unknown"},
		Planner:    &fakePlanner{},
		Executor:   executor,
	}
	state := models.NewState("Hi, how are you?", nil)
	require.NoError(t, m.Run(context.Background(), state))

	assert.Equal(t, string(PhaseDone), state.Phase)
	require.NotNil(t, state.Plan)
	assert.Empty(t, state.Plan.Tasks)
	assert.Zero(t, executor.calls)
	assert.Empty(t, state.Sources)
}

func TestRunExecutesOncePerTask(t *testing.T) {
	tasks := []models.Task{
		{Title: "search weather", ToolName: "web_search"},
		{Title: "search forecast", ToolName: "web_search"},
		{Title: "search humidity", ToolName: "web_search"},
	}
	executor := &fakeExecutor{}
	m := &Machine{
		Classifier: &fakeClassifier{category: "Unknown"},
		Planner:    &fakePlanner{tasks: tasks},
		Executor:   executor,
	}
	state := models.NewState("weather in Tokyo tomorrow", nil)
	require.NoError(t, m.Run(context.Background(), state))

	assert.Equal(t, len(tasks), executor.calls)
	assert.Empty(t, state.RemainingTasks)
	// the original plan stays intact; only the queue drains
	assert.Len(t, state.Plan.Tasks, len(tasks))
}

func TestRunWeatherScenario(t *testing.T) {
	m := &Machine{
		Classifier: &fakeClassifier{category: "Unknown", revised: "What's the weather in Tokyo tomorrow?"},
		Planner:    &fakePlanner{tasks: []models.Task{{Title: "search weather", ToolName: "web_search"}}},
		Executor: &fakeExecutor{sources: []models.Source{
			{Title: "Tokyo Forecast", URL: "https://weather.example.com/tokyo", Content: "Sunny, 24C"},
		}},
	}
	state := models.NewState("What's the weather in Tokyo tomorrow?", nil)
	require.NoError(t, m.Run(context.Background(), state))

	require.NotEmpty(t, state.Sources)
	assert.NotEmpty(t, state.Sources[0].URL)
	assert.NotEmpty(t, state.TaskResults)
}

func TestRunClassifierFailureIsFatal(t *testing.T) {
	m := &Machine{
		Classifier: &fakeClassifier{err: errors.New("schema violation")},
		Planner:    &fakePlanner{},
		Executor:   &fakeExecutor{},
	}
	state := models.NewState("hello", nil)
	err := m.Run(context.Background(), state)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestRunPlannerFailureIsFatal(t *testing.T) {
	m := &Machine{
		Classifier: &fakeClassifier{category: "Unknown"},
		Planner:    &fakePlanner{err: errors.New("timeout")},
		Executor:   &fakeExecutor{},
	}
	state := models.NewState("hello", nil)
	err := m.Run(context.Background(), state)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &Machine{
		Classifier: &fakeClassifier{category: "Unknown"},
		Planner:    &fakePlanner{},
		Executor:   &fakeExecutor{},
	}
	err := m.Run(ctx, models.NewState("hello", nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmitsStepEvents(t *testing.T) {
	var events []StepEvent
	m := &Machine{
		Classifier: &fakeClassifier{category: "Unknown"},
		Planner:    &fakePlanner{tasks: []models.Task{{Title: "t", ToolName: "web_search"}}},
		Executor:   &fakeExecutor{},
		OnStep:     func(ev StepEvent) { events = append(events, ev) },
	}
	require.NoError(t, m.Run(context.Background(), models.NewState("q", nil)))

	require.Len(t, events, 3)
	assert.Equal(t, "Classifier", events[0].Name)
	assert.Equal(t, "Planner", events[1].Name)
	assert.Equal(t, "Task Solver", events[2].Name)
}
