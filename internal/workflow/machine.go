// Package workflow implements the task-orchestration state machine:
// classification, planning, and iterative task execution for one user
// turn, carried on a single mutable state record. Response synthesis is
// deliberately outside the machine; the caller picks a responder from
// the final state shape.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/haandol/open-perplexity/internal/models"
)

type Phase string

const (
	PhaseStart      Phase = "start"
	PhaseClassified Phase = "classified"
	PhasePlanned    Phase = "planned"
	PhaseExecuting  Phase = "executing"
	PhaseDone       Phase = "done"
)

type Classifier interface {
	Classify(ctx context.Context, state *models.State) error
}

type Planner interface {
	Plan(ctx context.Context, state *models.State) error
}

type Executor interface {
	// ExecuteOne consumes exactly one task from the front of
	// state.RemainingTasks per invocation.
	ExecuteOne(ctx context.Context, state *models.State) error
}

// StepEvent surfaces one reasoning step to the front-end.
type StepEvent struct {
	Name   string
	Output string
}

// Transition is the pure edge function of the machine. It inspects only
// the current phase and the state record; all side effects live in the
// per-phase work run by Machine.Run before the transition is taken.
func Transition(phase Phase, state *models.State) Phase {
	switch phase {
	case PhaseStart:
		return PhaseClassified
	case PhaseClassified:
		if state.Category == models.CategoryNonCompliant {
			return PhaseDone
		}
		return PhasePlanned
	case PhasePlanned, PhaseExecuting:
		if len(state.RemainingTasks) > 0 {
			return PhaseExecuting
		}
		return PhaseDone
	default:
		return PhaseDone
	}
}

// Machine sequences classifier -> planner -> executor loop over one
// turn's state record. It is reused across turns of a session but must
// not run two turns concurrently.
type Machine struct {
	Classifier Classifier
	Planner    Planner
	Executor   Executor

	// OnStep, when set, receives a StepEvent after each unit of work.
	OnStep func(StepEvent)
}

// Run drives the state record from start to done. Classifier and
// planner failures abort the turn with ErrBackendUnavailable; executor
// steps degrade internally and only propagate context cancellation.
func (m *Machine) Run(ctx context.Context, state *models.State) error {
	phase := PhaseStart
	state.Phase = string(phase)
	for phase != PhaseDone {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.enter(ctx, phase, state); err != nil {
			return err
		}
		phase = Transition(phase, state)
		state.Phase = string(phase)
	}
	return nil
}

// enter runs the work associated with being in a phase. PhasePlanned is
// a pure decision point between the quick-answer branch and execution.
func (m *Machine) enter(ctx context.Context, phase Phase, state *models.State) error {
	switch phase {
	case PhaseStart:
		if err := m.Classifier.Classify(ctx, state); err != nil {
			return fatalErr("classifier", err)
		}
		m.emit("Classifier", fmt.Sprintf("**Category:** %s\n**Reason:** %s", state.Category, state.Reason))
	case PhaseClassified:
		if state.Category == models.CategoryNonCompliant {
			m.emit("Guardrail", "input flagged non-compliant, terminating turn")
			return nil
		}
		if err := m.Planner.Plan(ctx, state); err != nil {
			return fatalErr("planner", err)
		}
		m.emit("Planner", planSummary(state.Plan))
	case PhaseExecuting:
		if err := m.Executor.ExecuteOne(ctx, state); err != nil {
			return err
		}
		m.emit("Task Solver", executionSummary(state.ToolExecution))
	}
	return nil
}

func (m *Machine) emit(name, output string) {
	if m.OnStep != nil {
		m.OnStep(StepEvent{Name: name, Output: output})
	}
}

func planSummary(plan *models.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Revised User Input:** %s\n**Category:** %s", plan.RevisedUserInput, plan.Category)
	if len(plan.Tasks) > 0 {
		b.WriteString("\n**Tasks:**")
		for _, t := range plan.Tasks {
			fmt.Fprintf(&b, "\n- %s (%s)", t.Title, t.Description)
		}
	}
	return b.String()
}

func executionSummary(exec *models.ToolExecution) string {
	if exec == nil {
		return "no tool was executed for this task"
	}
	return fmt.Sprintf("**Tool:** %s\n%s", exec.Name, exec.Result)
}
