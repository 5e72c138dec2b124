// Package workflow provides a sequential step executor with per-step error
// recovery and rollback, plus the prebuilt steps chaining requirement
// analysis through publish scheduling.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hongliu-studio/contentplan/internal/events"
	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/planner"
	"github.com/hongliu-studio/contentplan/internal/production"
	"github.com/hongliu-studio/contentplan/internal/requirement"
	"github.com/hongliu-studio/contentplan/internal/util"
)

// Status is the observable state of a workflow execution.
type Status string

const (
	// StatusRunning marks an execution in flight.
	StatusRunning Status = "running"
	// StatusCompleted marks an execution whose every step ran.
	StatusCompleted Status = "completed"
	// StatusFailed marks an execution terminated by an unrecovered step error.
	StatusFailed Status = "failed"
)

// Context is the mutable state threaded through a workflow run. Steps fill in
// the fields downstream steps read.
type Context struct {
	UserID      string
	WizardInput *requirement.WizardInput
	UserInput   string
	Period      planner.Period

	Requirement *models.RequirementAnalysis
	Plan        *models.MultiContentPlan
	PlanRecord  *models.ContentPlan
	Produced    []production.ProducedContent
	Schedules   []models.PublishSchedule

	// Errors holds step errors that were absorbed by an OnError handler,
	// keyed by step ID.
	Errors map[string]error
}

// recordError notes a handled step failure.
func (c *Context) recordError(stepID string, err error) {
	if c.Errors == nil {
		c.Errors = make(map[string]error)
	}
	c.Errors[stepID] = err
}

// Step is one unit of a workflow. Execute mutates the shared context.
// OnError, when set, absorbs an Execute failure so the run continues.
// Rollback undoes the step's side effects; it is only invoked by an explicit
// Rollback call, never automatically.
type Step struct {
	ID       string
	Name     string
	Execute  func(ctx context.Context, wctx *Context) error
	OnError  func(ctx context.Context, stepErr error, wctx *Context) error
	Rollback func(ctx context.Context, wctx *Context) error
}

// Workflow is an ordered list of steps.
type Workflow struct {
	ID    string
	Name  string
	Steps []Step
}

// ExecutionResult reports how a run ended.
type ExecutionResult struct {
	WorkflowID     string
	Status         Status
	CurrentStep    string
	CompletedSteps []string
	Err            error
	StartedAt      time.Time
	CompletedAt    time.Time
}

// Engine executes workflows sequentially.
type Engine struct {
	bus events.Bus
}

// NewEngine creates a workflow engine. The bus may be nil.
func NewEngine(bus events.Bus) *Engine {
	return &Engine{bus: bus}
}

// Execute runs the workflow's steps in order against the shared context.
// A step failure with no OnError handler terminates the run. A failing
// OnError handler also terminates the run; its error is returned wrapped
// around the original step error so neither is lost.
func (e *Engine) Execute(ctx context.Context, wf Workflow, wctx *Context) *ExecutionResult {
	runID := wf.ID
	if runID == "" {
		runID = util.GenerateWorkflowID()
	}
	result := &ExecutionResult{
		WorkflowID: runID,
		Status:     StatusRunning,
		StartedAt:  time.Now(),
	}
	slog.Debug("Engine.Execute: workflow starting", "workflowID", runID, "steps", len(wf.Steps))
	e.emit(ctx, events.WorkflowStarted, map[string]any{"workflow_id": runID, "name": wf.Name})

	for _, step := range wf.Steps {
		result.CurrentStep = step.ID
		slog.Debug("Engine.Execute: running step", "workflowID", runID, "step", step.ID)

		err := step.Execute(ctx, wctx)
		if err == nil {
			result.CompletedSteps = append(result.CompletedSteps, step.ID)
			continue
		}
		slog.Error("Engine.Execute: step failed", "workflowID", runID, "step", step.ID, "error", err)

		if step.OnError == nil {
			return e.fail(ctx, result, fmt.Errorf("step %s: %w", step.ID, err))
		}
		if handlerErr := step.OnError(ctx, err, wctx); handlerErr != nil {
			return e.fail(ctx, result, fmt.Errorf("step %s error handler: %w (step error: %v)", step.ID, handlerErr, err))
		}
		wctx.recordError(step.ID, err)
	}

	result.Status = StatusCompleted
	result.CurrentStep = ""
	result.CompletedAt = time.Now()
	e.emit(ctx, events.WorkflowCompleted, map[string]any{
		"workflow_id":     runID,
		"completed_steps": result.CompletedSteps,
	})
	slog.Info("Engine.Execute: workflow completed", "workflowID", runID, "steps", len(result.CompletedSteps))
	return result
}

// Rollback walks the workflow's steps in reverse order and invokes each
// step's Rollback hook. Individual rollback failures are logged and do not
// stop the remaining rollbacks.
func (e *Engine) Rollback(ctx context.Context, wf Workflow, wctx *Context) {
	slog.Debug("Engine.Rollback: workflow rolling back", "workflowID", wf.ID)
	for i := len(wf.Steps) - 1; i >= 0; i-- {
		step := wf.Steps[i]
		if step.Rollback == nil {
			continue
		}
		if err := step.Rollback(ctx, wctx); err != nil {
			slog.Error("Engine.Rollback: step rollback failed", "workflowID", wf.ID, "step", step.ID, "error", err)
			continue
		}
		slog.Debug("Engine.Rollback: step rolled back", "workflowID", wf.ID, "step", step.ID)
	}
	slog.Info("Engine.Rollback: workflow rollback finished", "workflowID", wf.ID)
}

func (e *Engine) fail(ctx context.Context, result *ExecutionResult, err error) *ExecutionResult {
	result.Status = StatusFailed
	result.Err = err
	result.CompletedAt = time.Now()
	e.emit(ctx, events.WorkflowFailed, map[string]any{
		"workflow_id": result.WorkflowID,
		"step":        result.CurrentStep,
		"error":       err.Error(),
	})
	return result
}

func (e *Engine) emit(ctx context.Context, event string, payload any) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Emit(ctx, event, payload); err != nil {
		slog.Warn("Engine.emit: event emission failed", "event", event, "error", err)
	}
}
