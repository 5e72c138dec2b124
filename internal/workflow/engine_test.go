package workflow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hongliu-studio/contentplan/internal/events"
)

func orderedStep(id string, order *[]string) Step {
	return Step{
		ID: id,
		Execute: func(ctx context.Context, wctx *Context) error {
			*order = append(*order, id)
			return nil
		},
	}
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	var order []string
	wf := Workflow{ID: "wf_order", Steps: []Step{
		orderedStep("one", &order),
		orderedStep("two", &order),
		orderedStep("three", &order),
	}}
	engine := NewEngine(events.NewInProcBus())

	result := engine.Execute(context.Background(), wf, &Context{})
	if result.Status != StatusCompleted {
		t.Fatalf("status = %q, err = %v", result.Status, result.Err)
	}
	want := []string{"one", "two", "three"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v", order)
	}
	if !reflect.DeepEqual(result.CompletedSteps, want) {
		t.Fatalf("completedSteps = %v", result.CompletedSteps)
	}
}

func TestExecuteFailsWithoutHandler(t *testing.T) {
	stepErr := errors.New("boom")
	ran := false
	wf := Workflow{ID: "wf_fail", Steps: []Step{
		{ID: "bad", Execute: func(ctx context.Context, wctx *Context) error { return stepErr }},
		{ID: "after", Execute: func(ctx context.Context, wctx *Context) error { ran = true; return nil }},
	}}
	engine := NewEngine(nil)

	result := engine.Execute(context.Background(), wf, &Context{})
	if result.Status != StatusFailed {
		t.Fatalf("status = %q", result.Status)
	}
	if !errors.Is(result.Err, stepErr) {
		t.Fatalf("err = %v", result.Err)
	}
	if result.CurrentStep != "bad" {
		t.Fatalf("currentStep = %q", result.CurrentStep)
	}
	if ran {
		t.Fatal("step after failure still ran")
	}
	if len(result.CompletedSteps) != 0 {
		t.Fatalf("completedSteps = %v", result.CompletedSteps)
	}
}

func TestExecuteHandlerAbsorbsFailure(t *testing.T) {
	stepErr := errors.New("flaky")
	wf := Workflow{ID: "wf_recover", Steps: []Step{
		{
			ID:      "flaky",
			Execute: func(ctx context.Context, wctx *Context) error { return stepErr },
			OnError: func(ctx context.Context, err error, wctx *Context) error { return nil },
		},
		{ID: "after", Execute: func(ctx context.Context, wctx *Context) error { return nil }},
	}}
	engine := NewEngine(nil)

	wctx := &Context{}
	result := engine.Execute(context.Background(), wf, wctx)
	if result.Status != StatusCompleted {
		t.Fatalf("status = %q, err = %v", result.Status, result.Err)
	}
	// The recovered step is not counted as completed, but its error is kept.
	if !reflect.DeepEqual(result.CompletedSteps, []string{"after"}) {
		t.Fatalf("completedSteps = %v", result.CompletedSteps)
	}
	if !errors.Is(wctx.Errors["flaky"], stepErr) {
		t.Fatalf("recorded error = %v", wctx.Errors["flaky"])
	}
}

func TestExecuteHandlerFailurePreservesBothErrors(t *testing.T) {
	stepErr := errors.New("original failure")
	handlerErr := errors.New("handler failure")
	wf := Workflow{ID: "wf_handler_fail", Steps: []Step{{
		ID:      "bad",
		Execute: func(ctx context.Context, wctx *Context) error { return stepErr },
		OnError: func(ctx context.Context, err error, wctx *Context) error { return handlerErr },
	}}}
	engine := NewEngine(nil)

	result := engine.Execute(context.Background(), wf, &Context{})
	if result.Status != StatusFailed {
		t.Fatalf("status = %q", result.Status)
	}
	if !errors.Is(result.Err, handlerErr) {
		t.Fatalf("handler error lost: %v", result.Err)
	}
	// The original step error stays visible in the message for diagnostics.
	if !strings.Contains(result.Err.Error(), "original failure") {
		t.Fatalf("step error lost: %v", result.Err)
	}
}

func TestExecuteEmitsLifecycleEvents(t *testing.T) {
	bus := events.NewInProcBus()
	var seen []string
	for _, name := range []string{events.WorkflowStarted, events.WorkflowCompleted, events.WorkflowFailed} {
		name := name
		if _, err := bus.Subscribe(name, func(ctx context.Context, payload any) {
			seen = append(seen, name)
		}); err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}
	engine := NewEngine(bus)

	engine.Execute(context.Background(), Workflow{ID: "wf_ok", Steps: []Step{
		{ID: "noop", Execute: func(ctx context.Context, wctx *Context) error { return nil }},
	}}, &Context{})
	if !reflect.DeepEqual(seen, []string{events.WorkflowStarted, events.WorkflowCompleted}) {
		t.Fatalf("events = %v", seen)
	}

	seen = nil
	engine.Execute(context.Background(), Workflow{ID: "wf_bad", Steps: []Step{
		{ID: "bad", Execute: func(ctx context.Context, wctx *Context) error { return errors.New("boom") }},
	}}, &Context{})
	if !reflect.DeepEqual(seen, []string{events.WorkflowStarted, events.WorkflowFailed}) {
		t.Fatalf("events = %v", seen)
	}
}

func TestRollbackReverseOrderAndSwallowsFailures(t *testing.T) {
	var order []string
	wf := Workflow{ID: "wf_rb", Steps: []Step{
		{ID: "a", Rollback: func(ctx context.Context, wctx *Context) error {
			order = append(order, "a")
			return nil
		}},
		{ID: "b", Rollback: func(ctx context.Context, wctx *Context) error {
			order = append(order, "b")
			return errors.New("rollback failed")
		}},
		{ID: "c"}, // no rollback hook
		{ID: "d", Rollback: func(ctx context.Context, wctx *Context) error {
			order = append(order, "d")
			return nil
		}},
	}}
	engine := NewEngine(nil)

	engine.Rollback(context.Background(), wf, &Context{})
	if !reflect.DeepEqual(order, []string{"d", "b", "a"}) {
		t.Fatalf("rollback order = %v", order)
	}
}
