package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/hongliu-studio/contentplan/internal/events"
	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/planner"
	"github.com/hongliu-studio/contentplan/internal/production"
	"github.com/hongliu-studio/contentplan/internal/requirement"
)

type fakeRequirements struct {
	wizardCalls int
	textCalls   int
}

func (f *fakeRequirements) AnalyzeWizard(ctx context.Context, input requirement.WizardInput, userID string) (*models.RequirementAnalysisResult, error) {
	f.wizardCalls++
	return &models.RequirementAnalysisResult{
		Requirement: models.RequirementAnalysis{ID: "req_wf", ExtractedTopic: input.Product},
		Confidence:  0.9,
	}, nil
}

func (f *fakeRequirements) AnalyzeText(ctx context.Context, userInput, userID string) (*models.RequirementAnalysisResult, error) {
	f.textCalls++
	return &models.RequirementAnalysisResult{
		Requirement: models.RequirementAnalysis{ID: "req_wf", ExtractedTopic: userInput},
		Confidence:  0.5,
	}, nil
}

type fakePlans struct {
	generateErr error
	deleted     []string
}

func (f *fakePlans) Generate(ctx context.Context, req models.RequirementAnalysis, period planner.Period) (*models.MultiContentPlan, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &models.MultiContentPlan{
		ID:            "plan_wf",
		RequirementID: req.ID,
		Contents: []models.SingleContentPlan{
			{ID: "content_1", Title: "第一篇", PublishSchedule: models.ItemSchedule{ScheduledTime: 1757000000000}},
		},
	}, nil
}

func (f *fakePlans) Confirm(ctx context.Context, planID string) (*models.ContentPlan, error) {
	return &models.ContentPlan{
		ID:        planID,
		PlanType:  models.PlanTypeMulti,
		Confirmed: true,
		Multi:     &models.MultiContentPlan{ID: planID},
	}, nil
}

func (f *fakePlans) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeProducer struct {
	err error
}

func (f *fakeProducer) Produce(ctx context.Context, plan models.ContentPlan) ([]production.ProducedContent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []production.ProducedContent{{ID: "content_copy1", PlanID: plan.ID}}, nil
}

type fakeCalendar struct {
	deleted []string
}

func (f *fakeCalendar) CreateSchedulesFromPlan(ctx context.Context, plan models.ContentPlan) ([]models.PublishSchedule, error) {
	return []models.PublishSchedule{{ID: "schedule_1", ContentPlanID: "content_1"}}, nil
}

func (f *fakeCalendar) DeleteSchedule(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func testSteps() (Steps, *fakeRequirements, *fakePlans, *fakeProducer, *fakeCalendar) {
	reqs := &fakeRequirements{}
	plans := &fakePlans{}
	producer := &fakeProducer{}
	cal := &fakeCalendar{}
	return Steps{Requirements: reqs, Plans: plans, Producer: producer, Calendar: cal}, reqs, plans, producer, cal
}

func TestRequirementToPublishWorkflow(t *testing.T) {
	steps, reqs, _, _, _ := testSteps()
	engine := NewEngine(events.NewInProcBus())

	wctx := &Context{
		WizardInput: &requirement.WizardInput{Product: "手工咖啡", Styles: []string{"xiaohongshu"}},
		Period:      planner.Period{StartDate: "2026-09-01", EndDate: "2026-09-07", TotalContents: 1},
	}
	result := engine.Execute(context.Background(), steps.RequirementToPublish(), wctx)
	if result.Status != StatusCompleted {
		t.Fatalf("status = %q, err = %v", result.Status, result.Err)
	}
	if reqs.wizardCalls != 1 || reqs.textCalls != 0 {
		t.Fatalf("analyzer calls = %d/%d", reqs.wizardCalls, reqs.textCalls)
	}
	if wctx.Requirement == nil || wctx.Requirement.ID != "req_wf" {
		t.Fatalf("requirement = %+v", wctx.Requirement)
	}
	if wctx.Plan == nil || wctx.Plan.ID != "plan_wf" {
		t.Fatalf("plan = %+v", wctx.Plan)
	}
	if wctx.PlanRecord == nil || !wctx.PlanRecord.Confirmed {
		t.Fatalf("planRecord = %+v", wctx.PlanRecord)
	}
	if len(wctx.Produced) != 1 || len(wctx.Schedules) != 1 {
		t.Fatalf("produced = %d, schedules = %d", len(wctx.Produced), len(wctx.Schedules))
	}
}

func TestAnalyzeStepFallsBackToText(t *testing.T) {
	steps, reqs, _, _, _ := testSteps()

	wctx := &Context{UserInput: "一段自由文本需求"}
	if err := steps.Analyze().Execute(context.Background(), wctx); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if reqs.textCalls != 1 {
		t.Fatalf("textCalls = %d", reqs.textCalls)
	}
}

func TestAnalyzeStepRequiresInput(t *testing.T) {
	steps, _, _, _, _ := testSteps()

	err := steps.Analyze().Execute(context.Background(), &Context{})
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestProduceFailureDoesNotStopWorkflow(t *testing.T) {
	steps, _, _, producer, _ := testSteps()
	producer.err = errors.New("model down")
	engine := NewEngine(nil)

	wctx := &Context{
		WizardInput: &requirement.WizardInput{Product: "手工咖啡"},
		Period:      planner.Period{StartDate: "2026-09-01", EndDate: "2026-09-07", TotalContents: 1},
	}
	result := engine.Execute(context.Background(), steps.RequirementToPublish(), wctx)
	if result.Status != StatusCompleted {
		t.Fatalf("status = %q, err = %v", result.Status, result.Err)
	}
	if wctx.Errors["produce"] == nil {
		t.Fatal("produce error not recorded")
	}
	if len(wctx.Schedules) != 1 {
		t.Fatalf("schedules = %d", len(wctx.Schedules))
	}
}

func TestWorkflowRollback(t *testing.T) {
	steps, _, plans, _, cal := testSteps()
	engine := NewEngine(nil)

	wctx := &Context{
		WizardInput: &requirement.WizardInput{Product: "手工咖啡"},
		Period:      planner.Period{StartDate: "2026-09-01", EndDate: "2026-09-07", TotalContents: 1},
	}
	wf := steps.RequirementToPublish()
	if result := engine.Execute(context.Background(), wf, wctx); result.Status != StatusCompleted {
		t.Fatalf("status = %q", result.Status)
	}

	engine.Rollback(context.Background(), wf, wctx)
	if len(cal.deleted) != 1 || cal.deleted[0] != "schedule_1" {
		t.Fatalf("deleted schedules = %v", cal.deleted)
	}
	if len(plans.deleted) != 1 || plans.deleted[0] != "plan_wf" {
		t.Fatalf("deleted plans = %v", plans.deleted)
	}
}
