package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/planner"
	"github.com/hongliu-studio/contentplan/internal/production"
	"github.com/hongliu-studio/contentplan/internal/requirement"
)

// Step input errors.
var (
	ErrMissingInput       = errors.New("workflow context has no user input")
	ErrMissingRequirement = errors.New("workflow context has no requirement")
	ErrMissingPlan        = errors.New("workflow context has no plan")
)

// RequirementAnalyzer is the requirement-service surface the analyze step needs.
type RequirementAnalyzer interface {
	AnalyzeWizard(ctx context.Context, input requirement.WizardInput, userID string) (*models.RequirementAnalysisResult, error)
	AnalyzeText(ctx context.Context, userInput, userID string) (*models.RequirementAnalysisResult, error)
}

// PlanService is the planning-service surface the plan and confirm steps need.
type PlanService interface {
	Generate(ctx context.Context, req models.RequirementAnalysis, period planner.Period) (*models.MultiContentPlan, error)
	Confirm(ctx context.Context, planID string) (*models.ContentPlan, error)
	Delete(ctx context.Context, id string) error
}

// ContentProducer is the production surface the produce step needs.
type ContentProducer interface {
	Produce(ctx context.Context, plan models.ContentPlan) ([]production.ProducedContent, error)
}

// ScheduleCreator is the calendar surface the schedule step needs.
type ScheduleCreator interface {
	CreateSchedulesFromPlan(ctx context.Context, plan models.ContentPlan) ([]models.PublishSchedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}

// Steps builds the prebuilt workflow steps from the core services.
type Steps struct {
	Requirements RequirementAnalyzer
	Plans        PlanService
	Producer     ContentProducer
	Calendar     ScheduleCreator
}

// Analyze turns the context's wizard or text input into a requirement.
func (s Steps) Analyze() Step {
	return Step{
		ID:   "analyze",
		Name: "需求分析",
		Execute: func(ctx context.Context, wctx *Context) error {
			var result *models.RequirementAnalysisResult
			var err error
			switch {
			case wctx.WizardInput != nil:
				result, err = s.Requirements.AnalyzeWizard(ctx, *wctx.WizardInput, wctx.UserID)
			case wctx.UserInput != "":
				result, err = s.Requirements.AnalyzeText(ctx, wctx.UserInput, wctx.UserID)
			default:
				return ErrMissingInput
			}
			if err != nil {
				return err
			}
			wctx.Requirement = &result.Requirement
			return nil
		},
	}
}

// Plan generates the multi-content plan for the analyzed requirement.
func (s Steps) Plan() Step {
	return Step{
		ID:   "plan",
		Name: "内容规划",
		Execute: func(ctx context.Context, wctx *Context) error {
			if wctx.Requirement == nil {
				return ErrMissingRequirement
			}
			plan, err := s.Plans.Generate(ctx, *wctx.Requirement, wctx.Period)
			if err != nil {
				return err
			}
			wctx.Plan = plan
			return nil
		},
		Rollback: func(ctx context.Context, wctx *Context) error {
			if wctx.Plan == nil {
				return nil
			}
			return s.Plans.Delete(ctx, wctx.Plan.ID)
		},
	}
}

// Confirm marks the generated plan confirmed and loads the stored record.
func (s Steps) Confirm() Step {
	return Step{
		ID:   "confirm",
		Name: "确认规划",
		Execute: func(ctx context.Context, wctx *Context) error {
			if wctx.Plan == nil {
				return ErrMissingPlan
			}
			record, err := s.Plans.Confirm(ctx, wctx.Plan.ID)
			if err != nil {
				return err
			}
			wctx.PlanRecord = record
			return nil
		},
	}
}

// Produce generates copy for every item of the confirmed plan. A production
// failure is absorbed so scheduling still runs for the produced items.
func (s Steps) Produce() Step {
	return Step{
		ID:   "produce",
		Name: "内容生产",
		Execute: func(ctx context.Context, wctx *Context) error {
			if wctx.PlanRecord == nil {
				return ErrMissingPlan
			}
			produced, err := s.Producer.Produce(ctx, *wctx.PlanRecord)
			wctx.Produced = produced
			return err
		},
		OnError: func(ctx context.Context, stepErr error, wctx *Context) error {
			slog.Warn("Steps.Produce: production failed, continuing workflow", "error", stepErr)
			return nil
		},
	}
}

// Schedule creates publish slots from the confirmed plan.
func (s Steps) Schedule() Step {
	return Step{
		ID:   "schedule",
		Name: "同步发布日历",
		Execute: func(ctx context.Context, wctx *Context) error {
			if wctx.PlanRecord == nil {
				return ErrMissingPlan
			}
			schedules, err := s.Calendar.CreateSchedulesFromPlan(ctx, *wctx.PlanRecord)
			if err != nil {
				return err
			}
			wctx.Schedules = schedules
			return nil
		},
		Rollback: func(ctx context.Context, wctx *Context) error {
			var firstErr error
			for _, sched := range wctx.Schedules {
				if err := s.Calendar.DeleteSchedule(ctx, sched.ID); err != nil && firstErr == nil {
					firstErr = fmt.Errorf("delete schedule %s: %w", sched.ID, err)
				}
			}
			return firstErr
		},
	}
}

// RequirementToPublish is the end-to-end workflow: analysis, planning,
// confirmation, production, and publish scheduling.
func (s Steps) RequirementToPublish() Workflow {
	return Workflow{
		Name: "需求到发布",
		Steps: []Step{
			s.Analyze(),
			s.Plan(),
			s.Confirm(),
			s.Produce(),
			s.Schedule(),
		},
	}
}
