// Package planning orchestrates the full plan-generation pipeline: the
// distribution planner, the conflict detector, and the agent quality check,
// followed by persistence and event emission.
package planning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hongliu-studio/contentplan/internal/agent"
	"github.com/hongliu-studio/contentplan/internal/conflict"
	"github.com/hongliu-studio/contentplan/internal/events"
	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/planner"
	"github.com/hongliu-studio/contentplan/internal/store"
)

// PlanGenerator produces a multi-content plan from a requirement and period.
type PlanGenerator interface {
	Generate(ctx context.Context, requirement models.RequirementAnalysis, period planner.Period) (*models.MultiContentPlan, error)
}

// ConflictDetector scans plan contents for scheduling and content conflicts.
type ConflictDetector interface {
	Detect(contents []models.SingleContentPlan, requirement models.RequirementAnalysis) []models.ConflictIssue
}

// Service runs the plan-generation pipeline and manages stored plans.
type Service struct {
	planner  PlanGenerator
	detector ConflictDetector
	checker  agent.Checker
	store    store.Store
	bus      events.Bus
}

// NewService wires the pipeline stages together. The detector defaults to
// the rule-based one when nil; planner, checker, and store are required.
func NewService(gen PlanGenerator, detector ConflictDetector, checker agent.Checker, st store.Store, bus events.Bus) *Service {
	if detector == nil {
		detector = conflict.NewDetector()
	}
	return &Service{planner: gen, detector: detector, checker: checker, store: st, bus: bus}
}

// Generate runs the full pipeline for one requirement: plan generation,
// conflict detection, agent quality check, persistence, and events. The
// returned plan carries the merged conflict list from the quality check.
func (s *Service) Generate(ctx context.Context, requirement models.RequirementAnalysis, period planner.Period) (*models.MultiContentPlan, error) {
	slog.Debug("Service.Generate: starting plan generation", "requirementID", requirement.ID,
		"totalContents", period.TotalContents)

	plan, err := s.planner.Generate(ctx, requirement, period)
	if err != nil {
		return nil, fmt.Errorf("Service.Generate: %w", err)
	}

	conflicts := s.detector.Detect(plan.Contents, requirement)
	plan.ConflictCheck.Conflicts = conflicts
	plan.ConflictCheck.Checked = true

	review := s.checker.Check(ctx, plan.Contents, requirement, conflicts)
	plan.ConflictCheck.Conflicts = review.Conflicts
	plan.ConflictCheck.Resolved = review.Resolved

	record := models.ContentPlan{
		ID:            plan.ID,
		RequirementID: requirement.ID,
		PlanType:      models.PlanTypeMulti,
		Multi:         plan,
		CreatedAt:     time.Now(),
	}
	if err := s.store.SavePlan(record); err != nil {
		return nil, fmt.Errorf("Service.Generate: save plan: %w", err)
	}

	s.emit(ctx, events.PlanCreated, plan)
	if len(plan.ConflictCheck.Conflicts) > 0 {
		s.emit(ctx, events.PlanConflictsDetected, map[string]any{
			"plan":      plan,
			"conflicts": plan.ConflictCheck.Conflicts,
		})
	}

	slog.Info("Service.Generate completed", "planID", plan.ID,
		"contents", len(plan.Contents), "conflicts", len(plan.ConflictCheck.Conflicts))
	return plan, nil
}

// Confirm marks a stored plan as confirmed. Confirming an already confirmed
// plan refreshes the confirmation timestamp.
func (s *Service) Confirm(ctx context.Context, planID string) (*models.ContentPlan, error) {
	plan, err := s.store.GetPlan(planID)
	if err != nil {
		return nil, fmt.Errorf("Service.Confirm: %w", err)
	}

	now := time.Now()
	plan.Confirmed = true
	plan.ConfirmedAt = now
	plan.UpdatedAt = now

	if err := s.store.SavePlan(*plan); err != nil {
		return nil, fmt.Errorf("Service.Confirm: save plan: %w", err)
	}
	s.emit(ctx, events.PlanConfirmed, plan)

	slog.Info("Service.Confirm: plan confirmed", "planID", planID)
	return plan, nil
}

// Get returns one stored plan by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.ContentPlan, error) {
	return s.store.GetPlan(id)
}

// List returns stored plans matching the filters, newest first.
func (s *Service) List(ctx context.Context, filters models.PlanFilters) ([]models.ContentPlan, error) {
	return s.store.ListPlans(filters)
}

// Save persists an edited plan, stamping UpdatedAt, and emits the updated
// event.
func (s *Service) Save(ctx context.Context, plan models.ContentPlan) error {
	plan.UpdatedAt = time.Now()
	if err := s.store.SavePlan(plan); err != nil {
		return fmt.Errorf("Service.Save: %w", err)
	}
	s.emit(ctx, events.PlanUpdated, plan)
	slog.Debug("Service.Save: plan saved", "planID", plan.ID)
	return nil
}

// Delete removes a stored plan and emits the deleted event.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePlan(id); err != nil {
		return fmt.Errorf("Service.Delete: %w", err)
	}
	s.emit(ctx, events.PlanDeleted, map[string]string{"id": id})
	slog.Debug("Service.Delete: plan deleted", "planID", id)
	return nil
}

func (s *Service) emit(ctx context.Context, event string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, event, payload); err != nil {
		slog.Warn("Service.emit: event emission failed", "event", event, "error", err)
	}
}
