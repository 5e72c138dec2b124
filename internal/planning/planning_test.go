package planning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hongliu-studio/contentplan/internal/events"
	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/planner"
	"github.com/hongliu-studio/contentplan/internal/store"
)

type fakePlanner struct {
	plan *models.MultiContentPlan
	err  error
}

func (f *fakePlanner) Generate(ctx context.Context, requirement models.RequirementAnalysis, period planner.Period) (*models.MultiContentPlan, error) {
	return f.plan, f.err
}

type fakeDetector struct {
	conflicts []models.ConflictIssue
}

func (f *fakeDetector) Detect(contents []models.SingleContentPlan, requirement models.RequirementAnalysis) []models.ConflictIssue {
	return f.conflicts
}

type fakeChecker struct {
	review   models.AgentReview
	received []models.ConflictIssue
}

func (f *fakeChecker) Check(ctx context.Context, contents []models.SingleContentPlan, requirement models.RequirementAnalysis, conflicts []models.ConflictIssue) models.AgentReview {
	f.received = conflicts
	return f.review
}

// recordBus captures emitted event names in order.
type recordBus struct {
	events.Bus
	emitted []string
}

func newRecordBus() *recordBus {
	return &recordBus{Bus: events.NewInProcBus()}
}

func (b *recordBus) Emit(ctx context.Context, event string, payload any) error {
	b.emitted = append(b.emitted, event)
	return b.Bus.Emit(ctx, event, payload)
}

func multiPlanFixture() *models.MultiContentPlan {
	return &models.MultiContentPlan{
		ID:            "plan_test0001",
		RequirementID: "req_test0001",
		PlanName:      "2篇内容规划",
		Period:        models.DatePeriod{StartDate: "2026-09-01", EndDate: "2026-09-07", TotalDays: 7},
		Contents: []models.SingleContentPlan{
			{ID: "content_a", Title: "内容A"},
			{ID: "content_b", Title: "内容B"},
		},
		CreatedAt: time.Now(),
	}
}

func requirementFixture() models.RequirementAnalysis {
	return models.RequirementAnalysis{ID: "req_test0001", ExtractedTopic: "冷萃咖啡"}
}

func testPeriod() planner.Period {
	return planner.Period{StartDate: "2026-09-01", EndDate: "2026-09-07", TotalContents: 2}
}

func TestGenerateRunsFullPipeline(t *testing.T) {
	detected := []models.ConflictIssue{{ID: "conflict_d1", Type: models.ConflictTypeStyle, Severity: models.SeverityMedium}}
	merged := append(detected, models.ConflictIssue{ID: "conflict_m1", Type: models.ConflictTypeContent, Severity: models.SeverityHigh})

	checker := &fakeChecker{review: models.AgentReview{
		OverallScore: 0.75,
		Conflicts:    merged,
		Resolved:     false,
	}}
	st := store.NewInMemoryStore()
	bus := newRecordBus()
	svc := NewService(&fakePlanner{plan: multiPlanFixture()}, &fakeDetector{conflicts: detected}, checker, st, bus)

	plan, err := svc.Generate(context.Background(), requirementFixture(), testPeriod())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !plan.ConflictCheck.Checked {
		t.Fatal("conflict check not marked as run")
	}
	if plan.ConflictCheck.Resolved {
		t.Fatal("expected unresolved conflicts")
	}
	if len(plan.ConflictCheck.Conflicts) != 2 {
		t.Fatalf("conflicts = %d, want 2", len(plan.ConflictCheck.Conflicts))
	}
	if len(checker.received) != 1 || checker.received[0].ID != "conflict_d1" {
		t.Fatalf("checker received %v", checker.received)
	}

	saved, err := st.GetPlan(plan.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if saved.PlanType != models.PlanTypeMulti || saved.Multi == nil {
		t.Fatalf("saved plan shape: type=%q multi=%v", saved.PlanType, saved.Multi != nil)
	}
	if saved.RequirementID != "req_test0001" {
		t.Fatalf("requirementID = %q", saved.RequirementID)
	}

	want := []string{events.PlanCreated, events.PlanConflictsDetected}
	if len(bus.emitted) != 2 || bus.emitted[0] != want[0] || bus.emitted[1] != want[1] {
		t.Fatalf("emitted = %v, want %v", bus.emitted, want)
	}
}

func TestGenerateCleanPlanSkipsConflictEvent(t *testing.T) {
	checker := &fakeChecker{review: models.AgentReview{OverallScore: 0.9, Resolved: true}}
	bus := newRecordBus()
	svc := NewService(&fakePlanner{plan: multiPlanFixture()}, &fakeDetector{}, checker, store.NewInMemoryStore(), bus)

	plan, err := svc.Generate(context.Background(), requirementFixture(), testPeriod())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !plan.ConflictCheck.Resolved {
		t.Fatal("expected resolved")
	}
	if len(bus.emitted) != 1 || bus.emitted[0] != events.PlanCreated {
		t.Fatalf("emitted = %v", bus.emitted)
	}
}

func TestGeneratePlannerFailure(t *testing.T) {
	genErr := errors.New("no outline")
	st := store.NewInMemoryStore()
	bus := newRecordBus()
	svc := NewService(&fakePlanner{err: genErr}, &fakeDetector{}, &fakeChecker{}, st, bus)

	if _, err := svc.Generate(context.Background(), requirementFixture(), testPeriod()); !errors.Is(err, genErr) {
		t.Fatalf("err = %v", err)
	}
	if plans, _ := st.ListPlans(models.PlanFilters{}); len(plans) != 0 {
		t.Fatalf("plans saved on failure: %d", len(plans))
	}
	if len(bus.emitted) != 0 {
		t.Fatalf("events emitted on failure: %v", bus.emitted)
	}
}

func TestConfirmMarksPlan(t *testing.T) {
	st := store.NewInMemoryStore()
	bus := newRecordBus()
	svc := NewService(&fakePlanner{}, &fakeDetector{}, &fakeChecker{}, st, bus)

	record := models.ContentPlan{
		ID:            "plan_confirm1",
		RequirementID: "req_1",
		PlanType:      models.PlanTypeMulti,
		Multi:         multiPlanFixture(),
		CreatedAt:     time.Now(),
	}
	if err := st.SavePlan(record); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}

	confirmed, err := svc.Confirm(context.Background(), "plan_confirm1")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !confirmed.Confirmed || confirmed.ConfirmedAt.IsZero() {
		t.Fatalf("confirmation not stamped: %+v", confirmed)
	}

	saved, err := st.GetPlan("plan_confirm1")
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if !saved.Confirmed {
		t.Fatal("confirmation not persisted")
	}
	if len(bus.emitted) != 1 || bus.emitted[0] != events.PlanConfirmed {
		t.Fatalf("emitted = %v", bus.emitted)
	}
}

func TestConfirmMissingPlan(t *testing.T) {
	svc := NewService(&fakePlanner{}, &fakeDetector{}, &fakeChecker{}, store.NewInMemoryStore(), newRecordBus())

	if _, err := svc.Confirm(context.Background(), "plan_missing"); !errors.Is(err, models.ErrPlanNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSaveAndDeleteEmitEvents(t *testing.T) {
	st := store.NewInMemoryStore()
	bus := newRecordBus()
	svc := NewService(&fakePlanner{}, &fakeDetector{}, &fakeChecker{}, st, bus)

	record := models.ContentPlan{
		ID:       "plan_edit1",
		PlanType: models.PlanTypeMulti,
		Multi:    multiPlanFixture(),
	}
	if err := svc.Save(context.Background(), record); err != nil {
		t.Fatalf("Save: %v", err)
	}
	saved, err := st.GetPlan("plan_edit1")
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if saved.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not stamped")
	}

	if err := svc.Delete(context.Background(), "plan_edit1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.GetPlan("plan_edit1"); !errors.Is(err, models.ErrPlanNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	want := []string{events.PlanUpdated, events.PlanDeleted}
	if len(bus.emitted) != 2 || bus.emitted[0] != want[0] || bus.emitted[1] != want[1] {
		t.Fatalf("emitted = %v, want %v", bus.emitted, want)
	}
}
