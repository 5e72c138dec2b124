package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hongliu-studio/contentplan/internal/calendar"
	"github.com/hongliu-studio/contentplan/internal/events"
	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/planner"
	"github.com/hongliu-studio/contentplan/internal/planning"
	"github.com/hongliu-studio/contentplan/internal/production"
	"github.com/hongliu-studio/contentplan/internal/requirement"
	"github.com/hongliu-studio/contentplan/internal/store"
	"github.com/hongliu-studio/contentplan/internal/wizard"
	"github.com/hongliu-studio/contentplan/internal/workflow"
)

type mockGenAI struct {
	response string
}

func (m *mockGenAI) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.response, nil
}

// stubPlanner returns a deterministic two-item plan.
type stubPlanner struct{ calls int }

func (p *stubPlanner) Generate(ctx context.Context, req models.RequirementAnalysis, period planner.Period) (*models.MultiContentPlan, error) {
	if period.TotalContents <= 0 {
		return nil, fmt.Errorf("total contents %d: %w", period.TotalContents, models.ErrInvalidArgument)
	}
	p.calls++
	seed := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC).UnixMilli()
	return &models.MultiContentPlan{
		ID:            fmt.Sprintf("plan_api%04d", p.calls),
		RequirementID: req.ID,
		PlanName:      "2篇内容规划",
		Contents: []models.SingleContentPlan{
			{ID: "content_1", Title: "第一篇", PublishSchedule: models.ItemSchedule{ScheduledTime: seed, Date: "2026-09-02"}},
			{ID: "content_2", Title: "第二篇", PublishSchedule: models.ItemSchedule{ScheduledTime: seed + 86400000, Date: "2026-09-03"}},
		},
		CreatedAt: time.Now(),
	}, nil
}

type passChecker struct{}

func (passChecker) Check(ctx context.Context, contents []models.SingleContentPlan, req models.RequirementAnalysis, conflicts []models.ConflictIssue) models.AgentReview {
	return models.AgentReview{OverallScore: 0.9, Conflicts: conflicts, Resolved: true}
}

type stubWriter struct{}

func (stubWriter) GenerateCopy(ctx context.Context, topic string, outline models.ContentOutline, styleID string) (string, error) {
	return "生成的文案：" + topic, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := store.NewInMemoryStore()
	bus := events.NewInProcBus()

	sessions := wizard.NewSessions(st)
	reqSvc := requirement.NewService(st, bus, requirement.NewGenAIAnalyzer(&mockGenAI{response: `{"extractedTopic":"测试主题","contentType":"tutorial"}`}))
	planSvc := planning.NewService(&stubPlanner{}, nil, passChecker{}, st, bus)
	producer := production.NewProducer(stubWriter{}, bus)
	cal := calendar.NewService(st, bus)
	engine := workflow.NewEngine(bus)
	steps := workflow.Steps{Requirements: reqSvc, Plans: planSvc, Producer: producer, Calendar: cal}

	return NewServer(sessions, reqSvc, planSvc, producer, cal, engine, steps)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func analyzeWizard(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec, resp := doJSON(t, handler, http.MethodPost, "/requirements/analyze", analyzeRequest{
		Wizard: &requirement.WizardInput{
			Product:       "手工冷萃咖啡 小批量烘焙",
			Styles:        []string{"xiaohongshu"},
			SellingPoints: []string{"新鲜"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status = %d, body = %s", rec.Code, rec.Body.String())
	}
	result := resp.Result.(map[string]any)
	req := result["requirement"].(map[string]any)
	return req["id"].(string)
}

func TestWizardSessionFlow(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec, resp := doJSON(t, handler, http.MethodPost, "/wizard/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}
	view := resp.Result.(map[string]any)
	sessionID := view["session_id"].(string)
	if view["total_questions"].(float64) != 3 {
		t.Fatalf("total_questions = %v", view["total_questions"])
	}
	if q := view["current_question"].(map[string]any); q["id"] != "product" {
		t.Fatalf("current question = %v", q["id"])
	}

	answer := func(questionID string, value any) map[string]any {
		t.Helper()
		rec, resp := doJSON(t, handler, http.MethodPost, "/wizard/sessions/"+sessionID+"/answer", answerRequest{QuestionID: questionID, Answer: value})
		if rec.Code != http.StatusOK {
			t.Fatalf("answer %s status = %d, body = %s", questionID, rec.Code, rec.Body.String())
		}
		return resp.Result.(map[string]any)
	}
	skip := func(questionID string) {
		t.Helper()
		rec, _ := doJSON(t, handler, http.MethodPost, "/wizard/sessions/"+sessionID+"/skip", answerRequest{QuestionID: questionID})
		if rec.Code != http.StatusOK {
			t.Fatalf("skip %s status = %d", questionID, rec.Code)
		}
	}

	answer("product", "手工冷萃咖啡 小批量烘焙")
	answer("style", []string{"xiaohongshu"})
	view = answer("sellingPoint", []string{"新鲜", "手工"})

	// All base answers in, so the audience and frequency follow-ups plus the
	// xiaohongshu visual-style follow-up are injected behind the cursor.
	if view["total_questions"].(float64) != 6 {
		t.Fatalf("total_questions after follow-ups = %v", view["total_questions"])
	}
	if view["complete"] != true {
		t.Fatalf("complete = %v", view["complete"])
	}
	if q := view["current_question"].(map[string]any); q["id"] != "targetAudience" {
		t.Fatalf("current question = %v", q["id"])
	}

	answer("targetAudience", "25~40岁的男性上班族")
	skip("publishFrequency")
	skip("visualStyle")

	rec, resp = doJSON(t, handler, http.MethodPost, "/wizard/sessions/"+sessionID+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	req := resp.Result.(map[string]any)["requirement"].(map[string]any)
	if req["input_mode"] != "wizard" {
		t.Fatalf("input_mode = %v", req["input_mode"])
	}
	audience := req["target_audience"].(map[string]any)
	if audience["age"] != "25-40" || audience["gender"] != "男" {
		t.Fatalf("audience = %v", audience)
	}

	// Session state is gone once completed.
	rec, _ = doJSON(t, handler, http.MethodGet, "/wizard/sessions/"+sessionID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get-completed status = %d", rec.Code)
	}
}

func TestWizardSessionValidation(t *testing.T) {
	handler := newTestServer(t).Handler()

	_, resp := doJSON(t, handler, http.MethodPost, "/wizard/sessions", nil)
	sessionID := resp.Result.(map[string]any)["session_id"].(string)

	// Required questions cannot be skipped.
	rec, _ := doJSON(t, handler, http.MethodPost, "/wizard/sessions/"+sessionID+"/skip", answerRequest{QuestionID: "product"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("skip-required status = %d", rec.Code)
	}

	// Too-short product descriptions are rejected by the validator.
	rec, _ = doJSON(t, handler, http.MethodPost, "/wizard/sessions/"+sessionID+"/answer", answerRequest{QuestionID: "product", Answer: "短"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid-answer status = %d", rec.Code)
	}

	// Completing with unanswered required questions is rejected.
	rec, _ = doJSON(t, handler, http.MethodPost, "/wizard/sessions/"+sessionID+"/complete", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("complete-incomplete status = %d", rec.Code)
	}

	rec, _ = doJSON(t, handler, http.MethodGet, "/wizard/sessions/session_missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get-missing status = %d", rec.Code)
	}
}

func TestAnalyzeWizardEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	id := analyzeWizard(t, handler)

	rec, resp := doJSON(t, handler, http.MethodGet, "/requirements/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	saved := resp.Result.(map[string]any)
	if saved["input_mode"] != "wizard" {
		t.Fatalf("input_mode = %v", saved["input_mode"])
	}
}

func TestAnalyzeRequiresInput(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec, resp := doJSON(t, handler, http.MethodPost, "/requirements/analyze", analyzeRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp.Status != string(models.APIStatusError) {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestGeneratePlanUnknownRequirement(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec, _ := doJSON(t, handler, http.MethodPost, "/plans/generate", generatePlanRequest{
		RequirementID: "req_missing",
		Period:        periodRequest{StartDate: "2026-09-01", EndDate: "2026-09-07", TotalContents: 2},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGeneratePlanInvalidPeriod(t *testing.T) {
	handler := newTestServer(t).Handler()
	id := analyzeWizard(t, handler)

	rec, _ := doJSON(t, handler, http.MethodPost, "/plans/generate", generatePlanRequest{
		RequirementID: id,
		Period:        periodRequest{StartDate: "2026-09-01", EndDate: "2026-09-07", TotalContents: 0},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPlanLifecycle(t *testing.T) {
	handler := newTestServer(t).Handler()
	id := analyzeWizard(t, handler)

	// Generate.
	rec, resp := doJSON(t, handler, http.MethodPost, "/plans/generate", generatePlanRequest{
		RequirementID: id,
		Period:        periodRequest{StartDate: "2026-09-01", EndDate: "2026-09-07", TotalContents: 2},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body = %s", rec.Code, rec.Body.String())
	}
	planID := resp.Result.(map[string]any)["id"].(string)

	// Producing before confirmation is rejected.
	rec, _ = doJSON(t, handler, http.MethodPost, "/plans/"+planID+"/produce", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("produce-unconfirmed status = %d", rec.Code)
	}

	// Confirm, then produce.
	rec, _ = doJSON(t, handler, http.MethodPost, "/plans/"+planID+"/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status = %d", rec.Code)
	}
	rec, resp = doJSON(t, handler, http.MethodPost, "/plans/"+planID+"/produce", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("produce status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if produced := resp.Result.([]any); len(produced) != 2 {
		t.Fatalf("produced = %d", len(produced))
	}

	// Create schedules, then read them back through the calendar.
	rec, resp = doJSON(t, handler, http.MethodPost, "/plans/"+planID+"/schedules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("schedules status = %d", rec.Code)
	}
	if schedules := resp.Result.([]any); len(schedules) != 2 {
		t.Fatalf("schedules = %d", len(schedules))
	}

	scheduleID := resp.Result.([]any)[0].(map[string]any)["id"].(string)

	rec, resp = doJSON(t, handler, http.MethodGet, "/calendar?start=2026-09-01&end=2026-09-07", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("calendar status = %d", rec.Code)
	}
	if days := resp.Result.([]any); len(days) != 2 {
		t.Fatalf("calendar days = %d", len(days))
	}

	// Reschedule one slot, then remove it.
	newTime := time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC).UnixMilli()
	rec, resp = doJSON(t, handler, http.MethodPut, "/schedules/"+scheduleID, updateScheduleRequest{ScheduledTime: &newTime})
	if rec.Code != http.StatusOK {
		t.Fatalf("update schedule status = %d", rec.Code)
	}
	if got := resp.Result.(map[string]any)["scheduled_time"].(float64); int64(got) != newTime {
		t.Fatalf("scheduled_time = %v", got)
	}
	rec, _ = doJSON(t, handler, http.MethodDelete, "/schedules/"+scheduleID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete schedule status = %d", rec.Code)
	}
	rec, _ = doJSON(t, handler, http.MethodGet, "/schedules/"+scheduleID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get-deleted schedule status = %d", rec.Code)
	}

	// Delete.
	rec, _ = doJSON(t, handler, http.MethodDelete, "/plans/"+planID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, _ = doJSON(t, handler, http.MethodGet, "/plans/"+planID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get-deleted status = %d", rec.Code)
	}
}

func TestListPlansFilter(t *testing.T) {
	handler := newTestServer(t).Handler()
	id := analyzeWizard(t, handler)

	if rec, _ := doJSON(t, handler, http.MethodPost, "/plans/generate", generatePlanRequest{
		RequirementID: id,
		Period:        periodRequest{StartDate: "2026-09-01", EndDate: "2026-09-07", TotalContents: 2},
	}); rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d", rec.Code)
	}

	rec, resp := doJSON(t, handler, http.MethodGet, "/plans?requirement_id="+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if plans := resp.Result.([]any); len(plans) != 1 {
		t.Fatalf("plans = %d", len(plans))
	}

	rec, resp = doJSON(t, handler, http.MethodGet, "/plans?requirement_id=req_other", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if resp.Result != nil {
		if plans := resp.Result.([]any); len(plans) != 0 {
			t.Fatalf("plans = %d", len(plans))
		}
	}
}

func TestSchedulesRequireRange(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec, _ := doJSON(t, handler, http.MethodGet, "/schedules", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRunWorkflowEndpoint(t *testing.T) {
	handler := newTestServer(t).Handler()

	rec, resp := doJSON(t, handler, http.MethodPost, "/workflows/requirement-to-publish", runWorkflowRequest{
		Wizard: &requirement.WizardInput{Product: "手工冷萃咖啡", Styles: []string{"xiaohongshu"}},
		Period: periodRequest{StartDate: "2026-09-01", EndDate: "2026-09-07", TotalContents: 2},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	result := resp.Result.(map[string]any)
	if result["status"] != string(workflow.StatusCompleted) {
		t.Fatalf("workflow status = %v", result["status"])
	}
	if result["produced"].(float64) != 2 {
		t.Fatalf("produced = %v", result["produced"])
	}
	if result["plan_id"] == "" || result["requirement_id"] == "" {
		t.Fatalf("result = %+v", result)
	}
}
