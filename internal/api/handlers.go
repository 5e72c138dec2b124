// Package api provides HTTP handlers for contentplan endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/planner"
	"github.com/hongliu-studio/contentplan/internal/requirement"
	"github.com/hongliu-studio/contentplan/internal/workflow"
)

// analyzeRequest carries either wizard answers or free text, not both.
type analyzeRequest struct {
	Wizard *requirement.WizardInput `json:"wizard,omitempty"`
	Text   string                   `json:"text,omitempty"`
	UserID string                   `json:"user_id,omitempty"`
}

// periodRequest is the planning window of a generate or workflow request.
type periodRequest struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	TotalContents int    `json:"total_contents"`
}

func (p periodRequest) toPeriod() planner.Period {
	return planner.Period{StartDate: p.StartDate, EndDate: p.EndDate, TotalContents: p.TotalContents}
}

type generatePlanRequest struct {
	RequirementID string        `json:"requirement_id"`
	Period        periodRequest `json:"period"`
}

type runWorkflowRequest struct {
	Wizard *requirement.WizardInput `json:"wizard,omitempty"`
	Text   string                   `json:"text,omitempty"`
	Period periodRequest            `json:"period"`
	UserID string                   `json:"user_id,omitempty"`
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.analyzeHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	var result *models.RequirementAnalysisResult
	var err error
	switch {
	case req.Wizard != nil:
		result, err = s.requirements.AnalyzeWizard(r.Context(), *req.Wizard, req.UserID)
	case req.Text != "":
		result, err = s.requirements.AnalyzeText(r.Context(), req.Text, req.UserID)
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Either wizard answers or text input is required"))
		return
	}
	if err != nil {
		slog.Error("Server.analyzeHandler: analysis failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to analyze requirement"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) listRequirementsHandler(w http.ResponseWriter, r *http.Request) {
	requirements, err := s.requirements.List(r.Context())
	if err != nil {
		slog.Error("Server.listRequirementsHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list requirements"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(requirements))
}

func (s *Server) getRequirementHandler(w http.ResponseWriter, r *http.Request) {
	req, err := s.requirements.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, models.ErrRequirementNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Requirement not found"))
			return
		}
		slog.Error("Server.getRequirementHandler: get failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get requirement"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(req))
}

func (s *Server) deleteRequirementHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.requirements.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, models.ErrRequirementNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Requirement not found"))
			return
		}
		slog.Error("Server.deleteRequirementHandler: delete failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete requirement"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Requirement deleted", nil))
}

func (s *Server) generatePlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req generatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.generatePlanHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	requirementRecord, err := s.requirements.Get(r.Context(), req.RequirementID)
	if err != nil {
		if errors.Is(err, models.ErrRequirementNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Requirement not found"))
			return
		}
		slog.Error("Server.generatePlanHandler: requirement lookup failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load requirement"))
		return
	}

	plan, err := s.plans.Generate(r.Context(), *requirementRecord, req.Period.toPeriod())
	if err != nil {
		if errors.Is(err, models.ErrInvalidArgument) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		slog.Error("Server.generatePlanHandler: generation failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to generate plan"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(plan))
}

func (s *Server) listPlansHandler(w http.ResponseWriter, r *http.Request) {
	filters := models.PlanFilters{
		RequirementID: r.URL.Query().Get("requirement_id"),
		PlanType:      models.PlanType(r.URL.Query().Get("plan_type")),
	}
	if start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end"); start != "" && end != "" {
		filters.DateRange = &models.DateRange{Start: start, End: end}
	}

	plans, err := s.plans.List(r.Context(), filters)
	if err != nil {
		slog.Error("Server.listPlansHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list plans"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(plans))
}

func (s *Server) getPlanHandler(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, models.ErrPlanNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Plan not found"))
			return
		}
		slog.Error("Server.getPlanHandler: get failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get plan"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(plan))
}

func (s *Server) confirmPlanHandler(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.Confirm(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, models.ErrPlanNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Plan not found"))
			return
		}
		slog.Error("Server.confirmPlanHandler: confirm failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to confirm plan"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Plan confirmed", plan))
}

func (s *Server) deletePlanHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.plans.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, models.ErrPlanNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Plan not found"))
			return
		}
		slog.Error("Server.deletePlanHandler: delete failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete plan"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Plan deleted", nil))
}

func (s *Server) producePlanHandler(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, models.ErrPlanNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Plan not found"))
			return
		}
		slog.Error("Server.producePlanHandler: get failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load plan"))
		return
	}

	results, err := s.producer.Produce(r.Context(), *plan)
	if err != nil {
		if errors.Is(err, models.ErrPlanNotConfirmed) {
			writeJSONResponse(w, http.StatusConflict, models.Error("Plan is not confirmed"))
			return
		}
		slog.Error("Server.producePlanHandler: production failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to produce content"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(results))
}

func (s *Server) productionProgressHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(s.producer.GetProgress(r.PathValue("id"))))
}

func (s *Server) createSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	plan, err := s.plans.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, models.ErrPlanNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Plan not found"))
			return
		}
		slog.Error("Server.createSchedulesHandler: get failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load plan"))
		return
	}

	schedules, err := s.calendar.CreateSchedulesFromPlan(r.Context(), *plan)
	if err != nil {
		slog.Error("Server.createSchedulesHandler: scheduling failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create schedules"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(schedules))
}

func (s *Server) listSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if start == "" || end == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("start and end query parameters are required"))
		return
	}
	schedules, err := s.calendar.SchedulesInRange(r.Context(), models.DateRange{Start: start, End: end})
	if err != nil {
		slog.Error("Server.listSchedulesHandler: list failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list schedules"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(schedules))
}

func (s *Server) getScheduleHandler(w http.ResponseWriter, r *http.Request) {
	sched, err := s.calendar.GetSchedule(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, models.ErrScheduleNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Schedule not found"))
			return
		}
		slog.Error("Server.getScheduleHandler: get failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get schedule"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sched))
}

// updateScheduleRequest carries the editable schedule fields. Omitted fields
// keep their stored values.
type updateScheduleRequest struct {
	ScheduledTime *int64                 `json:"scheduled_time,omitempty"`
	Status        *models.PublishStatus  `json:"status,omitempty"`
	Reminder      *models.ReminderConfig `json:"reminder,omitempty"`
}

func (s *Server) updateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req updateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.updateScheduleHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	sched, err := s.calendar.GetSchedule(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, models.ErrScheduleNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Schedule not found"))
			return
		}
		slog.Error("Server.updateScheduleHandler: get failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load schedule"))
		return
	}

	if req.ScheduledTime != nil {
		sched.ScheduledTime = *req.ScheduledTime
		// Rescheduling re-arms the reminder.
		sched.ReminderSent = false
	}
	if req.Status != nil {
		sched.Status = *req.Status
	}
	if req.Reminder != nil {
		sched.Reminder = *req.Reminder
	}
	if err := s.calendar.UpdateSchedule(r.Context(), *sched); err != nil {
		slog.Error("Server.updateScheduleHandler: update failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update schedule"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Schedule updated", sched))
}

func (s *Server) deleteScheduleHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.calendar.DeleteSchedule(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, models.ErrScheduleNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Schedule not found"))
			return
		}
		slog.Error("Server.deleteScheduleHandler: delete failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete schedule"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Schedule deleted", nil))
}

func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if start == "" || end == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("start and end query parameters are required"))
		return
	}
	calendarEvents, err := s.calendar.CalendarEvents(r.Context(), models.DateRange{Start: start, End: end})
	if err != nil {
		slog.Error("Server.calendarHandler: grouping failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to build calendar"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(calendarEvents))
}

// runWorkflowResult is the JSON shape of a completed workflow run.
type runWorkflowResult struct {
	WorkflowID     string                   `json:"workflow_id"`
	Status         workflow.Status          `json:"status"`
	CompletedSteps []string                 `json:"completed_steps"`
	RequirementID  string                   `json:"requirement_id,omitempty"`
	PlanID         string                   `json:"plan_id,omitempty"`
	Produced       int                      `json:"produced"`
	Schedules      []models.PublishSchedule `json:"schedules,omitempty"`
}

func (s *Server) runWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req runWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.runWorkflowHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Wizard == nil && req.Text == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Either wizard answers or text input is required"))
		return
	}

	wctx := &workflow.Context{
		UserID:      req.UserID,
		WizardInput: req.Wizard,
		UserInput:   req.Text,
		Period:      req.Period.toPeriod(),
	}
	result := s.engine.Execute(r.Context(), s.steps.RequirementToPublish(), wctx)
	if result.Status == workflow.StatusFailed {
		slog.Error("Server.runWorkflowHandler: workflow failed", "workflowID", result.WorkflowID, "error", result.Err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Workflow failed: "+result.Err.Error()))
		return
	}

	resp := runWorkflowResult{
		WorkflowID:     result.WorkflowID,
		Status:         result.Status,
		CompletedSteps: result.CompletedSteps,
		Produced:       len(wctx.Produced),
		Schedules:      wctx.Schedules,
	}
	if wctx.Requirement != nil {
		resp.RequirementID = wctx.Requirement.ID
	}
	if wctx.Plan != nil {
		resp.PlanID = wctx.Plan.ID
	}
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}
