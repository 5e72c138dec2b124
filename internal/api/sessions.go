package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/requirement"
)

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Answer     any    `json:"answer"`
}

func (s *Server) startSessionHandler(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Start()
	if err != nil {
		slog.Error("Server.startSessionHandler: start failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start wizard session"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(view))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, "Server.getSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(view))
}

func (s *Server) answerSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.answerSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.QuestionID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("question_id is required"))
		return
	}

	view, err := s.sessions.Answer(r.PathValue("id"), req.QuestionID, req.Answer)
	if err != nil {
		s.writeSessionError(w, "Server.answerSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(view))
}

func (s *Server) skipSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.skipSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.QuestionID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("question_id is required"))
		return
	}

	view, err := s.sessions.Skip(r.PathValue("id"), req.QuestionID)
	if err != nil {
		s.writeSessionError(w, "Server.skipSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(view))
}

func (s *Server) previousSessionHandler(w http.ResponseWriter, r *http.Request) {
	view, err := s.sessions.Previous(r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, "Server.previousSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(view))
}

// completeSessionHandler finishes the wizard and immediately runs requirement
// analysis over the collected answers, so the client gets a persisted
// requirement back in one call.
func (s *Server) completeSessionHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.sessions.Complete(r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, "Server.completeSessionHandler", err)
		return
	}

	input := requirement.WizardInput{
		Product:         result.Product,
		Styles:          result.Styles,
		SellingPoints:   result.SellingPoints,
		FollowUpAnswers: result.FollowUpAnswers,
		QuestionFlow:    result.QuestionFlow,
	}
	analysis, err := s.requirements.AnalyzeWizard(r.Context(), input, r.URL.Query().Get("user_id"))
	if err != nil {
		slog.Error("Server.completeSessionHandler: analysis failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to analyze requirement"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(analysis))
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.PathValue("id")); err != nil {
		s.writeSessionError(w, "Server.deleteSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session deleted", nil))
}

// writeSessionError maps wizard session errors to HTTP statuses.
func (s *Server) writeSessionError(w http.ResponseWriter, op string, err error) {
	var validation *models.ValidationError
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
	case errors.Is(err, models.ErrQuestionNotFound):
		writeJSONResponse(w, http.StatusNotFound, models.Error("Question not found"))
	case errors.Is(err, models.ErrRequiredQuestion):
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Question is required and cannot be skipped"))
	case errors.Is(err, models.ErrSessionIncomplete):
		writeJSONResponse(w, http.StatusConflict, models.Error("Session has unanswered required questions"))
	case errors.As(err, &validation):
		writeJSONResponse(w, http.StatusBadRequest, models.Error(validation.Message))
	default:
		slog.Error(op+": session operation failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Session operation failed"))
	}
}
