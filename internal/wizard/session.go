package wizard

import (
	"fmt"
	"log/slog"

	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/store"
	"github.com/hongliu-studio/contentplan/internal/util"
)

// Sessions persists wizard flows across requests so a client can answer one
// question per round trip and resume after a disconnect. Each session is a
// Manager snapshot keyed by session id; the manager is rebuilt from the store
// on every call.
type Sessions struct {
	store store.Store
}

// NewSessions creates a session service backed by the given store.
func NewSessions(st store.Store) *Sessions {
	return &Sessions{store: st}
}

// View is the client-facing snapshot of a session returned by every
// session operation.
type View struct {
	SessionID       string                     `json:"session_id"`
	CurrentQuestion *models.QuestionDefinition `json:"current_question,omitempty"`
	Progress        float64                    `json:"progress"`
	TotalQuestions  int                        `json:"total_questions"`
	Complete        bool                       `json:"complete"`
}

// Result is the structured payload of a completed session, ready to be
// assembled into a requirement analysis.
type Result struct {
	Product         string              `json:"product"`
	Styles          []string            `json:"styles"`
	SellingPoints   []string            `json:"selling_points"`
	FollowUpAnswers map[string]any      `json:"follow_up_answers,omitempty"`
	QuestionFlow    []models.FlowRecord `json:"question_flow,omitempty"`
}

// Start creates a new session over the base question set.
func (s *Sessions) Start() (*View, error) {
	sessionID := util.GenerateSessionID()
	mgr := NewManager(BaseQuestions())
	if err := s.store.SaveWizardState(sessionID, mgr.GetState()); err != nil {
		return nil, fmt.Errorf("start wizard session: %w", err)
	}
	slog.Info("Sessions.Start: session created", "sessionID", sessionID)
	return s.view(sessionID, mgr), nil
}

// Get returns the current state of a session.
func (s *Sessions) Get(sessionID string) (*View, error) {
	mgr, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(sessionID, mgr), nil
}

// Answer records an answer for a question and advances the flow. Once all
// base questions are answered, follow-up questions warranted by the collected
// answers are injected before the flow can end.
func (s *Sessions) Answer(sessionID, questionID string, answer any) (*View, error) {
	mgr, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	if err := mgr.AnswerQuestion(questionID, answer); err != nil {
		return nil, err
	}
	s.injectFollowUps(mgr)
	if err := s.store.SaveWizardState(sessionID, mgr.GetState()); err != nil {
		return nil, fmt.Errorf("save wizard session %s: %w", sessionID, err)
	}
	return s.view(sessionID, mgr), nil
}

// Skip skips an optional question and advances the flow.
func (s *Sessions) Skip(sessionID, questionID string) (*View, error) {
	mgr, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	if err := mgr.SkipQuestion(questionID); err != nil {
		return nil, err
	}
	if err := s.store.SaveWizardState(sessionID, mgr.GetState()); err != nil {
		return nil, fmt.Errorf("save wizard session %s: %w", sessionID, err)
	}
	return s.view(sessionID, mgr), nil
}

// Previous steps the session back one question, discarding its answer.
func (s *Sessions) Previous(sessionID string) (*View, error) {
	mgr, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	mgr.GoToPrevious()
	if err := s.store.SaveWizardState(sessionID, mgr.GetState()); err != nil {
		return nil, fmt.Errorf("save wizard session %s: %w", sessionID, err)
	}
	return s.view(sessionID, mgr), nil
}

// Complete finishes a session and returns the collected answers. The session
// is deleted on success. Incomplete sessions are rejected.
func (s *Sessions) Complete(sessionID string) (*Result, error) {
	mgr, err := s.load(sessionID)
	if err != nil {
		return nil, err
	}
	if !mgr.IsComplete() {
		return nil, fmt.Errorf("complete wizard session %s: %w", sessionID, models.ErrSessionIncomplete)
	}

	answers := mgr.GetAllAnswers()
	result := &Result{
		Product:         stringAnswer(answers["product"]),
		Styles:          stringListAnswer(answers["style"]),
		SellingPoints:   stringListAnswer(answers["sellingPoint"]),
		FollowUpAnswers: make(map[string]any),
		QuestionFlow:    mgr.GetFlowHistory(),
	}
	for id, answer := range answers {
		switch id {
		case "product", "style", "sellingPoint":
		default:
			result.FollowUpAnswers[id] = answer
		}
	}
	if len(result.FollowUpAnswers) == 0 {
		result.FollowUpAnswers = nil
	}

	if err := s.store.DeleteWizardState(sessionID); err != nil {
		slog.Warn("Sessions.Complete: failed to delete session state", "sessionID", sessionID, "error", err)
	}
	slog.Info("Sessions.Complete: session completed", "sessionID", sessionID, "followUps", len(result.FollowUpAnswers))
	return result, nil
}

// Delete abandons a session.
func (s *Sessions) Delete(sessionID string) error {
	if err := s.store.DeleteWizardState(sessionID); err != nil {
		return fmt.Errorf("delete wizard session %s: %w", sessionID, err)
	}
	return nil
}

func (s *Sessions) load(sessionID string) (*Manager, error) {
	state, err := s.store.GetWizardState(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load wizard session %s: %w", sessionID, err)
	}
	mgr := NewManager(BaseQuestions())
	mgr.RestoreState(*state)
	return mgr, nil
}

// injectFollowUps adds follow-up questions once every base question has an
// answer. AddFollowUpQuestion is idempotent by id, so re-running after a
// back-and-forth does not duplicate questions.
func (s *Sessions) injectFollowUps(mgr *Manager) {
	answers := mgr.GetAllAnswers()
	if answers["product"] == nil || answers["style"] == nil || answers["sellingPoint"] == nil {
		return
	}
	ctx := FollowUpContext{
		ProductDescription: stringAnswer(answers["product"]),
		SelectedStyles:     stringListAnswer(answers["style"]),
		SellingPoints:      stringListAnswer(answers["sellingPoint"]),
	}
	for _, q := range FollowUpQuestions(ctx) {
		mgr.AddFollowUpQuestion(q)
	}
	for _, q := range StyleBasedFollowUps(ctx.SelectedStyles, ctx) {
		mgr.AddFollowUpQuestion(q)
	}
}

func (s *Sessions) view(sessionID string, mgr *Manager) *View {
	return &View{
		SessionID:       sessionID,
		CurrentQuestion: mgr.GetCurrentQuestion(),
		Progress:        mgr.GetProgress(),
		TotalQuestions:  mgr.GetTotalQuestions(),
		Complete:        mgr.IsComplete(),
	}
}

func stringAnswer(v any) string {
	s, _ := v.(string)
	return s
}

// stringListAnswer accepts both typed and JSON-decoded list answers.
func stringListAnswer(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
