// Package wizard implements the question flow state machine that collects
// structured content requirements step by step.
//
// A flow is an ordinal cursor over base questions plus dynamically injected
// follow-up questions. Follow-ups are appended after the base list, never
// interleaved. State is fully exportable and restorable so a session can be
// suspended and resumed.
package wizard

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hongliu-studio/contentplan/internal/models"
)

// Manager drives a linear question sequence, stores answers, and supports
// navigation and completeness checks. It is not safe for concurrent use; one
// Manager serves one wizard session.
type Manager struct {
	questions []models.QuestionDefinition
	followUps []models.QuestionDefinition
	answers   map[string]any
	history   []models.FlowRecord
	cursor    int
}

// NewManager creates a flow over the given base questions.
func NewManager(questions []models.QuestionDefinition) *Manager {
	qs := make([]models.QuestionDefinition, len(questions))
	copy(qs, questions)
	return &Manager{
		questions: qs,
		answers:   make(map[string]any),
	}
}

// allQuestions returns base questions followed by follow-ups.
func (m *Manager) allQuestions() []models.QuestionDefinition {
	all := make([]models.QuestionDefinition, 0, len(m.questions)+len(m.followUps))
	all = append(all, m.questions...)
	all = append(all, m.followUps...)
	return all
}

func (m *Manager) findQuestion(questionID string) *models.QuestionDefinition {
	for i := range m.questions {
		if m.questions[i].ID == questionID {
			return &m.questions[i]
		}
	}
	for i := range m.followUps {
		if m.followUps[i].ID == questionID {
			return &m.followUps[i]
		}
	}
	return nil
}

// GetCurrentQuestion returns the question at the cursor, or nil once the
// cursor has passed the last question. A nil return signals the wizard flow
// has reached its end, which is distinct from IsComplete.
func (m *Manager) GetCurrentQuestion() *models.QuestionDefinition {
	all := m.allQuestions()
	if m.cursor >= len(all) {
		return nil
	}
	q := all[m.cursor]
	return &q
}

// GetTotalQuestions returns the number of base plus follow-up questions.
func (m *Manager) GetTotalQuestions() int {
	return len(m.questions) + len(m.followUps)
}

// GetProgress returns cursor/total in [0,1]. An empty flow reports 0.
func (m *Manager) GetProgress() float64 {
	total := m.GetTotalQuestions()
	if total == 0 {
		return 0
	}
	p := float64(m.cursor) / float64(total)
	if p > 1 {
		return 1
	}
	return p
}

// AnswerQuestion validates and records an answer, then advances the cursor.
// A validator rejection leaves the cursor and history untouched.
func (m *Manager) AnswerQuestion(questionID string, answer any) error {
	q := m.findQuestion(questionID)
	if q == nil {
		slog.Debug("Manager.AnswerQuestion: question not found", "questionID", questionID)
		return fmt.Errorf("answer question %s: %w", questionID, models.ErrQuestionNotFound)
	}
	if err := q.Validator.Validate(answer); err != nil {
		slog.Debug("Manager.AnswerQuestion: validation rejected", "questionID", questionID, "error", err)
		return err
	}

	m.answers[questionID] = answer
	m.history = append(m.history, models.FlowRecord{
		QuestionID:   questionID,
		QuestionType: q.Type,
		QuestionText: q.Text,
		Answer:       answer,
		AnsweredAt:   time.Now().UTC(),
	})
	m.cursor++
	slog.Debug("Manager.AnswerQuestion: answer recorded", "questionID", questionID, "cursor", m.cursor)
	return nil
}

// SkipQuestion records a skip and advances the cursor. Required questions
// cannot be skipped.
func (m *Manager) SkipQuestion(questionID string) error {
	q := m.findQuestion(questionID)
	if q == nil {
		return fmt.Errorf("skip question %s: %w", questionID, models.ErrQuestionNotFound)
	}
	if q.Required {
		return fmt.Errorf("skip question %s: %w", questionID, models.ErrRequiredQuestion)
	}

	m.history = append(m.history, models.FlowRecord{
		QuestionID:   questionID,
		QuestionType: q.Type,
		QuestionText: q.Text,
		Answer:       nil,
		AnsweredAt:   time.Now().UTC(),
		Skipped:      true,
	})
	m.cursor++
	slog.Debug("Manager.SkipQuestion: question skipped", "questionID", questionID, "cursor", m.cursor)
	return nil
}

// GoToPrevious steps the cursor back one question, popping the last flow
// record and deleting its answer. Going back past a skipped question re-asks
// it. No-op at the start of the flow.
func (m *Manager) GoToPrevious() {
	if m.cursor == 0 {
		return
	}
	m.cursor--
	if len(m.history) > 0 {
		last := m.history[len(m.history)-1]
		delete(m.answers, last.QuestionID)
		m.history = m.history[:len(m.history)-1]
	}
}

// GoToQuestion moves the cursor directly to the question with the given id.
// Returns false when no such question exists.
func (m *Manager) GoToQuestion(questionID string) bool {
	for i, q := range m.allQuestions() {
		if q.ID == questionID {
			m.cursor = i
			return true
		}
	}
	return false
}

// GetAnswer returns the recorded answer for a question, or nil.
func (m *Manager) GetAnswer(questionID string) any {
	return m.answers[questionID]
}

// GetAllAnswers returns a copy of the answer map.
func (m *Manager) GetAllAnswers() map[string]any {
	out := make(map[string]any, len(m.answers))
	for k, v := range m.answers {
		out[k] = v
	}
	return out
}

// GetFlowHistory returns a copy of the append-only flow log.
func (m *Manager) GetFlowHistory() []models.FlowRecord {
	out := make([]models.FlowRecord, len(m.history))
	copy(out, m.history)
	return out
}

// IsComplete reports whether every required question has a recorded non-nil
// answer. It is independent of cursor position, so callers can detect
// completeness even after navigating backward.
func (m *Manager) IsComplete() bool {
	for _, q := range m.allQuestions() {
		if !q.Required {
			continue
		}
		if a, ok := m.answers[q.ID]; !ok || a == nil {
			return false
		}
	}
	return true
}

// AddFollowUpQuestion appends a follow-up question. Idempotent by id; the
// cursor does not move, so the new question is answered once the cursor
// naturally reaches it.
func (m *Manager) AddFollowUpQuestion(q models.QuestionDefinition) {
	if m.findQuestion(q.ID) != nil {
		return
	}
	m.followUps = append(m.followUps, q)
	slog.Debug("Manager.AddFollowUpQuestion: follow-up added", "questionID", q.ID, "total", m.GetTotalQuestions())
}

// AddQuestion appends a question to the base list. Idempotent by id.
func (m *Manager) AddQuestion(q models.QuestionDefinition) {
	if m.findQuestion(q.ID) != nil {
		return
	}
	m.questions = append(m.questions, q)
}

// Reset clears answers, history, follow-ups, and the cursor.
func (m *Manager) Reset() {
	m.answers = make(map[string]any)
	m.history = nil
	m.cursor = 0
	m.followUps = nil
}

// GetState exports a snapshot for persistence.
func (m *Manager) GetState() models.WizardState {
	answers := make(map[string]any, len(m.answers))
	for k, v := range m.answers {
		answers[k] = v
	}
	history := make([]models.FlowRecord, len(m.history))
	copy(history, m.history)
	followUps := make([]models.QuestionDefinition, len(m.followUps))
	copy(followUps, m.followUps)
	return models.WizardState{
		Answers:           answers,
		FlowHistory:       history,
		CurrentIndex:      m.cursor,
		FollowUpQuestions: followUps,
	}
}

// RestoreState replaces the manager's state with a previously exported
// snapshot. The base question list is unchanged.
func (m *Manager) RestoreState(state models.WizardState) {
	m.answers = make(map[string]any, len(state.Answers))
	for k, v := range state.Answers {
		m.answers[k] = v
	}
	m.history = make([]models.FlowRecord, len(state.FlowHistory))
	copy(m.history, state.FlowHistory)
	m.cursor = state.CurrentIndex
	m.followUps = make([]models.QuestionDefinition, len(state.FollowUpQuestions))
	copy(m.followUps, state.FollowUpQuestions)
}
