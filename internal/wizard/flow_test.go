package wizard

import (
	"errors"
	"math"
	"testing"

	"github.com/hongliu-studio/contentplan/internal/models"
)

func newTestManager() *Manager {
	return NewManager(BaseQuestions())
}

func answerAll(t *testing.T, m *Manager) {
	t.Helper()
	if err := m.AnswerQuestion("product", "这是一款高品质的智能手表"); err != nil {
		t.Fatalf("answer product failed: %v", err)
	}
	if err := m.AnswerQuestion("style", []string{"xiaohongshu"}); err != nil {
		t.Fatalf("answer style failed: %v", err)
	}
	if err := m.AnswerQuestion("sellingPoint", []string{"性价比", "品质"}); err != nil {
		t.Fatalf("answer sellingPoint failed: %v", err)
	}
}

func TestManagerInitialState(t *testing.T) {
	m := newTestManager()
	q := m.GetCurrentQuestion()
	if q == nil || q.ID != "product" {
		t.Fatalf("expected product as first question, got %v", q)
	}
	if m.GetTotalQuestions() != 3 {
		t.Errorf("expected 3 questions, got %d", m.GetTotalQuestions())
	}
	if m.GetProgress() != 0 {
		t.Errorf("expected progress 0, got %f", m.GetProgress())
	}
	if m.IsComplete() {
		t.Error("fresh flow should not be complete")
	}
}

func TestManagerProgressSequence(t *testing.T) {
	m := newTestManager()

	steps := []struct {
		id     string
		answer any
		want   float64
	}{
		{"product", "这是一款高品质的智能手表", 1.0 / 3.0},
		{"style", []string{"xiaohongshu"}, 2.0 / 3.0},
		{"sellingPoint", []string{"性价比"}, 1.0},
	}
	prev := m.GetProgress()
	for _, step := range steps {
		if err := m.AnswerQuestion(step.id, step.answer); err != nil {
			t.Fatalf("answer %s failed: %v", step.id, err)
		}
		got := m.GetProgress()
		if math.Abs(got-step.want) > 1e-9 {
			t.Errorf("after %s: progress = %f, want %f", step.id, got, step.want)
		}
		if got <= prev {
			t.Errorf("progress should be strictly increasing, got %f after %f", got, prev)
		}
		prev = got
	}

	if m.GetCurrentQuestion() != nil {
		t.Error("expected nil current question after final answer")
	}

	m.GoToPrevious()
	if got := m.GetProgress(); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("progress after GoToPrevious = %f, want %f", got, 2.0/3.0)
	}
	q := m.GetCurrentQuestion()
	if q == nil || q.ID != "sellingPoint" {
		t.Errorf("expected sellingPoint re-exposed as current, got %v", q)
	}
}

func TestManagerAnswerUnknownQuestion(t *testing.T) {
	m := newTestManager()
	err := m.AnswerQuestion("missing", "answer")
	if !errors.Is(err, models.ErrQuestionNotFound) {
		t.Errorf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestManagerValidationRejectionDoesNotAdvance(t *testing.T) {
	m := newTestManager()

	err := m.AnswerQuestion("product", "短")
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError for short answer, got %v", err)
	}
	if m.GetProgress() != 0 {
		t.Errorf("cursor advanced after rejected answer, progress %f", m.GetProgress())
	}
	if len(m.GetFlowHistory()) != 0 {
		t.Error("history recorded for rejected answer")
	}
	if m.GetAnswer("product") != nil {
		t.Error("answer stored despite rejection")
	}
}

func TestManagerSkipRequiredFails(t *testing.T) {
	m := newTestManager()
	if err := m.SkipQuestion("product"); !errors.Is(err, models.ErrRequiredQuestion) {
		t.Errorf("expected ErrRequiredQuestion, got %v", err)
	}
	if m.GetProgress() != 0 {
		t.Error("cursor advanced after refused skip")
	}
}

func TestManagerSkipOptionalAdvances(t *testing.T) {
	m := newTestManager()
	m.AddFollowUpQuestion(models.QuestionDefinition{
		ID:       "publishFrequency",
		Type:     models.QuestionTypeFollowUp,
		Text:     "您希望的内容发布频率是？",
		Required: false,
	})
	answerAll(t, m)

	if err := m.SkipQuestion("publishFrequency"); err != nil {
		t.Fatalf("skip optional failed: %v", err)
	}
	history := m.GetFlowHistory()
	last := history[len(history)-1]
	if !last.Skipped || last.QuestionID != "publishFrequency" {
		t.Errorf("expected skipped record for publishFrequency, got %+v", last)
	}
	if m.GetCurrentQuestion() != nil {
		t.Error("expected flow exhausted after skipping last question")
	}

	// Going back past a skip re-exposes the skipped question.
	m.GoToPrevious()
	q := m.GetCurrentQuestion()
	if q == nil || q.ID != "publishFrequency" {
		t.Errorf("expected publishFrequency re-asked after GoToPrevious, got %v", q)
	}
}

func TestManagerIsCompleteIndependentOfCursor(t *testing.T) {
	m := newTestManager()
	answerAll(t, m)
	if !m.IsComplete() {
		t.Fatal("expected complete after answering all required questions")
	}

	// Navigating backward removes the last answer, so completeness drops.
	m.GoToPrevious()
	if m.IsComplete() {
		t.Error("expected incomplete after GoToPrevious removed an answer")
	}

	// GoToQuestion moves the cursor without touching answers.
	if err := m.AnswerQuestion("sellingPoint", []string{"性价比"}); err != nil {
		t.Fatalf("re-answer failed: %v", err)
	}
	if !m.GoToQuestion("product") {
		t.Fatal("GoToQuestion failed for existing question")
	}
	if !m.IsComplete() {
		t.Error("cursor position should not affect completeness")
	}
}

func TestManagerAddFollowUpIdempotent(t *testing.T) {
	m := newTestManager()
	q := models.QuestionDefinition{ID: "targetAudience", Type: models.QuestionTypeFollowUp, Text: "请选择您的目标受众"}
	m.AddFollowUpQuestion(q)
	m.AddFollowUpQuestion(q)
	if m.GetTotalQuestions() != 4 {
		t.Errorf("expected 4 questions after duplicate insertion, got %d", m.GetTotalQuestions())
	}
}

func TestManagerStateRoundTrip(t *testing.T) {
	m := newTestManager()
	m.AddFollowUpQuestion(models.QuestionDefinition{
		ID:   "targetAudience",
		Type: models.QuestionTypeFollowUp,
		Text: "请选择您的目标受众",
	})
	answerAll(t, m)

	state := m.GetState()

	restored := NewManager(BaseQuestions())
	restored.RestoreState(state)

	wantAnswers := m.GetAllAnswers()
	gotAnswers := restored.GetAllAnswers()
	if len(gotAnswers) != len(wantAnswers) {
		t.Fatalf("answer count mismatch: got %d, want %d", len(gotAnswers), len(wantAnswers))
	}
	for k := range wantAnswers {
		if _, ok := gotAnswers[k]; !ok {
			t.Errorf("missing restored answer for %s", k)
		}
	}

	wantQ, gotQ := m.GetCurrentQuestion(), restored.GetCurrentQuestion()
	if (wantQ == nil) != (gotQ == nil) {
		t.Fatalf("current question mismatch: %v vs %v", wantQ, gotQ)
	}
	if wantQ != nil && wantQ.ID != gotQ.ID {
		t.Errorf("current question id mismatch: %s vs %s", wantQ.ID, gotQ.ID)
	}
	if restored.GetTotalQuestions() != m.GetTotalQuestions() {
		t.Errorf("total question mismatch: %d vs %d", restored.GetTotalQuestions(), m.GetTotalQuestions())
	}
}

func TestManagerReset(t *testing.T) {
	m := newTestManager()
	m.AddFollowUpQuestion(models.QuestionDefinition{ID: "targetAudience", Type: models.QuestionTypeFollowUp})
	answerAll(t, m)

	m.Reset()

	if m.GetProgress() != 0 {
		t.Errorf("expected progress 0 after reset, got %f", m.GetProgress())
	}
	if m.GetTotalQuestions() != 3 {
		t.Errorf("expected follow-ups cleared on reset, total %d", m.GetTotalQuestions())
	}
	if len(m.GetAllAnswers()) != 0 || len(m.GetFlowHistory()) != 0 {
		t.Error("expected answers and history cleared on reset")
	}
}
