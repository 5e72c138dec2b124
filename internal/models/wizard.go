// Package models defines wizard question types for the requirement flow.
package models

import (
	"fmt"
	"strings"
	"time"
)

// QuestionType categorizes wizard questions.
type QuestionType string

const (
	// QuestionTypeProduct asks for the product description.
	QuestionTypeProduct QuestionType = "product"
	// QuestionTypeStyle asks for visual style selections.
	QuestionTypeStyle QuestionType = "style"
	// QuestionTypeSellingPoint asks for product selling points.
	QuestionTypeSellingPoint QuestionType = "sellingPoint"
	// QuestionTypeFollowUp marks dynamically injected follow-up questions.
	QuestionTypeFollowUp QuestionType = "followUp"
)

// CardSelector identifies which card-based picker the UI should render for a
// follow-up question.
type CardSelector string

const (
	CardSelectorTargetAudience   CardSelector = "targetAudience"
	CardSelectorPublishFrequency CardSelector = "publishFrequency"
	CardSelectorContentType      CardSelector = "contentType"
)

// ValidatorKind enumerates the supported answer validation rules. Keeping the
// rule set enumerable makes validators testable without executing arbitrary
// closures; Custom remains as an escape hatch.
type ValidatorKind string

const (
	ValidatorNonEmpty     ValidatorKind = "nonEmpty"
	ValidatorMinLength    ValidatorKind = "minLength"
	ValidatorNonEmptyList ValidatorKind = "nonEmptyList"
	ValidatorCustom       ValidatorKind = "custom"
)

// ValidationError reports an answer rejected by a question validator.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AnswerValidator is a tagged-variant validation rule attached to a question.
type AnswerValidator struct {
	Kind      ValidatorKind `json:"kind"`
	MinLength int           `json:"min_length,omitempty"`
	// Fn backs ValidatorCustom; it returns nil on success or a
	// *ValidationError describing the rejection. Not serializable.
	Fn func(answer any) error `json:"-"`
}

// Validate applies the rule to an answer. A nil validator accepts everything.
func (v *AnswerValidator) Validate(answer any) error {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ValidatorNonEmpty:
		s, ok := answer.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return &ValidationError{Message: "answer must be a non-empty string"}
		}
		return nil
	case ValidatorMinLength:
		s, ok := answer.(string)
		if !ok || len([]rune(strings.TrimSpace(s))) < v.MinLength {
			return &ValidationError{Message: fmt.Sprintf("answer must be at least %d characters", v.MinLength)}
		}
		return nil
	case ValidatorNonEmptyList:
		switch list := answer.(type) {
		case []string:
			if len(list) == 0 {
				return &ValidationError{Message: "select at least one option"}
			}
			return nil
		case []any:
			if len(list) == 0 {
				return &ValidationError{Message: "select at least one option"}
			}
			return nil
		default:
			return &ValidationError{Message: "select at least one option"}
		}
	case ValidatorCustom:
		if v.Fn == nil {
			return nil
		}
		return v.Fn(answer)
	default:
		return &ValidationError{Message: "unknown validator kind: " + string(v.Kind)}
	}
}

// QuestionDefinition describes one wizard question. Definitions are immutable
// once added to a flow; flows may append new instances at runtime (follow-ups).
type QuestionDefinition struct {
	ID           string           `json:"id"`
	Type         QuestionType     `json:"type"`
	Text         string           `json:"text"`
	Required     bool             `json:"required"`
	Validator    *AnswerValidator `json:"validator,omitempty"`
	CardSelector CardSelector     `json:"card_selector,omitempty"`
}

// FlowRecord is one append-only log entry of the wizard flow. One is appended
// per answer or skip and popped on "go back".
type FlowRecord struct {
	QuestionID   string       `json:"question_id"`
	QuestionType QuestionType `json:"question_type"`
	QuestionText string       `json:"question_text"`
	Answer       any          `json:"answer"`
	AnsweredAt   time.Time    `json:"answered_at"`
	Skipped      bool         `json:"skipped,omitempty"`
}

// WizardState is the exportable snapshot of a question flow, used to suspend
// and resume a wizard session.
type WizardState struct {
	Answers           map[string]any       `json:"answers"`
	FlowHistory       []FlowRecord         `json:"flow_history"`
	CurrentIndex      int                  `json:"current_index"`
	FollowUpQuestions []QuestionDefinition `json:"follow_up_questions"`
}
