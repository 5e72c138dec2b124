// Package models defines the core data structures for contentplan.
//
// It includes the requirement analysis record, content plan shapes, conflict
// issues, and publish schedules, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// ContentType categorizes a planned piece of content.
type ContentType string

const (
	// ContentTypeTutorial is a step-by-step how-to post.
	ContentTypeTutorial ContentType = "tutorial"
	// ContentTypeReview is a hands-on product review.
	ContentTypeReview ContentType = "review"
	// ContentTypeRecommendation is a product seeding/recommendation post.
	ContentTypeRecommendation ContentType = "recommendation"
	// ContentTypeComparison compares alternatives side by side.
	ContentTypeComparison ContentType = "comparison"
	// ContentTypeKnowledge is an educational knowledge-share post.
	ContentTypeKnowledge ContentType = "knowledge"
)

// ContentTypes lists all content types in their canonical iteration order.
// Distribution remainders are assigned in this order, so it must stay stable.
var ContentTypes = []ContentType{
	ContentTypeTutorial,
	ContentTypeReview,
	ContentTypeRecommendation,
	ContentTypeComparison,
	ContentTypeKnowledge,
}

// contentTypeLabels maps content types to human-readable labels used in
// generated titles and outline topics.
var contentTypeLabels = map[ContentType]string{
	ContentTypeTutorial:       "教程",
	ContentTypeReview:         "测评",
	ContentTypeRecommendation: "种草",
	ContentTypeComparison:     "对比",
	ContentTypeKnowledge:      "知识分享",
}

// Label returns the human-readable label for a content type.
func (ct ContentType) Label() string {
	if label, ok := contentTypeLabels[ct]; ok {
		return label
	}
	return string(ct)
}

// IsValidContentType checks if the given content type is supported.
func IsValidContentType(ct ContentType) bool {
	switch ct {
	case ContentTypeTutorial, ContentTypeReview, ContentTypeRecommendation, ContentTypeComparison, ContentTypeKnowledge:
		return true
	default:
		return false
	}
}

// Error variables for better error handling and testability
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrQuestionNotFound    = errors.New("question not found")
	ErrRequiredQuestion    = errors.New("question is required and cannot be skipped")
	ErrOutlineGeneration   = errors.New("outline generation failed")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrRequirementNotFound = errors.New("requirement not found")
	ErrScheduleNotFound    = errors.New("schedule not found")
	ErrSessionNotFound     = errors.New("wizard session not found")
	ErrSessionIncomplete   = errors.New("wizard session has unanswered required questions")
	ErrPlanNotConfirmed    = errors.New("plan is not confirmed")
)

// TargetAudience describes who a piece of content is aimed at.
type TargetAudience struct {
	Age       string   `json:"age"`
	Gender    string   `json:"gender"`
	Interests []string `json:"interests"`
}

// InputMode distinguishes how a requirement was collected.
type InputMode string

const (
	// InputModeText marks requirements assembled from free-text input.
	InputModeText InputMode = "text"
	// InputModeWizard marks requirements assembled from the question wizard.
	InputModeWizard InputMode = "wizard"
)

// ResearchData holds optional market research annotations on a requirement.
type ResearchData struct {
	PlatformTrends             []string `json:"platform_trends"`
	CompetitorAnalysis         string   `json:"competitor_analysis"`
	KeywordSuggestions         []string `json:"keyword_suggestions"`
	ContentTypeRecommendations []string `json:"content_type_recommendations"`
	MarketInsights             string   `json:"market_insights"`
	PlatformTips               []string `json:"platform_tips"`
}

// RequirementAnalysis is the canonical output of the requirement assembler.
// It is created once per analysis run and immutable after creation except for
// explicit update calls.
type RequirementAnalysis struct {
	ID              string         `json:"id"`
	UserInput       string         `json:"user_input"`
	ExtractedTopic  string         `json:"extracted_topic"`
	TargetAudience  TargetAudience `json:"target_audience"`
	ContentType     ContentType    `json:"content_type"`
	SuggestedStyles []string       `json:"suggested_styles"`
	Keywords        []string       `json:"keywords"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at,omitempty"`
	UserID          string         `json:"user_id,omitempty"`

	// Wizard-origin fields, populated only for InputModeWizard.
	ProductDescription string         `json:"product_description,omitempty"`
	SelectedStyles     []string       `json:"selected_styles,omitempty"`
	SellingPoints      []string       `json:"selling_points,omitempty"`
	FollowUpAnswers    map[string]any `json:"follow_up_answers,omitempty"`
	QuestionFlow       []FlowRecord   `json:"question_flow,omitempty"`
	InputMode          InputMode      `json:"input_mode,omitempty"`

	Research *ResearchData `json:"research_data,omitempty"`
}

// RequirementAnalysisResult bundles a requirement with analysis confidence.
type RequirementAnalysisResult struct {
	Requirement RequirementAnalysis `json:"requirement"`
	Confidence  float64             `json:"confidence"`
	Suggestions []string            `json:"suggestions"`
}

// StylePack is a lookup-resolved reference to a named visual/tone preset.
type StylePack struct {
	StyleID     string `json:"style_id"`
	StyleName   string `json:"style_name"`
	Description string `json:"description,omitempty"`
}

// PageContent is one page of a content outline.
type PageContent struct {
	Index        int    `json:"index"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	ImagePrompt  string `json:"image_prompt"`
	TemplateType string `json:"template_type"`
}

// RawOutlinePage is one page as returned by the outline-generation
// collaborator before it is shaped into a ContentOutline.
type RawOutlinePage struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	ImagePrompt string `json:"imagePrompt"`
}

// RawOutline is the outline collaborator's response shape.
type RawOutline struct {
	Pages []RawOutlinePage `json:"pages"`
}

// ContentOutline is the structured outline for one piece of content.
type ContentOutline struct {
	Cover PageContent   `json:"cover"`
	Pages []PageContent `json:"pages"`
}

// PublishStatus tracks the lifecycle of a scheduled publication.
type PublishStatus string

const (
	// PublishStatusDraft marks content that is planned but not yet scheduled.
	PublishStatusDraft PublishStatus = "draft"
	// PublishStatusScheduled marks content with a confirmed publish slot.
	PublishStatusScheduled PublishStatus = "scheduled"
	// PublishStatusPublished marks content that has gone out.
	PublishStatusPublished PublishStatus = "published"
)

// ItemSchedule is the publish slot assigned to a single content item.
type ItemSchedule struct {
	ScheduledTime int64         `json:"scheduled_time"` // epoch milliseconds
	Date          string        `json:"date"`           // YYYY-MM-DD
	Time          string        `json:"time"`           // HH:mm
	Platform      string        `json:"platform"`
	Status        PublishStatus `json:"status"`
}

// ResourceEstimate is the production cost estimate for one content item.
type ResourceEstimate struct {
	ImageCount           int `json:"image_count"`
	TextLength           int `json:"text_length"`
	EstimatedTimeMinutes int `json:"estimated_time_minutes"`
}

// DiversityScores holds per-item diversity sub-scores.
type DiversityScores struct {
	StyleVariety   float64 `json:"style_variety"`
	TypeVariety    float64 `json:"type_variety"`
	OverallVariety float64 `json:"overall_variety"`
}

// SingleContentPlan is one planned post within a multi-content plan.
type SingleContentPlan struct {
	ID              string           `json:"id"`
	Index           int              `json:"index"` // 1-based ordinal within the plan
	Title           string           `json:"title"`
	Outline         ContentOutline   `json:"outline"`
	StylePack       StylePack        `json:"style_pack"`
	PublishSchedule ItemSchedule     `json:"publish_schedule"`
	Resources       ResourceEstimate `json:"resources"`
	ContentType     ContentType      `json:"content_type"`
	Diversity       DiversityScores  `json:"diversity"`
}

// DatePeriod is the calendar span a plan covers.
type DatePeriod struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
	TotalDays int    `json:"total_days"`
}

// PlanStrategy summarizes the distributions chosen for a plan.
type PlanStrategy struct {
	TotalContents           int            `json:"total_contents"`
	ContentTypeDistribution map[string]int `json:"content_type_distribution"`
	StyleDistribution       map[string]int `json:"style_distribution"`
	DiversityScore          float64        `json:"diversity_score"`
}

// ScheduleSummary summarizes the publish slots of a plan.
type ScheduleSummary struct {
	Distribution   string `json:"distribution"` // e.g. "daily"
	BestTimes      []int  `json:"best_times"`   // publish hours
	TotalScheduled int    `json:"total_scheduled"`
}

// ResourceTotals aggregates resource estimates across a plan.
type ResourceTotals struct {
	TotalImageCount    int `json:"total_image_count"`
	TotalTextLength    int `json:"total_text_length"`
	TotalEstimatedTime int `json:"total_estimated_time"` // minutes
}

// ConflictCheck records the outcome of conflict detection on a plan.
type ConflictCheck struct {
	Checked   bool            `json:"checked"`
	Conflicts []ConflictIssue `json:"conflicts"`
	Resolved  bool            `json:"resolved"`
}

// MultiContentPlan is the aggregate plan produced by the distribution planner.
// It is created once by the planner, then mutated in place by the conflict
// detector and the agent quality check before being persisted.
type MultiContentPlan struct {
	ID              string              `json:"id"`
	RequirementID   string              `json:"requirement_id"`
	PlanName        string              `json:"plan_name"`
	Period          DatePeriod          `json:"period"`
	Contents        []SingleContentPlan `json:"contents"`
	Strategy        PlanStrategy        `json:"overall_strategy"`
	PublishSchedule ScheduleSummary     `json:"publish_schedule"`
	Resources       ResourceTotals      `json:"resources"`
	ConflictCheck   ConflictCheck       `json:"conflict_check"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// ConflictType classifies a detected conflict.
type ConflictType string

const (
	// ConflictTypeStyle flags adjacent items sharing a visual style.
	ConflictTypeStyle ConflictType = "style_conflict"
	// ConflictTypeTime flags publish slots clustered in one hour.
	ConflictTypeTime ConflictType = "time_conflict"
	// ConflictTypeContent flags items with near-duplicate titles.
	ConflictTypeContent ConflictType = "content_conflict"
	// ConflictTypeResource flags dates overloaded with production work.
	ConflictTypeResource ConflictType = "resource_conflict"
)

// ConflictSeverity grades how serious a conflict is.
type ConflictSeverity string

const (
	SeverityLow    ConflictSeverity = "low"
	SeverityMedium ConflictSeverity = "medium"
	SeverityHigh   ConflictSeverity = "high"
)

// ConflictIssue is a detected risk in an already-generated plan. It is a pure
// value object: generated fresh on each detection pass, never mutated.
type ConflictIssue struct {
	ID               string           `json:"id"`
	Type             ConflictType     `json:"type"`
	Severity         ConflictSeverity `json:"severity"`
	Description      string           `json:"description"`
	AffectedContents []string         `json:"affected_contents"`
	Suggestion       string           `json:"suggestion"`
	AutoResolvable   bool             `json:"auto_resolvable"`
}

// PlanType discriminates the persisted content plan variants.
type PlanType string

const (
	// PlanTypeSingle wraps one standalone content plan.
	PlanTypeSingle PlanType = "single"
	// PlanTypeMulti wraps a multi-content plan.
	PlanTypeMulti PlanType = "multi"
)

// ContentPlan is the persisted plan record. PlanType discriminates which of
// Single/Multi is populated; consumers should switch on Variant() rather than
// probing the pointers directly.
type ContentPlan struct {
	ID            string             `json:"id"`
	RequirementID string             `json:"requirement_id"`
	PlanType      PlanType           `json:"plan_type"`
	Single        *SingleContentPlan `json:"single,omitempty"`
	Multi         *MultiContentPlan  `json:"multi,omitempty"`
	Confirmed     bool               `json:"confirmed,omitempty"`
	ConfirmedAt   time.Time          `json:"confirmed_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at,omitempty"`
}

// PlanVariant is the tagged union view of a ContentPlan.
type PlanVariant struct {
	Single *SingleContentPlan
	Multi  *MultiContentPlan
}

// Variant returns the populated plan variant, or an error when the record's
// tag and payload disagree.
func (p *ContentPlan) Variant() (PlanVariant, error) {
	switch p.PlanType {
	case PlanTypeSingle:
		if p.Single == nil {
			return PlanVariant{}, errors.New("plan tagged single has no single payload")
		}
		return PlanVariant{Single: p.Single}, nil
	case PlanTypeMulti:
		if p.Multi == nil {
			return PlanVariant{}, errors.New("plan tagged multi has no multi payload")
		}
		return PlanVariant{Multi: p.Multi}, nil
	default:
		return PlanVariant{}, errors.New("unknown plan type: " + string(p.PlanType))
	}
}

// PlanFilters narrows ListPlans results.
type PlanFilters struct {
	RequirementID string
	PlanType      PlanType
	DateRange     *DateRange
}

// DateRange is an inclusive calendar span used for schedule queries.
type DateRange struct {
	Start string `json:"start"` // YYYY-MM-DD
	End   string `json:"end"`   // YYYY-MM-DD
}

// ReminderConfig controls whether and when a publish reminder fires.
type ReminderConfig struct {
	Enabled        bool `json:"enabled"`
	AdvanceMinutes int  `json:"advance_minutes"`
}

// PublishSchedule is a persisted publish slot derived from a confirmed plan.
type PublishSchedule struct {
	ID            string         `json:"id"`
	ContentPlanID string         `json:"content_plan_id"`
	ScheduledTime int64          `json:"scheduled_time"` // epoch milliseconds
	Platform      string         `json:"platform"`
	Status        PublishStatus  `json:"status"`
	Reminder      ReminderConfig `json:"reminder"`
	ReminderSent  bool           `json:"reminder_sent,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// AgentCheck is one category result within an agent quality review.
type AgentCheck struct {
	Category    string           `json:"category"`
	Score       float64          `json:"score"`
	Issues      []string         `json:"issues"`
	Suggestions []string         `json:"suggestions"`
	Severity    ConflictSeverity `json:"severity"`
}

// AgentReview is the result of the agent quality-check collaborator.
type AgentReview struct {
	OverallScore    float64         `json:"overall_score"`
	Checks          []AgentCheck    `json:"checks"`
	Summary         string          `json:"summary"`
	Conflicts       []ConflictIssue `json:"conflicts"`
	Resolved        bool            `json:"resolved"`
	Recommendations []string        `json:"recommendations"`
}
