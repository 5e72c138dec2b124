package requirement

import (
	"regexp"
	"strings"
	"time"

	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/util"
)

// WizardInput carries the answers collected by the question wizard.
type WizardInput struct {
	Product         string              `json:"product"`
	Styles          []string            `json:"styles"`
	SellingPoints   []string            `json:"selling_points"`
	FollowUpAnswers map[string]any      `json:"follow_up_answers,omitempty"`
	QuestionFlow    []models.FlowRecord `json:"question_flow,omitempty"`
}

// maxWizardKeywords caps the keyword list extracted from wizard answers.
const maxWizardKeywords = 5

// AssembleWizardRequirement builds a requirement analysis from wizard answers
// without a model call. Follow-up answers refine the audience and content
// type defaults when present.
func AssembleWizardRequirement(input WizardInput) models.RequirementAnalysis {
	req := models.RequirementAnalysis{
		ID:             util.GenerateRequirementID(),
		UserInput:      input.Product,
		ExtractedTopic: input.Product,
		TargetAudience: models.TargetAudience{
			Age:       "18-35",
			Gender:    "不限",
			Interests: []string{},
		},
		ContentType:     models.ContentTypeRecommendation,
		SuggestedStyles: input.Styles,
		Keywords:        extractWizardKeywords(input),
		CreatedAt:       time.Now(),

		ProductDescription: input.Product,
		SelectedStyles:     input.Styles,
		SellingPoints:      input.SellingPoints,
		FollowUpAnswers:    input.FollowUpAnswers,
		QuestionFlow:       input.QuestionFlow,
		InputMode:          models.InputModeWizard,
	}

	applyFollowUpAnswers(&req, input.FollowUpAnswers)
	return req
}

// applyFollowUpAnswers refines the audience and content type from the
// optional follow-up answers. The audience answer can be either the card
// selection object or a free-text description.
func applyFollowUpAnswers(req *models.RequirementAnalysis, answers map[string]any) {
	if audience, ok := answers["targetAudience"]; ok {
		switch v := audience.(type) {
		case map[string]any:
			if ages, ok := v["age"].([]any); ok && len(ages) > 0 {
				if age, ok := ages[0].(string); ok && age != "" {
					req.TargetAudience.Age = age
				}
			} else if age, ok := v["age"].(string); ok && age != "" {
				req.TargetAudience.Age = age
			}
			if gender, ok := v["gender"].(string); ok && gender != "" {
				req.TargetAudience.Gender = gender
			}
		case string:
			req.TargetAudience = parseAudienceText(v)
		}
	}

	if answer, ok := answers["contentType"]; ok {
		if text, ok := answer.(string); ok {
			if models.IsValidContentType(models.ContentType(text)) {
				req.ContentType = models.ContentType(text)
			} else if ct, ok := parseContentTypeText(text); ok {
				req.ContentType = ct
			}
		}
	}
}

var (
	wizardWordSplit = regexp.MustCompile(`[\s，,。.！!？?]+`)
	audienceAgeRe   = regexp.MustCompile(`(\d+)[-~](\d+)`)
	audienceGenders = []string{"不限", "男", "女"}
)

// extractWizardKeywords takes up to three words from the product description
// plus the selling points, deduplicated.
func extractWizardKeywords(input WizardInput) []string {
	keywords := []string{}
	seen := map[string]bool{}

	words := wizardWordSplit.Split(input.Product, -1)
	taken := 0
	for _, w := range words {
		if taken >= 3 {
			break
		}
		if len([]rune(w)) > 1 && !seen[w] {
			keywords = append(keywords, w)
			seen[w] = true
			taken++
		}
	}
	for _, sp := range input.SellingPoints {
		if sp != "" && !seen[sp] {
			keywords = append(keywords, sp)
			seen[sp] = true
		}
	}
	if len(keywords) > maxWizardKeywords {
		keywords = keywords[:maxWizardKeywords]
	}
	return keywords
}

// parseAudienceText pulls an age range and gender out of a free-text
// audience description.
func parseAudienceText(text string) models.TargetAudience {
	audience := models.TargetAudience{Age: "18-35", Gender: "不限", Interests: []string{}}
	if m := audienceAgeRe.FindStringSubmatch(text); m != nil {
		audience.Age = m[1] + "-" + m[2]
	}
	// First gender mention in the text wins.
	best := -1
	for _, g := range audienceGenders {
		if i := strings.Index(text, g); i >= 0 && (best < 0 || i < best) {
			best = i
			audience.Gender = g
		}
	}
	return audience
}

var contentTypeHints = []struct {
	hint string
	ct   models.ContentType
}{
	{"教程", models.ContentTypeTutorial},
	{"测评", models.ContentTypeReview},
	{"推荐", models.ContentTypeRecommendation},
	{"种草", models.ContentTypeRecommendation},
	{"对比", models.ContentTypeComparison},
	{"知识", models.ContentTypeKnowledge},
}

// parseContentTypeText maps a Chinese content-type description to its enum.
func parseContentTypeText(text string) (models.ContentType, bool) {
	for _, h := range contentTypeHints {
		if strings.Contains(text, h.hint) {
			return h.ct, true
		}
	}
	return "", false
}
