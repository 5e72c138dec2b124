package wizard

import (
	"strings"

	"github.com/hongliu-studio/contentplan/internal/models"
)

// MaxFollowUps caps how many follow-up questions one wizard run may inject.
const MaxFollowUps = 2

// FollowUpContext carries the already-collected answers that drive follow-up
// question selection.
type FollowUpContext struct {
	ProductDescription string
	SelectedStyles     []string
	SellingPoints      []string
}

// Keyword groups that signal the product description already covers a topic,
// making the corresponding follow-up unnecessary.
var followUpSignalKeywords = map[models.CardSelector][]string{
	models.CardSelectorTargetAudience:   {"面向", "目标", "受众", "用户", "客户", "人群", "年龄", "性别"},
	models.CardSelectorPublishFrequency: {"每天", "每周", "每月", "发布", "频率", "次数", "篇", "条"},
	models.CardSelectorContentType:      {"教程", "测评", "推荐", "对比", "知识", "攻略", "指南"},
}

// ShouldAskFollowUp reports whether the product description lacks the signal
// keywords for the given topic, meaning the wizard should ask about it.
func ShouldAskFollowUp(ctx FollowUpContext, selector models.CardSelector) bool {
	keywords, ok := followUpSignalKeywords[selector]
	if !ok {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(ctx.ProductDescription, kw) {
			return false
		}
	}
	return true
}

// FollowUpQuestions returns the follow-up questions warranted by the context,
// in priority order (audience, frequency, content type), capped at
// MaxFollowUps.
func FollowUpQuestions(ctx FollowUpContext) []models.QuestionDefinition {
	var questions []models.QuestionDefinition

	if ShouldAskFollowUp(ctx, models.CardSelectorTargetAudience) && len(questions) < MaxFollowUps {
		questions = append(questions, models.QuestionDefinition{
			ID:           "targetAudience",
			Type:         models.QuestionTypeFollowUp,
			Text:         "请选择您的目标受众",
			Required:     false,
			Validator:    &models.AnswerValidator{Kind: models.ValidatorNonEmpty},
			CardSelector: models.CardSelectorTargetAudience,
		})
	}
	if ShouldAskFollowUp(ctx, models.CardSelectorPublishFrequency) && len(questions) < MaxFollowUps {
		questions = append(questions, models.QuestionDefinition{
			ID:           "publishFrequency",
			Type:         models.QuestionTypeFollowUp,
			Text:         "您希望的内容发布频率是？",
			Required:     false,
			Validator:    &models.AnswerValidator{Kind: models.ValidatorNonEmpty},
			CardSelector: models.CardSelectorPublishFrequency,
		})
	}
	if ShouldAskFollowUp(ctx, models.CardSelectorContentType) && len(questions) < MaxFollowUps {
		questions = append(questions, models.QuestionDefinition{
			ID:           "contentType",
			Type:         models.QuestionTypeFollowUp,
			Text:         "您希望生成什么类型的内容？",
			Required:     false,
			Validator:    &models.AnswerValidator{Kind: models.ValidatorNonEmpty},
			CardSelector: models.CardSelectorContentType,
		})
	}
	return questions
}

// StyleBasedFollowUps returns extra follow-up questions keyed off the
// selected styles, capped at MaxFollowUps.
func StyleBasedFollowUps(styleIDs []string, ctx FollowUpContext) []models.QuestionDefinition {
	var questions []models.QuestionDefinition

	if containsString(styleIDs, "tech_future") && len(questions) < MaxFollowUps {
		questions = append(questions, models.QuestionDefinition{
			ID:       "techDetails",
			Type:     models.QuestionTypeFollowUp,
			Text:     "是否需要突出产品的技术特点或创新点？",
			Required: false,
		})
	}
	if containsString(styleIDs, "xiaohongshu") && len(questions) < MaxFollowUps &&
		!containsString(ctx.SellingPoints, "颜值") {
		questions = append(questions, models.QuestionDefinition{
			ID:       "visualStyle",
			Type:     models.QuestionTypeFollowUp,
			Text:     "您希望内容更注重视觉呈现还是文字表达？",
			Required: false,
		})
	}
	return questions
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
