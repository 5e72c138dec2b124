package wizard

import "github.com/hongliu-studio/contentplan/internal/models"

// BaseQuestions returns the standard three-question requirement flow:
// product description, style selection, and selling points.
func BaseQuestions() []models.QuestionDefinition {
	return []models.QuestionDefinition{
		{
			ID:       "product",
			Type:     models.QuestionTypeProduct,
			Text:     "请用一句话描述你的产品或者服务",
			Required: true,
			Validator: &models.AnswerValidator{
				Kind:      models.ValidatorMinLength,
				MinLength: 5,
			},
		},
		{
			ID:       "style",
			Type:     models.QuestionTypeStyle,
			Text:     "选择你喜欢的风格",
			Required: true,
			Validator: &models.AnswerValidator{
				Kind: models.ValidatorNonEmptyList,
			},
		},
		{
			ID:       "sellingPoint",
			Type:     models.QuestionTypeSellingPoint,
			Text:     "选择产品卖点",
			Required: true,
			Validator: &models.AnswerValidator{
				Kind: models.ValidatorNonEmptyList,
			},
		},
	}
}
