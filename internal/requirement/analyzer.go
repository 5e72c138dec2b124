// Package requirement turns raw user input into a structured requirement
// analysis. Free text goes through the model-backed Analyzer; wizard answers
// are assembled directly and carry a higher confidence.
package requirement

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hongliu-studio/contentplan/internal/genai"
	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/util"
)

const (
	// fallbackConfidence is reported when model analysis fails.
	fallbackConfidence = 0.5
	// defaultConfidence fills in a missing confidence from the model.
	defaultConfidence = 0.8
	// wizardConfidence is reported for wizard-assembled requirements.
	wizardConfidence = 0.9
)

const analysisSystemPrompt = `你是一个专业的内容策划专家，擅长分析用户需求并提取关键信息。
请根据用户输入，分析并提取以下信息：
1. 核心主题（简洁明确）
2. 目标受众（年龄、性别、兴趣）
3. 内容类型（tutorial教程、review测评、recommendation种草、comparison对比、knowledge知识分享）
4. 推荐风格（从小红书风格中选择2-3个合适的）
5. 关键词（3-5个）

请以JSON格式返回，格式如下：
{
  "extractedTopic": "核心主题",
  "targetAudience": {
    "age": "年龄段，如：18-25",
    "gender": "性别，如：女性、男性、不限",
    "interests": ["兴趣1", "兴趣2", "兴趣3"]
  },
  "contentType": "tutorial|review|recommendation|comparison|knowledge",
  "suggestedStyles": ["风格1", "风格2"],
  "keywords": ["关键词1", "关键词2", "关键词3"],
  "confidence": 0.8
}`

// Analyzer extracts a structured requirement from free-text input. It never
// returns an error: failures degrade to FallbackAnalysis.
type Analyzer interface {
	Analyze(ctx context.Context, userInput string) models.RequirementAnalysisResult
}

// GenAIAnalyzer is the model-backed Analyzer.
type GenAIAnalyzer struct {
	client genai.ClientInterface
}

// NewGenAIAnalyzer creates an analyzer backed by the given client.
func NewGenAIAnalyzer(client genai.ClientInterface) *GenAIAnalyzer {
	return &GenAIAnalyzer{client: client}
}

// analysisResponse is the JSON shape the model is asked to return.
type analysisResponse struct {
	ExtractedTopic string `json:"extractedTopic"`
	TargetAudience struct {
		Age       string   `json:"age"`
		Gender    string   `json:"gender"`
		Interests []string `json:"interests"`
	} `json:"targetAudience"`
	ContentType     models.ContentType `json:"contentType"`
	SuggestedStyles []string           `json:"suggestedStyles"`
	Keywords        []string           `json:"keywords"`
	Confidence      float64            `json:"confidence"`
	Suggestions     []string           `json:"suggestions"`
}

// Analyze runs the model analysis on the user input and fills defaults for
// any field the model leaves out.
func (a *GenAIAnalyzer) Analyze(ctx context.Context, userInput string) models.RequirementAnalysisResult {
	prompt := "请分析以下用户需求：\n\"" + userInput + "\"\n\n请提取关键信息并返回JSON格式的分析结果。"

	resp, err := a.client.GeneratePrompt(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		slog.Warn("GenAIAnalyzer.Analyze: model call failed, using fallback", "error", err)
		return FallbackAnalysis(userInput)
	}

	var parsed analysisResponse
	if err := json.Unmarshal([]byte(genai.ExtractJSON(resp)), &parsed); err != nil {
		slog.Warn("GenAIAnalyzer.Analyze: response parse failed, using fallback", "error", err)
		return FallbackAnalysis(userInput)
	}

	req := models.RequirementAnalysis{
		ID:             util.GenerateRequirementID(),
		UserInput:      userInput,
		ExtractedTopic: parsed.ExtractedTopic,
		TargetAudience: models.TargetAudience{
			Age:       parsed.TargetAudience.Age,
			Gender:    parsed.TargetAudience.Gender,
			Interests: parsed.TargetAudience.Interests,
		},
		ContentType:     parsed.ContentType,
		SuggestedStyles: parsed.SuggestedStyles,
		Keywords:        parsed.Keywords,
		CreatedAt:       time.Now(),
	}
	if req.ExtractedTopic == "" {
		req.ExtractedTopic = userInput
	}
	if req.TargetAudience.Age == "" {
		req.TargetAudience.Age = "18-35"
	}
	if req.TargetAudience.Gender == "" {
		req.TargetAudience.Gender = "不限"
	}
	if req.TargetAudience.Interests == nil {
		req.TargetAudience.Interests = []string{}
	}
	if !models.IsValidContentType(req.ContentType) {
		req.ContentType = models.ContentTypeRecommendation
	}
	if len(req.SuggestedStyles) == 0 {
		req.SuggestedStyles = []string{"xiaohongshu"}
	}
	if req.Keywords == nil {
		req.Keywords = []string{}
	}

	confidence := parsed.Confidence
	if confidence == 0 {
		confidence = defaultConfidence
	}
	slog.Debug("GenAIAnalyzer.Analyze completed", "requirementID", req.ID,
		"topic", req.ExtractedTopic, "confidence", confidence)

	return models.RequirementAnalysisResult{
		Requirement: req,
		Confidence:  confidence,
		Suggestions: parsed.Suggestions,
	}
}

// FallbackAnalysis builds a minimal requirement straight from the input text.
// It is used when model analysis is unavailable or fails.
func FallbackAnalysis(userInput string) models.RequirementAnalysisResult {
	req := models.RequirementAnalysis{
		ID:             util.GenerateRequirementID(),
		UserInput:      userInput,
		ExtractedTopic: userInput,
		TargetAudience: models.TargetAudience{
			Age:       "18-35",
			Gender:    "不限",
			Interests: []string{},
		},
		ContentType:     models.ContentTypeRecommendation,
		SuggestedStyles: []string{"xiaohongshu"},
		Keywords:        []string{},
		CreatedAt:       time.Now(),
	}
	return models.RequirementAnalysisResult{
		Requirement: req,
		Confidence:  fallbackConfidence,
		Suggestions: []string{"建议提供更详细的需求描述以获得更准确的分析"},
	}
}
