package requirement

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hongliu-studio/contentplan/internal/models"
)

type mockClient struct {
	response string
	err      error
	lastUser string
}

func (m *mockClient) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.lastUser = userPrompt
	return m.response, m.err
}

func TestAnalyzeParsesModelResponse(t *testing.T) {
	client := &mockClient{response: "```json\n" + `{
		"extractedTopic": "夏季防晒攻略",
		"targetAudience": {"age": "18-25", "gender": "女性", "interests": ["美妆", "户外"]},
		"contentType": "tutorial",
		"suggestedStyles": ["xiaohongshu", "ins_minimal"],
		"keywords": ["防晒", "夏季", "护肤"],
		"confidence": 0.85,
		"suggestions": ["可补充产品价位"]
	}` + "\n```"}
	analyzer := NewGenAIAnalyzer(client)

	result := analyzer.Analyze(context.Background(), "想做防晒内容")

	req := result.Requirement
	if req.ExtractedTopic != "夏季防晒攻略" {
		t.Fatalf("topic = %q", req.ExtractedTopic)
	}
	if req.TargetAudience.Age != "18-25" || req.TargetAudience.Gender != "女性" {
		t.Fatalf("audience = %+v", req.TargetAudience)
	}
	if req.ContentType != models.ContentTypeTutorial {
		t.Fatalf("contentType = %q", req.ContentType)
	}
	if len(req.SuggestedStyles) != 2 || req.SuggestedStyles[0] != "xiaohongshu" {
		t.Fatalf("styles = %v", req.SuggestedStyles)
	}
	if result.Confidence != 0.85 {
		t.Fatalf("confidence = %v", result.Confidence)
	}
	if !strings.HasPrefix(req.ID, "req_") {
		t.Fatalf("id = %q", req.ID)
	}
	if !strings.Contains(client.lastUser, "想做防晒内容") {
		t.Fatalf("prompt missing user input: %q", client.lastUser)
	}
}

func TestAnalyzeFillsDefaults(t *testing.T) {
	client := &mockClient{response: `{"extractedTopic": ""}`}
	analyzer := NewGenAIAnalyzer(client)

	result := analyzer.Analyze(context.Background(), "模糊的需求")

	req := result.Requirement
	if req.ExtractedTopic != "模糊的需求" {
		t.Fatalf("topic = %q", req.ExtractedTopic)
	}
	if req.TargetAudience.Age != "18-35" || req.TargetAudience.Gender != "不限" {
		t.Fatalf("audience = %+v", req.TargetAudience)
	}
	if req.ContentType != models.ContentTypeRecommendation {
		t.Fatalf("contentType = %q", req.ContentType)
	}
	if len(req.SuggestedStyles) != 1 || req.SuggestedStyles[0] != "xiaohongshu" {
		t.Fatalf("styles = %v", req.SuggestedStyles)
	}
	if result.Confidence != 0.8 {
		t.Fatalf("confidence = %v", result.Confidence)
	}
}

func TestAnalyzeFallsBackOnModelError(t *testing.T) {
	client := &mockClient{err: errors.New("rate limited")}
	analyzer := NewGenAIAnalyzer(client)

	result := analyzer.Analyze(context.Background(), "新品推广")

	if result.Confidence != 0.5 {
		t.Fatalf("confidence = %v", result.Confidence)
	}
	if result.Requirement.ExtractedTopic != "新品推广" {
		t.Fatalf("topic = %q", result.Requirement.ExtractedTopic)
	}
	if len(result.Suggestions) == 0 {
		t.Fatal("expected a fallback suggestion")
	}
}

func TestAnalyzeFallsBackOnMalformedResponse(t *testing.T) {
	client := &mockClient{response: "抱歉，我无法完成分析。"}
	analyzer := NewGenAIAnalyzer(client)

	result := analyzer.Analyze(context.Background(), "新品推广")

	if result.Confidence != 0.5 {
		t.Fatalf("confidence = %v", result.Confidence)
	}
	if result.Requirement.ContentType != models.ContentTypeRecommendation {
		t.Fatalf("contentType = %q", result.Requirement.ContentType)
	}
}
