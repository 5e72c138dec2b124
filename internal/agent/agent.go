// Package agent implements the quality-check collaborator: a deep review of
// a generated plan performed by the language model. A failed review degrades
// to the pre-existing conflict list instead of propagating the error.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hongliu-studio/contentplan/internal/genai"
	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/util"
)

const (
	// degradedScore is reported when the model review fails.
	degradedScore = 0.7
	// defaultScore fills in missing scores from the model response.
	defaultScore = 0.8
)

const systemPrompt = "你是一个专业的内容策划质量检查专家。"

// Checker reviews a generated plan and merges any newly found conflicts into
// the detector's list.
type Checker interface {
	Check(ctx context.Context, contents []models.SingleContentPlan, requirement models.RequirementAnalysis, conflicts []models.ConflictIssue) models.AgentReview
}

// GenAIChecker is the model-backed Checker.
type GenAIChecker struct {
	client genai.ClientInterface
}

// NewGenAIChecker creates a quality checker backed by the given client.
func NewGenAIChecker(client genai.ClientInterface) *GenAIChecker {
	return &GenAIChecker{client: client}
}

// agentResponse is the JSON shape the model is asked to return.
type agentResponse struct {
	OverallScore float64 `json:"overallScore"`
	Checks       []struct {
		Category    string   `json:"category"`
		Score       float64  `json:"score"`
		Issues      []string `json:"issues"`
		Suggestions []string `json:"suggestions"`
	} `json:"checks"`
	Summary         string                 `json:"summary"`
	NewConflicts    []models.ConflictIssue `json:"newConflicts"`
	Resolved        *bool                  `json:"resolved"`
	Recommendations []string               `json:"recommendations"`
}

// Check runs the deep quality review. It never returns an error: any model
// or parse failure degrades to the existing conflicts with resolved=false.
func (c *GenAIChecker) Check(ctx context.Context, contents []models.SingleContentPlan, requirement models.RequirementAnalysis, conflicts []models.ConflictIssue) models.AgentReview {
	prompt := buildQualityCheckPrompt(contents, requirement, conflicts)

	resp, err := c.client.GeneratePrompt(ctx, systemPrompt, prompt)
	if err != nil {
		slog.Warn("GenAIChecker.Check: model call failed, degrading", "requirementID", requirement.ID, "error", err)
		return degradedReview(conflicts)
	}

	var parsed agentResponse
	if err := json.Unmarshal([]byte(genai.ExtractJSON(resp)), &parsed); err != nil {
		slog.Warn("GenAIChecker.Check: response parse failed, degrading", "requirementID", requirement.ID, "error", err)
		return degradedReview(conflicts)
	}

	review := models.AgentReview{
		OverallScore:    parsed.OverallScore,
		Summary:         parsed.Summary,
		Conflicts:       mergeConflicts(conflicts, parsed.NewConflicts),
		Resolved:        parsed.Resolved == nil || *parsed.Resolved,
		Recommendations: parsed.Recommendations,
	}
	if review.OverallScore == 0 {
		review.OverallScore = defaultScore
	}
	if review.Summary == "" {
		review.Summary = "质检完成"
	}
	for _, check := range parsed.Checks {
		score := check.Score
		if score == 0 {
			score = defaultScore
		}
		review.Checks = append(review.Checks, models.AgentCheck{
			Category:    check.Category,
			Score:       score,
			Issues:      check.Issues,
			Suggestions: check.Suggestions,
			Severity:    severityForScore(score),
		})
	}
	slog.Debug("GenAIChecker.Check completed", "requirementID", requirement.ID,
		"overallScore", review.OverallScore, "conflicts", len(review.Conflicts), "resolved", review.Resolved)
	return review
}

func degradedReview(conflicts []models.ConflictIssue) models.AgentReview {
	return models.AgentReview{
		OverallScore:    degradedScore,
		Summary:         "质检过程中出现错误，请手动检查",
		Conflicts:       conflicts,
		Resolved:        false,
		Recommendations: []string{"建议手动检查规划内容"},
	}
}

func severityForScore(score float64) models.ConflictSeverity {
	switch {
	case score >= 0.8:
		return models.SeverityLow
	case score >= 0.6:
		return models.SeverityMedium
	default:
		return models.SeverityHigh
	}
}

// mergeConflicts appends model-reported conflicts not already present by id.
func mergeConflicts(existing, reported []models.ConflictIssue) []models.ConflictIssue {
	merged := make([]models.ConflictIssue, len(existing))
	copy(merged, existing)

	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.ID] = true
	}
	for _, c := range reported {
		if c.ID == "" {
			c.ID = util.GenerateConflictID()
		}
		if seen[c.ID] {
			continue
		}
		if c.Type == "" {
			c.Type = models.ConflictTypeContent
		}
		if c.Severity == "" {
			c.Severity = models.SeverityMedium
		}
		seen[c.ID] = true
		merged = append(merged, c)
	}
	return merged
}

func buildQualityCheckPrompt(contents []models.SingleContentPlan, requirement models.RequirementAnalysis, conflicts []models.ConflictIssue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "请对以下内容规划进行深度质量检查：\n\n")
	fmt.Fprintf(&b, "【需求背景】\n")
	fmt.Fprintf(&b, "- 目标用户：%s，%s\n", requirement.TargetAudience.Age, requirement.TargetAudience.Gender)
	fmt.Fprintf(&b, "- 核心主题：%s\n", requirement.ExtractedTopic)
	fmt.Fprintf(&b, "- 内容类型偏好：%s\n", requirement.ContentType)
	fmt.Fprintf(&b, "- 风格偏好：%s\n\n", strings.Join(requirement.SuggestedStyles, "、"))

	fmt.Fprintf(&b, "【内容规划】\n共%d篇内容：\n", len(contents))
	for i, c := range contents {
		pageTitles := make([]string, len(c.Outline.Pages))
		for j, p := range c.Outline.Pages {
			pageTitles[j] = p.Title
		}
		fmt.Fprintf(&b, "%d. %s\n   - 类型：%s\n   - 风格：%s\n   - 发布时间：%s\n   - 大纲：%s\n",
			i+1, c.Title, c.ContentType, c.StylePack.StyleID,
			time.UnixMilli(c.PublishSchedule.ScheduledTime).Local().Format("2006-01-02 15:04"),
			strings.Join(pageTitles, "、"))
	}

	fmt.Fprintf(&b, "\n【已检测到的冲突】\n")
	if len(conflicts) == 0 {
		b.WriteString("无\n")
	} else {
		for _, c := range conflicts {
			fmt.Fprintf(&b, "- %s（%s优先级）\n", c.Description, c.Severity)
		}
	}

	b.WriteString(`
【检查要求】
请从内容一致性、风格多样性、目标对齐度、时间优化、资源估算、冲突解决六个维度进行全面检查。

【输出要求】
请以JSON格式返回，格式如下：
{"overallScore": 0.85, "checks": [{"category": "内容一致性", "score": 0.9, "issues": [], "suggestions": []}], "summary": "...", "newConflicts": [], "resolved": true, "recommendations": []}
`)
	return b.String()
}
