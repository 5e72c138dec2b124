// Package outline implements the outline-generation collaborator: it asks
// the language model for a page-by-page content outline and parses the JSON
// it returns.
package outline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hongliu-studio/contentplan/internal/genai"
	"github.com/hongliu-studio/contentplan/internal/models"
)

const systemPrompt = `你是一位小红书内容策划专家。根据主题生成图文内容大纲。
输出必须是一个 JSON 对象，格式如下：
{"pages": [{"type": "cover", "content": "封面标题\n副标题", "imagePrompt": "封面配图描述"}, {"type": "content", "content": "页面标题\n正文要点", "imagePrompt": "配图描述"}]}
第一页 type 必须是 "cover"，其余为 "content"。每页 content 的第一行是该页标题。只输出 JSON，不要其他文字。`

// Generator produces content outlines via the genai client.
type Generator struct {
	client genai.ClientInterface
}

// NewGenerator creates an outline generator backed by the given client.
func NewGenerator(client genai.ClientInterface) *Generator {
	return &Generator{client: client}
}

// GenerateOutline asks the model for an outline of roughly pageCountHint
// pages in the given style. The response must carry at least one page.
func (g *Generator) GenerateOutline(ctx context.Context, topic string, pageCountHint int, styleID string) (*models.RawOutline, error) {
	userPrompt := fmt.Sprintf("主题：%s\n页数：约%d页（含封面）\n风格：%s", topic, pageCountHint, styleID)

	resp, err := g.client.GeneratePrompt(ctx, systemPrompt, userPrompt)
	if err != nil {
		slog.Error("Generator.GenerateOutline: model call failed", "topic", topic, "styleID", styleID, "error", err)
		return nil, fmt.Errorf("outline model call for %q: %w", topic, err)
	}

	var raw models.RawOutline
	if err := json.Unmarshal([]byte(genai.ExtractJSON(resp)), &raw); err != nil {
		slog.Error("Generator.GenerateOutline: response parse failed", "topic", topic, "error", err)
		return nil, fmt.Errorf("parse outline response for %q: %w: %w", topic, models.ErrOutlineGeneration, err)
	}
	if len(raw.Pages) == 0 {
		return nil, fmt.Errorf("outline for %q returned no pages: %w", topic, models.ErrOutlineGeneration)
	}
	slog.Debug("Generator.GenerateOutline succeeded", "topic", topic, "pages", len(raw.Pages))
	return &raw, nil
}
