// Package production turns a confirmed plan into finished marketing copy, one
// piece per planned content item, with per-plan progress tracking.
package production

import (
	"context"
	"fmt"
	"strings"

	"github.com/hongliu-studio/contentplan/internal/genai"
	"github.com/hongliu-studio/contentplan/internal/models"
)

const copySystemPrompt = "你是一位专业的小红书内容创作助手，擅长将内容大纲转化为符合小红书风格的优质帖子。"

const copyPromptTemplate = `# 角色
你是一位小红书内容创作大师，专为用户将内容大纲转化为符合小红书风格的优质帖子。

# 工作流程
1.提炼标题和图片大纲的核心要点，结合小红书平台风格和用户喜好，生成内容贴文大纲。
2.根据生成的内容大纲完成一篇完整的帖子，有软文开头，风格轻松吸引人，有结尾作为内容总结。
3.确保撰写内容生动有趣，具有真人感和网感，去除AI味。

# 限制
- 严格遵循小红书平台的社区规则和内容规范，杜绝低质量、违规或敏感内容。
- 标题不带书名号且不超过20个字。
- 全文除去标题外不超过700字。
- 正文部分简洁明了，文字前加上对应的emoji，段后可少量添加emoji表情。
- 整体排版多提行，不同内容另起一行，并用分隔符隔开。

# 内容大纲
主题：%s
风格：%s

页面详情：
%s

请根据以上大纲内容和要求，生成一篇完整的小红书风格帖子文案。`

// CopyWriter produces finished post copy from a content outline.
type CopyWriter interface {
	GenerateCopy(ctx context.Context, topic string, outline models.ContentOutline, styleID string) (string, error)
}

// GenAICopyWriter is the model-backed CopyWriter.
type GenAICopyWriter struct {
	client genai.ClientInterface
}

// NewGenAICopyWriter creates a copywriter backed by the given client.
func NewGenAICopyWriter(client genai.ClientInterface) *GenAICopyWriter {
	return &GenAICopyWriter{client: client}
}

// GenerateCopy renders the outline into the copy prompt and returns the model
// output verbatim.
func (w *GenAICopyWriter) GenerateCopy(ctx context.Context, topic string, outline models.ContentOutline, styleID string) (string, error) {
	prompt := fmt.Sprintf(copyPromptTemplate, topic, styleID, summarizePages(outline))

	copyText, err := w.client.GeneratePrompt(ctx, copySystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("GenAICopyWriter.GenerateCopy: %w", err)
	}
	return strings.TrimSpace(copyText), nil
}

// summarizePages flattens the cover and pages into the numbered page summary
// the prompt template expects.
func summarizePages(outline models.ContentOutline) string {
	var b strings.Builder
	writePage := func(n int, label string, page models.PageContent) {
		fmt.Fprintf(&b, "第%d页（%s页）：\n%s\n", n, label, page.Content)
		if page.ImagePrompt != "" {
			fmt.Fprintf(&b, "配图建议：%s\n", page.ImagePrompt)
		}
		b.WriteString("\n")
	}
	writePage(1, "封面", outline.Cover)
	for i, page := range outline.Pages {
		writePage(i+2, "内容", page)
	}
	return strings.TrimRight(b.String(), "\n")
}
