package planner

import "github.com/hongliu-studio/contentplan/internal/models"

// DefaultStyleID is the fallback style when no other candidate survives
// selection.
const DefaultStyleID = "xiaohongshu"

// StyleCatalogue lists every supported style id in its canonical order.
// Distribution surpluses are assigned in this order, so it must stay stable.
var StyleCatalogue = []string{
	"xiaohongshu", "poster_2k", "ins_minimal", "tech_future",
	"nature_fresh", "morandi", "black_gold", "minimal_white",
	"dopamine", "cyberpunk", "retro_vintage",
}

type styleConfig struct {
	name        string
	description string
}

var styleConfigs = map[string]styleConfig{
	"xiaohongshu":   {"小红书风", "明亮活泼的种草笔记风格"},
	"poster_2k":     {"2K海报", "高清大字报式的视觉冲击风格"},
	"ins_minimal":   {"INS极简", "留白充足的国际化简约风格"},
	"tech_future":   {"科技未来", "冷色调的科技感未来风格"},
	"nature_fresh":  {"自然清新", "绿植与自然光的清新风格"},
	"morandi":       {"莫兰迪", "低饱和度的高级灰调风格"},
	"black_gold":    {"黑金", "黑底金字的奢华质感风格"},
	"minimal_white": {"极简白", "纯白背景的轻盈极简风格"},
	"dopamine":      {"多巴胺", "高饱和撞色的愉悦感风格"},
	"cyberpunk":     {"赛博朋克", "霓虹光效的暗夜都市风格"},
	"retro_vintage": {"复古怀旧", "胶片质感的年代感风格"},
}

// StylePackFor resolves a style id to its StylePack. Unknown ids resolve to a
// pack reusing the id as its name.
func StylePackFor(styleID string) models.StylePack {
	if cfg, ok := styleConfigs[styleID]; ok {
		return models.StylePack{StyleID: styleID, StyleName: cfg.name, Description: cfg.description}
	}
	return models.StylePack{StyleID: styleID, StyleName: styleID}
}
