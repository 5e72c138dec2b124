// Package conflict implements the post-hoc validation pass over a generated
// plan. Four independent rule sets flag style repetition, publish-time
// clustering, near-duplicate titles, and per-date resource overload. The
// detector never reshapes the plan; it only emits fresh ConflictIssue values.
package conflict

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/util"
)

const (
	// titleSimilarityThreshold is the Jaccard score above which two titles
	// are flagged as near-duplicates.
	titleSimilarityThreshold = 0.7
	// titleSimilarityHigh upgrades a content conflict to high severity.
	titleSimilarityHigh = 0.9
	// hourClusterThreshold is the per-hour item count above which a time
	// conflict fires.
	hourClusterThreshold = 2
	// hourClusterHigh upgrades a time conflict to high severity.
	hourClusterHigh = 4
	// maxDailyImages and maxDailyMinutes bound one calendar date's
	// production load.
	maxDailyImages  = 10
	maxDailyMinutes = 480
	// topSimilarPartners caps how many partners one item's content
	// conflict reports.
	topSimilarPartners = 2
)

// alternativeStyles suggests replacements for a repeated style.
var alternativeStyles = map[string][]string{
	"xiaohongshu":  {"ins_minimal", "nature_fresh", "poster_2k"},
	"ins_minimal":  {"xiaohongshu", "minimal_white", "tech_future"},
	"poster_2k":    {"xiaohongshu", "tech_future", "black_gold"},
	"tech_future":  {"ins_minimal", "poster_2k", "cyberpunk"},
	"nature_fresh": {"xiaohongshu", "morandi", "minimal_white"},
	"morandi":      {"nature_fresh", "minimal_white", "xiaohongshu"},
	"black_gold":   {"poster_2k", "tech_future", "cyberpunk"},
}

var genericAlternatives = []string{"xiaohongshu", "ins_minimal"}

// Detector runs the validation rules. It is stateless and safe for
// concurrent use.
type Detector struct{}

// NewDetector creates a conflict detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect runs all four rule sets over the plan's contents and returns every
// issue found. A single item may appear in multiple issue types; no
// deduplication happens across rules.
func (d *Detector) Detect(contents []models.SingleContentPlan, requirement models.RequirementAnalysis) []models.ConflictIssue {
	var issues []models.ConflictIssue
	issues = append(issues, d.detectStyleConflicts(contents)...)
	issues = append(issues, d.detectTimeConflicts(contents)...)
	issues = append(issues, d.detectContentConflicts(contents)...)
	issues = append(issues, d.detectResourceConflicts(contents)...)
	slog.Debug("Detector.Detect completed", "requirementID", requirement.ID,
		"contents", len(contents), "issues", len(issues))
	return issues
}

// detectStyleConflicts flags adjacent items sharing a style id, one medium
// issue per adjacent pair.
func (d *Detector) detectStyleConflicts(contents []models.SingleContentPlan) []models.ConflictIssue {
	var issues []models.ConflictIssue
	for i := 1; i < len(contents); i++ {
		prev := contents[i-1].StylePack.StyleID
		cur := contents[i].StylePack.StyleID
		if prev != cur {
			continue
		}
		issues = append(issues, models.ConflictIssue{
			ID:       util.GenerateConflictID(),
			Type:     models.ConflictTypeStyle,
			Severity: models.SeverityMedium,
			Description: fmt.Sprintf("第%d篇和第%d篇内容使用了相同风格\"%s\"，可能造成视觉疲劳",
				i, i+1, cur),
			AffectedContents: []string{contents[i-1].ID, contents[i].ID},
			Suggestion: fmt.Sprintf("建议为第%d篇内容更换风格，推荐：%s",
				i+1, strings.Join(suggestAlternatives(cur), "、")),
			AutoResolvable: true,
		})
	}
	return issues
}

func suggestAlternatives(styleID string) []string {
	if alts, ok := alternativeStyles[styleID]; ok {
		return alts
	}
	return genericAlternatives
}

// detectTimeConflicts groups items by publish hour-of-day and flags hours
// holding more than hourClusterThreshold items.
func (d *Detector) detectTimeConflicts(contents []models.SingleContentPlan) []models.ConflictIssue {
	groups := make(map[int][]int) // hour -> item indices
	for i, c := range contents {
		hour := time.UnixMilli(c.PublishSchedule.ScheduledTime).Local().Hour()
		groups[hour] = append(groups[hour], i)
	}

	hours := make([]int, 0, len(groups))
	for hour := range groups {
		hours = append(hours, hour)
	}
	sort.Ints(hours)

	var issues []models.ConflictIssue
	for _, hour := range hours {
		group := groups[hour]
		if len(group) <= hourClusterThreshold {
			continue
		}
		severity := models.SeverityMedium
		if len(group) > hourClusterHigh {
			severity = models.SeverityHigh
		}
		ordinals := make([]string, len(group))
		affected := make([]string, len(group))
		for i, idx := range group {
			ordinals[i] = fmt.Sprintf("%d", idx+1)
			affected[i] = contents[idx].ID
		}
		issues = append(issues, models.ConflictIssue{
			ID:       util.GenerateConflictID(),
			Type:     models.ConflictTypeTime,
			Severity: severity,
			Description: fmt.Sprintf("有%d篇内容（第%s篇）计划在%d点发布，可能造成内容竞争",
				len(group), strings.Join(ordinals, "、"), hour),
			AffectedContents: affected,
			Suggestion:       "建议分散发布时间，避免内容竞争",
			AutoResolvable:   true,
		})
	}
	return issues
}

type similarPartner struct {
	index      int
	similarity float64
}

// detectContentConflicts flags pairs of near-duplicate titles. Each item
// with at least one match yields one issue reporting its top-2 most similar
// partners, so a cluster of lookalike titles does not explode
// combinatorially.
func (d *Detector) detectContentConflicts(contents []models.SingleContentPlan) []models.ConflictIssue {
	partners := make(map[int][]similarPartner)
	for i := 0; i < len(contents); i++ {
		for j := i + 1; j < len(contents); j++ {
			sim := TitleSimilarity(contents[i].Title, contents[j].Title)
			if sim <= titleSimilarityThreshold {
				continue
			}
			partners[i] = append(partners[i], similarPartner{index: j, similarity: sim})
			partners[j] = append(partners[j], similarPartner{index: i, similarity: sim})
		}
	}

	indices := make([]int, 0, len(partners))
	for idx := range partners {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var issues []models.ConflictIssue
	for _, idx := range indices {
		list := partners[idx]
		sort.SliceStable(list, func(a, b int) bool { return list[a].similarity > list[b].similarity })
		if len(list) > topSimilarPartners {
			list = list[:topSimilarPartners]
		}

		maxSim := list[0].similarity
		severity := models.SeverityMedium
		if maxSim > titleSimilarityHigh {
			severity = models.SeverityHigh
		}

		affected := []string{contents[idx].ID}
		names := make([]string, len(list))
		for i, p := range list {
			affected = append(affected, contents[p.index].ID)
			names[i] = fmt.Sprintf("第%d篇", p.index+1)
		}

		var description string
		if len(list) == 1 {
			description = fmt.Sprintf("第%d篇与%s内容标题相似度过高（%.0f%%）",
				idx+1, names[0], maxSim*100)
		} else {
			description = fmt.Sprintf("第%d篇与%s等多篇内容标题相似度过高（最高%.0f%%）",
				idx+1, strings.Join(names, "、"), maxSim*100)
		}

		issues = append(issues, models.ConflictIssue{
			ID:               util.GenerateConflictID(),
			Type:             models.ConflictTypeContent,
			Severity:         severity,
			Description:      description,
			AffectedContents: affected,
			Suggestion:       "建议调整标题，增加差异化",
			AutoResolvable:   false,
		})
	}
	return issues
}

// detectResourceConflicts groups items by calendar date and flags dates
// exceeding the image or production-minute budget.
func (d *Detector) detectResourceConflicts(contents []models.SingleContentPlan) []models.ConflictIssue {
	groups := make(map[string][]int)
	for i, c := range contents {
		groups[c.PublishSchedule.Date] = append(groups[c.PublishSchedule.Date], i)
	}

	dates := make([]string, 0, len(groups))
	for date := range groups {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var issues []models.ConflictIssue
	for _, date := range dates {
		group := groups[date]
		totalImages, totalMinutes := 0, 0
		affected := make([]string, len(group))
		for i, idx := range group {
			totalImages += contents[idx].Resources.ImageCount
			totalMinutes += contents[idx].Resources.EstimatedTimeMinutes
			affected[i] = contents[idx].ID
		}
		if totalImages <= maxDailyImages && totalMinutes <= maxDailyMinutes {
			continue
		}
		issues = append(issues, models.ConflictIssue{
			ID:       util.GenerateConflictID(),
			Type:     models.ConflictTypeResource,
			Severity: models.SeverityLow,
			Description: fmt.Sprintf("%s当天需要%d张图片，预计耗时%d分钟，可能资源紧张",
				date, totalImages, totalMinutes),
			AffectedContents: affected,
			Suggestion:       "建议分散到其他日期，或减少单篇内容的资源需求",
			AutoResolvable:   true,
		})
	}
	return issues
}

// TitleSimilarity computes the Jaccard index over the rune sets of the two
// titles with whitespace stripped. Identical titles score 1.
func TitleSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	setA := runeSet(a)
	setB := runeSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for r := range setA {
		if setB[r] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func runeSet(s string) map[rune]bool {
	set := make(map[rune]bool, len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		set[r] = true
	}
	return set
}
