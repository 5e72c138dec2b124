// Package planner implements the content distribution planner. Given a
// requirement analysis and a date period it allocates content types, visual
// styles, and publish slots across N items, delegating outline text to an
// external collaborator.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/util"
)

const (
	// mainTypeShare is the fraction of slots given to the requirement's
	// preferred content type.
	mainTypeShare = 0.6
	// antiRepeatWindow is how many trailing items a style must clear before
	// it can repeat.
	antiRepeatWindow = 3
	// pageCountHint is passed to the outline collaborator.
	pageCountHint = 8
	// estimatedMinutesPerItem is the fixed production-time estimate.
	estimatedMinutesPerItem = 1
)

// BestPublishHours are the two publish hours slots alternate between.
var BestPublishHours = []int{10, 20}

// OutlineGenerator produces the outline text for one content item.
type OutlineGenerator interface {
	GenerateOutline(ctx context.Context, topic string, pageCountHint int, styleID string) (*models.RawOutline, error)
}

// Rand is the random source used for type shuffling and style/hour picks.
// *rand.Rand from math/rand/v2 satisfies it; tests inject a seeded instance.
type Rand interface {
	IntN(n int) int
}

// Period is the date span and item count a plan covers.
type Period struct {
	StartDate     string // YYYY-MM-DD
	EndDate       string // YYYY-MM-DD
	TotalContents int
}

// Opts holds configuration options for the planner.
type Opts struct {
	Rand     Rand
	Platform string
}

// Option configures planner construction.
type Option func(*Opts)

// WithRand sets the random source. Inject a seeded source for deterministic
// plans.
func WithRand(r Rand) Option {
	return func(o *Opts) {
		o.Rand = r
	}
}

// WithPlatform sets the publish platform tag on generated schedules.
func WithPlatform(platform string) Option {
	return func(o *Opts) {
		o.Platform = platform
	}
}

// Planner allocates content types, styles, and publish slots across a plan.
// A Planner is safe for concurrent Generate calls as long as its Rand source
// is; each call threads its own distribution state.
type Planner struct {
	outline  OutlineGenerator
	rng      Rand
	platform string
}

// NewPlanner creates a planner delegating outline generation to the given
// collaborator.
func NewPlanner(outline OutlineGenerator, opts ...Option) *Planner {
	cfg := Opts{
		Platform: DefaultStyleID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Planner{outline: outline, rng: cfg.Rand, platform: cfg.Platform}
}

// styleSlot is one entry of the ordered style allocation. Remaining counts
// are threaded through the allocation loop as a fresh copy per call, never
// shared between calls.
type styleSlot struct {
	id        string
	remaining int
}

// Generate produces a MultiContentPlan for the requirement over the period.
// Generation is all-or-nothing: any outline failure fails the whole call.
func (p *Planner) Generate(ctx context.Context, requirement models.RequirementAnalysis, period Period) (*models.MultiContentPlan, error) {
	slog.Debug("Planner.Generate invoked", "requirementID", requirement.ID,
		"startDate", period.StartDate, "endDate", period.EndDate, "totalContents", period.TotalContents)

	if period.TotalContents <= 0 {
		return nil, fmt.Errorf("generate plan for requirement %s: total contents must be positive, got %d: %w",
			requirement.ID, period.TotalContents, models.ErrInvalidArgument)
	}
	startDate, err := time.ParseInLocation("2006-01-02", period.StartDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("generate plan for requirement %s: invalid start date %q: %w",
			requirement.ID, period.StartDate, models.ErrInvalidArgument)
	}
	endDate, err := time.ParseInLocation("2006-01-02", period.EndDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("generate plan for requirement %s: invalid end date %q: %w",
			requirement.ID, period.EndDate, models.ErrInvalidArgument)
	}

	total := period.TotalContents
	typeDist := planContentTypeDistribution(requirement.ContentType, total)
	styleDist := planStyleDistribution(requirement.SuggestedStyles, total)

	// Remaining counts are a fresh copy threaded through the loop; the full
	// distribution stays intact for the plan summary and type selection.
	remaining := make([]styleSlot, len(styleDist))
	copy(remaining, styleDist)

	totalDays := periodDays(startDate, endDate)

	contents := make([]models.SingleContentPlan, 0, total)
	for i := 0; i < total; i++ {
		contentType := p.selectContentType(typeDist, i)
		styleID := p.selectStyle(remaining, contents)
		targetDate := targetDateFor(startDate, totalDays, i, total)

		item, err := p.generateSingleContentPlan(ctx, requirement, i+1, contentType, styleID, targetDate)
		if err != nil {
			return nil, fmt.Errorf("generate plan for requirement %s (%s to %s): %w",
				requirement.ID, period.StartDate, period.EndDate, err)
		}
		contents = append(contents, *item)
	}

	now := time.Now().UTC()
	plan := &models.MultiContentPlan{
		ID:            util.GeneratePlanID(),
		RequirementID: requirement.ID,
		PlanName:      fmt.Sprintf("%d篇内容规划", total),
		Period: models.DatePeriod{
			StartDate: period.StartDate,
			EndDate:   period.EndDate,
			TotalDays: totalDays,
		},
		Contents: contents,
		Strategy: models.PlanStrategy{
			TotalContents:           total,
			ContentTypeDistribution: distributionMap(typeDist),
			StyleDistribution:       distributionMap(styleDist),
			DiversityScore:          diversityScore(contents),
		},
		PublishSchedule: models.ScheduleSummary{
			Distribution:   "daily",
			BestTimes:      BestPublishHours,
			TotalScheduled: len(contents),
		},
		Resources:     totalResources(contents),
		ConflictCheck: models.ConflictCheck{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	slog.Debug("Planner.Generate completed", "planID", plan.ID, "contents", len(contents),
		"diversityScore", plan.Strategy.DiversityScore)
	return plan, nil
}

// planContentTypeDistribution gives the preferred type ceil(60%) of the
// slots and splits the rest evenly over the remaining types, remainder to
// the earliest types in canonical order.
func planContentTypeDistribution(preferred models.ContentType, total int) []styleSlot {
	if !models.IsValidContentType(preferred) {
		preferred = models.ContentTypeRecommendation
	}
	mainCount := int(math.Ceil(float64(total) * mainTypeShare))
	otherCount := total - mainCount

	dist := []styleSlot{{id: string(preferred), remaining: mainCount}}

	var others []models.ContentType
	for _, t := range models.ContentTypes {
		if t != preferred {
			others = append(others, t)
		}
	}
	per := otherCount / len(others)
	rem := otherCount % len(others)
	for i, t := range others {
		n := per
		if i < rem {
			n++
		}
		dist = append(dist, styleSlot{id: string(t), remaining: n})
	}
	return dist
}

// planStyleDistribution allocates the plan's slots across styles. Suggested
// styles are served first; when the total exceeds them, the surplus spreads
// evenly over the rest of the catalogue, remainder to the earliest. The
// returned counts always sum to total.
func planStyleDistribution(suggested []string, total int) []styleSlot {
	if len(suggested) == 0 {
		suggested = []string{DefaultStyleID}
	}

	styleCount := len(suggested)
	if styleCount > total {
		styleCount = total
	}

	var dist []styleSlot
	if total <= len(suggested) {
		per := total / styleCount
		rem := total % styleCount
		for i := 0; i < styleCount; i++ {
			n := per
			if i < rem {
				n++
			}
			dist = append(dist, styleSlot{id: suggested[i], remaining: n})
		}
		return dist
	}

	suggestedSet := make(map[string]bool, len(suggested))
	for _, s := range suggested {
		dist = append(dist, styleSlot{id: s, remaining: 1})
		suggestedSet[s] = true
	}
	surplus := total - styleCount

	var others []string
	for _, s := range StyleCatalogue {
		if !suggestedSet[s] {
			others = append(others, s)
		}
	}
	if len(others) == 0 {
		// Suggested styles cover the whole catalogue; pile the surplus back
		// onto them evenly.
		per := surplus / styleCount
		rem := surplus % styleCount
		for i := range dist {
			dist[i].remaining += per
			if i < rem {
				dist[i].remaining++
			}
		}
		return dist
	}
	per := surplus / len(others)
	rem := surplus % len(others)
	for i, s := range others {
		n := per
		if i < rem {
			n++
		}
		if n > 0 {
			dist = append(dist, styleSlot{id: s, remaining: n})
		}
	}
	return dist
}

func distributionMap(dist []styleSlot) map[string]int {
	out := make(map[string]int, len(dist))
	for _, slot := range dist {
		out[slot.id] = slot.remaining
	}
	return out
}

// selectContentType flattens the full type distribution into a multiset,
// shuffles it, and indexes i mod len. The distribution is never decremented,
// so selection is not a strict draw-without-replacement sequence.
func (p *Planner) selectContentType(dist []styleSlot, i int) models.ContentType {
	var types []string
	for _, slot := range dist {
		for n := 0; n < slot.remaining; n++ {
			types = append(types, slot.id)
		}
	}
	if len(types) == 0 {
		return models.ContentTypeRecommendation
	}
	for j := len(types) - 1; j > 0; j-- {
		k := p.rng.IntN(j + 1)
		types[j], types[k] = types[k], types[j]
	}
	return models.ContentType(types[i%len(types)])
}

// selectStyle picks a style avoiding any used in the last antiRepeatWindow
// items, decrementing its remaining count in place.
func (p *Planner) selectStyle(remaining []styleSlot, contents []models.SingleContentPlan) string {
	recent := make(map[string]bool, antiRepeatWindow)
	start := len(contents) - antiRepeatWindow
	if start < 0 {
		start = 0
	}
	for _, c := range contents[start:] {
		recent[c.StylePack.StyleID] = true
	}

	var candidates []int
	for i, slot := range remaining {
		if slot.remaining > 0 && !recent[slot.id] {
			candidates = append(candidates, i)
		}
	}

	var idx int
	switch {
	case len(candidates) > 0:
		idx = candidates[p.rng.IntN(len(candidates))]
	default:
		idx = fallbackStyleIndex(remaining, contents)
	}
	if idx < 0 {
		return DefaultStyleID
	}
	if remaining[idx].remaining > 0 {
		remaining[idx].remaining--
	}
	return remaining[idx].id
}

// fallbackStyleIndex prefers the style with the most remaining allocation;
// when every allocation is exhausted it falls back to the style used least
// so far.
func fallbackStyleIndex(remaining []styleSlot, contents []models.SingleContentPlan) int {
	best, bestCount := -1, 0
	for i, slot := range remaining {
		if slot.remaining > bestCount {
			best, bestCount = i, slot.remaining
		}
	}
	if best >= 0 {
		return best
	}

	usage := make(map[string]int, len(remaining))
	for _, c := range contents {
		usage[c.StylePack.StyleID]++
	}
	leastIdx, leastCount := -1, math.MaxInt
	for i, slot := range remaining {
		if usage[slot.id] < leastCount {
			leastIdx, leastCount = i, usage[slot.id]
		}
	}
	return leastIdx
}

func (p *Planner) generateSingleContentPlan(ctx context.Context, requirement models.RequirementAnalysis, index int, contentType models.ContentType, styleID string, targetDate time.Time) (*models.SingleContentPlan, error) {
	title := fmt.Sprintf("%s - %s %d", requirement.ExtractedTopic, contentType.Label(), index)

	outline, err := p.buildOutline(ctx, requirement.ExtractedTopic, contentType, styleID)
	if err != nil {
		return nil, err
	}

	hour := BestPublishHours[0]
	if p.rng.IntN(2) == 1 {
		hour = BestPublishHours[1]
	}
	scheduled := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), hour, 0, 0, 0, time.Local)

	textLength := len([]rune(outline.Cover.Content))
	for _, page := range outline.Pages {
		textLength += len([]rune(page.Content))
	}

	return &models.SingleContentPlan{
		ID:      util.GenerateContentID(),
		Index:   index,
		Title:   title,
		Outline: *outline,
		StylePack: StylePackFor(styleID),
		PublishSchedule: models.ItemSchedule{
			ScheduledTime: scheduled.UnixMilli(),
			Date:          targetDate.Format("2006-01-02"),
			Time:          fmt.Sprintf("%02d:00", hour),
			Platform:      p.platform,
			Status:        models.PublishStatusDraft,
		},
		Resources: models.ResourceEstimate{
			ImageCount:           len(outline.Pages) + 1,
			TextLength:           textLength,
			EstimatedTimeMinutes: estimatedMinutesPerItem,
		},
		ContentType: contentType,
		Diversity: models.DiversityScores{
			StyleVariety:   1,
			TypeVariety:    1,
			OverallVariety: 1,
		},
	}, nil
}

// buildOutline delegates to the outline collaborator and shapes the raw
// pages: the page tagged "cover" (or the first page) becomes the cover, and
// the first line of each page's content becomes its title.
func (p *Planner) buildOutline(ctx context.Context, topic string, contentType models.ContentType, styleID string) (*models.ContentOutline, error) {
	outlineTopic := fmt.Sprintf("%s - %s", topic, contentType.Label())

	raw, err := p.outline.GenerateOutline(ctx, outlineTopic, pageCountHint, styleID)
	if err != nil {
		return nil, fmt.Errorf("outline for %q: %w", outlineTopic, err)
	}
	if raw == nil || len(raw.Pages) == 0 {
		return nil, fmt.Errorf("outline for %q returned no pages: %w", outlineTopic, models.ErrOutlineGeneration)
	}

	coverPage := raw.Pages[0]
	for _, page := range raw.Pages {
		if page.Type == "cover" {
			coverPage = page
			break
		}
	}

	cover := models.PageContent{
		Index:        0,
		Title:        firstLine(coverPage.Content, "封面"),
		Content:      coverPage.Content,
		ImagePrompt:  coverPage.ImagePrompt,
		TemplateType: "COVER",
	}

	var pages []models.PageContent
	for _, page := range raw.Pages {
		if page.Type == "cover" {
			continue
		}
		idx := len(pages) + 1
		pages = append(pages, models.PageContent{
			Index:        idx,
			Title:        firstLine(page.Content, fmt.Sprintf("页面 %d", idx)),
			Content:      page.Content,
			ImagePrompt:  page.ImagePrompt,
			TemplateType: "LIST_5",
		})
	}

	return &models.ContentOutline{Cover: cover, Pages: pages}, nil
}

func firstLine(content, fallback string) string {
	line, _, _ := strings.Cut(content, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	return line
}

// periodDays returns the span between two dates, at least 1.
func periodDays(start, end time.Time) int {
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// targetDateFor linearly interpolates item i's ordinal position across the
// period. Single-item plans always land on the start date.
func targetDateFor(start time.Time, totalDays, i, total int) time.Time {
	if total == 1 {
		return start
	}
	denom := total - 1
	if denom < 1 {
		denom = 1
	}
	days := int(math.Floor(float64(i) / float64(denom) * float64(totalDays)))
	return start.AddDate(0, 0, days)
}

func diversityScore(contents []models.SingleContentPlan) float64 {
	if len(contents) == 0 {
		return 0
	}
	styles := make(map[string]bool)
	types := make(map[models.ContentType]bool)
	for _, c := range contents {
		styles[c.StylePack.StyleID] = true
		types[c.ContentType] = true
	}
	n := float64(len(contents))
	return 0.5*(float64(len(styles))/n) + 0.5*(float64(len(types))/n)
}

func totalResources(contents []models.SingleContentPlan) models.ResourceTotals {
	var totals models.ResourceTotals
	for _, c := range contents {
		totals.TotalImageCount += c.Resources.ImageCount
		totals.TotalTextLength += c.Resources.TextLength
		totals.TotalEstimatedTime += c.Resources.EstimatedTimeMinutes
	}
	return totals
}
