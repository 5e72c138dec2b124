package production

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hongliu-studio/contentplan/internal/events"
	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/util"
)

// ProducedContent is one finished piece of copy generated from a plan item.
type ProducedContent struct {
	ID          string             `json:"id"`
	PlanID      string             `json:"plan_id"`
	ContentID   string             `json:"content_id"` // source SingleContentPlan ID
	Topic       string             `json:"topic"`
	Copy        string             `json:"copy"`
	StyleID     string             `json:"style_id"`
	ContentType models.ContentType `json:"content_type,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Progress reports how far production of one plan has advanced.
type Progress struct {
	PlanID       string `json:"plan_id"`
	Total        int    `json:"total"`
	Completed    int    `json:"completed"`
	Percentage   int    `json:"percentage"`
	CurrentTitle string `json:"current_title,omitempty"`
}

// Producer generates copy for every item of a confirmed plan.
type Producer struct {
	writer CopyWriter
	bus    events.Bus

	mu       sync.RWMutex
	progress map[string]Progress
}

// NewProducer creates a producer using the given copywriter.
func NewProducer(writer CopyWriter, bus events.Bus) *Producer {
	return &Producer{writer: writer, bus: bus, progress: make(map[string]Progress)}
}

// Produce generates copy for a confirmed plan. For multi plans a single
// failed item is logged and skipped so the rest of the batch still produces;
// for single plans the failure is returned. Each produced piece emits a
// content.created event.
func (p *Producer) Produce(ctx context.Context, plan models.ContentPlan) ([]ProducedContent, error) {
	if !plan.Confirmed {
		return nil, fmt.Errorf("Producer.Produce: plan %s: %w", plan.ID, models.ErrPlanNotConfirmed)
	}
	variant, err := plan.Variant()
	if err != nil {
		return nil, fmt.Errorf("Producer.Produce: %w", err)
	}

	if variant.Multi != nil {
		return p.produceBatch(ctx, plan.ID, variant.Multi.Contents)
	}
	result, err := p.produceOne(ctx, plan.ID, *variant.Single)
	if err != nil {
		return nil, fmt.Errorf("Producer.Produce: %w", err)
	}
	return []ProducedContent{*result}, nil
}

func (p *Producer) produceBatch(ctx context.Context, planID string, contents []models.SingleContentPlan) ([]ProducedContent, error) {
	total := len(contents)
	p.setProgress(Progress{PlanID: planID, Total: total})
	defer p.clearProgress(planID)

	results := make([]ProducedContent, 0, total)
	for i, item := range contents {
		p.setProgress(Progress{
			PlanID:       planID,
			Total:        total,
			Completed:    i,
			Percentage:   i * 100 / total,
			CurrentTitle: item.Title,
		})

		result, err := p.produceOne(ctx, planID, item)
		if err != nil {
			slog.Error("Producer.produceBatch: item failed, continuing",
				"planID", planID, "index", i+1, "total", total, "error", err)
			continue
		}
		results = append(results, *result)

		p.setProgress(Progress{
			PlanID:     planID,
			Total:      total,
			Completed:  i + 1,
			Percentage: (i + 1) * 100 / total,
		})
	}

	slog.Info("Producer.produceBatch completed", "planID", planID,
		"produced", len(results), "total", total)
	return results, nil
}

func (p *Producer) produceOne(ctx context.Context, planID string, item models.SingleContentPlan) (*ProducedContent, error) {
	styleID := item.StylePack.StyleID
	if styleID == "" {
		styleID = "xiaohongshu"
	}

	copyText, err := p.writer.GenerateCopy(ctx, item.Title, item.Outline, styleID)
	if err != nil {
		return nil, err
	}

	result := ProducedContent{
		ID:          util.GenerateContentID(),
		PlanID:      planID,
		ContentID:   item.ID,
		Topic:       item.Title,
		Copy:        copyText,
		StyleID:     styleID,
		ContentType: item.ContentType,
		CreatedAt:   time.Now(),
	}

	if p.bus != nil {
		if err := p.bus.Emit(ctx, events.ContentCreated, result); err != nil {
			slog.Warn("Producer.produceOne: event emission failed", "contentID", result.ID, "error", err)
		}
	}
	return &result, nil
}

// GetProgress returns the current production progress for a plan. A plan with
// no production in flight reports zero totals.
func (p *Producer) GetProgress(planID string) Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if prog, ok := p.progress[planID]; ok {
		return prog
	}
	return Progress{PlanID: planID}
}

func (p *Producer) setProgress(prog Progress) {
	p.mu.Lock()
	p.progress[prog.PlanID] = prog
	p.mu.Unlock()
}

func (p *Producer) clearProgress(planID string) {
	p.mu.Lock()
	delete(p.progress, planID)
	p.mu.Unlock()
}
