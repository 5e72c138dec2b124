package requirement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hongliu-studio/contentplan/internal/events"
	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/store"
)

// Service coordinates requirement analysis, persistence, and event emission.
type Service struct {
	store    store.Store
	bus      events.Bus
	analyzer Analyzer
}

// NewService creates a requirement service. The analyzer is used only for
// free-text input; wizard input is assembled locally.
func NewService(st store.Store, bus events.Bus, analyzer Analyzer) *Service {
	return &Service{store: st, bus: bus, analyzer: analyzer}
}

// AnalyzeWizard assembles a requirement from wizard answers, persists it, and
// emits the analyzed and saved events.
func (s *Service) AnalyzeWizard(ctx context.Context, input WizardInput, userID string) (*models.RequirementAnalysisResult, error) {
	req := AssembleWizardRequirement(input)
	req.UserID = userID

	// Market research is not wired up yet; record the placeholder so the
	// plan generator sees a consistent shape.
	req.Research = &models.ResearchData{
		PlatformTrends:             []string{},
		CompetitorAnalysis:         "调研分析功能暂时不可用",
		KeywordSuggestions:         req.Keywords,
		ContentTypeRecommendations: []string{},
		MarketInsights:             "基于产品描述的基础分析",
		PlatformTips:               []string{},
	}

	if err := s.store.SaveRequirement(req); err != nil {
		return nil, fmt.Errorf("Service.AnalyzeWizard: save requirement: %w", err)
	}
	s.emit(ctx, events.RequirementAnalyzed, req)
	s.emit(ctx, events.RequirementSaved, req)

	slog.Info("Service.AnalyzeWizard completed", "requirementID", req.ID, "topic", req.ExtractedTopic)
	return &models.RequirementAnalysisResult{
		Requirement: req,
		Confidence:  wizardConfidence,
		Suggestions: []string{},
	}, nil
}

// AnalyzeText analyzes free-text input through the model, persists the
// result, and emits the analyzed and saved events.
func (s *Service) AnalyzeText(ctx context.Context, userInput, userID string) (*models.RequirementAnalysisResult, error) {
	result := s.analyzer.Analyze(ctx, userInput)
	result.Requirement.InputMode = models.InputModeText
	result.Requirement.UserID = userID

	if err := s.store.SaveRequirement(result.Requirement); err != nil {
		return nil, fmt.Errorf("Service.AnalyzeText: save requirement: %w", err)
	}
	s.emit(ctx, events.RequirementAnalyzed, result.Requirement)
	s.emit(ctx, events.RequirementSaved, result.Requirement)

	slog.Info("Service.AnalyzeText completed", "requirementID", result.Requirement.ID,
		"confidence", result.Confidence)
	return &result, nil
}

// Get returns one requirement by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.RequirementAnalysis, error) {
	return s.store.GetRequirement(id)
}

// List returns all saved requirements, newest first.
func (s *Service) List(ctx context.Context) ([]models.RequirementAnalysis, error) {
	return s.store.ListRequirements()
}

// Delete removes a requirement and emits the deleted event.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteRequirement(id); err != nil {
		return fmt.Errorf("Service.Delete: %w", err)
	}
	s.emit(ctx, events.RequirementDeleted, map[string]string{"id": id})
	slog.Debug("Service.Delete: requirement deleted", "requirementID", id)
	return nil
}

// Update persists an edited requirement, stamping UpdatedAt, and emits the
// saved event.
func (s *Service) Update(ctx context.Context, req models.RequirementAnalysis) error {
	req.UpdatedAt = time.Now()
	if err := s.store.SaveRequirement(req); err != nil {
		return fmt.Errorf("Service.Update: %w", err)
	}
	s.emit(ctx, events.RequirementSaved, req)
	slog.Debug("Service.Update: requirement updated", "requirementID", req.ID)
	return nil
}

func (s *Service) emit(ctx context.Context, event string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, event, payload); err != nil {
		slog.Warn("Service.emit: event emission failed", "event", event, "error", err)
	}
}
