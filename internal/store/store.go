// Package store provides storage backends for content planning state.
//
// It includes an in-memory store for tests and single-process use, plus
// SQLite and PostgreSQL backed stores for persistent deployments. All
// backends speak the same Store interface and use upsert semantics on save.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hongliu-studio/contentplan/internal/models"
)

// Opts holds configuration options for store implementations.
type Opts struct {
	// DSN is the database connection string. For SQLite this is a file
	// path; for Postgres a connection URL or key=value string.
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DSN type constants returned by DetectDSNType.
const (
	DSNTypePostgres = "postgres"
	DSNTypeSQLite   = "sqlite"
)

// DetectDSNType classifies a DSN as Postgres or SQLite. Postgres DSNs are
// URLs with a postgres scheme or key=value connection strings; anything else
// is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DSNTypePostgres
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return DSNTypePostgres
	}
	return DSNTypeSQLite
}

// Store is the persistence boundary consumed by the planning services.
type Store interface {
	// Requirement analyses.
	SaveRequirement(req models.RequirementAnalysis) error
	GetRequirement(id string) (*models.RequirementAnalysis, error)
	ListRequirements() ([]models.RequirementAnalysis, error)
	DeleteRequirement(id string) error

	// Content plans.
	SavePlan(plan models.ContentPlan) error
	GetPlan(id string) (*models.ContentPlan, error)
	ListPlans(filters models.PlanFilters) ([]models.ContentPlan, error)
	DeletePlan(id string) error

	// Publish schedules.
	SaveSchedule(sched models.PublishSchedule) error
	GetSchedule(id string) (*models.PublishSchedule, error)
	ListSchedules() ([]models.PublishSchedule, error)
	ListSchedulesInRange(r models.DateRange) ([]models.PublishSchedule, error)
	DeleteSchedule(id string) error

	// Wizard sessions, keyed by caller-supplied session ID.
	SaveWizardState(sessionID string, state models.WizardState) error
	GetWizardState(sessionID string) (*models.WizardState, error)
	DeleteWizardState(sessionID string) error

	Close() error
}

// matchesPlanFilters reports whether a plan passes the given filters.
// The date-range filter matches multi plans whose period overlaps the range
// and single plans whose scheduled date falls inside it.
func matchesPlanFilters(plan models.ContentPlan, filters models.PlanFilters) bool {
	if filters.RequirementID != "" && plan.RequirementID != filters.RequirementID {
		return false
	}
	if filters.PlanType != "" && plan.PlanType != filters.PlanType {
		return false
	}
	if filters.DateRange != nil {
		return planInRange(plan, *filters.DateRange)
	}
	return true
}

func planInRange(plan models.ContentPlan, r models.DateRange) bool {
	switch plan.PlanType {
	case models.PlanTypeMulti:
		if plan.Multi == nil {
			return false
		}
		start := plan.Multi.Period.StartDate
		end := plan.Multi.Period.EndDate
		return start <= r.End && end >= r.Start
	case models.PlanTypeSingle:
		if plan.Single == nil {
			return false
		}
		d := plan.Single.PublishSchedule.Date
		return d >= r.Start && d <= r.End
	}
	return false
}

// scheduleInRange reports whether a schedule's publish slot falls inside the
// inclusive date range.
func scheduleInRange(sched models.PublishSchedule, r models.DateRange) bool {
	d := time.UnixMilli(sched.ScheduledTime).UTC().Format("2006-01-02")
	return d >= r.Start && d <= r.End
}

// InMemoryStore is a map-backed Store for tests and single-process use.
type InMemoryStore struct {
	mu           sync.RWMutex
	requirements map[string]models.RequirementAnalysis
	plans        map[string]models.ContentPlan
	schedules    map[string]models.PublishSchedule
	wizardStates map[string]models.WizardState
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		requirements: make(map[string]models.RequirementAnalysis),
		plans:        make(map[string]models.ContentPlan),
		schedules:    make(map[string]models.PublishSchedule),
		wizardStates: make(map[string]models.WizardState),
	}
}

func (s *InMemoryStore) SaveRequirement(req models.RequirementAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requirements[req.ID] = req
	return nil
}

func (s *InMemoryStore) GetRequirement(id string) (*models.RequirementAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requirements[id]
	if !ok {
		return nil, models.ErrRequirementNotFound
	}
	return &req, nil
}

func (s *InMemoryStore) ListRequirements() ([]models.RequirementAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RequirementAnalysis, 0, len(s.requirements))
	for _, req := range s.requirements {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) DeleteRequirement(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requirements[id]; !ok {
		return models.ErrRequirementNotFound
	}
	delete(s.requirements, id)
	return nil
}

func (s *InMemoryStore) SavePlan(plan models.ContentPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
	return nil
}

func (s *InMemoryStore) GetPlan(id string) (*models.ContentPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[id]
	if !ok {
		return nil, models.ErrPlanNotFound
	}
	return &plan, nil
}

func (s *InMemoryStore) ListPlans(filters models.PlanFilters) ([]models.ContentPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ContentPlan
	for _, plan := range s.plans {
		if matchesPlanFilters(plan, filters) {
			out = append(out, plan)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) DeletePlan(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return models.ErrPlanNotFound
	}
	delete(s.plans, id)
	return nil
}

func (s *InMemoryStore) SaveSchedule(sched models.PublishSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sched.ID] = sched
	return nil
}

func (s *InMemoryStore) GetSchedule(id string) (*models.PublishSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sched, ok := s.schedules[id]
	if !ok {
		return nil, models.ErrScheduleNotFound
	}
	return &sched, nil
}

func (s *InMemoryStore) ListSchedules() ([]models.PublishSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PublishSchedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, sched)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime < out[j].ScheduledTime })
	return out, nil
}

func (s *InMemoryStore) ListSchedulesInRange(r models.DateRange) ([]models.PublishSchedule, error) {
	all, err := s.ListSchedules()
	if err != nil {
		return nil, err
	}
	var out []models.PublishSchedule
	for _, sched := range all {
		if scheduleInRange(sched, r) {
			out = append(out, sched)
		}
	}
	return out, nil
}

func (s *InMemoryStore) DeleteSchedule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[id]; !ok {
		return models.ErrScheduleNotFound
	}
	delete(s.schedules, id)
	return nil
}

func (s *InMemoryStore) SaveWizardState(sessionID string, state models.WizardState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wizardStates[sessionID] = state
	return nil
}

func (s *InMemoryStore) GetWizardState(sessionID string) (*models.WizardState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.wizardStates[sessionID]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return &state, nil
}

func (s *InMemoryStore) DeleteWizardState(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wizardStates[sessionID]; !ok {
		return models.ErrSessionNotFound
	}
	delete(s.wizardStates, sessionID)
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
