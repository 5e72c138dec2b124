// This file implements a PostgreSQL-backed store for content planning state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/hongliu-studio/contentplan/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveRequirement(req models.RequirementAnalysis) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal requirement %s: %w", req.ID, err)
	}
	_, err = s.db.Exec(`INSERT INTO requirements (id, payload, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload`,
		req.ID, string(payload), req.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveRequirement failed", "error", err, "id", req.ID)
		return fmt.Errorf("failed to save requirement %s: %w", req.ID, err)
	}
	slog.Debug("PostgresStore SaveRequirement succeeded", "id", req.ID)
	return nil
}

func (s *PostgresStore) GetRequirement(id string) (*models.RequirementAnalysis, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM requirements WHERE id = $1`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrRequirementNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetRequirement query failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query requirement %s: %w", id, err)
	}
	var req models.RequirementAnalysis
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal requirement %s: %w", id, err)
	}
	return &req, nil
}

func (s *PostgresStore) ListRequirements() ([]models.RequirementAnalysis, error) {
	rows, err := s.db.Query(`SELECT payload FROM requirements ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore ListRequirements query failed", "error", err)
		return nil, fmt.Errorf("failed to query requirements: %w", err)
	}
	defer rows.Close()
	var out []models.RequirementAnalysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan requirement row: %w", err)
		}
		var req models.RequirementAnalysis
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal requirement row: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate requirement rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteRequirement(id string) error {
	res, err := s.db.Exec(`DELETE FROM requirements WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteRequirement failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete requirement %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRequirementNotFound
	}
	return nil
}

func (s *PostgresStore) SavePlan(plan models.ContentPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan %s: %w", plan.ID, err)
	}
	_, err = s.db.Exec(`INSERT INTO plans (id, requirement_id, plan_type, payload, created_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET requirement_id = EXCLUDED.requirement_id, plan_type = EXCLUDED.plan_type, payload = EXCLUDED.payload`,
		plan.ID, plan.RequirementID, string(plan.PlanType), string(payload), plan.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SavePlan failed", "error", err, "id", plan.ID)
		return fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}
	slog.Debug("PostgresStore SavePlan succeeded", "id", plan.ID, "planType", plan.PlanType)
	return nil
}

func (s *PostgresStore) GetPlan(id string) (*models.ContentPlan, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM plans WHERE id = $1`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrPlanNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetPlan query failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query plan %s: %w", id, err)
	}
	var plan models.ContentPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan %s: %w", id, err)
	}
	return &plan, nil
}

func (s *PostgresStore) ListPlans(filters models.PlanFilters) ([]models.ContentPlan, error) {
	query := `SELECT payload FROM plans`
	var args []any
	var where []string
	if filters.RequirementID != "" {
		args = append(args, filters.RequirementID)
		where = append(where, fmt.Sprintf(`requirement_id = $%d`, len(args)))
	}
	if filters.PlanType != "" {
		args = append(args, string(filters.PlanType))
		where = append(where, fmt.Sprintf(`plan_type = $%d`, len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListPlans query failed", "error", err)
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()
	var out []models.ContentPlan
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		var plan models.ContentPlan
		if err := json.Unmarshal([]byte(payload), &plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan row: %w", err)
		}
		if filters.DateRange != nil && !planInRange(plan, *filters.DateRange) {
			continue
		}
		out = append(out, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plan rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeletePlan(id string) error {
	res, err := s.db.Exec(`DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeletePlan failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete plan %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrPlanNotFound
	}
	return nil
}

func (s *PostgresStore) SaveSchedule(sched models.PublishSchedule) error {
	payload, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule %s: %w", sched.ID, err)
	}
	_, err = s.db.Exec(`INSERT INTO schedules (id, content_plan_id, scheduled_time, payload) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET content_plan_id = EXCLUDED.content_plan_id, scheduled_time = EXCLUDED.scheduled_time, payload = EXCLUDED.payload`,
		sched.ID, sched.ContentPlanID, sched.ScheduledTime, string(payload))
	if err != nil {
		slog.Error("PostgresStore SaveSchedule failed", "error", err, "id", sched.ID)
		return fmt.Errorf("failed to save schedule %s: %w", sched.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetSchedule(id string) (*models.PublishSchedule, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM schedules WHERE id = $1`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrScheduleNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetSchedule query failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query schedule %s: %w", id, err)
	}
	var sched models.PublishSchedule
	if err := json.Unmarshal([]byte(payload), &sched); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule %s: %w", id, err)
	}
	return &sched, nil
}

func (s *PostgresStore) ListSchedules() ([]models.PublishSchedule, error) {
	rows, err := s.db.Query(`SELECT payload FROM schedules ORDER BY scheduled_time`)
	if err != nil {
		slog.Error("PostgresStore ListSchedules query failed", "error", err)
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()
	var out []models.PublishSchedule
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		var sched models.PublishSchedule
		if err := json.Unmarshal([]byte(payload), &sched); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schedule row: %w", err)
		}
		out = append(out, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListSchedulesInRange(r models.DateRange) ([]models.PublishSchedule, error) {
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

func (s *PostgresStore) DeleteSchedule(id string) error {
	res, err := s.db.Exec(`DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteSchedule failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrScheduleNotFound
	}
	return nil
}

func (s *PostgresStore) SaveWizardState(sessionID string, state models.WizardState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal wizard state for session %s: %w", sessionID, err)
	}
	_, err = s.db.Exec(`INSERT INTO wizard_sessions (session_id, payload, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (session_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		sessionID, string(payload))
	if err != nil {
		slog.Error("PostgresStore SaveWizardState failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to save wizard state for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) GetWizardState(sessionID string) (*models.WizardState, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM wizard_sessions WHERE session_id = $1`, sessionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetWizardState query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query wizard state for session %s: %w", sessionID, err)
	}
	var state models.WizardState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wizard state for session %s: %w", sessionID, err)
	}
	return &state, nil
}

func (s *PostgresStore) DeleteWizardState(sessionID string) error {
	res, err := s.db.Exec(`DELETE FROM wizard_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		slog.Error("PostgresStore DeleteWizardState failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete wizard state for session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
