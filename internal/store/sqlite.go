// This file implements a SQLite-backed store for content planning state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/hongliu-studio/contentplan/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("SQLiteStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveRequirement(req models.RequirementAnalysis) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal requirement %s: %w", req.ID, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO requirements (id, payload, created_at) VALUES (?, ?, ?)`,
		req.ID, string(payload), req.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveRequirement failed", "error", err, "id", req.ID)
		return fmt.Errorf("failed to save requirement %s: %w", req.ID, err)
	}
	slog.Debug("SQLiteStore SaveRequirement succeeded", "id", req.ID)
	return nil
}

func (s *SQLiteStore) GetRequirement(id string) (*models.RequirementAnalysis, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM requirements WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrRequirementNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetRequirement query failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query requirement %s: %w", id, err)
	}
	var req models.RequirementAnalysis
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal requirement %s: %w", id, err)
	}
	return &req, nil
}

func (s *SQLiteStore) ListRequirements() ([]models.RequirementAnalysis, error) {
	rows, err := s.db.Query(`SELECT payload FROM requirements ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore ListRequirements query failed", "error", err)
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

func (s *SQLiteStore) DeleteRequirement(id string) error {
	res, err := s.db.Exec(`DELETE FROM requirements WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteRequirement failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete requirement %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrRequirementNotFound
	}
	return nil
}

func (s *SQLiteStore) SavePlan(plan models.ContentPlan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan %s: %w", plan.ID, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO plans (id, requirement_id, plan_type, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		plan.ID, plan.RequirementID, string(plan.PlanType), string(payload), plan.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SavePlan failed", "error", err, "id", plan.ID)
		return fmt.Errorf("failed to save plan %s: %w", plan.ID, err)
	}
	slog.Debug("SQLiteStore SavePlan succeeded", "id", plan.ID, "planType", plan.PlanType)
	return nil
}

func (s *SQLiteStore) GetPlan(id string) (*models.ContentPlan, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM plans WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrPlanNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetPlan query failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query plan %s: %w", id, err)
	}
	var plan models.ContentPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan %s: %w", id, err)
	}
	return &plan, nil
}

func (s *SQLiteStore) ListPlans(filters models.PlanFilters) ([]models.ContentPlan, error) {
	query := `SELECT payload FROM plans`
	var args []any
	var where []string
	if filters.RequirementID != "" {
		where = append(where, `requirement_id = ?`)
		args = append(args, filters.RequirementID)
	}
	if filters.PlanType != "" {
		where = append(where, `plan_type = ?`)
		args = append(args, string(filters.PlanType))
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
		slog.Error("SQLiteStore ListPlans query failed", "error", err)
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
		// Date-range filtering needs the decoded payload.
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

func (s *SQLiteStore) DeletePlan(id string) error {
	res, err := s.db.Exec(`DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeletePlan failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete plan %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrPlanNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveSchedule(sched models.PublishSchedule) error {
	payload, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule %s: %w", sched.ID, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO schedules (id, content_plan_id, scheduled_time, payload) VALUES (?, ?, ?, ?)`,
		sched.ID, sched.ContentPlanID, sched.ScheduledTime, string(payload))
	if err != nil {
		slog.Error("SQLiteStore SaveSchedule failed", "error", err, "id", sched.ID)
		return fmt.Errorf("failed to save schedule %s: %w", sched.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSchedule(id string) (*models.PublishSchedule, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM schedules WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrScheduleNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetSchedule query failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query schedule %s: %w", id, err)
	}
	var sched models.PublishSchedule
	if err := json.Unmarshal([]byte(payload), &sched); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule %s: %w", id, err)
	}
	return &sched, nil
}

func (s *SQLiteStore) ListSchedules() ([]models.PublishSchedule, error) {
	return s.listSchedules(`SELECT payload FROM schedules ORDER BY scheduled_time`)
}

func (s *SQLiteStore) ListSchedulesInRange(r models.DateRange) ([]models.PublishSchedule, error) {
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

func (s *SQLiteStore) listSchedules(query string, args ...any) ([]models.PublishSchedule, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore schedule query failed", "error", err)
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

func (s *SQLiteStore) DeleteSchedule(id string) error {
	res, err := s.db.Exec(`DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteSchedule failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrScheduleNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveWizardState(sessionID string, state models.WizardState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal wizard state for session %s: %w", sessionID, err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO wizard_sessions (session_id, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		sessionID, string(payload))
	if err != nil {
		slog.Error("SQLiteStore SaveWizardState failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to save wizard state for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetWizardState(sessionID string) (*models.WizardState, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM wizard_sessions WHERE session_id = ?`, sessionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetWizardState query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query wizard state for session %s: %w", sessionID, err)
	}
	var state models.WizardState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wizard state for session %s: %w", sessionID, err)
	}
	return &state, nil
}

func (s *SQLiteStore) DeleteWizardState(sessionID string) error {
	res, err := s.db.Exec(`DELETE FROM wizard_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore DeleteWizardState failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to delete wizard state for session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
