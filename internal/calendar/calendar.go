// Package calendar manages publish schedules: creation from confirmed plans,
// date-grouped calendar views, and the reminder sweep.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hongliu-studio/contentplan/internal/events"
	"github.com/hongliu-studio/contentplan/internal/models"
	"github.com/hongliu-studio/contentplan/internal/store"
	"github.com/hongliu-studio/contentplan/internal/util"
)

const (
	// DefaultReminderMinutes is the reminder lead time for new schedules.
	DefaultReminderMinutes = 30
	// reminderWindow is the tolerance around a reminder's due time.
	reminderWindow = 5 * time.Minute
	// sweepHorizon bounds how far ahead the reminder sweep looks.
	sweepHorizon = 24 * time.Hour
)

// Event is one calendar cell: all schedules falling on a single date.
type Event struct {
	ID        string                   `json:"id"`
	Date      string                   `json:"date"` // YYYY-MM-DD
	Schedules []models.PublishSchedule `json:"schedules"`
}

// Service manages publish schedules and reminders.
type Service struct {
	store store.Store
	bus   events.Bus
}

// NewService creates a calendar service.
func NewService(st store.Store, bus events.Bus) *Service {
	return &Service{store: st, bus: bus}
}

// CreateSchedule persists a new publish slot for one content item and emits
// the created event. reminderMinutes <= 0 falls back to the default lead time.
func (s *Service) CreateSchedule(ctx context.Context, contentPlanID string, scheduledTime int64, reminderMinutes int) (*models.PublishSchedule, error) {
	if reminderMinutes <= 0 {
		reminderMinutes = DefaultReminderMinutes
	}
	now := time.Now()
	sched := models.PublishSchedule{
		ID:            util.GenerateScheduleID(),
		ContentPlanID: contentPlanID,
		ScheduledTime: scheduledTime,
		Platform:      "xiaohongshu",
		Status:        models.PublishStatusScheduled,
		Reminder: models.ReminderConfig{
			Enabled:        true,
			AdvanceMinutes: reminderMinutes,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveSchedule(sched); err != nil {
		return nil, fmt.Errorf("Service.CreateSchedule: %w", err)
	}
	s.emit(ctx, events.ScheduleCreated, sched)
	slog.Debug("Service.CreateSchedule: schedule created", "scheduleID", sched.ID, "contentPlanID", contentPlanID)
	return &sched, nil
}

// CreateSchedulesFromPlan creates one publish slot per content item of a
// multi plan, using each item's planned publish time. Items without a
// scheduled time are skipped.
func (s *Service) CreateSchedulesFromPlan(ctx context.Context, plan models.ContentPlan) ([]models.PublishSchedule, error) {
	variant, err := plan.Variant()
	if err != nil {
		return nil, fmt.Errorf("Service.CreateSchedulesFromPlan: %w", err)
	}

	var items []models.SingleContentPlan
	if variant.Multi != nil {
		items = variant.Multi.Contents
	} else {
		items = []models.SingleContentPlan{*variant.Single}
	}

	schedules := make([]models.PublishSchedule, 0, len(items))
	for _, item := range items {
		if item.PublishSchedule.ScheduledTime <= 0 {
			continue
		}
		sched, err := s.CreateSchedule(ctx, item.ID, item.PublishSchedule.ScheduledTime, DefaultReminderMinutes)
		if err != nil {
			return schedules, err
		}
		schedules = append(schedules, *sched)
	}

	slog.Info("Service.CreateSchedulesFromPlan completed", "planID", plan.ID, "schedules", len(schedules))
	return schedules, nil
}

// UpdateSchedule persists an edited schedule, stamping UpdatedAt.
func (s *Service) UpdateSchedule(ctx context.Context, sched models.PublishSchedule) error {
	sched.UpdatedAt = time.Now()
	if err := s.store.SaveSchedule(sched); err != nil {
		return fmt.Errorf("Service.UpdateSchedule: %w", err)
	}
	s.emit(ctx, events.ScheduleUpdated, sched)
	slog.Debug("Service.UpdateSchedule: schedule updated", "scheduleID", sched.ID)
	return nil
}

// DeleteSchedule removes a schedule and emits the deleted event.
func (s *Service) DeleteSchedule(ctx context.Context, id string) error {
	if err := s.store.DeleteSchedule(id); err != nil {
		return fmt.Errorf("Service.DeleteSchedule: %w", err)
	}
	s.emit(ctx, events.ScheduleDeleted, map[string]string{"id": id})
	slog.Debug("Service.DeleteSchedule: schedule deleted", "scheduleID", id)
	return nil
}

// GetSchedule returns one schedule by ID.
func (s *Service) GetSchedule(ctx context.Context, id string) (*models.PublishSchedule, error) {
	return s.store.GetSchedule(id)
}

// SchedulesInRange returns schedules inside the inclusive date range.
func (s *Service) SchedulesInRange(ctx context.Context, r models.DateRange) ([]models.PublishSchedule, error) {
	return s.store.ListSchedulesInRange(r)
}

// CalendarEvents groups the range's schedules by calendar date, one event per
// date, sorted ascending.
func (s *Service) CalendarEvents(ctx context.Context, r models.DateRange) ([]Event, error) {
	schedules, err := s.store.ListSchedulesInRange(r)
	if err != nil {
		return nil, fmt.Errorf("Service.CalendarEvents: %w", err)
	}

	byDate := make(map[string][]models.PublishSchedule)
	for _, sched := range schedules {
		date := time.UnixMilli(sched.ScheduledTime).UTC().Format("2006-01-02")
		byDate[date] = append(byDate[date], sched)
	}

	calendarEvents := make([]Event, 0, len(byDate))
	for date, group := range byDate {
		calendarEvents = append(calendarEvents, Event{
			ID:        "event_" + date,
			Date:      date,
			Schedules: group,
		})
	}
	sort.Slice(calendarEvents, func(i, j int) bool { return calendarEvents[i].Date < calendarEvents[j].Date })
	return calendarEvents, nil
}

// CheckReminders sweeps the next 24 hours of schedules and emits a publish
// reminder for each slot whose lead time falls within the tolerance window
// around now. A triggered reminder is marked sent so later sweeps skip it.
func (s *Service) CheckReminders(ctx context.Context, now time.Time) error {
	r := models.DateRange{
		Start: now.UTC().Format("2006-01-02"),
		End:   now.Add(sweepHorizon).UTC().Format("2006-01-02"),
	}
	schedules, err := s.store.ListSchedulesInRange(r)
	if err != nil {
		return fmt.Errorf("Service.CheckReminders: %w", err)
	}

	for _, sched := range schedules {
		if !sched.Reminder.Enabled || sched.ReminderSent || sched.Status != models.PublishStatusScheduled {
			continue
		}
		advance := sched.Reminder.AdvanceMinutes
		if advance <= 0 {
			advance = DefaultReminderMinutes
		}
		reminderTime := time.UnixMilli(sched.ScheduledTime).Add(-time.Duration(advance) * time.Minute)
		until := reminderTime.Sub(now)
		if until < 0 || until >= reminderWindow {
			continue
		}

		s.emit(ctx, events.PublishReminder, sched)
		sched.ReminderSent = true
		sched.UpdatedAt = now
		if err := s.store.SaveSchedule(sched); err != nil {
			slog.Error("Service.CheckReminders: mark reminder sent failed", "scheduleID", sched.ID, "error", err)
			continue
		}
		slog.Debug("Service.CheckReminders: reminder triggered", "scheduleID", sched.ID)
	}
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
