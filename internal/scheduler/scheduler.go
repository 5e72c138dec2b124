// Package scheduler provides recurring and one-shot job scheduling for
// contentplan, used for the publish reminder sweep.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Standard 5-field cron parser (min, hour, dom, month, dow) plus @every
	// descriptors, with panic recovery.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// AddEvery schedules a task on a fixed interval. Intervals under one second
// are rejected.
func (s *Scheduler) AddEvery(interval time.Duration, task func()) error {
	if interval < time.Second {
		return fmt.Errorf("scheduler: interval %v too short", interval)
	}
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), task)
	return err
}

// AddOneShot runs a task once after the given delay. The returned cancel
// function stops the timer; it reports whether the task had not fired yet.
func (s *Scheduler) AddOneShot(delay time.Duration, task func()) (cancel func() bool) {
	timer := time.AfterFunc(delay, task)
	return timer.Stop
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
