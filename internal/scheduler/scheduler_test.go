package scheduler

import (
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	// Should add a valid cron job without error
	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
}

func TestSchedulerAddJobInvalidExpr(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("not a cron expr", func() {}); err == nil {
		t.Error("Expected error for invalid expression")
	}
}

func TestSchedulerAddEvery(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddEvery(time.Minute, func() {}); err != nil {
		t.Errorf("Expected no error adding interval job, got %v", err)
	}
	if err := s.AddEvery(time.Millisecond, func() {}); err == nil {
		t.Error("Expected error for sub-second interval")
	}
}

func TestSchedulerOneShot(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	fired := make(chan struct{})
	s.AddOneShot(10*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("one-shot task did not fire")
	}
}

func TestSchedulerOneShotCancel(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	cancel := s.AddOneShot(time.Hour, func() { t.Error("cancelled task fired") })
	if !cancel() {
		t.Error("cancel reported task already fired")
	}
}
