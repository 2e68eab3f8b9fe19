package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"learnjs_backend/internal/repository/memory"
	"learnjs_backend/internal/service"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (r *countingReconciler) Run(context.Context) (*service.ReconcileReport, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &service.ReconcileReport{RanAt: time.Now()}, nil
}

func TestInvalidScheduleRejected(t *testing.T) {
	m := NewCronManager(&countingReconciler{}, "every day please")
	if err := m.Start(); err == nil {
		t.Fatalf("expected schedule error")
	}
}

func TestDisabledSchedule(t *testing.T) {
	r := &countingReconciler{}
	m := NewCronManager(r, "off")
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Stop()
	if n := len(m.cron.Entries()); n != 0 {
		t.Fatalf("expected no jobs, got %d", n)
	}
}

func TestScheduledReconcileRuns(t *testing.T) {
	r := &countingReconciler{}
	m := NewCronManager(r, "* * * * * *")
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for r.calls.Load() == 0 {
		if time.Now().After(deadline) {
			m.Stop()
			t.Fatalf("reconcile job never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
	m.Stop()
}

func TestRunReconcileAgainstStore(t *testing.T) {
	store := memory.New()
	m := NewCronManager(service.NewReconcileService(store), "off")
	m.RunReconcile()

	failing := &countingReconciler{err: errors.New("db down")}
	NewCronManager(failing, "off").RunReconcile()
	if failing.calls.Load() != 1 {
		t.Fatalf("failing reconciler not called")
	}
}
