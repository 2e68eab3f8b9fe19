package jobs

import (
	"context"
	"fmt"
	"time"

	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/service"

	"github.com/robfig/cron/v3"
)

const reconcileTimeout = 5 * time.Minute

// Reconciler checks balances against the transaction ledger.
type Reconciler interface {
	Run(ctx context.Context) (*service.ReconcileReport, error)
}

// CronManager runs the scheduled background jobs.
type CronManager struct {
	cron              *cron.Cron
	reconciler        Reconciler
	reconcileSchedule string
}

// NewCronManager creates a manager. Schedules use six fields, seconds first.
func NewCronManager(reconciler Reconciler, reconcileSchedule string) *CronManager {
	return &CronManager{
		cron:              cron.New(cron.WithSeconds()),
		reconciler:        reconciler,
		reconcileSchedule: reconcileSchedule,
	}
}

// Start registers the jobs and starts the scheduler.
func (m *CronManager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()
	logger.Info("cron jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop waits for running jobs to finish.
func (m *CronManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	logger.Info("cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	if m.reconcileSchedule == "" || m.reconcileSchedule == "off" {
		logger.Info("ledger reconciliation disabled")
		return nil
	}
	if _, err := m.cron.AddFunc(m.reconcileSchedule, func() {
		m.logJobStart("reconcile_ledger")
		m.RunReconcile()
	}); err != nil {
		return fmt.Errorf("schedule reconcile %q: %w", m.reconcileSchedule, err)
	}
	return nil
}

// RunReconcile runs one reconciliation pass. Divergences are reported by the
// service itself through logs and the divergence gauge.
func (m *CronManager) RunReconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	start := time.Now()
	report, err := m.reconciler.Run(ctx)
	if err != nil {
		logger.Error("reconcile job failed", "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("reconcile job finished",
		"checked_users", report.CheckedUsers,
		"divergent", len(report.Divergent),
		"duration", time.Since(start))
}

func (m *CronManager) logJobStart(name string) {
	logger.Debug("cron job started", "job", name)
}
