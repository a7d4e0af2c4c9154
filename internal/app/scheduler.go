/**
 * @description
 * Cron scheduler for the nightly IBA balance reconciliation.
 */
package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const reconcileJobTimeout = 10 * time.Minute

// Reconciler is the part of the service the scheduled job drives.
type Reconciler interface {
	ReconcileAllTroops(ctx context.Context, repair bool) error
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	logger     *logrus.Entry
	schedule   string
	autoRepair bool
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(reconciler Reconciler, logger *logrus.Logger, schedule string, autoRepair bool) *Scheduler {
	entry := logger.WithField("component", "scheduler")
	cronLogger := cron.PrintfLogger(entry)
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &Scheduler{
		cron:       c,
		reconciler: reconciler,
		logger:     entry,
		schedule:   schedule,
		autoRepair: autoRepair,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.ReconcileBalancesJob); err != nil {
		s.logger.WithError(err).Error("failed to schedule balance reconciliation job")
		return err
	}
	s.logger.WithField("schedule", s.schedule).Info("scheduled balance reconciliation job")
	s.cron.Start()
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ReconcileBalancesJob recomputes every troop's scout balances.
func (s *Scheduler) ReconcileBalancesJob() {
	s.logger.Info("starting balance reconciliation job")
	ctx, cancel := context.WithTimeout(context.Background(), reconcileJobTimeout)
	defer cancel()

	if err := s.reconciler.ReconcileAllTroops(ctx, s.autoRepair); err != nil {
		s.logger.WithError(err).Error("balance reconciliation job failed")
		return
	}
	s.logger.Info("balance reconciliation job finished")
}
