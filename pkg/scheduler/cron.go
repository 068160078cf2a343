package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leadflowhq/leadflow/pkg/logger"
)

// CronRunner drives the scheduler from robfig/cron: dispatch every minute,
// reconciliation sweep hourly plus once at startup.
type CronRunner struct {
	cron    *cron.Cron
	service *Service
	logger  logger.Logger
}

// NewCronRunner creates a cron runner around the scheduler service.
// Jobs skip instead of overlapping, so a slow dispatch run never races a
// second one over the same rows.
func NewCronRunner(service *Service, log logger.Logger) *CronRunner {
	return &CronRunner{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		service: service,
		logger:  log,
	}
}

// SetupJobs configures the dispatch and sweep jobs
func (cr *CronRunner) SetupJobs(dispatchEvery time.Duration) error {
	if dispatchEvery <= 0 {
		dispatchEvery = time.Minute
	}

	_, err := cr.cron.AddFunc("@every "+dispatchEvery.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := cr.service.DispatchDue(ctx); err != nil {
			cr.logger.Error("dispatch run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	_, err = cr.cron.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := cr.service.ExpireOverdue(ctx); err != nil {
			cr.logger.Error("expire sweep failed", "error", err)
		}
	})
	return err
}

// Start runs the startup sweep and begins the cron schedule
func (cr *CronRunner) Start() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := cr.service.ExpireOverdue(ctx); err != nil {
		cr.logger.Error("startup expire sweep failed", "error", err)
	}

	cr.logger.Info("starting notification dispatch scheduler")
	cr.cron.Start()
}

// Stop halts the cron schedule
func (cr *CronRunner) Stop() {
	cr.logger.Info("stopping notification dispatch scheduler")
	cr.cron.Stop()
}
