// Package worker drives the time-triggered side of the dispatch
// engine: a daily tick at a fixed local hour. The engine itself
// decides whether the weekday warrants any sends.
package worker

import (
	"context"
	"time"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/service/dispatch"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
	"github.com/rosterhq/oncall-api/pkg/logger"
)

type CronWorker struct {
	dispatchSvc *dispatch.Service
	clock       clock.Clock
	logger      *logger.Logger
	hour        int
}

func NewCronWorker(dispatchSvc *dispatch.Service, clk clock.Clock, log *logger.Logger, hour int) *CronWorker {
	return &CronWorker{
		dispatchSvc: dispatchSvc,
		clock:       clk,
		logger:      log,
		hour:        hour,
	}
}

// Start blocks until ctx is cancelled, firing one dispatch per day at
// the configured local hour. A missed or repeated tick is harmless:
// the idempotency ledger absorbs duplicate triggers.
func (w *CronWorker) Start(ctx context.Context) {
	for {
		wait := w.untilNextTick()
		w.logger.Info("next dispatch tick scheduled", "in", wait.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		w.RunOnce(ctx)
	}
}

// RunOnce fires a single automatic dispatch.
func (w *CronWorker) RunOnce(ctx context.Context) {
	result, err := w.dispatchSvc.Dispatch(ctx, dispatch.Options{Auto: true})
	if err != nil {
		// A missing schedule just means nothing to notify about yet.
		if apperrors.Is(err, apperrors.ErrNotFound) {
			w.logger.Info("dispatch skipped, no schedule saved")
			return
		}
		w.logger.Error(err, "automatic dispatch failed")
		return
	}

	w.logger.Info("automatic dispatch finished",
		"trigger", result.Trigger,
		"sent", result.Sent,
		"skipped", result.Skipped,
		"failed", result.Failed)
}

func (w *CronWorker) untilNextTick() time.Duration {
	now := w.clock.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), w.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
