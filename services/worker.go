package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Worker periodically polls the job store for due jobs and dispatches each
// claimed one to the executor. Multiple workers may share the same store;
// the claim step keeps them from double-executing a job.
type Worker struct {
	cron     *cron.Cron
	store    *JobStore
	executor *AutoReplyExecutor
	interval time.Duration
	execTTL  time.Duration
	claimTTL time.Duration
	inflight sync.WaitGroup
}

// NewWorker creates a worker polling at the given interval.
func NewWorker(store *JobStore, executor *AutoReplyExecutor, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Worker{
		cron:     cron.New(),
		store:    store,
		executor: executor,
		interval: interval,
		execTTL:  time.Minute,
		// Lease must comfortably exceed execTTL so only claims held by a
		// dead process get reclaimed.
		claimTTL: 5 * time.Minute,
	}
}

// Start launches the poll loop in the background.
func (w *Worker) Start() error {
	if _, err := w.cron.AddFunc(fmt.Sprintf("@every %s", w.interval), w.tick); err != nil {
		return err
	}
	w.cron.Start()
	sugar().Infof("auto-reply worker started, polling every %s", w.interval)
	return nil
}

// Stop halts polling and blocks until in-flight executions drain.
func (w *Worker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.inflight.Wait()
	sugar().Info("auto-reply worker stopped")
}

// tick claims and dispatches every due job. Jobs run concurrently; ordering
// is only guaranteed for the poll itself. Claims abandoned by a dead worker
// are swept back into the pending pool first.
func (w *Worker) tick() {
	if err := w.store.ReclaimExpired(time.Now(), w.claimTTL, w.executor.maxAttempts); err != nil {
		sugar().Errorw("reclaiming expired claims failed", "error", err)
	}

	jobs, err := w.store.PollDue(time.Now())
	if err != nil {
		sugar().Errorw("polling due jobs failed", "error", err)
		return
	}

	for _, job := range jobs {
		claimed, err := w.store.Claim(job.ID)
		if err != nil {
			sugar().Errorw("claiming job failed", "job_id", job.ID, "error", err)
			continue
		}
		if !claimed {
			// another worker won the claim
			continue
		}

		j := job
		w.inflight.Add(1)
		go func() {
			defer w.inflight.Done()
			ctx, cancel := context.WithTimeout(context.Background(), w.execTTL)
			defer cancel()
			if err := w.executor.Execute(ctx, j); err != nil && !errors.Is(err, ErrStaleJob) {
				sugar().Warnw("auto-reply execution failed",
					"job_id", j.ID, "comment_id", j.CommentID, "error", err)
			}
		}()
	}
}
