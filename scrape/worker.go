// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scrape

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lodestar-app/server/models"
)

const (
	pollInterval = 2 * time.Second
	jobTimeout   = 3 * time.Minute // matches the external worker's scraper timeout
)

// Searcher runs one listing search. RodSearcher is the real one; tests
// use a fake.
type Searcher interface {
	Search(ctx context.Context, job *models.ScrapeJob) ([]Item, error)
}

// Pool runs scrape jobs in-process. Workers poll the queue and share a
// rate limiter so back-to-back jobs don't hammer retailers.
type Pool struct {
	queue    *Queue
	searcher Searcher
	workers  int
	limiter  *rate.Limiter

	wg sync.WaitGroup
}

func NewPool(queue *Queue, searcher Searcher, workers int) *Pool {
	return &Pool{
		queue:    queue,
		searcher: searcher,
		workers:  workers,
		// One search every 10s across the pool
		limiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

// Start launches the workers. They stop when ctx is cancelled; Wait
// blocks until they have drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	slog.Info("scrape pool started", "workers", p.workers)
}

// Wait blocks until all workers have exited
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		job, err := p.queue.Claim(ctx)
		if err != nil {
			slog.Error("failed to claim scrape job", "worker", id, "error", err)
			continue
		}
		if job == nil {
			continue
		}

		p.process(ctx, id, job)
	}
}

func (p *Pool) process(ctx context.Context, id int, job *models.ScrapeJob) {
	slog.Info("scrape job started", "worker", id, "job_id", job.ID,
		"retailer", job.Retailer, "query", job.Query)

	if err := p.limiter.Wait(ctx); err != nil {
		// Shutdown mid-wait; leave the job running, it will be retried
		// by an operator or a future requeue
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	items, err := p.searcher.Search(jobCtx, job)
	if err != nil {
		slog.Error("scrape job failed", "worker", id, "job_id", job.ID, "error", err)
		if failErr := p.queue.Fail(ctx, job.ID, err.Error()); failErr != nil {
			slog.Error("failed to record job failure", "job_id", job.ID, "error", failErr)
		}
		return
	}

	if err := p.queue.SaveResults(ctx, job.ID, items); err != nil {
		slog.Error("failed to save scrape results", "job_id", job.ID, "error", err)
		return
	}

	slog.Info("scrape job finished", "worker", id, "job_id", job.ID, "listings", len(items))
}
