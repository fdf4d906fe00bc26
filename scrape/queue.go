// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scrape

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lodestar-app/server/auth"
	"github.com/lodestar-app/server/models"
)

// Item is one scraped listing before persistence. Price stays a raw
// string here; queue storage parses it.
type Item struct {
	Title string
	Price string
	URL   string
}

// Queue is the DB-backed scrape job queue. Both the in-process worker
// pool and external workers (via the callback endpoint) feed results
// through it.
type Queue struct {
	db *sql.DB
}

func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue creates a pending job for a purchase goal
func (q *Queue) Enqueue(ctx context.Context, goalID, userID, retailer, query string) (string, error) {
	jobID := uuid.NewString()
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO scrape_job (id, goal_id, user_id, retailer, query, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, jobID, goalID, userID, retailer, query, models.JobPending, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to enqueue scrape job: %w", err)
	}
	return jobID, nil
}

// Claim moves the oldest pending job to running and returns it.
// Returns nil when the queue is empty. The conditional UPDATE makes the
// claim safe against concurrent workers without RETURNING support.
func (q *Queue) Claim(ctx context.Context) (*models.ScrapeJob, error) {
	for {
		job, err := q.oldestPending(ctx)
		if err != nil || job == nil {
			return nil, err
		}

		res, err := q.db.ExecContext(ctx, `
			UPDATE scrape_job SET status = $1, started_at = $2
			WHERE id = $3 AND status = $4
		`, models.JobRunning, time.Now(), job.ID, models.JobPending)
		if err != nil {
			return nil, fmt.Errorf("failed to claim scrape job: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 1 {
			job.Status = models.JobRunning
			return job, nil
		}
		// Another worker got it first; try the next one
	}
}

func (q *Queue) oldestPending(ctx context.Context) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	err := q.db.QueryRowContext(ctx, `
		SELECT id, goal_id, user_id, retailer, query, status, requested_at
		FROM scrape_job WHERE status = $1
		ORDER BY requested_at LIMIT 1
	`, models.JobPending).Scan(&job.ID, &job.GoalID, &job.UserID, &job.Retailer,
		&job.Query, &job.Status, &job.RequestedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	return &job, nil
}

// SaveResults stores listings and marks the job done
func (q *Queue) SaveResults(ctx context.Context, jobID string, items []Item) error {
	var goalID, retailer string
	err := q.db.QueryRowContext(ctx, `
		SELECT goal_id, retailer FROM scrape_job WHERE id = $1
	`, jobID).Scan(&goalID, &retailer)
	if err == sql.ErrNoRows {
		return fmt.Errorf("scrape job %q not found", jobID)
	}
	if err != nil {
		return fmt.Errorf("failed to query scrape job: %w", err)
	}

	now := time.Now()
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		listingID, err := auth.GenerateID(16)
		if err != nil {
			return fmt.Errorf("failed to generate listing ID: %w", err)
		}
		_, err = q.db.ExecContext(ctx, `
			INSERT INTO listing (id, job_id, goal_id, title, price, url, source, scraped_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, listingID, jobID, goalID, title, nullPrice(item.Price), nullString(item.URL), retailer, now)
		if err != nil {
			return fmt.Errorf("failed to insert listing: %w", err)
		}
	}

	_, err = q.db.ExecContext(ctx, `
		UPDATE scrape_job SET status = $1, finished_at = $2, error = NULL WHERE id = $3
	`, models.JobDone, now, jobID)
	if err != nil {
		return fmt.Errorf("failed to finish scrape job: %w", err)
	}
	return nil
}

// Fail marks the job errored
func (q *Queue) Fail(ctx context.Context, jobID, message string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE scrape_job SET status = $1, finished_at = $2, error = $3 WHERE id = $4
	`, models.JobError, time.Now(), message, jobID)
	if err != nil {
		return fmt.Errorf("failed to fail scrape job: %w", err)
	}
	return nil
}

// Owner returns the user a job belongs to, for callback authorization
func (q *Queue) Owner(ctx context.Context, jobID string) (string, error) {
	var userID string
	err := q.db.QueryRowContext(ctx, `
		SELECT user_id FROM scrape_job WHERE id = $1
	`, jobID).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("scrape job %q not found", jobID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query scrape job: %w", err)
	}
	return userID, nil
}

var priceRegex = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// nullPrice extracts a decimal from loose price text ("$24,998" -> "24998")
func nullPrice(raw string) interface{} {
	m := priceRegex.FindString(raw)
	if m == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return nil
	}
	return d.String()
}

func nullString(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
