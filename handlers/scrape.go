// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"crypto/hmac"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lodestar-app/server/cliparse"
	"github.com/lodestar-app/server/middleware"
	"github.com/lodestar-app/server/models"
	"github.com/lodestar-app/server/scrape"
)

type ScrapeHandler struct {
	db        *sql.DB
	cfg       cliparse.Config
	queue     *scrape.Queue
	retailers []string // fan-out targets when the request names none
}

func NewScrapeHandler(db *sql.DB, cfg cliparse.Config, queue *scrape.Queue, retailers []string) *ScrapeHandler {
	return &ScrapeHandler{db: db, cfg: cfg, queue: queue, retailers: retailers}
}

// Search handles POST /goals/{id}/search: queues one scrape job per
// retailer for a purchase goal.
func (h *ScrapeHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	goalID := r.PathValue("id")

	var req models.SearchRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var goalType, status, title string
	var searchQuery sql.NullString
	err := h.db.QueryRow(`
		SELECT type, status, title, search_query FROM goal WHERE id = $1 AND user_id = $2
	`, goalID, userID).Scan(&goalType, &status, &title, &searchQuery)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Goal not found")
		return
	}
	if err != nil {
		slog.Error("failed to query goal", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if goalType != models.TypePurchase {
		middleware.ErrorResponse(w, http.StatusBadRequest, "only purchase goals can be searched")
		return
	}
	if status == models.StatusArchived {
		middleware.ErrorResponse(w, http.StatusConflict, "goal is archived")
		return
	}

	query := title
	if searchQuery.Valid && strings.TrimSpace(searchQuery.String) != "" {
		query = searchQuery.String
	}

	retailers := req.Retailers
	if len(retailers) == 0 {
		retailers = h.retailers
	}
	if len(retailers) == 0 {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "no retailers are configured")
		return
	}

	jobIDs := make([]string, 0, len(retailers))
	for _, retailer := range retailers {
		jobID, err := h.queue.Enqueue(r.Context(), goalID, userID, retailer, query)
		if err != nil {
			slog.Error("failed to enqueue scrape job", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to queue search")
			return
		}
		jobIDs = append(jobIDs, jobID)
	}

	slog.Info("search queued", "goal_id", goalID, "jobs", len(jobIDs))

	middleware.JSONResponse(w, http.StatusAccepted, models.SearchResponse{JobIDs: jobIDs})
}

// Listings handles GET /goals/{id}/listings
func (h *ScrapeHandler) Listings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	goalID := r.PathValue("id")

	var owner string
	err := h.db.QueryRow(`SELECT user_id FROM goal WHERE id = $1`, goalID).Scan(&owner)
	if err == sql.ErrNoRows || (err == nil && owner != userID) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Goal not found")
		return
	}
	if err != nil {
		slog.Error("failed to query goal", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`
		SELECT id, job_id, goal_id, title, price, url, source, scraped_at
		FROM listing WHERE goal_id = $1
		ORDER BY scraped_at DESC LIMIT 50
	`, goalID)
	if err != nil {
		slog.Error("failed to query listings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	listings := []models.Listing{}
	for rows.Next() {
		var l models.Listing
		var price, url sql.NullString
		if err := rows.Scan(&l.ID, &l.JobID, &l.GoalID, &l.Title, &price, &url,
			&l.Source, &l.ScrapedAt); err != nil {
			slog.Error("failed to scan listing", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if price.Valid {
			d, err := decimal.NewFromString(price.String)
			if err == nil {
				l.Price = &d
			}
		}
		if url.Valid {
			l.URL = &url.String
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read listings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, listings)
}

// Callback handles POST /scrape/callback from external scrape workers.
// Authenticated by the shared worker key, not a user token.
func (h *ScrapeHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.cfg.WorkerKey == "" {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "worker callbacks are not configured")
		return
	}
	if !hmac.Equal([]byte(r.Header.Get("X-Worker-Key")), []byte(h.cfg.WorkerKey)) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "invalid worker key")
		return
	}

	var req models.WorkerCallbackRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.JobID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "jobId is required")
		return
	}

	// Reject callbacks for unknown jobs before touching anything
	if _, err := h.queue.Owner(r.Context(), req.JobID); err != nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "job not found")
		return
	}

	if req.Status == "error" {
		message := req.Error
		if message == "" {
			message = "worker reported failure"
		}
		if err := h.queue.Fail(r.Context(), req.JobID, message); err != nil {
			slog.Error("failed to record job failure", "job_id", req.JobID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update job")
			return
		}
		middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": "recorded"})
		return
	}

	items := make([]scrape.Item, 0, len(req.Data))
	for _, d := range req.Data {
		items = append(items, scrape.Item{Title: d.Title, Price: d.Price, URL: d.URL})
	}

	if err := h.queue.SaveResults(r.Context(), req.JobID, items); err != nil {
		slog.Error("failed to save worker results", "job_id", req.JobID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save results")
		return
	}

	slog.Info("worker callback processed", "job_id", req.JobID, "listings", len(items))

	middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": "recorded"})
}
