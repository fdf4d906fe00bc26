// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lodestar-app/server/cliparse"
	"github.com/lodestar-app/server/goalcmd"
	"github.com/lodestar-app/server/middleware"
	"github.com/lodestar-app/server/models"
)

// GoalHandler serves the REST goal surface. All mutations go through the
// command engine so REST and chat share validation and side effects.
type GoalHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	engine *goalcmd.Service
}

func NewGoalHandler(db *sql.DB, cfg cliparse.Config, engine *goalcmd.Service) *GoalHandler {
	return &GoalHandler{db: db, cfg: cfg, engine: engine}
}

const goalColumns = `id, user_id, parent_id, type, title, description, status,
	target_amount, current_amount, target_date, search_query, cadence,
	linked_account_id, created_at, updated_at, archived_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGoal(row rowScanner) (models.Goal, error) {
	var g models.Goal
	var parentID, description, targetAmount, searchQuery, cadence, linkedAccount sql.NullString
	var currentAmount string
	var targetDate, archivedAt sql.NullTime

	err := row.Scan(&g.ID, &g.UserID, &parentID, &g.Type, &g.Title, &description,
		&g.Status, &targetAmount, &currentAmount, &targetDate, &searchQuery,
		&cadence, &linkedAccount, &g.CreatedAt, &g.UpdatedAt, &archivedAt)
	if err != nil {
		return g, err
	}

	g.CurrentAmount, err = decimal.NewFromString(currentAmount)
	if err != nil {
		return g, err
	}
	if targetAmount.Valid {
		d, err := decimal.NewFromString(targetAmount.String)
		if err != nil {
			return g, err
		}
		g.TargetAmount = &d
	}
	if parentID.Valid {
		g.ParentID = &parentID.String
	}
	if description.Valid {
		g.Description = &description.String
	}
	if searchQuery.Valid {
		g.SearchQuery = &searchQuery.String
	}
	if cadence.Valid {
		g.Cadence = &cadence.String
	}
	if linkedAccount.Valid {
		g.LinkedAccountID = &linkedAccount.String
	}
	if targetDate.Valid {
		g.TargetDate = &targetDate.Time
	}
	if archivedAt.Valid {
		g.ArchivedAt = &archivedAt.Time
	}
	return g, nil
}

// commandError maps engine errors onto HTTP statuses
func commandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, goalcmd.ErrGoalNotFound), errors.Is(err, goalcmd.ErrTaskNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, goalcmd.ErrAmbiguousGoal), errors.Is(err, goalcmd.ErrAmbiguousTask),
		errors.Is(err, goalcmd.ErrGoalArchived):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, goalcmd.ErrUnknownAction), errors.Is(err, goalcmd.ErrMissingGoalRef):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case strings.Contains(err.Error(), "failed to"):
		slog.Error("command execution failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
	default:
		// Validation errors from the engine (bad amount, missing title, ...)
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	}
}

// List handles GET /goals with optional status and type filters
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	query := `SELECT ` + goalColumns + ` FROM goal WHERE user_id = $1`
	args := []interface{}{userID}

	if status := r.URL.Query().Get("status"); status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	} else {
		query += ` AND status != $2`
		args = append(args, models.StatusArchived)
	}
	if goalType := r.URL.Query().Get("type"); goalType != "" {
		query += ` AND type = $3`
		args = append(args, goalType)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := h.db.Query(query, args...)
	if err != nil {
		slog.Error("failed to query goals", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			slog.Error("failed to scan goal", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read goals", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, goals)
}

// Create handles POST /goals
func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req models.CreateGoalRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cmd := models.GoalCommand{
		Action:          models.ActionCreateGoal,
		Type:            req.Type,
		Title:           req.Title,
		TargetAmount:    models.FlexString(req.TargetAmount),
		TargetDate:      req.TargetDate,
		SearchQuery:     req.SearchQuery,
		Cadence:         req.Cadence,
		LinkedAccountID: req.LinkedAccountID,
		Filters:         req.Filters,
		Tasks:           req.Tasks,
	}
	if req.Description != "" {
		cmd.Description = &req.Description
	}
	if req.ParentID != "" {
		cmd.Action = models.ActionCreateSubgoal
		cmd.Parent = req.ParentID
	}

	results, err := h.engine.ExecuteAs(r.Context(), userID, models.SourceManual, []models.GoalCommand{cmd})
	if err != nil {
		commandError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreateGoalResponse{GoalID: results[0].GoalID})
}

// Get handles GET /goals/{id}
func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	goalID := r.PathValue("id")

	row := h.db.QueryRow(`SELECT `+goalColumns+` FROM goal WHERE id = $1 AND user_id = $2`,
		goalID, userID)
	goal, err := scanGoal(row)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Goal not found")
		return
	}
	if err != nil {
		slog.Error("failed to query goal", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	detail := models.GoalDetail{Goal: goal}

	if detail.Filters, err = h.loadFilters(goalID); err != nil {
		slog.Error("failed to load goal filters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if detail.Tasks, err = h.loadTasks(goalID); err != nil {
		slog.Error("failed to load tasks", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if detail.Contributions, err = h.loadContributions(goalID); err != nil {
		slog.Error("failed to load contributions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if detail.Subgoals, err = h.loadSubgoals(goalID, userID); err != nil {
		slog.Error("failed to load subgoals", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, detail)
}

func (h *GoalHandler) loadFilters(goalID string) (map[string]string, error) {
	rows, err := h.db.Query(`SELECT name, value FROM goal_filter WHERE goal_id = $1`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	filters := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		filters[name] = value
	}
	if len(filters) == 0 {
		return nil, rows.Err()
	}
	return filters, rows.Err()
}

func (h *GoalHandler) loadTasks(goalID string) ([]models.Task, error) {
	rows, err := h.db.Query(`
		SELECT id, goal_id, title, done, position, created_at, completed_at
		FROM task WHERE goal_id = $1 ORDER BY position
	`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		var completedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.GoalID, &t.Title, &t.Done, &t.Position,
			&t.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t.CompletedAt = &completedAt.Time
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (h *GoalHandler) loadContributions(goalID string) ([]models.Contribution, error) {
	rows, err := h.db.Query(`
		SELECT id, goal_id, amount, note, source, created_at
		FROM contribution WHERE goal_id = $1 ORDER BY created_at DESC
	`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contributions := []models.Contribution{}
	for rows.Next() {
		var c models.Contribution
		var amount string
		var note sql.NullString
		if err := rows.Scan(&c.ID, &c.GoalID, &amount, &note, &c.Source, &c.CreatedAt); err != nil {
			return nil, err
		}
		if c.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if note.Valid {
			c.Note = &note.String
		}
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

func (h *GoalHandler) loadSubgoals(goalID, userID string) ([]models.Goal, error) {
	rows, err := h.db.Query(`
		SELECT `+goalColumns+` FROM goal
		WHERE parent_id = $1 AND user_id = $2 ORDER BY created_at
	`, goalID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subgoals []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		subgoals = append(subgoals, g)
	}
	return subgoals, rows.Err()
}

// Update handles PATCH /goals/{id}
func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	goalID := r.PathValue("id")

	var req models.UpdateGoalRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cmd := models.GoalCommand{
		Action:      models.ActionUpdateGoal,
		GoalID:      goalID,
		Description: req.Description,
	}
	if req.Title != nil {
		cmd.Title = *req.Title
	}
	if req.TargetAmount != nil {
		cmd.TargetAmount = models.FlexString(*req.TargetAmount)
	}
	if req.TargetDate != nil {
		cmd.TargetDate = *req.TargetDate
	}
	if req.SearchQuery != nil {
		cmd.SearchQuery = *req.SearchQuery
	}
	if req.Cadence != nil {
		cmd.Cadence = *req.Cadence
	}

	results, err := h.engine.ExecuteAs(r.Context(), userID, models.SourceManual, []models.GoalCommand{cmd})
	if err != nil {
		commandError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results[0])
}

// Archive handles POST /goals/{id}/archive
func (h *GoalHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, models.GoalCommand{
		Action: models.ActionArchiveGoal,
		GoalID: r.PathValue("id"),
	})
}

// Complete handles POST /goals/{id}/complete
func (h *GoalHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, models.GoalCommand{
		Action: models.ActionCompleteGoal,
		GoalID: r.PathValue("id"),
	})
}

// Contribute handles POST /goals/{id}/contributions
func (h *GoalHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	var req models.ContributionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.runCommandWithStatus(w, r, http.StatusCreated, models.GoalCommand{
		Action: models.ActionUpdateProgress,
		GoalID: r.PathValue("id"),
		Amount: models.FlexString(req.Amount),
		Note:   req.Note,
	})
}

// UpdateFilters handles PUT /goals/{id}/filters
func (h *GoalHandler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateFiltersRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.runCommand(w, r, models.GoalCommand{
		Action:  models.ActionUpdateFilters,
		GoalID:  r.PathValue("id"),
		Filters: req.Filters,
		Merge:   req.Merge,
	})
}

func (h *GoalHandler) runCommand(w http.ResponseWriter, r *http.Request, cmd models.GoalCommand) {
	h.runCommandWithStatus(w, r, http.StatusOK, cmd)
}

func (h *GoalHandler) runCommandWithStatus(w http.ResponseWriter, r *http.Request, status int, cmd models.GoalCommand) {
	userID := middleware.UserID(r)

	results, err := h.engine.ExecuteAs(r.Context(), userID, models.SourceManual, []models.GoalCommand{cmd})
	if err != nil {
		commandError(w, err)
		return
	}

	middleware.JSONResponse(w, status, results[0])
}
