// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package goalcmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lodestar-app/server/auth"
	"github.com/lodestar-app/server/models"
)

// updateGoal handles UPDATE_GOAL as a field patch
func (s *Service) updateGoal(ctx context.Context, tx *sql.Tx, userID string, cmd models.GoalCommand) (models.CommandResult, error) {
	g, err := resolveGoal(ctx, tx, userID, goalRef(cmd.GoalID, cmd.Goal))
	if err != nil {
		return models.CommandResult{}, err
	}
	if g.Status == models.StatusArchived {
		return models.CommandResult{}, ErrGoalArchived
	}

	sets := []string{}
	args := []interface{}{}
	next := func() int { return len(args) + 1 }

	if t := strings.TrimSpace(cmd.Title); t != "" && t != g.Title {
		sets = append(sets, fmt.Sprintf("title = $%d", next()))
		args = append(args, t)
	}
	if cmd.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", next()))
		args = append(args, *cmd.Description)
	}
	if string(cmd.TargetAmount) != "" {
		d, err := parseAmount(cmd.TargetAmount)
		if err != nil {
			return models.CommandResult{}, err
		}
		if d.Sign() <= 0 {
			return models.CommandResult{}, errors.New("target_amount must be positive")
		}
		sets = append(sets, fmt.Sprintf("target_amount = $%d", next()))
		args = append(args, d.String())
	}
	if td := strings.TrimSpace(cmd.TargetDate); td != "" {
		d, err := time.Parse("2006-01-02", td)
		if err != nil {
			return models.CommandResult{}, fmt.Errorf("invalid target_date %q (want YYYY-MM-DD)", cmd.TargetDate)
		}
		sets = append(sets, fmt.Sprintf("target_date = $%d", next()))
		args = append(args, d)
	}
	if q := strings.TrimSpace(cmd.SearchQuery); q != "" {
		if g.Type != models.TypePurchase {
			return models.CommandResult{}, errors.New("search_query only applies to purchase goals")
		}
		sets = append(sets, fmt.Sprintf("search_query = $%d", next()))
		args = append(args, q)
	}
	if c := strings.ToLower(strings.TrimSpace(cmd.Cadence)); c != "" {
		if g.Type != models.TypeHabit {
			return models.CommandResult{}, errors.New("cadence only applies to habit goals")
		}
		if !validCadence(c) {
			return models.CommandResult{}, fmt.Errorf("invalid cadence %q (want daily, weekly, or monthly)", cmd.Cadence)
		}
		sets = append(sets, fmt.Sprintf("cadence = $%d", next()))
		args = append(args, c)
	}

	if len(sets) == 0 {
		return models.CommandResult{}, errors.New("nothing to update")
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", next()))
	args = append(args, time.Now())
	args = append(args, g.ID)

	query := fmt.Sprintf("UPDATE goal SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to update goal: %w", err)
	}

	return models.CommandResult{
		Action:  cmd.Action,
		GoalID:  g.ID,
		Summary: fmt.Sprintf("updated goal %q", g.Title),
	}, nil
}

// updateProgress records a contribution and advances the goal's current
// amount, auto-completing the goal when it reaches the target.
func (s *Service) updateProgress(ctx context.Context, tx *sql.Tx, userID, source string, cmd models.GoalCommand) (models.CommandResult, error) {
	g, err := resolveGoal(ctx, tx, userID, goalRef(cmd.GoalID, cmd.Goal))
	if err != nil {
		return models.CommandResult{}, err
	}
	if g.Status == models.StatusArchived {
		return models.CommandResult{}, ErrGoalArchived
	}
	if g.Type == models.TypeHabit {
		return models.CommandResult{}, errors.New("habit goals track tasks, not amounts")
	}

	amount, err := parseAmount(cmd.Amount)
	if err != nil {
		return models.CommandResult{}, err
	}
	if amount.IsZero() {
		return models.CommandResult{}, errors.New("amount must be non-zero")
	}

	current, err := decimal.NewFromString(g.CurrentAmount)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("corrupt current_amount on goal %s: %w", g.ID, err)
	}

	// Negative amounts are corrections; the running total never goes below zero
	newCurrent := current.Add(amount)
	if newCurrent.Sign() < 0 {
		newCurrent = decimal.Zero
	}

	status := g.Status
	if g.TargetAmount.Valid && status == models.StatusActive {
		target, err := decimal.NewFromString(g.TargetAmount.String)
		if err == nil && newCurrent.GreaterThanOrEqual(target) {
			status = models.StatusCompleted
		}
	}

	contribID, err := auth.GenerateID(16)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to generate contribution ID: %w", err)
	}

	var note interface{}
	if n := strings.TrimSpace(cmd.Note); n != "" {
		note = n
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO contribution (id, goal_id, amount, note, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, contribID, g.ID, amount.String(), note, source, now)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to insert contribution: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE goal SET current_amount = $1, status = $2, updated_at = $3 WHERE id = $4
	`, newCurrent.String(), status, now, g.ID)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to update goal progress: %w", err)
	}

	summary := fmt.Sprintf("recorded %s toward %q (now at %s)", amount.String(), g.Title, newCurrent.String())
	if status == models.StatusCompleted && g.Status != models.StatusCompleted {
		summary += " - goal completed"
	}

	return models.CommandResult{
		Action:  cmd.Action,
		GoalID:  g.ID,
		Summary: summary,
	}, nil
}

// updateFilters replaces or merges a purchase goal's search filters
func (s *Service) updateFilters(ctx context.Context, tx *sql.Tx, userID string, cmd models.GoalCommand) (models.CommandResult, error) {
	g, err := resolveGoal(ctx, tx, userID, goalRef(cmd.GoalID, cmd.Goal))
	if err != nil {
		return models.CommandResult{}, err
	}
	if g.Status == models.StatusArchived {
		return models.CommandResult{}, ErrGoalArchived
	}
	if g.Type != models.TypePurchase {
		return models.CommandResult{}, errors.New("filters only apply to purchase goals")
	}

	if cmd.Merge {
		// Merge: overwrite only the provided names
		for name := range cmd.Filters {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM goal_filter WHERE goal_id = $1 AND name = $2
			`, g.ID, strings.TrimSpace(name)); err != nil {
				return models.CommandResult{}, fmt.Errorf("failed to clear filter: %w", err)
			}
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM goal_filter WHERE goal_id = $1
		`, g.ID); err != nil {
			return models.CommandResult{}, fmt.Errorf("failed to clear filters: %w", err)
		}
	}

	if err := insertFilters(ctx, tx, g.ID, cmd.Filters); err != nil {
		return models.CommandResult{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE goal SET updated_at = $1 WHERE id = $2
	`, time.Now(), g.ID); err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to touch goal: %w", err)
	}

	verb := "replaced"
	if cmd.Merge {
		verb = "merged"
	}
	return models.CommandResult{
		Action:  cmd.Action,
		GoalID:  g.ID,
		Summary: fmt.Sprintf("%s %d filter(s) on %q", verb, len(cmd.Filters), g.Title),
	}, nil
}

// addTask appends a task to a goal's checklist
func (s *Service) addTask(ctx context.Context, tx *sql.Tx, userID string, cmd models.GoalCommand) (models.CommandResult, error) {
	g, err := resolveGoal(ctx, tx, userID, goalRef(cmd.GoalID, cmd.Goal))
	if err != nil {
		return models.CommandResult{}, err
	}
	if g.Status == models.StatusArchived {
		return models.CommandResult{}, ErrGoalArchived
	}

	title := strings.TrimSpace(cmd.Task)
	if title == "" {
		title = strings.TrimSpace(cmd.Title)
	}
	if title == "" {
		return models.CommandResult{}, errors.New("task title is required")
	}

	var maxPos sql.NullInt64
	if err := tx.QueryRowContext(ctx, `
		SELECT MAX(position) FROM task WHERE goal_id = $1
	`, g.ID).Scan(&maxPos); err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to query task positions: %w", err)
	}

	taskID, err := auth.GenerateID(12)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to generate task ID: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO task (id, goal_id, title, done, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, taskID, g.ID, title, false, maxPos.Int64+1, time.Now())
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to insert task: %w", err)
	}

	return models.CommandResult{
		Action:  cmd.Action,
		GoalID:  g.ID,
		TaskID:  taskID,
		Summary: fmt.Sprintf("added task %q to %q", title, g.Title),
	}, nil
}

// toggleTask flips a task's done state
func (s *Service) toggleTask(ctx context.Context, tx *sql.Tx, userID string, cmd models.GoalCommand) (models.CommandResult, error) {
	goalID, goalTitle, err := s.taskGoal(ctx, tx, userID, cmd)
	if err != nil {
		return models.CommandResult{}, err
	}

	task, err := resolveTask(ctx, tx, userID, cmd.TaskID, goalID, cmd.Task)
	if err != nil {
		return models.CommandResult{}, err
	}

	done := !task.Done
	var completedAt interface{}
	if done {
		completedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE task SET done = $1, completed_at = $2 WHERE id = $3
	`, done, completedAt, task.ID)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to toggle task: %w", err)
	}

	state := "done"
	if !done {
		state = "not done"
	}
	summary := fmt.Sprintf("marked task %q %s", task.Title, state)
	if goalTitle != "" {
		summary += fmt.Sprintf(" on %q", goalTitle)
	}

	return models.CommandResult{
		Action:  cmd.Action,
		GoalID:  goalID,
		TaskID:  task.ID,
		Summary: summary,
	}, nil
}

// deleteTask removes a task
func (s *Service) deleteTask(ctx context.Context, tx *sql.Tx, userID string, cmd models.GoalCommand) (models.CommandResult, error) {
	goalID, goalTitle, err := s.taskGoal(ctx, tx, userID, cmd)
	if err != nil {
		return models.CommandResult{}, err
	}

	task, err := resolveTask(ctx, tx, userID, cmd.TaskID, goalID, cmd.Task)
	if err != nil {
		return models.CommandResult{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task WHERE id = $1`, task.ID); err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to delete task: %w", err)
	}

	summary := fmt.Sprintf("deleted task %q", task.Title)
	if goalTitle != "" {
		summary += fmt.Sprintf(" from %q", goalTitle)
	}

	return models.CommandResult{
		Action:  cmd.Action,
		GoalID:  goalID,
		TaskID:  task.ID,
		Summary: summary,
	}, nil
}

// taskGoal resolves the goal a task command refers to. A direct task_id
// does not need a goal reference; a fuzzy task title does.
func (s *Service) taskGoal(ctx context.Context, tx *sql.Tx, userID string, cmd models.GoalCommand) (goalID, goalTitle string, err error) {
	ref := goalRef(cmd.GoalID, cmd.Goal)
	if strings.TrimSpace(ref) == "" {
		if strings.TrimSpace(cmd.TaskID) == "" {
			return "", "", ErrMissingGoalRef
		}
		return "", "", nil
	}

	g, err := resolveGoal(ctx, tx, userID, ref)
	if err != nil {
		return "", "", err
	}
	if g.Status == models.StatusArchived {
		return "", "", ErrGoalArchived
	}
	return g.ID, g.Title, nil
}

// archiveGoal archives a goal and its subgoals
func (s *Service) archiveGoal(ctx context.Context, tx *sql.Tx, userID string, cmd models.GoalCommand) (models.CommandResult, error) {
	g, err := resolveGoal(ctx, tx, userID, goalRef(cmd.GoalID, cmd.Goal))
	if err != nil {
		return models.CommandResult{}, err
	}
	if g.Status == models.StatusArchived {
		return models.CommandResult{}, ErrGoalArchived
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE goal SET status = $1, archived_at = $2, updated_at = $3 WHERE id = $4
	`, models.StatusArchived, now, now, g.ID)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to archive goal: %w", err)
	}

	// Subgoals go with the parent
	_, err = tx.ExecContext(ctx, `
		UPDATE goal SET status = $1, archived_at = $2, updated_at = $3
		WHERE parent_id = $4 AND status != $5
	`, models.StatusArchived, now, now, g.ID, models.StatusArchived)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to archive subgoals: %w", err)
	}

	return models.CommandResult{
		Action:  cmd.Action,
		GoalID:  g.ID,
		Summary: fmt.Sprintf("archived goal %q", g.Title),
	}, nil
}

// completeGoal marks a goal completed regardless of progress
func (s *Service) completeGoal(ctx context.Context, tx *sql.Tx, userID string, cmd models.GoalCommand) (models.CommandResult, error) {
	g, err := resolveGoal(ctx, tx, userID, goalRef(cmd.GoalID, cmd.Goal))
	if err != nil {
		return models.CommandResult{}, err
	}
	if g.Status == models.StatusArchived {
		return models.CommandResult{}, ErrGoalArchived
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE goal SET status = $1, updated_at = $2 WHERE id = $3
	`, models.StatusCompleted, time.Now(), g.ID)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to complete goal: %w", err)
	}

	return models.CommandResult{
		Action:  cmd.Action,
		GoalID:  g.ID,
		Summary: fmt.Sprintf("completed goal %q", g.Title),
	}, nil
}
