// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package goalcmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lodestar-app/server/models"
)

var (
	ErrUnknownAction  = errors.New("unknown command action")
	ErrGoalNotFound   = errors.New("goal not found")
	ErrAmbiguousGoal  = errors.New("goal reference matches more than one goal")
	ErrTaskNotFound   = errors.New("task not found")
	ErrAmbiguousTask  = errors.New("task reference matches more than one task")
	ErrGoalArchived   = errors.New("goal is archived")
	ErrMissingGoalRef = errors.New("command needs a goal reference (goal_id or goal)")
)

// Service interprets AI-emitted goal commands against the database.
// All commands in a batch execute inside one transaction; the first
// failure rolls back everything.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Execute applies a command batch emitted by the AI chat layer.
// Returns one CommandResult per command, in order. On error the returned
// error names the failing command's position and action.
func (s *Service) Execute(ctx context.Context, userID string, cmds []models.GoalCommand) ([]models.CommandResult, error) {
	return s.ExecuteAs(ctx, userID, models.SourceChat, cmds)
}

// ExecuteAs is Execute with an explicit contribution source. The REST
// handlers route their mutations through here with SourceManual so chat
// and REST share one code path.
func (s *Service) ExecuteAs(ctx context.Context, userID, source string, cmds []models.GoalCommand) ([]models.CommandResult, error) {
	if len(cmds) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	results := make([]models.CommandResult, 0, len(cmds))
	for i, cmd := range cmds {
		res, err := s.apply(ctx, tx, userID, source, cmd)
		if err != nil {
			return nil, fmt.Errorf("command %d (%s): %w", i+1, cmd.Action, err)
		}
		results = append(results, res)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit command batch: %w", err)
	}

	slog.Info("command batch executed", "user_id", userID, "commands", len(cmds))
	return results, nil
}

func (s *Service) apply(ctx context.Context, tx *sql.Tx, userID, source string, cmd models.GoalCommand) (models.CommandResult, error) {
	switch strings.ToUpper(strings.TrimSpace(cmd.Action)) {
	case models.ActionCreateGoal:
		return s.createGoal(ctx, tx, userID, cmd, false)
	case models.ActionCreateSubgoal:
		return s.createGoal(ctx, tx, userID, cmd, true)
	case models.ActionUpdateGoal:
		return s.updateGoal(ctx, tx, userID, cmd)
	case models.ActionUpdateProgress:
		return s.updateProgress(ctx, tx, userID, source, cmd)
	case models.ActionUpdateFilters:
		return s.updateFilters(ctx, tx, userID, cmd)
	case models.ActionAddTask:
		return s.addTask(ctx, tx, userID, cmd)
	case models.ActionToggleTask:
		return s.toggleTask(ctx, tx, userID, cmd)
	case models.ActionDeleteTask:
		return s.deleteTask(ctx, tx, userID, cmd)
	case models.ActionArchiveGoal:
		return s.archiveGoal(ctx, tx, userID, cmd)
	case models.ActionCompleteGoal:
		return s.completeGoal(ctx, tx, userID, cmd)
	default:
		return models.CommandResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
}

// parseAmount turns a loose amount string ("5000", "$5,000.50") into a decimal
func parseAmount(raw models.FlexString) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(string(raw))
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Zero, errors.New("amount is empty")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", string(raw))
	}
	return d, nil
}
