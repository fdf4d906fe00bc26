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

// createGoal handles CREATE_GOAL and CREATE_SUBGOAL. Creation logic is
// heterogeneous per goal type: savings goals need a target amount,
// purchase goals get a search query and filters, habit goals get a
// cadence and optional initial tasks.
func (s *Service) createGoal(ctx context.Context, tx *sql.Tx, userID string, cmd models.GoalCommand, subgoal bool) (models.CommandResult, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return models.CommandResult{}, errors.New("title is required")
	}

	typ, err := inferType(cmd)
	if err != nil {
		return models.CommandResult{}, err
	}

	// Parent resolution (required for CREATE_SUBGOAL, optional otherwise)
	var parentID *string
	parentRef := strings.TrimSpace(cmd.Parent)
	if subgoal && parentRef == "" {
		return models.CommandResult{}, errors.New("CREATE_SUBGOAL needs a parent (id or title)")
	}
	if parentRef != "" {
		parent, err := resolveGoal(ctx, tx, userID, parentRef)
		if err != nil {
			return models.CommandResult{}, fmt.Errorf("parent: %w", err)
		}
		if parent.Status == models.StatusArchived {
			return models.CommandResult{}, fmt.Errorf("parent: %w", ErrGoalArchived)
		}
		parentID = &parent.ID
	}

	var targetAmount *decimal.Decimal
	if string(cmd.TargetAmount) != "" {
		d, err := parseAmount(cmd.TargetAmount)
		if err != nil {
			return models.CommandResult{}, err
		}
		if d.Sign() <= 0 {
			return models.CommandResult{}, errors.New("target_amount must be positive")
		}
		targetAmount = &d
	}

	var targetDate *time.Time
	if strings.TrimSpace(cmd.TargetDate) != "" {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(cmd.TargetDate))
		if err != nil {
			return models.CommandResult{}, fmt.Errorf("invalid target_date %q (want YYYY-MM-DD)", cmd.TargetDate)
		}
		targetDate = &d
	}

	var searchQuery, cadence *string
	switch typ {
	case models.TypeSavings:
		if targetAmount == nil {
			return models.CommandResult{}, errors.New("savings goal needs a target_amount")
		}
	case models.TypePurchase:
		// The search query falls back to the title so "add a goal to buy
		// a used RAV4" works without an explicit query field.
		q := strings.TrimSpace(cmd.SearchQuery)
		if q == "" {
			q = title
		}
		searchQuery = &q
	case models.TypeHabit:
		if c := strings.ToLower(strings.TrimSpace(cmd.Cadence)); c != "" {
			if !validCadence(c) {
				return models.CommandResult{}, fmt.Errorf("invalid cadence %q (want daily, weekly, or monthly)", cmd.Cadence)
			}
			cadence = &c
		}
	}

	var linkedAccountID *string
	if acct := strings.TrimSpace(cmd.LinkedAccountID); acct != "" {
		if typ != models.TypeSavings {
			return models.CommandResult{}, errors.New("only savings goals can link a bank account")
		}
		if err := verifyAccountOwner(ctx, tx, userID, acct); err != nil {
			return models.CommandResult{}, err
		}
		linkedAccountID = &acct
	}

	goalID, err := auth.GenerateID(16)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to generate goal ID: %w", err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO goal (id, user_id, parent_id, type, title, description, status,
		                  target_amount, current_amount, target_date, search_query,
		                  cadence, linked_account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, goalID, userID, parentID, typ, title, cmd.Description, models.StatusActive,
		nullDecimal(targetAmount), "0", targetDate, searchQuery,
		cadence, linkedAccountID, now, now)
	if err != nil {
		return models.CommandResult{}, fmt.Errorf("failed to insert goal: %w", err)
	}

	if typ == models.TypePurchase {
		if err := insertFilters(ctx, tx, goalID, cmd.Filters); err != nil {
			return models.CommandResult{}, err
		}
	}

	for i, taskTitle := range cmd.Tasks {
		taskTitle = strings.TrimSpace(taskTitle)
		if taskTitle == "" {
			continue
		}
		taskID, err := auth.GenerateID(12)
		if err != nil {
			return models.CommandResult{}, fmt.Errorf("failed to generate task ID: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO task (id, goal_id, title, done, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, taskID, goalID, taskTitle, false, i+1, now)
		if err != nil {
			return models.CommandResult{}, fmt.Errorf("failed to insert task: %w", err)
		}
	}

	summary := fmt.Sprintf("created %s goal %q", typ, title)
	if parentID != nil {
		summary = fmt.Sprintf("created %s subgoal %q", typ, title)
	}

	return models.CommandResult{
		Action:  cmd.Action,
		GoalID:  goalID,
		Summary: summary,
	}, nil
}

// inferType normalizes the command's goal type, guessing from the other
// fields when the AI omits it.
func inferType(cmd models.GoalCommand) (string, error) {
	typ := strings.ToLower(strings.TrimSpace(cmd.Type))
	if typ == "" {
		switch {
		case strings.TrimSpace(cmd.SearchQuery) != "" || len(cmd.Filters) > 0:
			typ = models.TypePurchase
		case string(cmd.TargetAmount) != "":
			typ = models.TypeSavings
		default:
			typ = models.TypeHabit
		}
	}
	switch typ {
	case models.TypeSavings, models.TypePurchase, models.TypeHabit:
		return typ, nil
	default:
		return "", fmt.Errorf("unknown goal type %q", cmd.Type)
	}
}

func validCadence(c string) bool {
	return c == "daily" || c == "weekly" || c == "monthly"
}

// nullDecimal converts an optional decimal to a bindable value
func nullDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func verifyAccountOwner(ctx context.Context, tx *sql.Tx, userID, accountID string) error {
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bank_account ba
		JOIN plaid_item pi ON ba.item_pk = pi.id
		WHERE pi.user_id = $1 AND ba.account_id = $2
	`, userID, accountID).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to verify account: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bank account %q not found", accountID)
	}
	return nil
}

func insertFilters(ctx context.Context, tx *sql.Tx, goalID string, filters map[string]string) error {
	for name, value := range filters {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO goal_filter (goal_id, name, value)
			VALUES ($1, $2, $3)
		`, goalID, name, value)
		if err != nil {
			return fmt.Errorf("failed to insert filter %q: %w", name, err)
		}
	}
	return nil
}
