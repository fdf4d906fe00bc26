// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package goalcmd

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lodestar-app/server/models"
)

// goalRow is the slice of a goal the engine needs for command handling.
type goalRow struct {
	ID            string
	Type          string
	Title         string
	Status        string
	TargetAmount  sql.NullString
	CurrentAmount string
}

// resolveGoal finds the user's goal referenced by a command.
// Resolution order: exact ID, case-insensitive exact title, unique
// case-insensitive substring of the title. Ambiguity is an error, never
// a guess.
func resolveGoal(ctx context.Context, tx *sql.Tx, userID, ref string) (*goalRow, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrMissingGoalRef
	}

	// Exact ID
	g, err := scanGoalRow(tx.QueryRowContext(ctx, `
		SELECT id, type, title, status, target_amount, current_amount
		FROM goal WHERE user_id = $1 AND id = $2
	`, userID, ref))
	if err == nil {
		return g, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query goal: %w", err)
	}

	// Case-insensitive exact title
	lower := strings.ToLower(ref)
	rows, err := queryGoalRows(ctx, tx, `
		SELECT id, type, title, status, target_amount, current_amount
		FROM goal WHERE user_id = $1 AND LOWER(title) = $2
	`, userID, lower)
	if err != nil {
		return nil, err
	}
	if len(rows) == 1 {
		return rows[0], nil
	}
	if len(rows) > 1 {
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousGoal, ref)
	}

	// Unique substring match
	rows, err = queryGoalRows(ctx, tx, `
		SELECT id, type, title, status, target_amount, current_amount
		FROM goal WHERE user_id = $1 AND LOWER(title) LIKE '%' || $2 || '%'
	`, userID, lower)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 1:
		return rows[0], nil
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrGoalNotFound, ref)
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousGoal, ref)
	}
}

// goalRef picks the goal reference out of a command's fields
func goalRef(goalID, goal string) string {
	if strings.TrimSpace(goalID) != "" {
		return goalID
	}
	return goal
}

func scanGoalRow(row *sql.Row) (*goalRow, error) {
	var g goalRow
	err := row.Scan(&g.ID, &g.Type, &g.Title, &g.Status, &g.TargetAmount, &g.CurrentAmount)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func queryGoalRows(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) ([]*goalRow, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var out []*goalRow
	for rows.Next() {
		var g goalRow
		if err := rows.Scan(&g.ID, &g.Type, &g.Title, &g.Status, &g.TargetAmount, &g.CurrentAmount); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		out = append(out, &g)
	}
	return out, rows.Err()
}

// taskRow is the slice of a task the engine needs.
type taskRow struct {
	ID    string
	Title string
	Done  bool
}

// resolveTask finds a task by ID, or by fuzzy title within the given goal.
// When taskID is set the goal reference is not required, but if a goal was
// resolved the task must belong to it. Tasks on archived goals are off
// limits either way.
func resolveTask(ctx context.Context, tx *sql.Tx, userID, taskID, goalID, titleRef string) (*taskRow, error) {
	if strings.TrimSpace(taskID) != "" {
		var t taskRow
		var taskGoalID, goalStatus string
		err := tx.QueryRowContext(ctx, `
			SELECT t.id, t.title, t.done, t.goal_id, g.status
			FROM task t JOIN goal g ON t.goal_id = g.id
			WHERE g.user_id = $1 AND t.id = $2
		`, userID, taskID).Scan(&t.ID, &t.Title, &t.Done, &taskGoalID, &goalStatus)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query task: %w", err)
		}
		if goalID != "" && taskGoalID != goalID {
			return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
		}
		if goalStatus == models.StatusArchived {
			return nil, ErrGoalArchived
		}
		return &t, nil
	}

	titleRef = strings.TrimSpace(titleRef)
	if titleRef == "" {
		return nil, ErrTaskNotFound
	}
	lower := strings.ToLower(titleRef)

	// Exact title first, then substring, within the goal
	for _, pattern := range []string{lower, "%" + lower + "%"} {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, title, done FROM task
			WHERE goal_id = $1 AND LOWER(title) LIKE $2
			ORDER BY position
		`, goalID, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to query tasks: %w", err)
		}
		var matches []taskRow
		for rows.Next() {
			var t taskRow
			if err := rows.Scan(&t.ID, &t.Title, &t.Done); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan task: %w", err)
			}
			matches = append(matches, t)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if len(matches) == 1 {
			return &matches[0], nil
		}
		if len(matches) > 1 {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguousTask, titleRef)
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, titleRef)
}
