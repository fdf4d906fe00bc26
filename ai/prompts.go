// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ai

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const systemPrompt = `You are Lodestar, a personal goals assistant. You help the user
track savings goals, purchase goals, and habits.

When the user asks you to create or change goals, reply conversationally AND
append exactly one fenced code block containing the commands to execute:

` + "```json" + `
{"commands": [
  {"action": "CREATE_GOAL", "type": "savings", "title": "Emergency fund", "target_amount": "5000"},
  {"action": "UPDATE_PROGRESS", "goal": "Emergency fund", "amount": "250", "note": "paycheck"}
]}
` + "```" + `

Available actions: CREATE_GOAL, CREATE_SUBGOAL, UPDATE_GOAL, UPDATE_PROGRESS,
UPDATE_FILTERS, ADD_TASK, TOGGLE_TASK, DELETE_TASK, ARCHIVE_GOAL, COMPLETE_GOAL.

Rules:
- Goal types: "savings" (needs target_amount), "purchase" (needs search_query,
  optional target_amount as price ceiling and a "filters" object), "habit"
  (optional cadence: daily/weekly/monthly, optional "tasks" list).
- Reference existing goals by title in the "goal" field, or by "goal_id" if
  you know it. CREATE_SUBGOAL needs a "parent".
- Amounts are plain numbers or strings; dates are YYYY-MM-DD.
- Never invent goals the user did not ask for. If a request is ambiguous,
  ask instead of emitting commands.
- If the user is just chatting, reply normally with no code block.`

// buildGoalContext renders the user's active goals for the system prompt
func buildGoalContext(ctx context.Context, db *sql.DB, userID string) (string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, type, title, status, target_amount, current_amount, search_query, cadence
		FROM goal
		WHERE user_id = $1 AND status != 'archived' AND parent_id IS NULL
		ORDER BY created_at
	`, userID)
	if err != nil {
		return "", fmt.Errorf("failed to query goals for context: %w", err)
	}
	defer rows.Close()

	taskCounts, err := loadTaskCounts(ctx, db, userID)
	if err != nil {
		return "", err
	}

	var lines []string
	for rows.Next() {
		var (
			id, typ, title, status, current string
			target, query, cadence          sql.NullString
		)
		if err := rows.Scan(&id, &typ, &title, &status, &target, &current, &query, &cadence); err != nil {
			return "", fmt.Errorf("failed to scan goal for context: %w", err)
		}

		line := fmt.Sprintf("- [%s] %s (id %s, %s)", typ, title, id, status)
		if target.Valid {
			line += fmt.Sprintf(": %s of %s", money(current), money(target.String))
		} else if cur, err := decimal.NewFromString(current); err == nil && !cur.IsZero() {
			line += fmt.Sprintf(": %s saved", money(current))
		}
		if query.Valid && query.String != "" {
			line += fmt.Sprintf(", searching for %q", query.String)
		}
		if cadence.Valid && cadence.String != "" {
			line += ", " + cadence.String
		}
		if tc, ok := taskCounts[id]; ok {
			line += fmt.Sprintf(", %d/%d tasks done", tc.done, tc.total)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	if len(lines) == 0 {
		return "The user has no goals yet.", nil
	}
	return "The user's current goals:\n" + strings.Join(lines, "\n"), nil
}

type taskCount struct {
	total int
	done  int
}

func loadTaskCounts(ctx context.Context, db *sql.DB, userID string) (map[string]taskCount, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t.goal_id, COUNT(*), SUM(CASE WHEN t.done THEN 1 ELSE 0 END)
		FROM task t JOIN goal g ON t.goal_id = g.id
		WHERE g.user_id = $1
		GROUP BY t.goal_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]taskCount)
	for rows.Next() {
		var goalID string
		var tc taskCount
		if err := rows.Scan(&goalID, &tc.total, &tc.done); err != nil {
			return nil, fmt.Errorf("failed to scan task count: %w", err)
		}
		counts[goalID] = tc
	}
	return counts, rows.Err()
}

// money formats a decimal string for the prompt ("1234.5" -> "$1,234.50")
func money(raw string) string {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	if d.IsInteger() {
		return "$" + humanize.Commaf(d.InexactFloat64())
	}
	return "$" + humanize.FormatFloat("#,###.##", d.InexactFloat64())
}
