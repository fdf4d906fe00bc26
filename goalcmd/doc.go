// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package goalcmd executes AI-emitted goal commands.

The engine takes a batch of loosely-typed models.GoalCommand values and
applies them inside a single transaction; the first failure rolls back the
whole batch and the error names the failing command.

	svc := goalcmd.NewService(db)
	results, err := svc.Execute(ctx, userID, batch.Commands)

# Actions

	CREATE_GOAL      heterogeneous per-type creation (savings/purchase/habit)
	CREATE_SUBGOAL   CREATE_GOAL plus required parent resolution
	UPDATE_GOAL      field patch (title, amounts, dates, query, cadence)
	UPDATE_PROGRESS  contribution + running total, auto-complete at target
	UPDATE_FILTERS   replace or merge purchase search filters
	ADD_TASK         append a checklist task
	TOGGLE_TASK      flip done state (by id or fuzzy title)
	DELETE_TASK      remove a task
	ARCHIVE_GOAL     archive goal and subgoals (terminal)
	COMPLETE_GOAL    mark completed

# Goal Resolution

Commands reference goals by ID or title. Resolution tries, in order: exact
ID, case-insensitive exact title, unique case-insensitive substring of the
title. Multiple matches are ErrAmbiguousGoal, never a guess. All
resolution is scoped to the requesting user.

Archived goals reject every mutating command.
*/
package goalcmd
