// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Command action constants
const (
	ActionCreateGoal     = "CREATE_GOAL"
	ActionCreateSubgoal  = "CREATE_SUBGOAL"
	ActionUpdateGoal     = "UPDATE_GOAL"
	ActionUpdateProgress = "UPDATE_PROGRESS"
	ActionUpdateFilters  = "UPDATE_FILTERS"
	ActionAddTask        = "ADD_TASK"
	ActionToggleTask     = "TOGGLE_TASK"
	ActionDeleteTask     = "DELETE_TASK"
	ActionArchiveGoal    = "ARCHIVE_GOAL"
	ActionCompleteGoal   = "COMPLETE_GOAL"
)

// FlexString accepts a JSON string, number, or null. The AI layer emits
// amounts inconsistently ("5000", 5000, 5000.50) and the command engine
// should not care.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*s = FlexString(num.String())
	return nil
}

func (s FlexString) String() string { return string(s) }

// GoalCommand is the loosely-typed command envelope emitted by the AI layer.
// Only Action is always present; every other field is interpreted per
// action by the goalcmd engine. Goal references ("goal", "parent") may be
// an ID or a title.
type GoalCommand struct {
	Action string `json:"action"`

	// Goal references
	GoalID string `json:"goal_id"`
	Goal   string `json:"goal"`   // id or title, fuzzy resolved
	Parent string `json:"parent"` // id or title, fuzzy resolved

	// Creation / update fields
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	TargetAmount    FlexString `json:"target_amount"`
	TargetDate      string     `json:"target_date"` // YYYY-MM-DD
	SearchQuery     string     `json:"search_query"`
	Cadence         string     `json:"cadence"`
	LinkedAccountID string     `json:"linked_account_id"`

	// UPDATE_PROGRESS
	Amount FlexString `json:"amount"`
	Note   string     `json:"note"`

	// UPDATE_FILTERS
	Filters map[string]string `json:"filters"`
	Merge   bool              `json:"merge"`

	// Tasks
	Task   string   `json:"task"` // title for ADD_TASK, id or fuzzy title for TOGGLE/DELETE
	TaskID string   `json:"task_id"`
	Tasks  []string `json:"tasks"` // initial tasks on CREATE_GOAL
}

// CommandBatch is the JSON contract the assistant uses to emit commands.
type CommandBatch struct {
	Commands []GoalCommand `json:"commands"`
}

// CommandResult reports the outcome of one executed command.
type CommandResult struct {
	Action  string `json:"action"`
	GoalID  string `json:"goal_id,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
	Summary string `json:"summary"`
}
