// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ai

import (
	"testing"

	"github.com/lodestar-app/server/models"
)

func TestExtractBatch(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantActions []string
	}{
		{
			name: "fenced json block",
			text: "I'll set that up for you.\n\n```json\n" +
				`{"commands": [{"action": "CREATE_GOAL", "type": "savings", "title": "Emergency fund", "target_amount": 5000}]}` +
				"\n```\n\nDone!",
			wantActions: []string{"CREATE_GOAL"},
		},
		{
			name: "fence without language tag",
			text: "```\n" +
				`{"commands": [{"action": "ARCHIVE_GOAL", "goal": "old bike"}]}` +
				"\n```",
			wantActions: []string{"ARCHIVE_GOAL"},
		},
		{
			name:        "bare json without fences",
			text:        `{"commands": [{"action": "ADD_TASK", "goal": "run more", "task": "buy shoes"}]}`,
			wantActions: []string{"ADD_TASK"},
		},
		{
			name: "trailing comma cleanup",
			text: "```json\n" +
				`{"commands": [{"action": "UPDATE_PROGRESS", "goal": "bike fund", "amount": "200",},]}` +
				"\n```",
			wantActions: []string{"UPDATE_PROGRESS"},
		},
		{
			name: "json embedded in prose",
			text: `Sure thing. {"commands": [{"action": "COMPLETE_GOAL", "goal_id": "abc123"}]} All set.`,
			wantActions: []string{"COMPLETE_GOAL"},
		},
		{
			name: "multiple commands preserve order",
			text: "```json\n" +
				`{"commands": [{"action": "CREATE_GOAL", "type": "habit", "title": "Read"}, {"action": "ADD_TASK", "goal": "Read", "task": "pick a book"}]}` +
				"\n```",
			wantActions: []string{"CREATE_GOAL", "ADD_TASK"},
		},
		{
			name: "plain prose has no commands",
			text: "Your bike fund is at $200 out of $1,000. Keep it up!",
		},
		{
			name: "non-command json is ignored",
			text: "```json\n" + `{"weather": "sunny", "commands": []}` + "\n```",
		},
		{
			name: "commands without actions are ignored",
			text: `{"commands": [{"title": "no action here"}]}`,
		},
		{
			name: "empty text",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := ExtractBatch(tt.text)

			if len(tt.wantActions) == 0 {
				if batch != nil {
					t.Fatalf("Expected no batch, got %+v", batch)
				}
				return
			}

			if batch == nil {
				t.Fatal("Expected a batch, got nil")
			}
			if len(batch.Commands) != len(tt.wantActions) {
				t.Fatalf("Expected %d commands, got %d", len(tt.wantActions), len(batch.Commands))
			}
			for i, want := range tt.wantActions {
				if batch.Commands[i].Action != want {
					t.Errorf("Command %d: expected action %q, got %q", i, want, batch.Commands[i].Action)
				}
			}
		})
	}
}

func TestExtractBatch_FlexibleAmounts(t *testing.T) {
	text := "```json\n" +
		`{"commands": [{"action": "UPDATE_PROGRESS", "goal": "fund", "amount": 150.50}]}` +
		"\n```"

	batch := ExtractBatch(text)
	if batch == nil {
		t.Fatal("Expected a batch, got nil")
	}
	if got := batch.Commands[0].Amount.String(); got != "150.50" {
		t.Errorf("Expected amount 150.50, got %q", got)
	}
}

func TestStripCommandBlock(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "removes command block, keeps prose",
			text: "I'll create that goal.\n\n```json\n" +
				`{"commands": [{"action": "CREATE_GOAL", "type": "habit", "title": "Read"}]}` +
				"\n```\n\nAnything else?",
			want: "I'll create that goal.\n\n\n\nAnything else?",
		},
		{
			name: "keeps non-command code blocks",
			text: "Here's an example:\n\n```json\n{\"example\": true}\n```",
			want: "Here's an example:\n\n```json\n{\"example\": true}\n```",
		},
		{
			name: "plain prose untouched",
			text: "You're at $200 of $1,000.",
			want: "You're at $200 of $1,000.",
		},
		{
			name: "strips block that needs comma cleanup",
			text: "```json\n" +
				`{"commands": [{"action": "ARCHIVE_GOAL", "goal": "old",}]}` +
				"\n```",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCommandBlock(tt.text); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFlexString(t *testing.T) {
	// FlexString lives in models but its whole reason to exist is this
	// package's parsing, so it is exercised here through a batch.
	batch := ExtractBatch(`{"commands": [` +
		`{"action": "A", "target_amount": "5000"},` +
		`{"action": "B", "target_amount": 5000},` +
		`{"action": "C", "target_amount": null}]}`)
	if batch == nil {
		t.Fatal("Expected a batch, got nil")
	}

	want := []models.FlexString{"5000", "5000", ""}
	for i, cmd := range batch.Commands {
		if cmd.TargetAmount != want[i] {
			t.Errorf("Command %d: expected %q, got %q", i, want[i], cmd.TargetAmount)
		}
	}
}
