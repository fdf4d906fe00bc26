// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/lodestar-app/server/middleware"
	"github.com/lodestar-app/server/models"
)

// AddTask handles POST /goals/{id}/tasks
func (h *GoalHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req models.AddTaskRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	h.runCommandWithStatus(w, r, http.StatusCreated, models.GoalCommand{
		Action: models.ActionAddTask,
		GoalID: r.PathValue("id"),
		Task:   req.Title,
	})
}

// ToggleTask handles POST /goals/{id}/tasks/{taskId}/toggle
func (h *GoalHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, models.GoalCommand{
		Action: models.ActionToggleTask,
		GoalID: r.PathValue("id"),
		TaskID: r.PathValue("taskId"),
	})
}

// DeleteTask handles DELETE /goals/{id}/tasks/{taskId}
func (h *GoalHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, models.GoalCommand{
		Action: models.ActionDeleteTask,
		GoalID: r.PathValue("id"),
		TaskID: r.PathValue("taskId"),
	})
}
