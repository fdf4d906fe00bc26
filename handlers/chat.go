// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lodestar-app/server/ai"
	"github.com/lodestar-app/server/cliparse"
	"github.com/lodestar-app/server/middleware"
	"github.com/lodestar-app/server/models"
)

// Assistant is the chat surface ChatHandler needs. ai.Service implements
// it; tests use a fake.
type Assistant interface {
	Respond(ctx context.Context, userID, message string) (*ai.Reply, error)
	Stream(ctx context.Context, userID, message string, emit func(ai.StreamEvent)) (*ai.Reply, error)
}

type ChatHandler struct {
	db        *sql.DB
	cfg       cliparse.Config
	assistant Assistant // nil when no API key is configured
}

func NewChatHandler(db *sql.DB, cfg cliparse.Config, assistant Assistant) *ChatHandler {
	return &ChatHandler{db: db, cfg: cfg, assistant: assistant}
}

// Send handles POST /chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "AI chat is not configured")
		return
	}

	userID := middleware.UserID(r)

	var req models.ChatRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.assistant.Respond(r.Context(), userID, req.Message)
	if err != nil {
		slog.Error("chat turn failed", "user_id", userID, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "assistant is unavailable")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ChatResponse{
		Reply:        reply.Text,
		Results:      reply.Results,
		CommandError: reply.CommandErr,
	})
}

// Stream handles GET /chat/stream: the same turn as Send but with text
// deltas pushed as server-sent events.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "AI chat is not configured")
		return
	}

	userID := middleware.UserID(r)

	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.ErrorResponse(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(ev ai.StreamEvent) {
		writeSSE(w, flusher, ev)
	}

	if _, err := h.assistant.Stream(r.Context(), userID, message, emit); err != nil {
		slog.Error("chat stream failed", "user_id", userID, "error", err)
		writeSSE(w, flusher, ai.StreamEvent{Type: "error", Text: "assistant is unavailable"})
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, ev ai.StreamEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to encode stream event", "error", err)
		return
	}
	if _, err := w.Write([]byte("event: " + ev.Type + "\ndata: " + string(data) + "\n\n")); err != nil {
		return
	}
	flusher.Flush()
}

// History handles GET /chat/history
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	rows, err := h.db.Query(`
		SELECT id, role, content, created_at FROM chat_message
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT 50
	`, userID)
	if err != nil {
		slog.Error("failed to query chat history", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			slog.Error("failed to scan chat message", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read chat history", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Stored newest-first; return oldest-first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	middleware.JSONResponse(w, http.StatusOK, messages)
}
