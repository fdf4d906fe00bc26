// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ai

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"

	"github.com/lodestar-app/server/auth"
	"github.com/lodestar-app/server/goalcmd"
	"github.com/lodestar-app/server/models"
)

// DefaultModel is used when LODESTAR_MODEL is unset
const DefaultModel = "claude-sonnet-4-5-20250929"

const (
	replyMaxTokens     = 2048
	maxHistoryMessages = 20
	requestTimeout     = 60 * time.Second
	maxRetries         = 3
	initialBackoff     = time.Second
	maxConcurrentCalls = 3
)

// Service is the AI chat layer: it talks to the Anthropic API, extracts
// goal commands from replies, runs them through the command engine, and
// keeps the per-user transcript.
type Service struct {
	db     *sql.DB
	client *anthropic.Client
	model  string
	engine *goalcmd.Service
	sem    *semaphore.Weighted // caps concurrent API calls
}

// Reply is a finished assistant turn.
type Reply struct {
	Text       string
	Results    []models.CommandResult
	CommandErr string
}

// NewService creates the chat service. apiKey is required; model falls
// back to DefaultModel.
func NewService(db *sql.DB, engine *goalcmd.Service, apiKey, model string) (*Service, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Service{
		db:     db,
		client: &client,
		model:  model,
		engine: engine,
		sem:    semaphore.NewWeighted(maxConcurrentCalls),
	}, nil
}

// Respond handles one chat turn: context + history in, reply and executed
// command results out. The turn is persisted to chat_message.
func (s *Service) Respond(ctx context.Context, userID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("message is empty")
	}

	params, err := s.buildParams(ctx, userID, message)
	if err != nil {
		return nil, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	var response *anthropic.Message
	err = withRetry(ctx, func(attemptCtx context.Context) error {
		resp, apiErr := s.client.Messages.New(attemptCtx, params)
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	return s.finish(ctx, userID, message, textContent(response))
}

// buildParams assembles the model request: system prompt with the user's
// goal context, then recent history, then the new message.
func (s *Service) buildParams(ctx context.Context, userID, message string) (anthropic.MessageNewParams, error) {
	goalCtx, err := buildGoalContext(ctx, s.db, userID)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	history, err := s.loadHistory(ctx, userID)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	messages := append(history, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: replyMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt + "\n\n" + goalCtx},
		},
		Messages: messages,
	}, nil
}

// finish extracts and executes commands from the raw reply, persists the
// turn, and builds the Reply. A command failure is reported on the Reply,
// not as a request error - the conversation keeps going.
func (s *Service) finish(ctx context.Context, userID, userMessage, rawText string) (*Reply, error) {
	reply := &Reply{Text: StripCommandBlock(rawText)}

	if batch := ExtractBatch(rawText); batch != nil {
		results, err := s.engine.Execute(ctx, userID, batch.Commands)
		if err != nil {
			slog.Warn("command batch failed", "user_id", userID, "error", err)
			reply.CommandErr = err.Error()
		} else {
			reply.Results = results
		}
	}

	if reply.Text == "" {
		reply.Text = "Done."
	}

	if err := s.saveMessage(ctx, userID, models.RoleUser, userMessage); err != nil {
		return nil, err
	}
	if err := s.saveMessage(ctx, userID, models.RoleAssistant, reply.Text); err != nil {
		return nil, err
	}

	return reply, nil
}

// loadHistory returns the most recent transcript as API messages, oldest first
func (s *Service) loadHistory(ctx context.Context, userID string) ([]anthropic.MessageParam, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM chat_message
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, maxHistoryMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	type turn struct{ role, content string }
	var turns []turn
	for rows.Next() {
		var t turn
		if err := rows.Scan(&t.role, &t.content); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order
	history := make([]anthropic.MessageParam, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].role == models.RoleAssistant {
			history = append(history, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turns[i].content)))
		} else {
			history = append(history, anthropic.NewUserMessage(anthropic.NewTextBlock(turns[i].content)))
		}
	}
	return history, nil
}

func (s *Service) saveMessage(ctx context.Context, userID, role, content string) error {
	id, err := auth.GenerateID(16)
	if err != nil {
		return fmt.Errorf("failed to generate message ID: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_message (id, user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, userID, role, content, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

// textContent concatenates the text blocks of a response
func textContent(m *anthropic.Message) string {
	var out string
	for _, block := range m.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}

// withRetry retries transient API failures with exponential backoff
func withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		attemptCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
		slog.Warn("anthropic call failed, retrying", "attempt", attempt+1, "error", err)
	}
	return lastErr
}

func isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "529", "overloaded", "rate limit", "timeout", "connection"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
