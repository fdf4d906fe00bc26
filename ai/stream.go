// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/lodestar-app/server/models"
)

// StreamEvent is one server-sent event of a streamed chat turn.
type StreamEvent struct {
	Type       string                 `json:"type"` // delta, results, error
	Text       string                 `json:"text,omitempty"`
	Results    []models.CommandResult `json:"results,omitempty"`
	CommandErr string                 `json:"command_error,omitempty"`
}

// Stream handles one chat turn with text deltas passed through as they
// arrive. After the model finishes, commands are extracted and executed
// and a final "results" event is emitted. Returns the finished Reply.
func (s *Service) Stream(ctx context.Context, userID, message string, emit func(StreamEvent)) (*Reply, error) {
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

	stream := s.client.Messages.NewStreaming(ctx, params)
	accumulated := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := accumulated.Accumulate(event); err != nil {
			return nil, fmt.Errorf("failed to accumulate stream event: %w", err)
		}

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				emit(StreamEvent{Type: "delta", Text: deltaVariant.Text})
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic stream failed: %w", err)
	}

	reply, err := s.finish(ctx, userID, message, textContent(&accumulated))
	if err != nil {
		return nil, err
	}

	emit(StreamEvent{
		Type:       "results",
		Results:    reply.Results,
		CommandErr: reply.CommandErr,
	})
	return reply, nil
}
