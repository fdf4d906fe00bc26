// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/lodestar-app/server/models"
)

// Pre-compiled patterns. LLM output wraps JSON in code fences more often
// than not, and trailing commas show up constantly.
var (
	codeFenceRegex     = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?```")
	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// ExtractBatch pulls a command batch out of assistant output.
// Strategy sequence: fenced JSON blocks, then the whole text, then the
// largest object-looking span, each with trailing-comma cleanup. Returns
// nil when the text carries no commands - that is the common case, not an
// error.
func ExtractBatch(text string) *models.CommandBatch {
	candidates := []string{}
	for _, m := range codeFenceRegex.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, text)
	if m := objectRegex.FindString(text); m != "" {
		candidates = append(candidates, m)
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if batch := tryParseBatch(candidate); batch != nil {
			return batch
		}
		cleaned := trailingCommaRegex.ReplaceAllString(candidate, "$1")
		if cleaned != candidate {
			if batch := tryParseBatch(cleaned); batch != nil {
				return batch
			}
		}
	}
	return nil
}

func tryParseBatch(candidate string) *models.CommandBatch {
	var batch models.CommandBatch
	if err := json.Unmarshal([]byte(candidate), &batch); err != nil {
		return nil
	}
	if len(batch.Commands) == 0 {
		return nil
	}
	// A batch needs actions, otherwise this was some other JSON object
	for _, cmd := range batch.Commands {
		if strings.TrimSpace(cmd.Action) == "" {
			return nil
		}
	}
	return &batch
}

// StripCommandBlock removes fenced command JSON from the assistant's
// visible reply. The transcript and the client get prose, not protocol.
func StripCommandBlock(text string) string {
	stripped := codeFenceRegex.ReplaceAllStringFunc(text, func(block string) string {
		m := codeFenceRegex.FindStringSubmatch(block)
		if m == nil {
			return block
		}
		candidate := strings.TrimSpace(m[1])
		cleaned := trailingCommaRegex.ReplaceAllString(candidate, "$1")
		if tryParseBatch(candidate) != nil || tryParseBatch(cleaned) != nil {
			return ""
		}
		return block
	})
	return strings.TrimSpace(stripped)
}
