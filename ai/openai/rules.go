// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/verdict/ai"
	"github.com/poiesic/verdict/retry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// defaultLLMRetryDelay is the base backoff delay between chat call attempts.
// The delay doubles on each retry.
const defaultLLMRetryDelay = time.Second

// RuleExtractor implements ai.RuleExtractor using OpenAI-compatible chat APIs.
type RuleExtractor struct {
	client      llms.Model
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// ruleEntry is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type ruleEntry struct {
	RuleText string `json:"rule_text"`
	Category string `json:"category"`
	Severity string `json:"severity"`
}

// ruleResponse is the wrapper structure for the LLM's JSON response.
type ruleResponse struct {
	Rules []ruleEntry `json:"rules"`
}

// newRuleExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newRuleExtractor(config *ai.Config) (*RuleExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &RuleExtractor{
		client:      client,
		maxAttempts: config.MaxParseAttempts,
		baseDelay:   defaultLLMRetryDelay,
		logger:      slog.Default().With("component", "openai-rules"),
	}, nil
}

// NewRuleExtractor creates a new rule extractor using the provided configuration.
//
// Returns ai.RuleExtractor interface to enforce abstraction.
func NewRuleExtractor(config *ai.Config) (ai.RuleExtractor, error) {
	return newRuleExtractor(config)
}

// ExtractRules extracts compliance requirements from one policy segment.
// Transport failures and malformed model output are both retried with
// exponential backoff up to the configured attempt budget; parse exhaustion
// returns an error wrapping ai.ErrSchema.
func (e *RuleExtractor) ExtractRules(ctx context.Context, segmentText string, contextTexts []string) ([]ai.RuleCandidate, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildRulePrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildRuleInput(segmentText, contextTexts)),
			},
		},
	}

	var entries []ruleEntry
	var noChoices bool
	callErr := retry.Do(ctx, func() error {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Warn("rule extraction call failed", "err", err)
			return err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			noChoices = true
			return nil
		}
		noChoices = false

		parsed, err := parseRuleEntries(response.Choices[0].Content)
		if err != nil {
			e.logger.Warn("error parsing rule extraction response",
				"response", response.Choices[0].Content,
				"err", err)
			return fmt.Errorf("%w: %v", ai.ErrSchema, err)
		}

		entries = parsed
		return nil
	}, e.maxAttempts, e.baseDelay, true)

	if callErr != nil {
		e.logger.Error("rule extraction failed after retries", "err", callErr)
		return nil, callErr
	}
	if noChoices {
		return []ai.RuleCandidate{}, nil
	}

	candidates := make([]ai.RuleCandidate, 0, len(entries))
	for _, entry := range entries {
		text := strings.TrimSpace(entry.RuleText)
		if text == "" {
			continue
		}
		category := strings.TrimSpace(entry.Category)
		if category == "" {
			category = "general"
		}
		candidates = append(candidates, ai.RuleCandidate{
			RuleText: text,
			Category: strings.ReplaceAll(category, " ", "_"),
			Severity: entry.Severity,
		})
	}

	e.logger.Debug("extracted rules",
		"total", len(entries),
		"kept", len(candidates))

	return candidates, nil
}

// parseRuleEntries decodes the model's rule extraction output. It accepts
// either the {"rules": [...]} wrapper the prompt asks for or a bare array.
func parseRuleEntries(raw string) ([]ruleEntry, error) {
	cleaned := cleanModelJSON(raw)

	if strings.HasPrefix(cleaned, "[") {
		var entries []ruleEntry
		if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var wrapped ruleResponse
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Rules, nil
}
