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

// ViolationDetector implements ai.ViolationDetector using OpenAI-compatible chat APIs.
type ViolationDetector struct {
	client      llms.Model
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// findingEntry is an internal type used for JSON unmarshaling.
type findingEntry struct {
	RuleID      uint64 `json:"rule_id"`
	Explanation string `json:"explanation"`
	Severity    string `json:"severity"`
}

// findingResponse is the wrapper structure for the LLM's JSON response.
type findingResponse struct {
	Violations []findingEntry `json:"violations"`
}

// newViolationDetector is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newViolationDetector(config *ai.Config) (*ViolationDetector, error) {
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

	return &ViolationDetector{
		client:      client,
		maxAttempts: config.MaxParseAttempts,
		baseDelay:   defaultLLMRetryDelay,
		logger:      slog.Default().With("component", "openai-detector"),
	}, nil
}

// NewViolationDetector creates a new violation detector using the provided configuration.
//
// Returns ai.ViolationDetector interface to enforce abstraction.
func NewViolationDetector(config *ai.Config) (ai.ViolationDetector, error) {
	return newViolationDetector(config)
}

// DetectViolations checks one audit segment against the provided rules in a
// single model call. Transport failures and malformed output are retried with
// exponential backoff up to the configured attempt budget. Only violated
// rules come back as findings; findings referencing rules not in the
// provided set are dropped.
func (d *ViolationDetector) DetectViolations(ctx context.Context, segmentText string, rules []ai.RuleContext) ([]ai.Finding, error) {
	if len(rules) == 0 {
		return []ai.Finding{}, nil
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildViolationPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildViolationInput(segmentText, rules)),
			},
		},
	}

	var entries []findingEntry
	var noChoices bool
	callErr := retry.Do(ctx, func() error {
		response, err := d.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			d.logger.Warn("violation detection call failed", "err", err)
			return err
		}

		if len(response.Choices) < 1 {
			d.logger.Debug("no choices returned from model")
			noChoices = true
			return nil
		}
		noChoices = false

		parsed, err := parseFindingEntries(response.Choices[0].Content)
		if err != nil {
			d.logger.Warn("error parsing violation detection response",
				"response", response.Choices[0].Content,
				"err", err)
			return fmt.Errorf("%w: %v", ai.ErrSchema, err)
		}

		entries = parsed
		return nil
	}, d.maxAttempts, d.baseDelay, true)

	if callErr != nil {
		d.logger.Error("violation detection failed after retries", "err", callErr)
		return nil, callErr
	}
	if noChoices {
		return []ai.Finding{}, nil
	}

	ruleSeverity := make(map[uint64]string, len(rules))
	for _, r := range rules {
		ruleSeverity[r.ID] = r.Severity
	}

	findings := make([]ai.Finding, 0, len(entries))
	for _, entry := range entries {
		severity, known := ruleSeverity[entry.RuleID]
		if !known {
			d.logger.Warn("model referenced unknown rule", "rule_id", entry.RuleID)
			continue
		}
		if s := strings.TrimSpace(entry.Severity); s != "" {
			severity = s
		}
		findings = append(findings, ai.Finding{
			RuleID:      entry.RuleID,
			Explanation: strings.TrimSpace(entry.Explanation),
			Severity:    severity,
		})
	}

	d.logger.Debug("detected violations",
		"rules", len(rules),
		"findings", len(findings))

	return findings, nil
}

// parseFindingEntries decodes the model's violation detection output. It
// accepts either the {"violations": [...]} wrapper or a bare array.
func parseFindingEntries(raw string) ([]findingEntry, error) {
	cleaned := cleanModelJSON(raw)

	if strings.HasPrefix(cleaned, "[") {
		var entries []findingEntry
		if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var wrapped findingResponse
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Violations, nil
}
