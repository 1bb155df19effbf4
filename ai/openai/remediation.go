package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/verdict/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// RemediationWriter implements ai.RemediationWriter using OpenAI-compatible chat APIs.
type RemediationWriter struct {
	client llms.Model
	logger *slog.Logger
}

// newRemediationWriter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newRemediationWriter(config *ai.Config) (*RemediationWriter, error) {
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

	return &RemediationWriter{
		client: client,
		logger: slog.Default().With("component", "openai-remediation"),
	}, nil
}

// NewRemediationWriter creates a new remediation writer using the provided configuration.
//
// Returns ai.RemediationWriter interface to enforce abstraction.
func NewRemediationWriter(config *ai.Config) (ai.RemediationWriter, error) {
	return newRemediationWriter(config)
}

// SuggestRemediation drafts a short remediation suggestion for one violation.
// The response is free-form prose, so no schema parsing is involved.
func (w *RemediationWriter) SuggestRemediation(ctx context.Context, req ai.RemediationRequest) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildRemediationPrompt(req)),
			},
		},
	}

	response, err := w.client.GenerateContent(ctx, content, llms.WithTemperature(0.1))
	if err != nil {
		w.logger.Error("failed to generate remediation", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		w.logger.Warn("no choices returned from model")
		return "", ai.ErrNoResponse
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
