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


// Package remediation attaches remediation suggestions to detected
// violations. Suggestions are drafted by the LLM; when the model is
// unavailable a generic template keeps the workflow moving.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/verdict/ai"
	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/storage"
)

var (
	// ErrViolationRepositoryRequired is returned when a violation repository is not provided.
	ErrViolationRepositoryRequired = errors.New("violation repository required")

	// ErrRuleRepositoryRequired is returned when a rule repository is not provided.
	ErrRuleRepositoryRequired = errors.New("rule repository required")

	// ErrSegmentRepositoryRequired is returned when a segment repository is not provided.
	ErrSegmentRepositoryRequired = errors.New("segment repository required")

	// ErrWriterRequired is returned when a remediation writer is not provided.
	ErrWriterRequired = errors.New("remediation writer required")
)

// excerptLength caps the audit excerpt included in the drafting prompt.
const excerptLength = 500

// Service drafts and attaches remediation suggestions for violations.
type Service struct {
	violations storage.ViolationRepository
	rules      storage.RuleRepository
	segments   storage.SegmentRepository
	writer     ai.RemediationWriter
	logger     *slog.Logger
}

// NewService creates a remediation service.
func NewService(
	violations storage.ViolationRepository,
	rules storage.RuleRepository,
	segments storage.SegmentRepository,
	writer ai.RemediationWriter,
) (*Service, error) {
	if violations == nil {
		return nil, ErrViolationRepositoryRequired
	}
	if rules == nil {
		return nil, ErrRuleRepositoryRequired
	}
	if segments == nil {
		return nil, ErrSegmentRepositoryRequired
	}
	if writer == nil {
		return nil, ErrWriterRequired
	}

	return &Service{
		violations: violations,
		rules:      rules,
		segments:   segments,
		writer:     writer,
		logger:     slog.Default().With("component", "remediation"),
	}, nil
}

// Suggest drafts a remediation suggestion for one violation and stores it on
// the record. Other violation fields are left untouched. When the model
// fails, a generic template derived from the rule is stored instead, so the
// call only errors on storage problems.
func (s *Service) Suggest(ctx context.Context, violationID core.ID) (*core.Violation, error) {
	violation, err := s.violations.GetViolation(ctx, violationID)
	if err != nil {
		return nil, err
	}

	rule, err := s.rules.GetRule(ctx, violation.RuleId)
	if err != nil {
		return nil, fmt.Errorf("loading violated rule: %w", err)
	}

	suggestion, err := s.writer.SuggestRemediation(ctx, ai.RemediationRequest{
		RuleText:       rule.RuleText,
		Explanation:    violation.Explanation,
		SegmentExcerpt: s.excerpt(ctx, violation.SegmentId),
	})
	if err != nil || suggestion == "" {
		s.logger.Warn("falling back to template suggestion",
			"violation", violationID, "err", err)
		suggestion = fallbackSuggestion(rule)
	}

	return s.violations.AttachRemediation(ctx, violationID, suggestion)
}

// excerpt fetches the audit segment text backing the violation.
// A missing segment degrades to an empty excerpt rather than failing.
func (s *Service) excerpt(ctx context.Context, segmentID core.ID) string {
	seg, err := s.segments.GetSegment(ctx, segmentID)
	if err != nil {
		s.logger.Debug("violation segment unavailable", "segment", segmentID, "err", err)
		return ""
	}

	runes := []rune(seg.Content)
	if len(runes) <= excerptLength {
		return seg.Content
	}
	return string(runes[:excerptLength])
}

// fallbackSuggestion is the generic template used when drafting fails.
func fallbackSuggestion(rule *core.Rule) string {
	return fmt.Sprintf(
		"Review the affected process and update controls to satisfy the requirement: %s Assign an owner, set a target date, and re-audit once the change is in place.",
		rule.RuleText)
}
