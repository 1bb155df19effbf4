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


package pipeline

import (
	"context"
	"time"

	"github.com/poiesic/verdict/ai"
	"github.com/poiesic/verdict/core"
)

// runAudit executes the audit stages for one document: the shared
// extract/segment/embed/index stages, then violation detection per segment
// against the rules extracted from similar policy segments.
func (p *Pipeline) runAudit(ctx context.Context, documentID core.ID) {
	prep := p.prepare(ctx, documentID)
	if prep == nil {
		return
	}
	doc := prep.doc

	// Supersede findings from any earlier run of this audit.
	if err := p.repos.Violations.DeleteViolationsByAudit(ctx, doc.OrgId, doc.Id); err != nil {
		p.fail(ctx, documentID, "detect", err)
		return
	}

	var violations []*core.Violation
	var skipped int
	for _, seg := range prep.segments {
		vector, embedded := prep.vectors[seg.Id]
		if !embedded {
			continue
		}

		candidates, err := p.candidateRules(ctx, doc.OrgId, vector)
		if err != nil {
			p.logger.Warn("skipping segment after candidate rule lookup failure",
				"document", doc.Id, "segment", seg.Id, "err", err)
			skipped++
			continue
		}
		if len(candidates) == 0 {
			// No policy coverage near this segment, nothing to check.
			continue
		}

		ruleContexts := make([]ai.RuleContext, len(candidates))
		ruleByID := make(map[core.ID]*core.Rule, len(candidates))
		for i, rule := range candidates {
			ruleContexts[i] = ai.RuleContext{
				ID:       uint64(rule.Id),
				RuleText: rule.RuleText,
				Severity: rule.Severity.String(),
			}
			ruleByID[rule.Id] = rule
		}

		findings, err := p.detector.DetectViolations(ctx, seg.Content, ruleContexts)
		if err != nil {
			p.logger.Warn("skipping segment after violation detection failure",
				"document", doc.Id, "segment", seg.Id, "err", err)
			skipped++
			continue
		}

		now := core.NormalizeTime(time.Now())
		for _, finding := range findings {
			rule, known := ruleByID[core.ID(finding.RuleID)]
			if !known {
				p.logger.Warn("dropping finding referencing unknown rule",
					"document", doc.Id, "segment", seg.Id, "rule", finding.RuleID)
				continue
			}

			severity := core.ParseSeverity(finding.Severity)
			if finding.Severity == "" {
				severity = rule.Severity
			}

			violations = append(violations, &core.Violation{
				OrgId:           doc.OrgId,
				AuditDocumentId: doc.Id,
				RuleId:          rule.Id,
				SegmentId:       seg.Id,
				Severity:        severity,
				Explanation:     finding.Explanation,
				DetectedAt:      now,
			})
		}
	}

	if len(violations) > 0 {
		if _, err := p.repos.Violations.AddViolations(ctx, violations...); err != nil {
			p.fail(ctx, documentID, "detect", err)
			return
		}
	}

	if _, err := p.repos.Documents.UpdateDocumentStatus(ctx, documentID, core.StatusAudited, prep.note); err != nil {
		p.logger.Error("failed to record audited status", "document", documentID, "err", err)
		return
	}
	if _, err := p.repos.Documents.UpdateDocumentStatus(ctx, documentID, core.StatusCompleted, prep.note); err != nil {
		p.logger.Error("failed to record completed status", "document", documentID, "err", err)
		return
	}

	p.logger.Info("audit processed",
		"document", documentID,
		"segments", len(prep.segments),
		"violations", len(violations),
		"skipped_segments", skipped)
}

// candidateRules finds the rules extracted from the policy segments most
// similar to the audit segment's embedding.
func (p *Pipeline) candidateRules(ctx context.Context, orgID core.ID, vector []float32) ([]*core.Rule, error) {
	matches, err := p.repos.Embeddings.QuerySimilar(ctx, orgID, vector, p.candidateSegments, core.KindPolicy)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	segmentIDs := make([]core.ID, len(matches))
	for i, match := range matches {
		segmentIDs[i] = match.Record.SegmentId
	}

	return p.repos.Rules.GetRulesBySourceSegments(ctx, orgID, segmentIDs...)
}
