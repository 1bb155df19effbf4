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

	"github.com/poiesic/verdict/core"
)

// runPolicy executes the policy stages for one document: the shared
// extract/segment/embed/index stages, then rule extraction per segment.
// A segment whose extraction keeps failing is skipped; the run continues.
func (p *Pipeline) runPolicy(ctx context.Context, documentID core.ID) {
	prep := p.prepare(ctx, documentID)
	if prep == nil {
		return
	}
	doc := prep.doc

	// Supersede rules from any earlier run of this policy.
	if err := p.repos.Rules.DeleteRulesByPolicy(ctx, doc.OrgId, doc.Id); err != nil {
		p.fail(ctx, documentID, "rules", err)
		return
	}

	var rules []*core.Rule
	var skipped int
	for _, seg := range prep.segments {
		vector, embedded := prep.vectors[seg.Id]
		if !embedded {
			continue
		}

		contexts, err := p.contextTexts(ctx, doc.OrgId, seg.Id, vector)
		if err != nil {
			p.logger.Warn("failed to retrieve context, extracting without it",
				"document", doc.Id, "segment", seg.Id, "err", err)
			contexts = nil
		}

		candidates, err := p.extractor.ExtractRules(ctx, seg.Content, contexts)
		if err != nil {
			p.logger.Warn("skipping segment after rule extraction failure",
				"document", doc.Id, "segment", seg.Id, "err", err)
			skipped++
			continue
		}

		now := core.NormalizeTime(time.Now())
		for _, candidate := range candidates {
			rules = append(rules, &core.Rule{
				OrgId:           doc.OrgId,
				PolicyId:        doc.Id,
				SourceSegmentId: seg.Id,
				RuleText:        candidate.RuleText,
				Category:        candidate.Category,
				Severity:        core.ParseSeverity(candidate.Severity),
				CreatedAt:       now,
			})
		}
	}

	if len(rules) > 0 {
		if _, err := p.repos.Rules.AddRules(ctx, rules...); err != nil {
			p.fail(ctx, documentID, "rules", err)
			return
		}
	}

	if _, err := p.repos.Documents.UpdateDocumentStatus(ctx, documentID, core.StatusRuled, prep.note); err != nil {
		p.logger.Error("failed to record ruled status", "document", documentID, "err", err)
		return
	}
	if _, err := p.repos.Documents.UpdateDocumentStatus(ctx, documentID, core.StatusCompleted, prep.note); err != nil {
		p.logger.Error("failed to record completed status", "document", documentID, "err", err)
		return
	}

	p.logger.Info("policy processed",
		"document", documentID,
		"segments", len(prep.segments),
		"rules", len(rules),
		"skipped_segments", skipped)
}

// contextTexts retrieves the most similar policy segments to serve as
// extraction context, excluding the segment itself.
func (p *Pipeline) contextTexts(ctx context.Context, orgID, segmentID core.ID, vector []float32) ([]string, error) {
	matches, err := p.repos.Embeddings.QuerySimilar(ctx, orgID, vector, p.contextSegments, core.KindPolicy)
	if err != nil {
		return nil, err
	}

	var texts []string
	for _, match := range matches {
		if match.Record.SegmentId == segmentID {
			continue
		}
		seg, err := p.repos.Segments.GetSegment(ctx, match.Record.SegmentId)
		if err != nil {
			// Index may reference segments superseded mid-run; use the preview.
			texts = append(texts, match.Record.Preview)
			continue
		}
		texts = append(texts, seg.Content)
	}
	return texts, nil
}
