package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/segment"
)

// prepared carries the output of the stages shared by policy and audit runs:
// extraction, segmentation, embedding, and indexing.
type prepared struct {
	doc      *core.Document
	segments []*core.Segment

	// vectors maps segment ID to its normalized embedding. Segments whose
	// batch failed are absent.
	vectors map[core.ID][]float32

	// note is carried through later status updates, e.g. a partial
	// embedding coverage note.
	note string
}

// prepare runs a document through the stages common to both runs and leaves
// it in the embedded status. Returns nil when the run already ended: either
// the document failed, or it held no text and went straight to completed.
func (p *Pipeline) prepare(ctx context.Context, documentID core.ID) *prepared {
	doc, err := p.repos.Documents.GetDocument(ctx, documentID)
	if err != nil {
		p.fail(ctx, documentID, "load", err)
		return nil
	}

	blob, err := p.blobs.Get(ctx, doc.BlobPath)
	if err != nil {
		p.fail(ctx, documentID, "fetch", err)
		return nil
	}

	text, err := p.extractText(blob)
	if err != nil {
		p.fail(ctx, documentID, "extract", err)
		return nil
	}

	segments := p.splitter.Split(doc.Id, text)
	if len(segments) == 0 {
		p.logger.Info("document yielded no text, nothing to process", "document", doc.Id)
		if _, err := p.repos.Documents.UpdateDocumentStatus(ctx, doc.Id, core.StatusCompleted, ""); err != nil {
			p.logger.Error("failed to complete empty document", "document", doc.Id, "err", err)
		}
		return nil
	}

	stats := segment.Statistics(segments)
	p.logger.Info("segmented document",
		"document", doc.Id,
		"segments", stats.Segments,
		"total_tokens", stats.TotalTokens,
		"avg_tokens", stats.AvgTokens,
		"min_tokens", stats.MinTokens,
		"max_tokens", stats.MaxTokens)

	segments, err = p.repos.Segments.ReplaceSegments(ctx, doc.Id, segments)
	if err != nil {
		p.fail(ctx, documentID, "segment", err)
		return nil
	}

	result, err := p.embedClient.EmbedSegments(ctx, doc, segments)
	if err != nil {
		p.fail(ctx, documentID, "embed", err)
		return nil
	}
	if result.AllFailed() {
		p.fail(ctx, documentID, "embed",
			errors.New("all embedding batches failed"))
		return nil
	}

	if err := p.repos.Embeddings.DeleteByDocument(ctx, doc.OrgId, doc.Id); err != nil {
		p.fail(ctx, documentID, "index", err)
		return nil
	}
	if err := p.repos.Embeddings.UpsertEmbeddings(ctx, doc.OrgId, result.Records...); err != nil {
		p.fail(ctx, documentID, "index", err)
		return nil
	}

	reason := ""
	if result.Partial() {
		reason = fmt.Sprintf("embedding partial: %d/%d batches failed",
			result.FailedBatches, result.TotalBatches)
	}
	if _, err := p.repos.Documents.UpdateDocumentStatus(ctx, doc.Id, core.StatusEmbedded, reason); err != nil {
		p.logger.Error("failed to record embedded status", "document", doc.Id, "err", err)
		return nil
	}

	vectors := make(map[core.ID][]float32, len(result.Records))
	for _, record := range result.Records {
		vectors[record.SegmentId] = record.Vector
	}

	return &prepared{
		doc:      doc,
		segments: segments,
		vectors:  vectors,
		note:     reason,
	}
}
