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


// Package embed turns document segments into embedding records. Segments are
// embedded in batches; a batch that keeps failing after retries is skipped so
// one bad batch does not sink the whole document.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/verdict/ai"
	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/retry"
)

const (
	// DefaultBatchSize is how many segments go to the embedder per call.
	DefaultBatchSize = 100

	// DefaultMaxAttempts is the per-batch retry budget.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the initial backoff delay between batch retries.
	DefaultBaseDelay = time.Second

	// previewLength caps the text excerpt carried on each embedding record.
	previewLength = 200
)

// ErrEmbedderRequired indicates a client was created without an embedder.
var ErrEmbedderRequired = errors.New("embedder is required")

// Client generates embedding records for segments.
type Client struct {
	embedder    ai.Embedder
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBatchSize sets the segments-per-call batch size.
// Values below 1 fall back to the default.
func WithBatchSize(size int) Option {
	return func(c *Client) {
		if size >= 1 {
			c.batchSize = size
		}
	}
}

// WithRetry sets the per-batch retry budget and base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts >= 1 {
			c.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates an embedding client around the given embedder.
func NewClient(embedder ai.Embedder, opts ...Option) (*Client, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	c := &Client{
		embedder:    embedder,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		logger:      slog.Default().With("component", "embed"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Result reports the outcome of embedding one document's segments.
type Result struct {
	// Records holds one embedding record per successfully embedded segment.
	Records []*core.EmbeddingRecord

	// TotalBatches is how many batches were attempted.
	TotalBatches int

	// FailedBatches is how many batches were skipped after exhausting retries.
	FailedBatches int
}

// Partial reports whether some, but not all, batches failed.
func (r *Result) Partial() bool {
	return r.FailedBatches > 0 && r.FailedBatches < r.TotalBatches
}

// AllFailed reports whether every attempted batch failed.
func (r *Result) AllFailed() bool {
	return r.TotalBatches > 0 && r.FailedBatches == r.TotalBatches
}

// EmbedSegments embeds a document's segments in batches and returns the
// resulting records. Vectors are normalized to unit length so similarity
// reduces to a dot product. Batch failures are recorded in the result, not
// returned as an error; only context cancellation fails the call.
func (c *Client) EmbedSegments(ctx context.Context, doc *core.Document, segments []*core.Segment) (*Result, error) {
	result := &Result{Records: make([]*core.EmbeddingRecord, 0, len(segments))}

	for start := 0; start < len(segments); start += c.batchSize {
		end := min(start+c.batchSize, len(segments))
		batch := segments[start:end]
		result.TotalBatches++

		texts := make([]string, len(batch))
		for i, seg := range batch {
			texts[i] = seg.Content
		}

		var vectors [][]float32
		err := retry.Do(ctx, func() error {
			var embedErr error
			vectors, embedErr = c.embedder.EmbedTexts(ctx, texts)
			if embedErr != nil {
				return embedErr
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
			}
			return nil
		}, c.maxAttempts, c.baseDelay, true)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("batch failed after retries",
				"document", doc.Id,
				"batch_start", start,
				"batch_size", len(batch),
				"err", err)
			result.FailedBatches++
			continue
		}

		for i, seg := range batch {
			result.Records = append(result.Records, &core.EmbeddingRecord{
				SegmentId:  seg.Id,
				DocumentId: doc.Id,
				OrgId:      doc.OrgId,
				Kind:       doc.Kind,
				Preview:    preview(seg.Content),
				Vector:     NormalizeVector(vectors[i]),
			})
		}
	}

	c.logger.Debug("embedded document segments",
		"document", doc.Id,
		"segments", len(segments),
		"records", len(result.Records),
		"failed_batches", result.FailedBatches)

	return result, nil
}

// preview returns the leading excerpt of segment content stored alongside
// the vector for display in search results.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength])
}
