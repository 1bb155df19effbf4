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


// Package segment splits normalized document text into overlapping
// token windows sized for embedding and LLM context.
package segment

import (
	"errors"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/poiesic/verdict/core"
)

const (
	// DefaultWindowTokens is the segment size in tokens.
	DefaultWindowTokens = 500
	// DefaultOverlapTokens is how many tokens consecutive segments share.
	DefaultOverlapTokens = 50

	encodingName = "cl100k_base"
)

var (
	// ErrInvalidWindow indicates a non-positive window size.
	ErrInvalidWindow = errors.New("window must be greater than 0")
	// ErrInvalidOverlap indicates the overlap does not leave a positive stride.
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than window")
)

// Splitter segments text into overlapping token windows.
// Segmentation is deterministic: the same text always yields the same
// segments.
type Splitter struct {
	encoder *tiktoken.Tiktoken
	window  int
	overlap int
}

// NewSplitter creates a Splitter with the given window and overlap sizes.
func NewSplitter(window, overlap int) (*Splitter, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	if overlap < 0 || overlap >= window {
		return nil, ErrInvalidOverlap
	}

	encoder, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encodingName, err)
	}

	return &Splitter{
		encoder: encoder,
		window:  window,
		overlap: overlap,
	}, nil
}

// NewDefaultSplitter creates a Splitter with the default window and overlap.
func NewDefaultSplitter() (*Splitter, error) {
	return NewSplitter(DefaultWindowTokens, DefaultOverlapTokens)
}

// CountTokens returns the number of tokens in text.
func (s *Splitter) CountTokens(text string) int {
	return len(s.encoder.Encode(text, nil, nil))
}

// Split segments text into token windows for a document.
//
// Empty text yields no segments. Text within one window yields a single
// segment holding the whole text. Longer text yields windows advancing by
// window-overlap tokens; every segment except possibly the last holds
// exactly window tokens. Indices are contiguous from 0.
func (s *Splitter) Split(documentID core.ID, text string) []*core.Segment {
	if text == "" {
		return nil
	}

	tokens := s.encoder.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	if len(tokens) <= s.window {
		return []*core.Segment{{
			DocumentId: documentID,
			Index:      0,
			Content:    text,
			TokenCount: len(tokens),
		}}
	}

	stride := s.window - s.overlap
	var segments []*core.Segment
	for start := 0; start < len(tokens); start += stride {
		end := start + s.window
		if end > len(tokens) {
			end = len(tokens)
		}

		segments = append(segments, &core.Segment{
			DocumentId: documentID,
			Index:      len(segments),
			Content:    s.encoder.Decode(tokens[start:end]),
			TokenCount: end - start,
		})

		if end == len(tokens) {
			break
		}
	}

	return segments
}

// Stats summarizes the token counts of a segmented document.
type Stats struct {
	Segments    int
	TotalTokens int
	MinTokens   int
	MaxTokens   int
	AvgTokens   float64
}

// Statistics computes token count statistics over segments.
func Statistics(segments []*core.Segment) Stats {
	if len(segments) == 0 {
		return Stats{}
	}

	stats := Stats{
		Segments:  len(segments),
		MinTokens: segments[0].TokenCount,
	}
	for _, segment := range segments {
		stats.TotalTokens += segment.TokenCount
		if segment.TokenCount < stats.MinTokens {
			stats.MinTokens = segment.TokenCount
		}
		if segment.TokenCount > stats.MaxTokens {
			stats.MaxTokens = segment.TokenCount
		}
	}
	stats.AvgTokens = float64(stats.TotalTokens) / float64(len(segments))
	return stats
}
