package badger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/storage"
)

func makeSegments(docID core.ID, n int) []*core.Segment {
	segments := make([]*core.Segment, n)
	for i := 0; i < n; i++ {
		segments[i] = &core.Segment{
			DocumentId: docID,
			Index:      i,
			Content:    fmt.Sprintf("segment %d content", i),
			TokenCount: 3,
		}
	}
	return segments
}

func TestReplaceSegmentsAndGet(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	added, err := repos.Segments.ReplaceSegments(ctx, 7, makeSegments(7, 3))
	if err != nil {
		t.Fatalf("Failed to replace segments: %v", err)
	}
	for _, s := range added {
		if s.Id == 0 {
			t.Fatal("Expected non-zero segment ID")
		}
	}

	got, err := repos.Segments.GetSegmentsByDocument(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to get segments: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(got))
	}
	for i, s := range got {
		if s.Index != i {
			t.Fatalf("Expected index %d at position %d, got %d", i, i, s.Index)
		}
	}

	single, err := repos.Segments.GetSegment(ctx, added[1].Id)
	if err != nil {
		t.Fatalf("Failed to get segment: %v", err)
	}
	if single.Content != "segment 1 content" {
		t.Fatalf("Unexpected content: %s", single.Content)
	}
}

func TestReplaceSegmentsSupersedes(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	first, err := repos.Segments.ReplaceSegments(ctx, 7, makeSegments(7, 5))
	if err != nil {
		t.Fatalf("Failed first replace: %v", err)
	}

	// Reprocessing yields fewer segments; all old ones must be gone
	_, err = repos.Segments.ReplaceSegments(ctx, 7, makeSegments(7, 2))
	if err != nil {
		t.Fatalf("Failed second replace: %v", err)
	}

	got, err := repos.Segments.GetSegmentsByDocument(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to get segments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 segments after replacement, got %d", len(got))
	}

	_, err = repos.Segments.GetSegment(ctx, first[4].Id)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected old segment to be deleted, got %v", err)
	}
}

func TestDeleteSegmentsByDocument(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	if _, err := repos.Segments.ReplaceSegments(ctx, 7, makeSegments(7, 3)); err != nil {
		t.Fatalf("Failed to replace segments: %v", err)
	}
	if _, err := repos.Segments.ReplaceSegments(ctx, 8, makeSegments(8, 2)); err != nil {
		t.Fatalf("Failed to replace segments: %v", err)
	}

	if err := repos.Segments.DeleteSegmentsByDocument(ctx, 7); err != nil {
		t.Fatalf("Failed to delete segments: %v", err)
	}

	got, err := repos.Segments.GetSegmentsByDocument(ctx, 7)
	if err != nil {
		t.Fatalf("Failed to get segments: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Expected 0 segments, got %d", len(got))
	}

	// Other documents untouched
	other, err := repos.Segments.GetSegmentsByDocument(ctx, 8)
	if err != nil {
		t.Fatalf("Failed to get segments: %v", err)
	}
	if len(other) != 2 {
		t.Fatalf("Expected 2 segments for doc 8, got %d", len(other))
	}
}
