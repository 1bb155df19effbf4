package badger

import (
	"context"
	"testing"

	"github.com/poiesic/verdict/core"
)

func addEmbedding(t *testing.T, repos *MemoryRepositories, orgID, segID, docID core.ID, kind core.DocumentKind, vector []float32) {
	t.Helper()
	err := repos.Embeddings.UpsertEmbeddings(context.Background(), orgID, &core.EmbeddingRecord{
		SegmentId:  segID,
		DocumentId: docID,
		Kind:       kind,
		Vector:     vector,
	})
	if err != nil {
		t.Fatalf("Failed to upsert embedding: %v", err)
	}
}

func TestQuerySimilarOrdering(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	addEmbedding(t, repos, 1, 10, 100, core.KindPolicy, []float32{1, 0, 0})
	addEmbedding(t, repos, 1, 11, 100, core.KindPolicy, []float32{0.9, 0.4359, 0})
	addEmbedding(t, repos, 1, 12, 100, core.KindPolicy, []float32{0, 1, 0})

	matches, err := repos.Embeddings.QuerySimilar(ctx, 1, []float32{1, 0, 0}, 2, core.KindPolicy)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0].Record.SegmentId != 10 {
		t.Fatalf("Expected exact match first, got segment %d", matches[0].Record.SegmentId)
	}
	if matches[1].Record.SegmentId != 11 {
		t.Fatalf("Expected near match second, got segment %d", matches[1].Record.SegmentId)
	}
	if matches[0].Score < matches[1].Score {
		t.Fatal("Expected scores in descending order")
	}
}

func TestQuerySimilarTieBreak(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	// Identical vectors produce identical scores
	addEmbedding(t, repos, 1, 22, 100, core.KindPolicy, []float32{1, 0})
	addEmbedding(t, repos, 1, 20, 100, core.KindPolicy, []float32{1, 0})
	addEmbedding(t, repos, 1, 21, 100, core.KindPolicy, []float32{1, 0})

	matches, err := repos.Embeddings.QuerySimilar(ctx, 1, []float32{1, 0}, 3, core.KindAny)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(matches))
	}
	for i, want := range []core.ID{20, 21, 22} {
		if matches[i].Record.SegmentId != want {
			t.Fatalf("Expected tie break by segment ID: position %d = %d, got %d", i, want, matches[i].Record.SegmentId)
		}
	}
}

func TestQuerySimilarTenantIsolation(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	addEmbedding(t, repos, 1, 10, 100, core.KindPolicy, []float32{1, 0, 0})
	addEmbedding(t, repos, 2, 20, 200, core.KindPolicy, []float32{1, 0, 0})

	matches, err := repos.Embeddings.QuerySimilar(ctx, 1, []float32{1, 0, 0}, 10, core.KindAny)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("Expected only org 1's record, got %d matches", len(matches))
	}
	if matches[0].Record.SegmentId != 10 {
		t.Fatalf("Got record from wrong organization: segment %d", matches[0].Record.SegmentId)
	}
}

func TestQuerySimilarEmptyNamespace(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	matches, err := repos.Embeddings.QuerySimilar(context.Background(), 42, []float32{1, 0}, 5, core.KindAny)
	if err != nil {
		t.Fatalf("Expected empty result without error, got %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("Expected 0 matches, got %d", len(matches))
	}
}

func TestQuerySimilarKindFilter(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	addEmbedding(t, repos, 1, 10, 100, core.KindPolicy, []float32{1, 0})
	addEmbedding(t, repos, 1, 11, 101, core.KindAudit, []float32{1, 0})

	policyOnly, err := repos.Embeddings.QuerySimilar(ctx, 1, []float32{1, 0}, 10, core.KindPolicy)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(policyOnly) != 1 || policyOnly[0].Record.Kind != core.KindPolicy {
		t.Fatalf("Expected only policy records, got %v", policyOnly)
	}

	all, err := repos.Embeddings.QuerySimilar(ctx, 1, []float32{1, 0}, 10, core.KindAny)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected both kinds with KindAny, got %d", len(all))
	}
}

func TestUpsertReplacesAndDeleteByDocument(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	addEmbedding(t, repos, 1, 10, 100, core.KindPolicy, []float32{1, 0})
	// Upsert with the same segment ID replaces the record
	addEmbedding(t, repos, 1, 10, 100, core.KindPolicy, []float32{0, 1})
	addEmbedding(t, repos, 1, 11, 101, core.KindPolicy, []float32{1, 0})

	count, err := repos.Embeddings.CountByOrg(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 records after upsert, got %d", count)
	}

	matches, err := repos.Embeddings.QuerySimilar(ctx, 1, []float32{0, 1}, 1, core.KindAny)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if matches[0].Record.SegmentId != 10 {
		t.Fatal("Expected replaced vector to win the query")
	}

	if err := repos.Embeddings.DeleteByDocument(ctx, 1, 100); err != nil {
		t.Fatalf("Failed to delete by document: %v", err)
	}
	count, err = repos.Embeddings.CountByOrg(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 record after delete, got %d", count)
	}
}
