package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/verdict/core"
	"github.com/poiesic/verdict/storage"
)

func TestDocumentBasics(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	doc := &core.Document{
		OrgId:    1,
		Kind:     core.KindPolicy,
		Filename: "security-policy.pdf",
		FileSize: 1024,
	}

	added, err := repos.Documents.AddDocument(ctx, doc)
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	if added.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if added.Status != core.StatusUploaded {
		t.Fatalf("Expected uploaded status, got %v", added.Status)
	}
	if added.UploadedAt.IsZero() {
		t.Fatal("Expected UploadedAt to be set")
	}

	retrieved, err := repos.Documents.GetDocument(ctx, added.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Filename != "security-policy.pdf" {
		t.Fatalf("Expected 'security-policy.pdf', got '%s'", retrieved.Filename)
	}
	if retrieved.Kind != core.KindPolicy {
		t.Fatalf("Expected policy kind, got %v", retrieved.Kind)
	}
}

func TestDocumentNotFound(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	_, err = repos.Documents.GetDocument(context.Background(), 9999)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestDocumentStatusTransitions(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	doc, err := repos.Documents.AddDocument(ctx, &core.Document{
		OrgId:    1,
		Kind:     core.KindPolicy,
		Filename: "policy.pdf",
	})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	// Walk the happy path
	for _, status := range []core.DocumentStatus{
		core.StatusProcessing,
		core.StatusEmbedded,
		core.StatusRuled,
		core.StatusCompleted,
	} {
		doc, err = repos.Documents.UpdateDocumentStatus(ctx, doc.Id, status, "")
		if err != nil {
			t.Fatalf("Failed transition to %v: %v", status, err)
		}
		if doc.Status != status {
			t.Fatalf("Expected status %v, got %v", status, doc.Status)
		}
	}

	// Completed documents cannot fail
	_, err = repos.Documents.UpdateDocumentStatus(ctx, doc.Id, core.StatusFailed, "nope")
	if !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition, got %v", err)
	}

	// But can be reset for reprocessing
	doc, err = repos.Documents.UpdateDocumentStatus(ctx, doc.Id, core.StatusUploaded, "")
	if err != nil {
		t.Fatalf("Failed reset to uploaded: %v", err)
	}
	if doc.Status != core.StatusUploaded {
		t.Fatalf("Expected uploaded, got %v", doc.Status)
	}
}

func TestDocumentFailureReason(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	doc, err := repos.Documents.AddDocument(ctx, &core.Document{
		OrgId:    1,
		Kind:     core.KindAudit,
		Filename: "broken.pdf",
	})
	if err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	doc, err = repos.Documents.UpdateDocumentStatus(ctx, doc.Id, core.StatusFailed, "stage=extract: not parseable")
	if err != nil {
		t.Fatalf("Failed transition to failed: %v", err)
	}
	if doc.FailureReason != "stage=extract: not parseable" {
		t.Fatalf("Expected failure reason recorded, got '%s'", doc.FailureReason)
	}

	// Reason clears when the document is reset
	doc, err = repos.Documents.UpdateDocumentStatus(ctx, doc.Id, core.StatusUploaded, "")
	if err != nil {
		t.Fatalf("Failed reset: %v", err)
	}
	if doc.FailureReason != "" {
		t.Fatalf("Expected cleared failure reason, got '%s'", doc.FailureReason)
	}
}

func TestListDocumentsByOrg(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	for _, doc := range []*core.Document{
		{OrgId: 1, Kind: core.KindPolicy, Filename: "p1.pdf"},
		{OrgId: 1, Kind: core.KindAudit, Filename: "a1.pdf"},
		{OrgId: 2, Kind: core.KindPolicy, Filename: "other-org.pdf"},
	} {
		if _, err := repos.Documents.AddDocument(ctx, doc); err != nil {
			t.Fatalf("Failed to add document: %v", err)
		}
	}

	all, err := repos.Documents.ListDocumentsByOrg(ctx, 1, core.KindAny)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 documents for org 1, got %d", len(all))
	}

	policies, err := repos.Documents.ListDocumentsByOrg(ctx, 1, core.KindPolicy)
	if err != nil {
		t.Fatalf("Failed to list policies: %v", err)
	}
	if len(policies) != 1 || policies[0].Filename != "p1.pdf" {
		t.Fatalf("Expected only p1.pdf, got %v", policies)
	}

	empty, err := repos.Documents.ListDocumentsByOrg(ctx, 3, core.KindAny)
	if err != nil {
		t.Fatalf("Failed to list empty org: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("Expected no documents for org 3, got %d", len(empty))
	}
}
