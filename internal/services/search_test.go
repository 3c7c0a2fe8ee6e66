package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/communityvault/backend/internal/clients/pinecone"
	"github.com/communityvault/backend/internal/platform/apierr"
	"github.com/communityvault/backend/internal/repos/testutil"
)

func newSearchHarness(t *testing.T, matches []pinecone.VectorMatch) (SearchService, *fakeVectorStore) {
	t.Helper()
	log := testutil.Logger(t)
	vectors := &fakeVectorStore{
		upserts: map[string][]pinecone.Vector{},
		matches: matches,
	}
	ai := &fakeAI{embedDim: 8, textOut: "The launch checklist lives in your onboarding guide."}
	return NewSearchService(log, ai, vectors), vectors
}

func TestQueryScopesToUserNamespace(t *testing.T) {
	userID := uuid.New()
	svc, vectors := newSearchHarness(t, []pinecone.VectorMatch{
		{ID: "file-1", Score: 0.92, Metadata: map[string]any{"content": "launch checklist", "title": "Onboarding"}},
		{ID: "file-2", Score: 0.61, Metadata: map[string]any{"content": "pricing notes"}},
	})

	hits, err := svc.Query(context.Background(), userID, "how do I launch", 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if vectors.lastNamespace != userID.String() {
		t.Fatalf("queried namespace %q, want %q", vectors.lastNamespace, userID)
	}
	if vectors.lastTopK != defaultSearchTopK {
		t.Fatalf("topK = %d, want default %d", vectors.lastTopK, defaultSearchTopK)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].FileID != "file-1" || hits[0].Content != "launch checklist" {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
}

func TestQueryRejectsEmptyQuery(t *testing.T) {
	svc, _ := newSearchHarness(t, nil)

	_, err := svc.Query(context.Background(), uuid.New(), "   ", 5)
	if err == nil {
		t.Fatal("expected error for empty query")
	}
	if apiErr := apierr.From(err); apiErr == nil || apiErr.Code != "empty_query" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAskReturnsAnswerWithReferences(t *testing.T) {
	svc, _ := newSearchHarness(t, []pinecone.VectorMatch{
		{ID: "file-1", Score: 0.88, Metadata: map[string]any{"content": "launch checklist"}},
	})

	answer, err := svc.Ask(context.Background(), uuid.New(), "where is the launch checklist?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(answer.Answer, "onboarding guide") {
		t.Fatalf("unexpected answer: %q", answer.Answer)
	}
	if len(answer.References) != 1 || answer.References[0].FileID != "file-1" {
		t.Fatalf("unexpected references: %+v", answer.References)
	}
}
