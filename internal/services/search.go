package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/communityvault/backend/internal/clients/openai"
	"github.com/communityvault/backend/internal/clients/pinecone"
	"github.com/communityvault/backend/internal/platform/apierr"
	"github.com/communityvault/backend/internal/platform/logger"
)

const defaultSearchTopK = 6

// SearchHit is one semantic match from the caller's vault namespace.
type SearchHit struct {
	FileID   string         `json:"fileId"`
	Score    float64        `json:"score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Reference points an assistant answer back at a source file.
type Reference struct {
	FileID string  `json:"fileId"`
	Score  float64 `json:"score"`
}

type Answer struct {
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
}

// SearchService answers semantic queries over a user's vault. All
// lookups are scoped to the user's own vector namespace.
type SearchService interface {
	Query(ctx context.Context, userID uuid.UUID, query string, topK int) ([]SearchHit, error)
	Ask(ctx context.Context, userID uuid.UUID, question string) (*Answer, error)
}

type searchService struct {
	log     *logger.Logger
	ai      openai.Client
	vectors pinecone.VectorStore
}

func NewSearchService(log *logger.Logger, ai openai.Client, vectors pinecone.VectorStore) SearchService {
	return &searchService{
		log:     log.With("service", "SearchService"),
		ai:      ai,
		vectors: vectors,
	}
}

func (s *searchService) Query(ctx context.Context, userID uuid.UUID, query string, topK int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apierr.BadRequest("empty_query", fmt.Errorf("query required"))
	}
	if topK <= 0 {
		topK = defaultSearchTopK
	}

	embeddings, err := s.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.vectors.QueryMatches(ctx, userID.String(), embeddings[0], topK, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		content, _ := m.Metadata["content"].(string)
		hits = append(hits, SearchHit{
			FileID:   m.ID,
			Score:    m.Score,
			Content:  content,
			Metadata: m.Metadata,
		})
	}
	return hits, nil
}

func (s *searchService) Ask(ctx context.Context, userID uuid.UUID, question string) (*Answer, error) {
	hits, err := s.Query(ctx, userID, question, defaultSearchTopK)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&b, "Source %d (File %s, score %.2f):\n%s\n\n", i+1, hit.FileID, hit.Score, hit.Content)
	}

	answer, err := s.ai.GenerateText(ctx,
		"You are Community Vault's AI copilot. Answer clearly, cite sources when relevant, and say so when the vault holds no relevant information.",
		fmt.Sprintf("Context:\n%s\nQuestion: %s", b.String(), question),
	)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	references := make([]Reference, 0, len(hits))
	for _, hit := range hits {
		references = append(references, Reference{FileID: hit.FileID, Score: hit.Score})
	}

	return &Answer{Answer: strings.TrimSpace(answer), References: references}, nil
}
