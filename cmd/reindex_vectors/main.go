package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/communityvault/backend/internal/app"
	"github.com/communityvault/backend/internal/clients/pinecone"
	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/repos"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// Rebuilds the vector index from the database, one owner namespace at
// a time. Run after changing the embedding model or losing an index.
func main() {
	var owners idList
	var dryRun bool
	var limit int
	flag.Var(&owners, "owner", "owner user id to reindex (repeatable)")
	flag.BoolVar(&dryRun, "dry-run", false, "print planned upserts without writing")
	flag.IntVar(&limit, "limit", 0, "limit number of files per owner")
	flag.Parse()

	if len(owners) == 0 {
		fmt.Println("at least one -owner is required")
		os.Exit(1)
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	for _, raw := range owners {
		ownerID, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil || ownerID == uuid.Nil {
			fmt.Printf("skipping invalid owner id %q\n", raw)
			continue
		}
		if err := reindexOwner(ctx, application, ownerID, dryRun, limit); err != nil {
			fmt.Printf("owner %s: %v\n", ownerID, err)
			os.Exit(1)
		}
	}
}

func reindexOwner(ctx context.Context, application *app.App, ownerID uuid.UUID, dryRun bool, limit int) error {
	files, err := application.Repos.File.ListByOwner(ctx, nil, ownerID, repos.FileListFilter{})
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	fmt.Printf("owner %s: %d files\n", ownerID, len(files))

	for _, f := range files {
		if dryRun {
			fmt.Printf("  would reindex %s (%s)\n", f.ID, f.Title)
			continue
		}
		emb, err := application.Clients.Openai.Embed(ctx, []string{embedText(f)})
		if err != nil {
			return fmt.Errorf("embed file %s: %w", f.ID, err)
		}
		err = application.Clients.Vectors.Upsert(ctx, ownerID.String(), []pinecone.Vector{{
			ID:     f.ID.String(),
			Values: emb[0],
			Metadata: map[string]any{
				"title":    f.Title,
				"category": f.Category,
				"summary":  f.Summary,
				"type":     string(f.Type),
			},
		}})
		if err != nil {
			return fmt.Errorf("upsert file %s: %w", f.ID, err)
		}
		fmt.Printf("  reindexed %s (%s)\n", f.ID, f.Title)
	}
	return nil
}

func embedText(f *domain.File) string {
	parts := []string{f.Title, f.Description, f.Summary}
	var keyPoints []string
	if len(f.KeyPoints) > 0 {
		if err := json.Unmarshal(f.KeyPoints, &keyPoints); err == nil {
			parts = append(parts, strings.Join(keyPoints, "\n"))
		}
	}
	return strings.Join(parts, "\n\n")
}
