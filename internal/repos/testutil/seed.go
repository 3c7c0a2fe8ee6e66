package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, role domain.UserRole) *domain.User {
	tb.Helper()
	id := uuid.New()
	u := &domain.User{
		ID:         id,
		WhopUserID: "user_" + id.String()[:8],
		Name:       "Seed User",
		Email:      fmt.Sprintf("%s@example.com", id.String()[:8]),
		Role:       role,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProject(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) *domain.Project {
	tb.Helper()
	p := &domain.Project{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    "project",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed project: %v", err)
	}
	return p
}

func SeedFile(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, checksum string) *domain.File {
	tb.Helper()
	f := &domain.File{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       "file",
		Description: "seeded file for tests",
		Category:    "general",
		Type:        domain.FileTypeText,
		StorageKey:  fmt.Sprintf("%s/%s.txt", ownerID, checksum[:8]),
		Checksum:    checksum,
		Currency:    "USD",
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed file: %v", err)
	}
	return f
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
