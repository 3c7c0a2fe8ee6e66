package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FileType string

const (
	FileTypePDF   FileType = "PDF"
	FileTypeText  FileType = "TEXT"
	FileTypeVideo FileType = "VIDEO"
)

type File struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID   uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:ux_file_owner_checksum,priority:1;column:owner_id" json:"owner_id"`
	ProjectID *uuid.UUID `gorm:"type:uuid;index;column:project_id" json:"project_id,omitempty"`

	Title       string   `gorm:"not null;column:title" json:"title"`
	Description string   `gorm:"type:text;column:description" json:"description"`
	Category    string   `gorm:"column:category" json:"category"`
	Type        FileType `gorm:"type:varchar(16);not null;column:type" json:"type"`

	StorageKey string `gorm:"not null;column:storage_key" json:"storage_key"`
	StorageURL string `gorm:"column:storage_url" json:"storage_url"`

	// sha256 over the raw object bytes; the unique index on
	// (owner_id, checksum) is the dedup arbiter.
	Checksum string `gorm:"not null;uniqueIndex:ux_file_owner_checksum,priority:2;column:checksum" json:"checksum"`

	Summary    string         `gorm:"type:text;column:summary" json:"summary"`
	KeyPoints  datatypes.JSON `gorm:"column:key_points" json:"key_points"`
	Transcript *string        `gorm:"type:text;column:transcript" json:"transcript,omitempty"`

	IsPremium  bool   `gorm:"not null;default:false;column:is_premium" json:"is_premium"`
	PriceCents int64  `gorm:"not null;default:0;column:price_cents" json:"price_cents"`
	Currency   string `gorm:"type:varchar(8);not null;default:'USD';column:currency" json:"currency"`

	TotalViews     int64 `gorm:"not null;default:0;column:total_views" json:"total_views"`
	TotalPurchases int64 `gorm:"not null;default:0;column:total_purchases" json:"total_purchases"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (File) TableName() string { return "file" }

// FileView is the append-only view log. It is the source of truth for
// view counts; File.TotalViews is a cached counter maintained in the
// same transaction as the log insert.
type FileView struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FileID   uuid.UUID `gorm:"type:uuid;not null;index;column:file_id" json:"file_id"`
	ViewerID uuid.UUID `gorm:"type:uuid;not null;index;column:viewer_id" json:"viewer_id"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (FileView) TableName() string { return "file_view" }
