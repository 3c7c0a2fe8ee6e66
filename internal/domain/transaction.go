package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is an immutable ledger entry recording one settled
// purchase and its revenue split. All amounts are cents.
type Transaction struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FileID      uuid.UUID `gorm:"type:uuid;not null;index;column:file_id" json:"file_id"`
	PurchaserID uuid.UUID `gorm:"type:uuid;not null;index;column:purchaser_id" json:"purchaser_id"`
	CreatorID   uuid.UUID `gorm:"type:uuid;not null;index;column:creator_id" json:"creator_id"`

	AmountCents int64  `gorm:"not null;column:amount_cents" json:"amount_cents"`
	Currency    string `gorm:"type:varchar(8);not null;column:currency" json:"currency"`

	CreatorShareCents   int64 `gorm:"not null;column:creator_share_cents" json:"creator_share_cents"`
	CommunityShareCents int64 `gorm:"not null;column:community_share_cents" json:"community_share_cents"`
	PlatformShareCents  int64 `gorm:"not null;column:platform_share_cents" json:"platform_share_cents"`

	// Payment id from the commerce provider's webhook event.
	ExternalReference string `gorm:"column:external_reference" json:"external_reference"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Transaction) TableName() string { return "transaction" }
