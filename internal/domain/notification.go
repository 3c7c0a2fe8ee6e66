package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationPurchase   NotificationType = "PURCHASE"
	NotificationNewContent NotificationType = "NEW_CONTENT"
)

type Notification struct {
	ID     uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID        `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	Type   NotificationType `gorm:"type:varchar(32);not null;column:type" json:"type"`

	Payload datatypes.JSON `gorm:"column:payload" json:"payload"`
	ReadAt  *time.Time     `gorm:"column:read_at" json:"read_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
