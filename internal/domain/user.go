package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleViewer  UserRole = "VIEWER"
	RoleCreator UserRole = "CREATOR"
	RoleAdmin   UserRole = "ADMIN"
)

type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	WhopUserID string    `gorm:"uniqueIndex;not null;column:whop_user_id" json:"whop_user_id"`
	Name       string    `gorm:"column:name" json:"name"`
	Email      string    `gorm:"column:email" json:"email"`
	AvatarURL  string    `gorm:"column:avatar_url" json:"avatar_url"`
	Role       UserRole  `gorm:"type:varchar(16);not null;default:'VIEWER';column:role" json:"role"`

	// Cumulative creator share of settled purchases, in cents.
	EarningsCents int64 `gorm:"not null;default:0;column:earnings_cents" json:"earnings_cents"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
