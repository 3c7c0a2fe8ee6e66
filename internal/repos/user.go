package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/logger"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.User, error)
	GetByWhopUserID(ctx context.Context, tx *gorm.DB, whopUserID string) (*domain.User, error)
	// UpsertByWhopUserID creates the user on first sight and refreshes
	// profile fields on every subsequent call (last-write-wins; empty
	// incoming fields leave the stored value alone).
	UpsertByWhopUserID(ctx context.Context, tx *gorm.DB, incoming *domain.User) (*domain.User, error)
	CreditEarnings(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cents int64) error
	// ListBroadcastTargets returns every user other than excludeID whose
	// role is in roles.
	ListBroadcastTargets(ctx context.Context, tx *gorm.DB, excludeID uuid.UUID, roles []domain.UserRole) ([]*domain.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *userRepo) Create(ctx context.Context, tx *gorm.DB, user *domain.User) (*domain.User, error) {
	if err := r.conn(tx).WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*domain.User, error) {
	var out domain.User
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", userID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) GetByWhopUserID(ctx context.Context, tx *gorm.DB, whopUserID string) (*domain.User, error) {
	var out domain.User
	if err := r.conn(tx).WithContext(ctx).
		Where("whop_user_id = ?", whopUserID).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) UpsertByWhopUserID(ctx context.Context, tx *gorm.DB, incoming *domain.User) (*domain.User, error) {
	conn := r.conn(tx)

	existing, err := r.GetByWhopUserID(ctx, conn, incoming.WhopUserID)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		if createErr := conn.WithContext(ctx).Create(incoming).Error; createErr != nil {
			// A concurrent first-auth can win the insert; fall through to
			// the update path in that case.
			if !IsUniqueViolation(createErr) {
				return nil, createErr
			}
			existing, err = r.GetByWhopUserID(ctx, conn, incoming.WhopUserID)
			if err != nil {
				return nil, err
			}
		} else {
			return incoming, nil
		}
	}

	updates := map[string]any{"role": incoming.Role}
	if incoming.Name != "" {
		updates["name"] = incoming.Name
	}
	if incoming.Email != "" {
		updates["email"] = incoming.Email
	}
	if incoming.AvatarURL != "" {
		updates["avatar_url"] = incoming.AvatarURL
	}
	if err := conn.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, conn, existing.ID)
}

func (r *userRepo) CreditEarnings(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cents int64) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("earnings_cents", gorm.Expr("earnings_cents + ?", cents)).Error
}

func (r *userRepo) ListBroadcastTargets(ctx context.Context, tx *gorm.DB, excludeID uuid.UUID, roles []domain.UserRole) ([]*domain.User, error) {
	var out []*domain.User
	if len(roles) == 0 {
		return out, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("id <> ?", excludeID).
		Where("role IN ?", roles).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
