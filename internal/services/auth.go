package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communityvault/backend/internal/clients/whop"
	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/platform/apierr"
	"github.com/communityvault/backend/internal/platform/envutil"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/repos"
)

// SessionCookieName is the cookie carrying the resolved local user id.
const SessionCookieName = "comvault_user_id"

const devWhopUserID = "dev_local_user"

// AuthService resolves the acting user for a request. Resolution order:
// signed Whop iframe token, then session cookie, then (when
// DEV_AUTH_FALLBACK=true) a local dev user.
type AuthService interface {
	ResolveUser(ctx context.Context, whopToken, sessionUserID string) (*domain.User, error)
}

type authService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
	whop     whop.Client
	devAuth  bool
}

func NewAuthService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, whopClient whop.Client) AuthService {
	return &authService{
		db:       db,
		log:      log.With("service", "AuthService"),
		userRepo: userRepo,
		whop:     whopClient,
		devAuth:  envutil.Bool("DEV_AUTH_FALLBACK", false),
	}
}

func (s *authService) ResolveUser(ctx context.Context, whopToken, sessionUserID string) (*domain.User, error) {
	if strings.TrimSpace(whopToken) != "" {
		user, err := s.resolveFromToken(ctx, whopToken)
		if err == nil {
			return user, nil
		}
		s.log.Warn("whop token resolution failed", "error", err)
	}

	if strings.TrimSpace(sessionUserID) != "" {
		user, err := s.resolveFromSession(ctx, sessionUserID)
		if err == nil {
			return user, nil
		}
		s.log.Warn("session cookie resolution failed", "error", err)
	}

	if s.devAuth {
		return s.resolveDevUser(ctx)
	}

	return nil, apierr.Unauthorized(fmt.Errorf("no valid credentials on request"))
}

func (s *authService) resolveFromToken(ctx context.Context, token string) (*domain.User, error) {
	whopUserID, err := s.whop.VerifyUserToken(token)
	if err != nil {
		return nil, err
	}

	// Profile fetch failure does not fail auth; the token already
	// proved identity, so upsert with whatever we have.
	var profile *whop.User
	if p, err := s.whop.GetUser(ctx, whopUserID); err != nil {
		s.log.Warn("whop profile fetch failed", "whop_user_id", whopUserID, "error", err)
	} else {
		profile = p
	}

	incoming := &domain.User{
		WhopUserID: whopUserID,
		Role:       MapWhopRole(profile),
	}
	if profile != nil {
		incoming.Name = firstNonEmpty(profile.Name, profile.Username)
		incoming.Email = profile.Email
		incoming.AvatarURL = profile.AvatarURL
	}

	return s.userRepo.UpsertByWhopUserID(ctx, nil, incoming)
}

func (s *authService) resolveFromSession(ctx context.Context, sessionUserID string) (*domain.User, error) {
	userID, err := uuid.Parse(strings.TrimSpace(sessionUserID))
	if err != nil {
		return nil, fmt.Errorf("malformed session cookie: %w", err)
	}
	return s.userRepo.GetByID(ctx, nil, userID)
}

func (s *authService) resolveDevUser(ctx context.Context) (*domain.User, error) {
	user, err := s.userRepo.UpsertByWhopUserID(ctx, nil, &domain.User{
		WhopUserID: devWhopUserID,
		Name:       "Dev User",
		Role:       domain.RoleCreator,
	})
	if err != nil {
		return nil, apierr.Unauthorized(fmt.Errorf("dev fallback user: %w", err))
	}
	s.log.Warn("resolved dev fallback user", "user_id", user.ID)
	return user, nil
}

// MapWhopRole maps the role strings on a Whop profile onto the local
// role set: admin wins over creator/owner, everything else is a viewer.
func MapWhopRole(profile *whop.User) domain.UserRole {
	if profile == nil {
		return domain.RoleViewer
	}

	labels := make([]string, 0, len(profile.Roles)+1)
	for _, r := range profile.Roles {
		labels = append(labels, strings.ToLower(strings.TrimSpace(r)))
	}
	labels = append(labels, strings.ToLower(strings.TrimSpace(profile.Type)))

	role := domain.RoleViewer
	for _, label := range labels {
		switch label {
		case "admin":
			return domain.RoleAdmin
		case "creator", "owner":
			role = domain.RoleCreator
		}
	}
	return role
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
