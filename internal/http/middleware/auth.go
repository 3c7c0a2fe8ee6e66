package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/http/response"
	"github.com/communityvault/backend/internal/platform/ctxutil"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/services"
)

const currentUserKey = "currentUser"

// One month; refreshed on every authenticated request.
const sessionCookieMaxAge = 30 * 24 * 60 * 60

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), authService: authService}
}

// RequireAuth resolves the caller via the identity resolver chain
// (Whop iframe token, then session cookie, then dev fallback) and
// refreshes the session cookie.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("x-whop-user-token")
		cookie, _ := c.Cookie(services.SessionCookieName)

		user, err := am.authService.ResolveUser(c.Request.Context(), token, cookie)
		if err != nil {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
			c.Abort()
			return
		}

		if cookie != user.ID.String() {
			SetSessionCookie(c, user.ID.String())
		}

		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID: user.ID,
			Role:   string(user.Role),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// SetSessionCookie writes the session cookie. SameSite=None because the
// app renders inside the Whop iframe.
func SetSessionCookie(c *gin.Context, userID string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(services.SessionCookieName, userID, sessionCookieMaxAge, "/", "", true, true)
}

// CurrentUser returns the user resolved by RequireAuth.
func CurrentUser(c *gin.Context) *domain.User {
	val, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := val.(*domain.User)
	return user
}
