package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/communityvault/backend/internal/domain"
	"github.com/communityvault/backend/internal/http/middleware"
	"github.com/communityvault/backend/internal/http/response"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/services"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{log: log.With("handler", "AuthHandler"), authService: authService}
}

// EstablishSession resolves the caller from the Whop iframe headers and
// sets the session cookie. Client code calls this once after the Whop
// SDK initializes.
func (h *AuthHandler) EstablishSession(c *gin.Context) {
	user, err := h.resolve(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no whop authentication on request"))
		return
	}

	middleware.SetSessionCookie(c, user.ID.String())
	response.RespondOK(c, gin.H{
		"success": true,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// SessionStatus reports whether the request carries a live session.
func (h *AuthHandler) SessionStatus(c *gin.Context) {
	user, err := h.resolve(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	response.RespondOK(c, gin.H{
		"authenticated": true,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Validate re-runs the resolver chain and refreshes the cookie.
func (h *AuthHandler) Validate(c *gin.Context) {
	user, err := h.resolve(c)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
		return
	}

	middleware.SetSessionCookie(c, user.ID.String())
	response.RespondOK(c, gin.H{
		"success": true,
		"user":    gin.H{"id": user.ID, "name": user.Name, "role": user.Role},
	})
}

func (h *AuthHandler) resolve(c *gin.Context) (*domain.User, error) {
	token := c.GetHeader("x-whop-user-token")
	cookie, _ := c.Cookie(services.SessionCookieName)
	return h.authService.ResolveUser(c.Request.Context(), token, cookie)
}
