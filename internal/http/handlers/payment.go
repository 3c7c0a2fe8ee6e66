package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/communityvault/backend/internal/clients/whop"
	"github.com/communityvault/backend/internal/http/middleware"
	"github.com/communityvault/backend/internal/http/response"
	"github.com/communityvault/backend/internal/platform/logger"
	"github.com/communityvault/backend/internal/services"
)

type PaymentHandler struct {
	log            *logger.Logger
	paymentService services.PaymentService
	whop           whop.Client
}

func NewPaymentHandler(log *logger.Logger, paymentService services.PaymentService, whopClient whop.Client) *PaymentHandler {
	return &PaymentHandler{
		log:            log.With("handler", "PaymentHandler"),
		paymentService: paymentService,
		whop:           whopClient,
	}
}

type checkoutRequest struct {
	FileID      string `json:"fileId" binding:"required"`
	SuccessPath string `json:"successPath"`
	CancelPath  string `json:"cancelPath"`
}

func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}

	session, err := h.paymentService.CreateCheckout(c.Request.Context(), user.ID, fileID, req.SuccessPath, req.CancelPath)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"id": session.ID, "url": session.URL})
}

// Webhook verifies the x-whop-signature HMAC over the raw body before
// any side effect. A bad signature is a hard 401.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_body", err)
		return
	}

	signature := c.GetHeader("x-whop-signature")
	if !h.whop.VerifyWebhookSignature(raw, signature) {
		h.log.Warn("webhook signature rejected")
		response.RespondError(c, http.StatusUnauthorized, "invalid_signature", fmt.Errorf("invalid signature"))
		return
	}

	var event services.WebhookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), event); err != nil {
		h.log.Error("webhook processing failed", "type", event.Type, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "webhook_failed", fmt.Errorf("webhook processing failed"))
		return
	}

	response.RespondOK(c, gin.H{"received": true})
}
