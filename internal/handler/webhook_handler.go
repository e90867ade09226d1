package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stayhub/service-rental/internal/common/response"
)

const maxWebhookBody = 1 << 16

// WebhookHandler receives payment provider webhooks. The body is read raw because
// the signature covers the exact bytes.
type WebhookHandler struct {
	service WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(service WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// RegisterRoutes mounts POST /webhook. It is unauthenticated; the signature is the credential.
func (h *WebhookHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/webhook", h.HandleWebhook)
}

// HandleWebhook handles POST /webhook
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, "unable to read request body")
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
