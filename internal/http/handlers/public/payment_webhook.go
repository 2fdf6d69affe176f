package public

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/courtline/internal/http/response"
	"github.com/courtline/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = 1 << 20

// StripeWebhook Stripe 回调，处理失败时返回非 2xx 以便 Stripe 重试
func (h *Handler) StripeWebhook(c *gin.Context) {
	log := requestLog(c)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Warnw("stripe_webhook_body_read_failed", "error", err)
		response.ErrorWithHTTPStatus(c, http.StatusBadRequest, response.CodeBadRequest, "bad request")
		return
	}
	log.Infow("stripe_webhook_received",
		"client_ip", c.ClientIP(),
		"body_size", len(body),
		"stripe_signature", truncateLogValue(strings.TrimSpace(c.GetHeader("Stripe-Signature"))),
	)

	if err := h.CheckoutService.HandleStripeWebhook(c.Request.Context(), c.Request.Header, body); err != nil {
		switch {
		case errors.Is(err, service.ErrWebhookInvalid), errors.Is(err, service.ErrCheckoutUnavailable):
			log.Warnw("stripe_webhook_rejected", "error", err)
			response.ErrorWithHTTPStatus(c, http.StatusBadRequest, response.CodeBadRequest, service.ErrWebhookInvalid.Error())
		default:
			log.Errorw("stripe_webhook_handle_failed", "error", err)
			response.ErrorWithHTTPStatus(c, http.StatusInternalServerError, response.CodeInternal, "webhook handle failed")
		}
		return
	}
	response.Success(c, gin.H{"received": true})
}

func truncateLogValue(value string) string {
	const limit = 96
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
