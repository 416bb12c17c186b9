package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/domain"
	"github.com/MontresTeam/Montres-Ecommerce-Backend-sub000/internal/payment"
	"github.com/gin-gonic/gin"
)

// maxWebhookBody caps webhook payload reads. Provider payloads are a few KB.
const maxWebhookBody = 1 << 20

// readRawBody returns the unmodified request body. Signature verification
// needs the exact bytes the provider signed, so no middleware may touch the
// body before this.
func readRawBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return nil, false
	}
	return body, true
}

// stripeWebhook rejects bad signatures with 400 so Stripe retries with alerts
// firing on the dashboard. Valid events are acknowledged first and reconciled
// in the background.
func (h *handlers) stripeWebhook(c *gin.Context) {
	body, ok := readRawBody(c)
	if !ok {
		return
	}

	ev, err := h.deps.StripeVerifier.Verify(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrUnauthorized) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
			return
		}
		h.logger.Printf("httpserver: stripe webhook parse: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}
	if ev == nil {
		// Authentic but irrelevant event type.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	h.processDetached(*ev)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// tabbyWebhook always acknowledges with 200; Tabby disables endpoints that
// keep failing. The webhook body is only a trigger, the authoritative payment
// state is re-fetched inside Resolve.
func (h *handlers) tabbyWebhook(c *gin.Context) {
	body, ok := readRawBody(c)
	if !ok {
		return
	}

	token := bearerToken(c)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.deps.WebhookTimeout)
		defer cancel()

		ev, err := h.deps.TabbyVerifier.Resolve(ctx, token, body)
		if err != nil {
			h.logger.Printf("httpserver: tabby webhook dropped: %v", err)
			return
		}
		if ev == nil {
			return
		}
		if err := h.deps.Engine.Process(ctx, *ev); err != nil {
			h.logger.Printf("httpserver: tabby reconcile reference=%s: %v", ev.ReferenceID, err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// tamaraWebhook always acknowledges with 200. Invalid tokens are logged and
// dropped rather than bounced.
func (h *handlers) tamaraWebhook(c *gin.Context) {
	body, ok := readRawBody(c)
	if !ok {
		return
	}

	ev, err := h.deps.TamaraVerifier.Verify(bearerToken(c), body)
	if err != nil {
		h.logger.Printf("httpserver: tamara webhook dropped: %v", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	h.processDetached(*ev)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// processDetached runs reconciliation after the webhook has been
// acknowledged, with its own deadline detached from the request.
func (h *handlers) processDetached(ev domain.PaymentEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.deps.WebhookTimeout)
		defer cancel()
		if err := h.deps.Engine.Process(ctx, ev); err != nil {
			h.logger.Printf("httpserver: %s reconcile reference=%s payment=%s: %v",
				ev.Provider, ev.ReferenceID, ev.ProviderPaymentID, err)
		}
	}()
}

func bearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}
