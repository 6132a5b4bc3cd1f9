package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pledgekit/patronage/common/dedupe"
	"github.com/pledgekit/patronage/common/event"
	"github.com/pledgekit/patronage/common/logger"
	"github.com/pledgekit/patronage/common/reconcile"
	"github.com/pledgekit/patronage/common/signature"
)

// Platform webhook headers.
const (
	HeaderSignature = "X-Patreon-Signature"
	HeaderEvent     = "X-Patreon-Event"
)

// WebhookHandler receives platform deliveries, gates them on the signature,
// and hands normalized events to the reconcile queue.
type WebhookHandler struct {
	verifier *signature.Verifier
	queue    *reconcile.Queue
	dedupe   *dedupe.Suppressor // nil when dedupe is disabled
	log      *logger.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(verifier *signature.Verifier, queue *reconcile.Queue, dd *dedupe.Suppressor, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		queue:    queue,
		dedupe:   dd,
		log:      log,
	}
}

// Receive handles one webhook delivery
// POST /webhook
func (h *WebhookHandler) Receive(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "could not read request body",
		})
	}

	// The signature gate runs before anything touches the payload.
	if !h.verifier.Verify(body, c.Request().Header.Get(HeaderSignature)) {
		h.log.Warn("webhook signature verification failed")
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error": "signature verification failed",
		})
	}

	eventType := c.Request().Header.Get(HeaderEvent)
	if eventType == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "missing " + HeaderEvent + " header",
		})
	}

	if h.dedupe != nil && h.dedupe.Seen(ctx, body) {
		h.log.Info("duplicate delivery suppressed", "event_type", eventType)
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "duplicate",
		})
	}

	ev, err := event.Normalize(eventType, body)
	if err != nil {
		var nerr *event.NormalizationError
		if errors.As(err, &nerr) && nerr.Reason == event.MissingUsername {
			// Redelivery cannot conjure a username, so this is acknowledged
			// and dropped rather than bounced back for a retry loop.
			h.log.Warn("delivery dropped", "event_type", eventType, "reason", nerr.Reason, "detail", nerr.Detail)
			return c.JSON(http.StatusOK, map[string]interface{}{
				"status": "dropped",
				"reason": string(nerr.Reason),
			})
		}
		h.log.Warn("delivery rejected", "event_type", eventType, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "malformed payload",
		})
	}

	if ev.Kind == event.Ignored {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "ignored",
			"event":  eventType,
		})
	}

	if err := h.queue.Submit(ctx, ev); err != nil {
		if errors.Is(err, reconcile.ErrStoreUnavailable) {
			// 5xx so the platform retries the delivery with its own backoff.
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"error": "patron store unavailable",
			})
		}
		h.log.Error("failed to apply event", "event_type", eventType, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "internal error",
		})
	}

	// Recorded only after a successful apply: a delivery that bounced with a
	// 5xx must stay retryable, not get swallowed as a duplicate.
	if h.dedupe != nil {
		h.dedupe.Record(ctx, body)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          "success",
		"event_processed": eventType,
	})
}
