package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/truckwell/dispatch-voice-service/internal/services/webhook"
	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// WebhookProcessor consumes provider lifecycle events.
type WebhookProcessor interface {
	Process(ctx context.Context, event webhook.Event) error
}

// WebhookHandler receives lifecycle events pushed by the voice provider.
type WebhookHandler struct {
	processor WebhookProcessor
	rateLimit float64
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(processor WebhookProcessor, rateLimit float64) *WebhookHandler {
	return &WebhookHandler{processor: processor, rateLimit: rateLimit}
}

// SetupRoutes registers the webhook ingress route. The provider authenticates
// by URL secrecy, not by API key, so the route sits outside the keyed subrouter.
func (h *WebhookHandler) SetupRoutes(router *mux.Router) {
	webhookRouter := router.PathPrefix("/api/webhooks").Subrouter()
	webhookRouter.Use(CORSMiddleware)
	webhookRouter.Use(RateLimitMiddleware(h.rateLimit))
	webhookRouter.HandleFunc("/retell", h.HandleRetellWebhook).Methods("POST")
}

// HandleRetellWebhook processes a provider event delivery. The response is
// always 200 with a {"status": ...} body: delivery is at-least-once and
// local idempotence is imperfect, so the provider must never be induced to
// retry by a failure status.
func (h *WebhookHandler) HandleRetellWebhook(w http.ResponseWriter, r *http.Request) {
	var event webhook.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		logger.Base().Error("Failed to decode webhook payload", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": "invalid payload",
		})
		return
	}

	logger.Base().Info("Webhook received",
		zap.String("event", event.Event),
		zap.String("call_id", event.CallID))

	if err := h.processor.Process(r.Context(), event); err != nil {
		logger.Base().Error("Webhook processing failed",
			zap.String("event", event.Event),
			zap.String("call_id", event.CallID),
			zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
