package controller

import (
	"io"
	"net/http"

	"github.com/andresrivas/colegio-ledger/internal/application/reconcile"
	"github.com/rs/zerolog/log"
)

// maxWebhookBody caps provider webhook payloads at 256 KiB.
const maxWebhookBody = 256 << 10

// WebhookController receives provider webhook deliveries.
type WebhookController struct {
	coordinator *reconcile.Coordinator
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(coordinator *reconcile.Coordinator) *WebhookController {
	return &WebhookController{coordinator: coordinator}
}

// HandlePaymentProvider handles POST /webhooks/payment-provider.
//
// Any delivery with a valid signature is acknowledged with 200, including
// replays, out-of-order arrivals and unknown event kinds; answering
// anything else would make the provider redeliver forever. Only signature
// failures (400) and non-durable applies (500) are not acknowledged.
func (h *WebhookController) HandlePaymentProvider(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "could not read body", Code: "invalid_body"})
		return
	}

	evt, err := h.coordinator.VerifyAndParse(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Warn().Err(err).Msg("webhook signature rejected")
		writeError(w, err)
		return
	}

	if err := h.coordinator.Apply(r.Context(), evt); err != nil {
		log.Error().Err(err).Str("event_id", evt.ID).Msg("webhook apply failed, provider will redeliver")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal_error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
