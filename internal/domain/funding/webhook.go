package funding

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/pkg/errorhandler"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/metrics"
	"github.com/quickbills/billpay-api/internal/pkg/paystack"
	"github.com/quickbills/billpay-api/internal/pkg/response"
)

const maxWebhookBytes = 1 << 20

// Publisher hands a verified event to the queue.
type Publisher interface {
	Publish(ctx context.Context, messageID string, body []byte) error
}

// WebhookHandler authenticates gateway callbacks and applies or enqueues them.
type WebhookHandler struct {
	secret     string
	reconciler *Reconciler
	publisher  Publisher
}

// NewWebhookHandler handles events inline when publisher is nil.
func NewWebhookHandler(secret string, reconciler *Reconciler, publisher Publisher) *WebhookHandler {
	return &WebhookHandler{secret: secret, reconciler: reconciler, publisher: publisher}
}

// ServeHTTP handles POST /webhooks/paystack
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		response.BadRequest(w, "Could not read body")
		return
	}

	if !paystack.VerifySignature(h.secret, body, r.Header.Get(paystack.SignatureHeader)) {
		metrics.FundingTotal.WithLabelValues("webhook", "rejected").Inc()
		errorhandler.HandleError(ctx, w, ledger.ErrSignatureInvalid, "", "paystack webhook")
		return
	}

	var event paystack.Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error().Err(err).Msg("undecodable webhook payload dropped")
		response.OK(w, map[string]bool{"received": true})
		return
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, messageID(event), body); err == nil {
			response.OK(w, map[string]bool{"received": true})
			return
		}
		log.Warn().Err(err).Str("event", event.Event).Msg("queue unavailable, handling webhook inline")
	}

	err = h.reconciler.HandleEvent(ctx, event)
	switch {
	case err == nil:
		response.OK(w, map[string]bool{"received": true})
	case IsPermanent(err):
		log.Error().Err(err).Str("event", event.Event).Msg("webhook event dropped")
		response.OK(w, map[string]bool{"received": true})
	default:
		errorhandler.HandleError(ctx, w, err, "", "paystack webhook")
	}
}

// messageID identifies an event for queue deduplication and logs.
func messageID(e paystack.Event) string {
	var ref struct {
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(e.Data, &ref); err != nil || ref.Reference == "" {
		return e.Event
	}
	return e.Event + ":" + ref.Reference
}
