package application

import (
	"context"
	"time"

	"shopify-app-gateway/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes verified webhook events for the topics it claims.
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookDispatcher routes verified webhook events to the handlers
// registered at process start. Topic matching is case-sensitive and exact.
type WebhookDispatcher struct {
	handlers      []WebhookHandler
	handleTimeout time.Duration
	logger        zerolog.Logger
}

// NewWebhookDispatcher creates a dispatcher with no registered handlers.
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		handleTimeout: 15 * time.Second,
		logger:        logger,
	}
}

// RegisterHandler adds a handler. Registration happens once at startup;
// the topic set is closed and known upfront.
func (d *WebhookDispatcher) RegisterHandler(h WebhookHandler) {
	d.handlers = append(d.handlers, h)
}

// Dispatch routes the event to its handler. Unknown topics are a no-op:
// the platform retries on non-2xx and an unrecognized-but-harmless topic
// must not trigger retries. Handler failures and timeouts are logged and
// swallowed for the same reason; the acknowledgment happens regardless.
// Only verification failures, which never reach this point, are fatal.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) {
	for _, h := range d.handlers {
		if !h.CanHandle(event.Topic) {
			continue
		}

		handleCtx, cancel := context.WithTimeout(ctx, d.handleTimeout)
		err := h.Handle(handleCtx, event)
		cancel()

		if err != nil {
			d.logger.Error().
				Err(err).
				Str("topic", event.Topic).
				Str("shop", event.Shop).
				Msg("Webhook handler failed")
		}
		return
	}

	d.logger.Debug().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Msg("No handler registered for webhook topic, acknowledging")
}
