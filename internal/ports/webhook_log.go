package ports

import (
	"context"

	"shopify-app-gateway/internal/domain"
)

// WebhookLog defines the interface for the webhook event audit trail.
type WebhookLog interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}
