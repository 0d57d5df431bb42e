package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"shopify-app-gateway/internal/domain"

	"github.com/rs/zerolog"
)

// ShopUpdateHandler records shop profile changes (plan, name, email).
type ShopUpdateHandler struct {
	logger zerolog.Logger
}

// NewShopUpdateHandler creates a shop update webhook handler.
func NewShopUpdateHandler(logger zerolog.Logger) *ShopUpdateHandler {
	return &ShopUpdateHandler{logger: logger}
}

// CanHandle returns true for shop profile updates.
func (h *ShopUpdateHandler) CanHandle(topic string) bool {
	return topic == "shop/update"
}

// Handle logs the updated shop profile.
func (h *ShopUpdateHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var shopData map[string]interface{}
	if err := json.Unmarshal(event.Payload, &shopData); err != nil {
		return fmt.Errorf("failed to parse shop update webhook payload: %w", err)
	}

	name, _ := shopData["name"].(string)
	plan, _ := shopData["plan_name"].(string)

	h.logger.Info().
		Str("shop", event.Shop).
		Str("name", name).
		Str("plan", plan).
		Msg("Processing shop update webhook event")
	return nil
}
