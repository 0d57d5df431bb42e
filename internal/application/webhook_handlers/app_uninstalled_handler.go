package webhook_handlers

import (
	"context"

	"shopify-app-gateway/internal/application"
	"shopify-app-gateway/internal/domain"
	"shopify-app-gateway/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler evicts a shop when the merchant removes the app:
// every session for the shop is deleted and the shop is marked inactive in
// the registry, within the same logical operation.
type AppUninstalledHandler struct {
	store    ports.SessionStore
	registry *application.ShopRegistry
	logger   zerolog.Logger
}

// NewAppUninstalledHandler creates the uninstall webhook handler.
func NewAppUninstalledHandler(
	store ports.SessionStore,
	registry *application.ShopRegistry,
	logger zerolog.Logger,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// CanHandle returns true for the uninstall lifecycle topic.
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == application.UninstallTopic
}

// Handle deletes the shop's sessions and deactivates the shop. The stored
// access token is already revoked by the platform at this point, so the
// sessions are dead weight either way.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	deleted, err := h.store.DeleteByShop(ctx, event.Shop)
	if err != nil {
		return err
	}
	h.registry.MarkInactive(event.Shop)

	h.logger.Info().
		Str("shop", event.Shop).
		Int("sessions_deleted", deleted).
		Msg("App uninstalled, shop evicted")
	return nil
}
