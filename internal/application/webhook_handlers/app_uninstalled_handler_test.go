package webhook_handlers

import (
	"context"
	"testing"

	"shopify-app-gateway/internal/application"
	"shopify-app-gateway/internal/domain"
	"shopify-app-gateway/internal/infrastructure/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppUninstalledHandlerEvictsShop(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemorySessionStore()
	registry := application.NewShopRegistry()

	// Installed shop with one offline and one online session
	require.NoError(t, store.Store(ctx, &domain.Session{ID: "offline_acme.myshopify.com", Shop: "acme.myshopify.com"}))
	require.NoError(t, store.Store(ctx, &domain.Session{ID: "acme.myshopify.com_42", Shop: "acme.myshopify.com", IsOnline: true}))
	registry.MarkActive("acme.myshopify.com")

	// Unrelated shop stays installed
	require.NoError(t, store.Store(ctx, &domain.Session{ID: "offline_other.myshopify.com", Shop: "other.myshopify.com"}))
	registry.MarkActive("other.myshopify.com")

	handler := NewAppUninstalledHandler(store, registry, zerolog.Nop())
	require.True(t, handler.CanHandle("app/uninstalled"))
	require.False(t, handler.CanHandle("shop/update"))

	err := handler.Handle(ctx, &domain.WebhookEvent{
		Topic:    "app/uninstalled",
		Shop:     "acme.myshopify.com",
		Payload:  []byte(`{"domain":"acme.myshopify.com"}`),
		Verified: true,
	})
	require.NoError(t, err)

	assert.False(t, registry.IsActive("acme.myshopify.com"))
	_, err = store.Load(ctx, "offline_acme.myshopify.com")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = store.Load(ctx, "acme.myshopify.com_42")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.True(t, registry.IsActive("other.myshopify.com"))
	_, err = store.Load(ctx, "offline_other.myshopify.com")
	assert.NoError(t, err)
}

func TestShopUpdateHandler(t *testing.T) {
	handler := NewShopUpdateHandler(zerolog.Nop())
	require.True(t, handler.CanHandle("shop/update"))

	err := handler.Handle(context.Background(), &domain.WebhookEvent{
		Topic:   "shop/update",
		Shop:    "acme.myshopify.com",
		Payload: []byte(`{"name":"Acme","plan_name":"basic"}`),
	})
	assert.NoError(t, err)

	err = handler.Handle(context.Background(), &domain.WebhookEvent{
		Topic:   "shop/update",
		Shop:    "acme.myshopify.com",
		Payload: []byte(`not json`),
	})
	assert.Error(t, err)
}
