package application

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"shopify-app-gateway/internal/domain"
	"shopify-app-gateway/internal/infrastructure/repository"
	"shopify-app-gateway/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatformClient struct {
	exchangeErr        error
	exchangeToken      *ports.AccessToken
	verifyErr          error
	registeredTopics   []string
	registerWebhookErr error
}

func (f *fakePlatformClient) AuthorizeURL(shop string, scopes []string, state string, online bool) string {
	return fmt.Sprintf("https://%s/admin/oauth/authorize?state=%s", shop, state)
}

func (f *fakePlatformClient) VerifyCallback(u *url.URL) error {
	return f.verifyErr
}

func (f *fakePlatformClient) ExchangeToken(ctx context.Context, shop, code string) (*ports.AccessToken, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	if f.exchangeToken != nil {
		return f.exchangeToken, nil
	}
	return &ports.AccessToken{Token: "shpat_test", Scopes: []string{"read_products"}}, nil
}

func (f *fakePlatformClient) RegisterWebhook(ctx context.Context, shop, accessToken, topic, address string) error {
	if f.registerWebhookErr != nil {
		return f.registerWebhookErr
	}
	f.registeredTopics = append(f.registeredTopics, topic)
	return nil
}

func newTestOAuthService(platform ports.PlatformClient) (*OAuthService, ports.SessionStore, *ShopRegistry) {
	store := repository.NewMemorySessionStore()
	registry := NewShopRegistry()
	svc := NewOAuthService(store, registry, platform, []string{"read_products"}, "https://app.example.com", zerolog.Nop())
	return svc, store, registry
}

func TestBeginAuthRejectsInvalidShop(t *testing.T) {
	svc, _, _ := newTestOAuthService(&fakePlatformClient{})

	_, _, err := svc.BeginAuth("not-a-shop.example.com", false)

	var invalidShop *domain.InvalidShopError
	require.ErrorAs(t, err, &invalidShop)
	assert.Equal(t, "not-a-shop.example.com", invalidShop.Shop)
}

func TestBeginAuthDistinctStates(t *testing.T) {
	svc, _, _ := newTestOAuthService(&fakePlatformClient{})

	// Two concurrent handshakes for the same shop must not collide.
	url1, state1, err := svc.BeginAuth("acme.myshopify.com", true)
	require.NoError(t, err)
	url2, state2, err := svc.BeginAuth("acme.myshopify.com", true)
	require.NoError(t, err)

	assert.NotEqual(t, state1, state2)
	assert.Contains(t, url1, state1)
	assert.Contains(t, url2, state2)
}

func TestCompleteAuthSuccess(t *testing.T) {
	platform := &fakePlatformClient{
		exchangeToken: &ports.AccessToken{
			Token:            "shpat_online",
			Scopes:           []string{"read_products", "write_products"},
			ExpiresIn:        3600,
			AssociatedUserID: 42,
		},
	}
	svc, store, registry := newTestOAuthService(platform)

	session, err := svc.CompleteAuth(context.Background(), CallbackParams{
		Shop:        "acme.myshopify.com",
		Code:        "authcode",
		State:       "nonce",
		CookieState: "nonce",
		Online:      true,
	})
	require.NoError(t, err)

	assert.True(t, registry.IsActive("acme.myshopify.com"))

	loaded, err := store.Load(context.Background(), domain.SessionID("acme.myshopify.com", true, 42))
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, "shpat_online", loaded.AccessToken)
	assert.Equal(t, []string{"read_products", "write_products"}, loaded.Scopes)
	assert.NotNil(t, loaded.Expires)

	assert.Equal(t, []string{UninstallTopic}, platform.registeredTopics)
}

func TestCompleteAuthOffline(t *testing.T) {
	svc, store, _ := newTestOAuthService(&fakePlatformClient{})

	session, err := svc.CompleteAuth(context.Background(), CallbackParams{
		Shop:        "acme.myshopify.com",
		Code:        "authcode",
		State:       "nonce",
		CookieState: "nonce",
		Online:      false,
	})
	require.NoError(t, err)
	assert.Equal(t, "offline_acme.myshopify.com", session.ID)

	loaded, err := store.Load(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.Expires)
}

func TestCompleteAuthStateMismatch(t *testing.T) {
	tests := []struct {
		name        string
		state       string
		cookieState string
	}{
		{"wrong state", "nonce", "different"},
		{"missing query state", "", "nonce"},
		{"consumed cookie", "nonce", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, registry := newTestOAuthService(&fakePlatformClient{})

			_, err := svc.CompleteAuth(context.Background(), CallbackParams{
				Shop:        "acme.myshopify.com",
				Code:        "authcode",
				State:       tt.state,
				CookieState: tt.cookieState,
			})

			var mismatch *domain.StateMismatchError
			require.ErrorAs(t, err, &mismatch)

			// No state mutated on a rejected callback
			assert.False(t, registry.IsActive("acme.myshopify.com"))
			_, err = store.Load(context.Background(), "offline_acme.myshopify.com")
			assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		})
	}
}

func TestCompleteAuthReplayedStateFails(t *testing.T) {
	svc, _, _ := newTestOAuthService(&fakePlatformClient{})

	params := CallbackParams{
		Shop:        "acme.myshopify.com",
		Code:        "authcode",
		State:       "nonce",
		CookieState: "nonce",
	}
	_, err := svc.CompleteAuth(context.Background(), params)
	require.NoError(t, err)

	// The state cookie is cleared on first use; the replay arrives with no
	// cookie nonce and must be rejected, never silently re-accepted.
	params.CookieState = ""
	_, err = svc.CompleteAuth(context.Background(), params)

	var mismatch *domain.StateMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestCompleteAuthTokenExchangeFailure(t *testing.T) {
	platform := &fakePlatformClient{
		exchangeErr: &domain.TokenExchangeError{Shop: "acme.myshopify.com", Err: context.DeadlineExceeded},
	}
	svc, store, registry := newTestOAuthService(platform)

	_, err := svc.CompleteAuth(context.Background(), CallbackParams{
		Shop:        "acme.myshopify.com",
		Code:        "authcode",
		State:       "nonce",
		CookieState: "nonce",
	})

	var exchangeErr *domain.TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)

	// Fails closed: no half-written session, shop not active
	assert.False(t, registry.IsActive("acme.myshopify.com"))
	_, err = store.Load(context.Background(), "offline_acme.myshopify.com")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestCompleteAuthCallbackSignatureFailure(t *testing.T) {
	platform := &fakePlatformClient{
		verifyErr: &domain.StateMismatchError{Shop: "acme.myshopify.com"},
	}
	svc, _, registry := newTestOAuthService(platform)

	u, _ := url.Parse("https://app.example.com/auth/callback?shop=acme.myshopify.com&hmac=forged")
	_, err := svc.CompleteAuth(context.Background(), CallbackParams{
		Shop:        "acme.myshopify.com",
		Code:        "authcode",
		State:       "nonce",
		CookieState: "nonce",
		RequestURL:  u,
	})

	require.Error(t, err)
	assert.False(t, registry.IsActive("acme.myshopify.com"))
}

func TestCompleteAuthWebhookRegistrationFailureDoesNotFailHandshake(t *testing.T) {
	platform := &fakePlatformClient{
		registerWebhookErr: fmt.Errorf("admin api unavailable"),
	}
	svc, _, registry := newTestOAuthService(platform)

	_, err := svc.CompleteAuth(context.Background(), CallbackParams{
		Shop:        "acme.myshopify.com",
		Code:        "authcode",
		State:       "nonce",
		CookieState: "nonce",
	})

	require.NoError(t, err)
	assert.True(t, registry.IsActive("acme.myshopify.com"))
}
