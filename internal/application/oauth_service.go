package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"shopify-app-gateway/internal/domain"
	"shopify-app-gateway/internal/ports"

	"github.com/rs/zerolog"
)

// UninstallTopic is the lifecycle topic every install subscribes to.
const UninstallTopic = "app/uninstalled"

// OAuthService drives the three-legged handshake: begin issues the
// authorization redirect with a fresh state nonce, complete validates the
// callback, exchanges the code for an access token and persists the
// resulting session.
type OAuthService struct {
	store           ports.SessionStore
	registry        *ShopRegistry
	platform        ports.PlatformClient
	scopes          []string
	appURL          string
	exchangeTimeout time.Duration
	logger          zerolog.Logger
}

// NewOAuthService creates the OAuth controller.
func NewOAuthService(
	store ports.SessionStore,
	registry *ShopRegistry,
	platform ports.PlatformClient,
	scopes []string,
	appURL string,
	logger zerolog.Logger,
) *OAuthService {
	return &OAuthService{
		store:           store,
		registry:        registry,
		platform:        platform,
		scopes:          scopes,
		appURL:          appURL,
		exchangeTimeout: 10 * time.Second,
		logger:          logger,
	}
}

// BeginAuth validates the shop domain and returns the authorization URL
// together with the freshly generated state nonce. The caller stores the
// nonce in a signed, top-level cookie before redirecting. Concurrent calls
// for the same shop each get a distinct nonce.
func (s *OAuthService) BeginAuth(shop string, online bool) (authURL, state string, err error) {
	if !domain.ValidShopDomain(shop) {
		return "", "", &domain.InvalidShopError{Shop: shop}
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}
	state = hex.EncodeToString(nonce)

	return s.platform.AuthorizeURL(shop, s.scopes, state, online), state, nil
}

// CallbackParams carries the inputs of the OAuth callback: the query
// parameters plus the state nonce recovered from the signed cookie.
type CallbackParams struct {
	Shop        string
	Code        string
	State       string
	CookieState string
	RequestURL  *url.URL
	Online      bool
}

// CompleteAuth finishes the handshake and returns the persisted session.
// The state comparison is constant-time; a consumed or absent cookie nonce
// fails the same way a forged one does, so a replayed callback is never
// silently re-accepted. The shop is marked active in the registry
// synchronously with the session write.
func (s *OAuthService) CompleteAuth(ctx context.Context, p CallbackParams) (*domain.Session, error) {
	if !domain.ValidShopDomain(p.Shop) {
		return nil, &domain.InvalidShopError{Shop: p.Shop}
	}

	if p.State == "" || p.CookieState == "" ||
		subtle.ConstantTimeCompare([]byte(p.State), []byte(p.CookieState)) != 1 {
		s.logger.Warn().
			Str("shop", p.Shop).
			Msg("OAuth state mismatch, rejecting callback")
		return nil, &domain.StateMismatchError{Shop: p.Shop}
	}

	if p.RequestURL != nil {
		if err := s.platform.VerifyCallback(p.RequestURL); err != nil {
			s.logger.Warn().
				Err(err).
				Str("shop", p.Shop).
				Msg("OAuth callback signature verification failed")
			return nil, err
		}
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, s.exchangeTimeout)
	defer cancel()

	token, err := s.platform.ExchangeToken(exchangeCtx, p.Shop, p.Code)
	if err != nil {
		return nil, err
	}

	session := domain.NewSession(
		p.Shop,
		p.Online,
		token.AssociatedUserID,
		token.Token,
		token.Scopes,
		time.Duration(token.ExpiresIn)*time.Second,
	)

	if err := s.store.Store(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	s.registry.MarkActive(p.Shop)

	// Subscribe to the uninstall lifecycle webhook so the shop is evicted
	// when the merchant removes the app. Best-effort: a failed subscription
	// does not fail the handshake.
	if err := s.platform.RegisterWebhook(ctx, p.Shop, token.Token, UninstallTopic, s.appURL+"/webhooks"); err != nil {
		s.logger.Warn().
			Err(err).
			Str("shop", p.Shop).
			Msg("Failed to register uninstall webhook")
	}

	s.logger.Info().
		Str("shop", p.Shop).
		Bool("online", p.Online).
		Strs("scopes", session.Scopes).
		Msg("OAuth handshake completed")

	return session, nil
}
