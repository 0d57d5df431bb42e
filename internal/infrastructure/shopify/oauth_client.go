package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopify-app-gateway/internal/domain"
	"shopify-app-gateway/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

const tokenExchangeTimeout = 10 * time.Second

// OAuthClient adapts the platform's OAuth endpoints to the PlatformClient
// port. Token exchange is a direct HTTP call so the response's granted
// scope and associated user survive; the go-shopify App is used for
// callback HMAC verification and the webhook admin API.
type OAuthClient struct {
	apiKey     string
	apiSecret  string
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewOAuthClient creates a platform client adapter.
func NewOAuthClient(apiKey, apiSecret string, logger zerolog.Logger) *OAuthClient {
	return &OAuthClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		httpClient: &http.Client{Timeout: tokenExchangeTimeout},
		logger:     logger,
	}
}

// AuthorizeURL builds the authorization URL for the handshake begin.
// Online-mode grants carry grant_options[]=per-user so the platform issues
// a user-scoped, expiring token.
func (c *OAuthClient) AuthorizeURL(shop string, scopes []string, state string, online bool) string {
	// The platform expects scopes comma-separated, no spaces.
	q := url.Values{}
	q.Set("client_id", c.apiKey)
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("redirect_uri", c.app.RedirectUrl)
	q.Set("state", state)
	if online {
		q.Set("grant_options[]", "per-user")
	}
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, q.Encode())
}

// SetRedirectURL configures the redirect URI sent with every authorization
// request. Must match the URI registered with the platform.
func (c *OAuthClient) SetRedirectURL(redirectURL string) {
	c.app.RedirectUrl = redirectURL
}

// VerifyCallback checks the hmac parameter the platform appends to the
// callback query. A failed check is treated like a forged request.
func (c *OAuthClient) VerifyCallback(u *url.URL) error {
	ok, err := c.app.VerifyAuthorizationURL(u)
	if err != nil {
		return fmt.Errorf("failed to verify callback signature: %w", err)
	}
	if !ok {
		return &domain.StateMismatchError{Shop: u.Query().Get("shop")}
	}
	return nil
}

// tokenResponse is the wire shape of the token endpoint's reply. The
// associated_user block is present only for online (per-user) grants.
type tokenResponse struct {
	AccessToken    string `json:"access_token"`
	Scope          string `json:"scope"`
	ExpiresIn      int64  `json:"expires_in"`
	AssociatedUser *struct {
		ID int64 `json:"id"`
	} `json:"associated_user"`
}

// ExchangeToken trades the authorization code for an access token at
// https://{shop}/admin/oauth/access_token. Any non-2xx, malformed body,
// or timeout fails closed with a TokenExchangeError.
func (c *OAuthClient) ExchangeToken(ctx context.Context, shop, code string) (*ports.AccessToken, error) {
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, &domain.TokenExchangeError{Shop: shop, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TokenExchangeError{Shop: shop, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &domain.TokenExchangeError{
			Shop: shop,
			Err:  fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, &domain.TokenExchangeError{Shop: shop, Err: fmt.Errorf("malformed token response: %w", err)}
	}
	if tr.AccessToken == "" {
		return nil, &domain.TokenExchangeError{Shop: shop, Err: fmt.Errorf("token response missing access_token")}
	}

	token := &ports.AccessToken{
		Token:     tr.AccessToken,
		ExpiresIn: tr.ExpiresIn,
	}
	if tr.Scope != "" {
		token.Scopes = strings.Split(tr.Scope, ",")
	}
	if tr.AssociatedUser != nil {
		token.AssociatedUserID = tr.AssociatedUser.ID
	}
	return token, nil
}

// RegisterWebhook subscribes address to topic via the admin API.
func (c *OAuthClient) RegisterWebhook(ctx context.Context, shop, accessToken, topic, address string) error {
	client, err := goshopify.NewClient(c.app, shop, accessToken)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	if _, err := client.Webhook.Create(ctx, webhook); err != nil {
		return fmt.Errorf("failed to register webhook %q: %w", topic, err)
	}

	c.logger.Info().
		Str("shop", shop).
		Str("topic", topic).
		Msg("Registered webhook subscription")
	return nil
}

var _ ports.PlatformClient = (*OAuthClient)(nil)
