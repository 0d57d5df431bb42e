package ports

import (
	"context"
	"net/url"
)

// AccessToken is the decoded response of the platform's token endpoint.
// AssociatedUserID is zero for offline tokens.
type AccessToken struct {
	Token            string
	Scopes           []string
	ExpiresIn        int64
	AssociatedUserID int64
}

// PlatformClient defines the outbound calls the OAuth controller makes
// against the host platform.
type PlatformClient interface {
	// AuthorizeURL builds the authorization URL for the handshake begin.
	AuthorizeURL(shop string, scopes []string, state string, online bool) string

	// VerifyCallback checks the HMAC signature of the callback query.
	VerifyCallback(u *url.URL) error

	// ExchangeToken trades the authorization code for an access token.
	ExchangeToken(ctx context.Context, shop, code string) (*AccessToken, error)

	// RegisterWebhook subscribes the given address to a webhook topic.
	RegisterWebhook(ctx context.Context, shop, accessToken, topic, address string) error
}
