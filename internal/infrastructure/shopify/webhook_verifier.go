package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"shopify-app-gateway/internal/domain"
)

// WebhookVerifier checks the X-Shopify-Hmac-SHA256 signature of inbound
// webhooks. This is the primary trust boundary of the system: a request
// that fails here is never routed to a handler.
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Verify recomputes the HMAC-SHA256 over the raw, unparsed body and
// compares it against the base64 header value in constant time.
func (v *WebhookVerifier) Verify(rawBody []byte, hmacHeader string) error {
	expected, err := base64.StdEncoding.DecodeString(hmacHeader)
	if err != nil {
		return &domain.SignatureInvalidError{}
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	if !hmac.Equal(expected, mac.Sum(nil)) {
		return &domain.SignatureInvalidError{}
	}
	return nil
}
