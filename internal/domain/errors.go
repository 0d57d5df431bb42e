package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by session stores when no session exists
// for the requested id. It is a normal outcome, not a failure: callers
// branch on it and route the request back into the OAuth flow.
var ErrSessionNotFound = errors.New("session not found")

// InvalidShopError rejects a malformed shop domain at auth begin.
type InvalidShopError struct {
	Shop string
}

func (e *InvalidShopError) Error() string {
	return fmt.Sprintf("invalid shop domain: %q", e.Shop)
}

// StateMismatchError rejects an OAuth callback whose state parameter does
// not match the issued nonce. Security-relevant: possible request forgery.
type StateMismatchError struct {
	Shop string
}

func (e *StateMismatchError) Error() string {
	return fmt.Sprintf("oauth state mismatch for shop %q", e.Shop)
}

// TokenExchangeError wraps a failed or timed-out call to the platform's
// token endpoint. The handshake fails closed; no session is written.
type TokenExchangeError struct {
	Shop string
	Err  error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed for shop %q: %v", e.Shop, e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// SignatureInvalidError rejects a webhook whose HMAC does not match the
// raw body. Fatal for the request: the payload is never routed to a handler.
type SignatureInvalidError struct {
	Topic string
}

func (e *SignatureInvalidError) Error() string {
	return fmt.Sprintf("webhook signature invalid (topic %q)", e.Topic)
}
