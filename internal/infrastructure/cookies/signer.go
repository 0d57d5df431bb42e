package cookies

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// Signer signs and verifies cookie values with HMAC-SHA256, keyed by the
// app's API secret. Tampered or unsigned values never resolve.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns "value.signature" with a URL-safe base64 MAC.
func (s *Signer) Sign(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	return value + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify splits a signed value and recomputes the MAC with a constant-time
// compare. Returns the original value and whether the signature held.
func (s *Signer) Verify(signed string) (string, bool) {
	idx := strings.LastIndexByte(signed, '.')
	if idx < 0 {
		return "", false
	}
	value, sig := signed[:idx], signed[idx+1:]
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	if !hmac.Equal(got, mac.Sum(nil)) {
		return "", false
	}
	return value, true
}

// Set writes a signed, httpOnly cookie scoped to the top-level document.
// SameSite=None is required for the cookie to survive the cross-site OAuth
// redirect chain back from the platform.
func (s *Signer) Set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    s.Sign(value),
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// Read resolves and verifies a signed cookie. The second return is false
// when the cookie is absent or its signature does not hold.
func (s *Signer) Read(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	return s.Verify(c.Value)
}

// Clear expires a cookie immediately. Used to enforce single-use state.
func (s *Signer) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
