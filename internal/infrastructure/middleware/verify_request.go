package middleware

import (
	"net/http"
	"net/url"
	"time"

	"shopify-app-gateway/internal/application"
	"shopify-app-gateway/internal/domain"
	"shopify-app-gateway/internal/infrastructure/cookies"
	"shopify-app-gateway/internal/ports"
	"shopify-app-gateway/pkg/appclient"

	"github.com/rs/zerolog"
)

// SessionCookieName holds the signed session id between requests.
const SessionCookieName = "shopify_app_session"

// VerifyRequest resolves the caller's session before any proxied handler
// runs. A missing, expired or orphaned session does not redirect (an HTTP
// redirect cannot escape the embedding iframe); instead the response is
// stamped with the reauthorization headers and the client-side fetch
// wrapper performs the top-level navigation.
func VerifyRequest(
	store ports.SessionStore,
	registry *application.ShopRegistry,
	signer *cookies.Signer,
	logger zerolog.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shop := r.URL.Query().Get("shop")

			session := resolveSession(r, store, signer)
			if session != nil {
				shop = session.Shop
			}

			if session == nil || session.Expired(time.Now()) || !registry.IsActive(session.Shop) {
				logger.Debug().
					Str("shop", shop).
					Str("path", r.URL.Path).
					Msg("No valid session, signaling reauthorization")
				signalReauthorize(w, shop)
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithSession(r.Context(), session)))
		})
	}
}

// resolveSession loads the session named by the signed cookie, or nil.
func resolveSession(r *http.Request, store ports.SessionStore, signer *cookies.Signer) *domain.Session {
	id, ok := signer.Read(r, SessionCookieName)
	if !ok {
		return nil
	}
	session, err := store.Load(r.Context(), id)
	if err != nil {
		// ErrSessionNotFound is the normal "re-authenticate" outcome;
		// backend failures degrade into the same path rather than a crash.
		return nil
	}
	return session
}

// signalReauthorize stamps the reauthorization headers and ends the
// request. 403 keeps XHR callers from following anything; the fetch
// wrapper owns the navigation.
func signalReauthorize(w http.ResponseWriter, shop string) {
	authURL := appclient.DefaultAuthPath
	if shop != "" {
		authURL += "?shop=" + url.QueryEscape(shop)
	}
	w.Header().Set(appclient.ReauthorizeHeader, "1")
	w.Header().Set(appclient.ReauthorizeURLHeader, authURL)
	w.WriteHeader(http.StatusForbidden)
}
