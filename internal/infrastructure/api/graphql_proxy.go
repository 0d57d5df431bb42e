package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"shopify-app-gateway/internal/domain"
	"shopify-app-gateway/pkg/appclient"

	"github.com/rs/zerolog"
)

// GraphQLProxy forwards POST /graphql to the shop's admin GraphQL endpoint
// with the session's access token. Pure pass-through: body and status come
// back unchanged. The one piece of logic it owns is the reauthorization
// signal — when the upstream rejects the token, the response is forwarded
// as-is but stamped with the headers the client fetch wrapper consumes.
type GraphQLProxy struct {
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewGraphQLProxy creates the proxy for the given admin API version.
func NewGraphQLProxy(apiVersion string, logger zerolog.Logger) *GraphQLProxy {
	return &GraphQLProxy{
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Handle proxies one GraphQL request. The session is resolved upstream by
// the VerifyRequest middleware.
func (p *GraphQLProxy) Handle(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionFromContext(r.Context())
	if session == nil {
		http.Error(w, "no session", http.StatusForbidden)
		return
	}

	endpoint := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", session.Shop, p.apiVersion)
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, endpoint, r.Body)
	if err != nil {
		http.Error(w, "failed to build upstream request", http.StatusBadGateway)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", session.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error().Err(err).Str("shop", session.Shop).Msg("GraphQL proxy upstream call failed")
		http.Error(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	// A 401/403 upstream means the stored token was invalidated mid-session
	// (scopes changed, app reinstalled). No redirect from here: stamp the
	// signal and let the client escape the iframe top-level.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		w.Header().Set(appclient.ReauthorizeHeader, "1")
		w.Header().Set(appclient.ReauthorizeURLHeader, appclient.DefaultAuthPath+"?shop="+url.QueryEscape(session.Shop))
		p.logger.Warn().
			Str("shop", session.Shop).
			Int("status", resp.StatusCode).
			Msg("Upstream rejected access token, signaling reauthorization")
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to copy upstream response")
	}
}
