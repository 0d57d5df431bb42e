package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"shopify-app-gateway/internal/application"
	"shopify-app-gateway/internal/application/webhook_handlers"
	"shopify-app-gateway/internal/domain"
	apiinfra "shopify-app-gateway/internal/infrastructure/api"
	"shopify-app-gateway/internal/infrastructure/cookies"
	securitymiddleware "shopify-app-gateway/internal/infrastructure/middleware"
	"shopify-app-gateway/internal/infrastructure/repository"
	shopifyinfra "shopify-app-gateway/internal/infrastructure/shopify"
	"shopify-app-gateway/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	topLevelCookieName = "shopify_top_level_oauth"
	stateCookieName    = "shopify_oauth_state"
	stateCookieTTL     = 10 * time.Minute
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	apiKey := os.Getenv("SHOPIFY_API_KEY")
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		logger.Fatal().Msg("SHOPIFY_API_KEY and SHOPIFY_API_SECRET environment variables are required")
	}

	appURL := os.Getenv("HOST")
	if appURL == "" {
		appURL = "http://localhost:8081"
	}
	appURL = strings.TrimSuffix(appURL, "/")

	scopes := strings.Split(os.Getenv("SCOPES"), ",")
	if len(scopes) == 1 && scopes[0] == "" {
		scopes = []string{"read_products"}
	}

	useOnlineTokens := os.Getenv("USE_ONLINE_TOKENS") != "false"

	apiVersion := os.Getenv("SHOPIFY_API_VERSION")
	if apiVersion == "" {
		apiVersion = "2024-01"
	}

	// Session storage backend: in-memory for development, Redis when
	// deployed across instances.
	var sessionStore ports.SessionStore
	switch os.Getenv("SESSION_BACKEND") {
	case "redis":
		opts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		sessionStore = repository.NewRedisSessionStore(redis.NewClient(opts))
		logger.Info().Msg("Using Redis session storage")
	default:
		sessionStore = repository.NewMemorySessionStore()
		logger.Warn().Msg("Using in-memory session storage; shops must re-authenticate after a restart")
	}

	// Optional MongoDB-backed webhook audit trail
	var webhookLog ports.WebhookLog = repository.NopWebhookLog{}
	if mongoURI := os.Getenv("MONGODB_URI"); mongoURI != "" {
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())
		webhookLog = repository.NewMongoWebhookLog(client.Database(os.Getenv("MONGODB_DATABASE")))
		logger.Info().Msg("Webhook audit log enabled")
	}

	// Cookie signing shares the API secret, matching the platform's
	// signed-cookie convention.
	signer := cookies.NewSigner(apiSecret)

	// Platform client
	platformClient := shopifyinfra.NewOAuthClient(apiKey, apiSecret, logger)
	platformClient.SetRedirectURL(appURL + "/auth/callback")

	// Process-wide shop registry, empty at start
	shopRegistry := application.NewShopRegistry()

	// OAuth controller
	oauthService := application.NewOAuthService(
		sessionStore,
		shopRegistry,
		platformClient,
		scopes,
		appURL,
		logger,
	)

	// Webhook verification and dispatch
	webhookVerifier := shopifyinfra.NewWebhookVerifier(apiSecret)
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(sessionStore, shopRegistry, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewShopUpdateHandler(logger))

	// Metrics
	metrics := securitymiddleware.NewMetrics(prometheus.DefaultRegisterer)

	// GraphQL pass-through proxy
	graphqlProxy := apiinfra.NewGraphQLProxy(apiVersion, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeaders())
	r.Use(metrics.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// App shell entry: an uninstalled shop is bounced into the OAuth flow
	r.Get("/", rootHandler(shopRegistry))

	// OAuth routes
	r.Get("/auth", authBeginHandler(oauthService, signer, useOnlineTokens, logger))
	r.Get("/auth/toplevel", topLevelHandler(signer))
	r.Get("/auth/callback", authCallbackHandler(oauthService, shopRegistry, signer, metrics, useOnlineTokens, logger))

	// Webhook dispatcher entry
	r.Post("/webhooks", webhookHandler(webhookVerifier, webhookDispatcher, webhookLog, shopRegistry, metrics, logger))

	// Proxied API surface: session resolution and the reauthorization
	// check run before every request
	r.Group(func(r chi.Router) {
		r.Use(securitymiddleware.VerifyRequest(sessionStore, shopRegistry, signer, logger))
		r.Post("/graphql", graphqlProxy.Handle)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	logger.Info().Str("port", port).Str("app_url", appURL).Msg("Starting app gateway")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// rootHandler serves the app shell. The UI itself is rendered elsewhere;
// this gate only decides between the shell and the OAuth flow.
func rootHandler(registry *application.ShopRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop != "" && !registry.IsActive(shop) {
			http.Redirect(w, r, "/auth?shop="+url.QueryEscape(shop), http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<!DOCTYPE html><html><body><div id=\"app\"></div></body></html>")
	}
}

// authBeginHandler starts the handshake. Cookies cannot be set reliably
// from inside the embedded iframe across the OAuth redirect chain, so a
// request without the top-level marker cookie is first bounced to
// /auth/toplevel, which escapes the iframe and sets it.
func authBeginHandler(
	oauthService *application.OAuthService,
	signer *cookies.Signer,
	useOnlineTokens bool,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}

		if _, ok := signer.Read(r, topLevelCookieName); !ok {
			http.Redirect(w, r, "/auth/toplevel?shop="+url.QueryEscape(shop), http.StatusFound)
			return
		}

		authURL, state, err := oauthService.BeginAuth(shop, useOnlineTokens)
		if err != nil {
			var invalidShop *domain.InvalidShopError
			if errors.As(err, &invalidShop) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin OAuth")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		signer.Set(w, stateCookieName, state, stateCookieTTL)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

var topLevelPage = template.Must(template.New("toplevel").Parse(`<!DOCTYPE html>
<html><head><script>
  window.top.location.href = {{.AuthURL}};
</script></head><body></body></html>`))

// topLevelHandler sets the top-level marker cookie and serves a page that
// re-enters /auth from the outermost document.
func topLevelHandler(signer *cookies.Signer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}

		signer.Set(w, topLevelCookieName, "1", stateCookieTTL)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		topLevelPage.Execute(w, map[string]string{
			"AuthURL": "/auth?shop=" + url.QueryEscape(shop),
		})
	}
}

// authCallbackHandler completes the handshake. The state cookie is cleared
// before the exchange is attempted, so a replayed callback always fails.
func authCallbackHandler(
	oauthService *application.OAuthService,
	registry *application.ShopRegistry,
	signer *cookies.Signer,
	metrics *securitymiddleware.Metrics,
	useOnlineTokens bool,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		cookieState, _ := signer.Read(r, stateCookieName)
		signer.Clear(w, stateCookieName)

		session, err := oauthService.CompleteAuth(r.Context(), application.CallbackParams{
			Shop:        q.Get("shop"),
			Code:        q.Get("code"),
			State:       q.Get("state"),
			CookieState: cookieState,
			RequestURL:  r.URL,
			Online:      useOnlineTokens,
		})
		if err != nil {
			writeCallbackError(w, err, metrics, logger)
			return
		}

		metrics.HandshakesCompleted.Inc()
		metrics.ActiveShops.Set(float64(registry.Len()))

		sessionTTL := 24 * time.Hour
		if session.Expires != nil {
			sessionTTL = time.Until(*session.Expires)
		}
		signer.Set(w, securitymiddleware.SessionCookieName, session.ID, sessionTTL)

		redirectURL := fmt.Sprintf("/?shop=%s&host=%s",
			url.QueryEscape(session.Shop),
			url.QueryEscape(q.Get("host")),
		)
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// writeCallbackError maps the handshake error taxonomy onto HTTP statuses.
func writeCallbackError(w http.ResponseWriter, err error, metrics *securitymiddleware.Metrics, logger zerolog.Logger) {
	var (
		invalidShop   *domain.InvalidShopError
		stateMismatch *domain.StateMismatchError
		tokenExchange *domain.TokenExchangeError
	)
	switch {
	case errors.As(err, &invalidShop):
		metrics.HandshakesFailed.WithLabelValues("invalid_shop").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &stateMismatch):
		metrics.HandshakesFailed.WithLabelValues("state_mismatch").Inc()
		http.Error(w, "Invalid OAuth state", http.StatusForbidden)
	case errors.As(err, &tokenExchange):
		metrics.HandshakesFailed.WithLabelValues("token_exchange").Inc()
		logger.Error().Err(err).Msg("Token exchange failed")
		http.Error(w, "Failed to complete installation, please retry from /auth", http.StatusBadGateway)
	default:
		metrics.HandshakesFailed.WithLabelValues("internal").Inc()
		logger.Error().Err(err).Msg("OAuth callback failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// webhookHandler verifies and dispatches platform webhooks. Verification
// is the trust boundary: a failed signature is rejected with 401 and the
// payload never reaches a handler. Everything past verification is
// acknowledged with 2xx, handler failures included, because the platform
// retries on non-2xx and retry storms are worse than a dropped side effect.
func webhookHandler(
	verifier *shopifyinfra.WebhookVerifier,
	dispatcher *application.WebhookDispatcher,
	webhookLog ports.WebhookLog,
	registry *application.ShopRegistry,
	metrics *securitymiddleware.Metrics,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			metrics.WebhooksRejected.WithLabelValues("missing_topic").Inc()
			http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			metrics.WebhooksRejected.WithLabelValues("unreadable_body").Inc()
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		hmacHeader := r.Header.Get("X-Shopify-Hmac-SHA256")
		if err := verifier.Verify(payload, hmacHeader); err != nil {
			metrics.WebhooksRejected.WithLabelValues("invalid_signature").Inc()
			logger.Warn().
				Str("topic", topic).
				Str("remote", r.RemoteAddr).
				Msg("Webhook signature verification failed")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		event := &domain.WebhookEvent{
			ID:         uuid.NewString(),
			Topic:      topic,
			Shop:       r.Header.Get("X-Shopify-Shop-Domain"),
			Payload:    payload,
			Verified:   true,
			ReceivedAt: time.Now(),
		}

		if err := webhookLog.LogWebhook(r.Context(), event); err != nil {
			logger.Error().Err(err).Str("topic", topic).Msg("Failed to log webhook event")
		}

		dispatcher.Dispatch(r.Context(), event)
		metrics.WebhooksDispatched.WithLabelValues(topic).Inc()
		metrics.ActiveShops.Set(float64(registry.Len()))

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"received": "true",
		})
	}
}
