package middleware

import (
	"fmt"
	"net/http"
)

// SecurityHeaders sets the response headers an embedded app needs. The
// frame-ancestors directive allows the app to be framed by its own shop's
// admin and nothing else; requests without a shop parameter fall back to
// denying all framing.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shop := r.URL.Query().Get("shop")

			csp := "frame-ancestors 'none'"
			if shop != "" {
				csp = fmt.Sprintf("frame-ancestors https://%s https://admin.shopify.com", shop)
			}
			w.Header().Set("Content-Security-Policy", csp)
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}
