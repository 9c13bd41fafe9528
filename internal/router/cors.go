package router

import (
	"net/http"

	"AthleteAPI/internal/config"
)

// withCORS adds CORS headers and answers preflight requests.
func withCORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			originValue, varyOrigin := resolveAllowOrigin(cfg, r.Header.Get("Origin"))
			if originValue != "" {
				h.Set("Access-Control-Allow-Origin", originValue)
			}
			if varyOrigin {
				h.Add("Vary", "Origin")
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// resolveAllowOrigin returns the Access-Control-Allow-Origin value and
// whether it depends on the request origin. Credentials forbid "*", so the
// origin is echoed back instead.
func resolveAllowOrigin(cfg config.CORSConfig, requestOrigin string) (value string, varyOrigin bool) {
	if cfg.AllowsAny() {
		if cfg.AllowCredentials && requestOrigin != "" {
			return requestOrigin, true
		}
		return "*", false
	}
	if requestOrigin != "" && cfg.AllowsOrigin(requestOrigin) {
		return requestOrigin, true
	}
	return "", true
}
