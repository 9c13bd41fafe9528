package auth

import (
	"net/http"
	"strings"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/logger"
)

// ErrorWriter renders an auth failure; the router passes the API's JSON writer.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware validates the bearer token and stores its claims in the context.
// A nil validator means auth is disabled and every request passes through.
func Middleware(v *JWTValidator, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := BearerToken(r)
			if !ok {
				fail(w, r, apperr.Unauthorized("Missing or invalid authorization header"))
				return
			}
			claims, err := v.ValidateToken(token)
			if err != nil {
				logger.Debug("auth_rejected", map[string]any{
					"path":  r.URL.Path,
					"error": err.Error(),
				})
				fail(w, r, apperr.Unauthorized("Unauthorized access"))
				return
			}
			ctx := WithToken(WithClaims(r.Context(), claims), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
