package handler

import (
	"context"
	"net/http"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/auth"
	"AthleteAPI/internal/logger"
	"AthleteAPI/internal/upstream"
	"AthleteAPI/internal/validation"
)

// Authenticator signs a user in with email and password.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*upstream.Session, error)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{auth: a}
}

// Login answers {data: {...user, token}}.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req validation.LoginRequest
	if err := readBody(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := validation.ValidateStruct(&req); err != nil {
		WriteError(w, r, err)
		return
	}

	session, err := h.auth.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		if apperr.Status(err) == http.StatusUnauthorized {
			logger.Info("login_failed", map[string]any{"email": req.Email})
		}
		WriteError(w, r, err)
		return
	}

	user := make(map[string]any, len(session.User)+1)
	for k, v := range session.User {
		user[k] = v
	}
	user["token"] = session.AccessToken
	logger.Info("login", map[string]any{"user_id": user["id"]})
	writeJSON(w, r, http.StatusOK, Data{Data: user})
}

// Me answers {token, user} from the verified bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperr.Unauthorized("Unauthorized access"))
		return
	}
	token, _ := auth.TokenFromContext(r.Context())
	writeJSON(w, r, http.StatusOK, map[string]any{
		"token": token,
		"user":  claims,
	})
}
