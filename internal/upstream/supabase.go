package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/config"

	"github.com/goccy/go-json"
)

// Session is the part of the Supabase token response the API hands back.
type Session struct {
	AccessToken  string         `json:"access_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	RefreshToken string         `json:"refresh_token"`
	User         map[string]any `json:"user"`
}

// SupabaseAuth signs users in against Supabase GoTrue.
type SupabaseAuth struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func NewSupabaseAuth(cfg config.UpstreamConfig) *SupabaseAuth {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SupabaseAuth{
		baseURL: cfg.SupabaseURL,
		anonKey: cfg.SupabaseAnonKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// SignInWithPassword runs the password grant. Rejected credentials are
// Unauthorized with Supabase's message; anything else is an upstream error.
func (s *SupabaseAuth) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if s.baseURL == "" {
		return nil, apperr.Upstream("supabase", errors.New("SUPABASE_URL is not configured"))
	}
	raw, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}

	url := s.baseURL + "/auth/v1/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build supabase request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+s.anonKey)

	res, err := s.http.Do(req)
	if err != nil {
		return nil, apperr.Upstream("supabase", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apperr.Upstream("supabase", err)
	}

	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode >= 400 && res.StatusCode < 500:
		return nil, apperr.Unauthorized(errorMessage(data))
	default:
		return nil, apperr.Upstream("supabase", fmt.Errorf("status %d", res.StatusCode))
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apperr.Upstream("supabase", fmt.Errorf("decode session: %w", err))
	}
	return &session, nil
}

// errorMessage picks the human readable field; GoTrue versions differ.
func errorMessage(body []byte) string {
	var payload struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, m := range []string{payload.ErrorDescription, payload.Msg, payload.Message} {
			if m != "" {
				return m
			}
		}
	}
	return "Invalid login credentials"
}
