// Package handler holds the HTTP handlers of the API.
package handler

import (
	"io"
	"net/http"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/logger"
	"AthleteAPI/internal/validation"

	"github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Data wraps single payloads as {"data": ...}.
type Data struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", map[string]any{
			"endpoint": r.URL.Path,
			"error":    err.Error(),
		})
	}
}

// WriteError renders err with the status of its kind. Internal details are
// logged and never sent to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	fields := map[string]any{
		"endpoint": r.URL.Path,
		"method":   r.Method,
		"status":   status,
		"error":    err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request_failed", fields)
	} else {
		logger.Debug("request_rejected", fields)
	}

	message, details := apperr.Public(err)
	writeJSON(w, r, status, ErrorBody{Error: ErrorDetail{
		Code:    apperr.Code(err),
		Message: message,
		Details: details,
	}})
}

// readBody reads a JSON request body into dst.
func readBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperr.BadRequest(err)
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	return validation.DecodeJSON(body, dst)
}

// readRaw returns the body as is; it must be valid JSON.
func readRaw(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.BadRequest(err)
	}
	if !json.Valid(body) {
		return nil, apperr.Validation("Request body must be valid JSON", nil)
	}
	return body, nil
}
