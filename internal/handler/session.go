package handler

import (
	"net/http"

	"AthleteAPI/internal/validation"

	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	ai Analyzer
}

func NewSessionHandler(ai Analyzer) *SessionHandler {
	return &SessionHandler{ai: ai}
}

// Finalize validates the session payload and forwards it to the AI service
// with user_id set to the path id.
func (h *SessionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req validation.FinalizeSessionRequest
	if err := readBody(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		WriteError(w, r, err)
		return
	}
	req.UserID = chi.URLParam(r, "id")

	data, err := h.ai.Process(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, Data{Data: data})
}
