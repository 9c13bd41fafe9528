package handler

import (
	"context"
	"net/http"

	"AthleteAPI/internal/resource"

	"github.com/go-chi/chi/v5"
)

// Analyzer is the AI service as seen by the handlers.
type Analyzer interface {
	MockSummary(ctx context.Context) (any, error)
	Process(ctx context.Context, payload any) (any, error)
}

type AthleteHandler struct {
	profiles *resource.Resource
	ai       Analyzer
}

func NewAthleteHandler(profiles *resource.Resource, ai Analyzer) *AthleteHandler {
	return &AthleteHandler{profiles: profiles, ai: ai}
}

// Summary answers {data: {profile, summary}}; {id} is the user id of the profile.
func (h *AthleteHandler) Summary(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.FindBy(r.Context(), "user_id", chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	summary, err := h.ai.MockSummary(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, Data{Data: map[string]any{
		"profile": profile,
		"summary": summary,
	}})
}
