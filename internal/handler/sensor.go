package handler

import (
	"context"
	"net/http"

	"AthleteAPI/internal/apperr"
	"AthleteAPI/internal/logger"

	"github.com/goccy/go-json"
)

// Publisher puts a raw sensor batch on the relay.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

type SensorHandler struct {
	pub Publisher
}

func NewSensorHandler(pub Publisher) *SensorHandler {
	return &SensorHandler{pub: pub}
}

// Batch relays the body unchanged and echoes it back.
func (h *SensorHandler) Batch(w http.ResponseWriter, r *http.Request) {
	body, err := readRaw(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	logger.Debug("sensor_batch", map[string]any{"bytes": len(body)})

	if err := h.pub.Publish(r.Context(), body); err != nil {
		WriteError(w, r, apperr.Store(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status": "ok",
		"batch":  json.RawMessage(body),
	})
}

func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
