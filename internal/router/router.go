package router

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"AthleteAPI/internal/auth"
	"AthleteAPI/internal/config"
	"AthleteAPI/internal/handler"
	"AthleteAPI/internal/logger"
	"AthleteAPI/internal/metrics"
	"AthleteAPI/internal/model"
	"AthleteAPI/internal/realtime"
	"AthleteAPI/internal/resource"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the routes are built from.
type Deps struct {
	Config   *config.Config
	Registry *model.Registry
	Store    resource.Store
	JWT      *auth.JWTValidator // nil disables auth
	Auth     handler.Authenticator
	AI       handler.Analyzer
	Hub      *realtime.Hub
}

// New builds the HTTP routes of the API.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(withLogging)
	r.Use(middleware.Recoverer)
	r.Use(withCORS(d.Config.CORS))

	requireAuth := auth.Middleware(d.JWT, handler.WriteError)

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	authHandler := handler.NewAuthHandler(d.Auth)
	r.Route("/auth", func(r chi.Router) {
		r.With(httprate.LimitByIP(d.Config.RateLimit.LoginPerMinute, time.Minute)).Post("/login", authHandler.Login)
		r.With(requireAuth).Get("/me", authHandler.Me)
	})

	sensors := handler.NewSensorHandler(d.Hub)
	r.Post("/sensor-batch", sensors.Batch)
	r.Get("/ws", d.Hub.ServeWS)

	r.Route("/v1", func(r chi.Router) {
		r.Use(requireAuth)

		if profiles, ok := d.Registry.Get("Profile"); ok {
			athletes := handler.NewAthleteHandler(resourceFor(profiles, d.Store), d.AI)
			r.Get("/athlete/{id}/ai/summary", athletes.Summary)
		}
		r.Post("/session/{id}/finalize", handler.NewSessionHandler(d.AI).Finalize)

		for _, m := range d.Registry.Models() {
			r.Route("/"+m.Resource, handler.NewResourceHandler(resourceFor(m, d.Store)).Routes)
			logger.Debug("resource_mounted", map[string]any{
				"model": m.Name,
				"path":  "/v1/" + m.Resource,
			})
		}
	})

	return r
}

func resourceFor(m *model.Model, st resource.Store) *resource.Resource {
	return resource.New(m, st, resource.ValidatorsFor(m.Name))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack is needed by the websocket upgrade on /ws.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

const requestIDHeader = "X-Request-ID"

type ctxKey struct{}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		elapsed := time.Since(start)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(sw.status), elapsed)

		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": elapsed.Milliseconds(),
			"request_id":  requestID(r),
		}
		switch {
		case sw.status >= 500:
			logger.Error("response", fields)
		case sw.status >= 400:
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	})
}
