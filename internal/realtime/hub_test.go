package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"AthleteAPI/internal/config"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

func startHub(t *testing.T, bus Bus) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(bus, config.CORSConfig{AllowOrigin: "*"})
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubRelaysPublishedBatch(t *testing.T) {
	hub, srv := startHub(t, NewLocalBus())
	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	batch := []byte(`[{"athlete_id":"a1","heart_rate":150}]`)
	if err := hub.Publish(context.Background(), batch); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var got struct {
		Type string           `json:"type"`
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(frame, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []map[string]any{{"athlete_id": "a1", "heart_rate": float64(150)}}
	if got.Type != Channel {
		t.Fatalf("unexpected type %q", got.Type)
	}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	hub, srv := startHub(t, NewLocalBus())
	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	_ = conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

type brokenBus struct{}

func (brokenBus) Publish(context.Context, []byte) error { return nil }
func (brokenBus) Subscribe(context.Context) (<-chan []byte, error) {
	return nil, errors.New("connection refused")
}

func TestServeWSAfterFailedSubscribe(t *testing.T) {
	hub := NewHub(brokenBus{}, config.CORSConfig{AllowOrigin: "*"})
	if err := hub.Run(context.Background()); err == nil {
		t.Fatalf("expected subscribe error")
	}

	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(served)
		hub.ServeWS(w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		_ = conn.Close()
		t.Fatalf("expected handshake to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", resp)
	}

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatalf("ServeWS did not return")
	}
}

func TestServeWSRefusesAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(NewLocalBus(), config.CORSConfig{AllowOrigin: "*"})
	stopped := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after stop, got %d", rec.Code)
	}
}

func TestHubChecksOrigin(t *testing.T) {
	hub := NewHub(NewLocalBus(), config.CORSConfig{AllowOrigin: "http://app.local, http://cbs:3000"})
	check := hub.upgrader.CheckOrigin

	for origin, want := range map[string]bool{
		"":                 true,
		"http://cbs:3000":  true,
		"http://app.local": true,
		"http://evil.test": false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if got := check(req); got != want {
			t.Errorf("origin %q: got %v, want %v", origin, got, want)
		}
	}
}

func TestLocalBusUnsubscribesOnCancel(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := bus.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("subscription not closed")
	}
}

func TestRedisBus(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	bus := NewRedisBus(client)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := bus.Publish(ctx, []byte(`{"n":1}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case got := <-ch:
		if string(got) != `{"n":1}` {
			t.Fatalf("unexpected payload %s", got)
		}
	case <-ctx.Done():
		t.Fatalf("no message received")
	}
}
