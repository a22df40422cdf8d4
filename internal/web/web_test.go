package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"punchclock/internal/config"
	"punchclock/internal/natsbus"
	"punchclock/internal/store"
	"punchclock/internal/tracker"

	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.New(config.StoreConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	svc := tracker.NewService(s, nil, nil)

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	seeds := []struct {
		userID  int64
		name    string
		minutes time.Duration
	}{
		{1, "Alice", 30 * time.Minute},
		{2, "Bob", 50 * time.Minute},
	}
	for i, e := range seeds {
		at := start.Add(time.Duration(i) * time.Hour)
		if _, err := svc.ManualEntry(context.Background(), e.userID, e.name, "work", at, at.Add(e.minutes)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	return NewServer(svc, nil, config.WebConfig{}, "test")
}

func TestHandleActive(t *testing.T) {
	srv := newTestServer(t)

	if _, err := srv.svc.StartWork(3, "Carol", "deploy"); err != nil {
		t.Fatalf("start work: %v", err)
	}

	w := httptest.NewRecorder()
	srv.handleActive(w, httptest.NewRequest("GET", "/api/active", nil))

	var sessions []tracker.Session
	if err := json.NewDecoder(w.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 1 || sessions[0].DisplayName != "Carol" {
		t.Errorf("unexpected active sessions: %+v", sessions)
	}
}

func TestHandleTop(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.handleTop(w, httptest.NewRequest("GET", "/api/top?n=1", nil))

	var top []tracker.RankedUser
	if err := json.NewDecoder(w.Body).Decode(&top); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(top) != 1 || top[0].DisplayName != "Bob" {
		t.Errorf("expected Bob on top, got %+v", top)
	}
}

func TestHandleStats(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.handleStats(w, httptest.NewRequest("GET", "/api/stats?user=1", nil))

	var out struct {
		TotalMinutes float64 `json:"total_minutes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalMinutes != 30 {
		t.Errorf("expected 30 minutes, got %v", out.TotalMinutes)
	}

	// Missing user parameter
	w = httptest.NewRecorder()
	srv.handleStats(w, httptest.NewRequest("GET", "/api/stats", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleExportCSV(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.handleExportCSV(w, httptest.NewRequest("GET", "/api/export.csv", nil))

	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "User,Task,Start Time,End Time,Duration (mins)") {
		t.Errorf("unexpected csv header: %q", strings.SplitN(body, "\n", 2)[0])
	}
	if !strings.Contains(body, "Alice") || !strings.Contains(body, "Bob") {
		t.Error("expected both users in export")
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.Auth = "secret"

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := srv.withAuth(next)

	// No credentials
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/active", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", w.Code)
	}

	// Wrong password
	r := httptest.NewRequest("GET", "/api/active", nil)
	r.SetBasicAuth("", "wrong")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong password, got %d", w.Code)
	}

	// Correct password
	r = httptest.NewRequest("GET", "/api/active", nil)
	r.SetBasicAuth("", "secret")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with password, got %d", w.Code)
	}

	// Static routes stay public
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for static route, got %d", w.Code)
	}
}

func TestCheckPasswordBcrypt(t *testing.T) {
	srv := newTestServer(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("generate hash: %v", err)
	}
	srv.cfg.Auth = string(hash)
	if !srv.checkPassword("secret") {
		t.Error("expected bcrypt hash to match 'secret'")
	}
	if srv.checkPassword("wrong") {
		t.Error("expected mismatch for wrong password")
	}
}

func TestSubscribeEvents(t *testing.T) {
	bus, err := natsbus.New(config.NATSConfig{
		Port:    0, // Random port
		DataDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("create bus: %v", err)
	}
	t.Cleanup(bus.Close)

	srv := newTestServer(t)
	srv.bus = bus
	srv.subscribeEvents()
	if srv.nats == nil {
		t.Fatal("expected nats client after subscribing")
	}
	t.Cleanup(srv.nats.Close)

	pub, err := natsbus.NewClient(bus)
	if err != nil {
		t.Fatalf("create publisher: %v", err)
	}
	defer pub.Close()

	if err := pub.PublishJSON(natsbus.TopicSessionStarted(1), map[string]any{"user_id": 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := pub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	select {
	case ev := <-srv.hub.broadcast:
		if ev.Type != "session" {
			t.Errorf("expected session event, got %q", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session event")
	}
}
