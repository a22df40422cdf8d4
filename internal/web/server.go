package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"punchclock/internal/config"
	"punchclock/internal/export"
	"punchclock/internal/natsbus"
	"punchclock/internal/tracker"

	"github.com/nats-io/nats.go"
	"golang.org/x/crypto/bcrypt"
)

//go:embed static
var staticFiles embed.FS

// Server exposes a read-only dashboard over the session tracker: active
// sessions, leaderboard, per-user history and CSV export, plus live session
// events over WebSocket.
type Server struct {
	svc       *tracker.Service
	bus       *natsbus.Bus
	nats      *natsbus.Client
	hub       *Hub
	cfg       config.WebConfig
	version   string
	startedAt time.Time
}

func NewServer(svc *tracker.Service, bus *natsbus.Bus, cfg config.WebConfig, version string) *Server {
	return &Server{
		svc:       svc,
		bus:       bus,
		hub:       NewHub(),
		cfg:       cfg,
		version:   version,
		startedAt: time.Now(),
	}
}

func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	// Forward session events from the bus to WebSocket clients
	s.subscribeEvents()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/active", s.handleActive)
	mux.HandleFunc("GET /api/top", s.handleTop)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("/api/ws", s.handleWebSocket)

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("static fs: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	handler := s.withAuth(mux)
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		if s.nats != nil {
			s.nats.Close()
		}
		server.Close()
	}()

	slog.Info("web server listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") && s.cfg.Auth != "" {
			_, pass, ok := r.BasicAuth()
			if !ok || !s.checkPassword(pass) {
				w.Header().Set("WWW-Authenticate", `Basic realm="punchclock"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// checkPassword accepts either a bcrypt hash or a plaintext password in the
// config. A hash is recognized by its $2 prefix.
func (s *Server) checkPassword(pass string) bool {
	if strings.HasPrefix(s.cfg.Auth, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(s.cfg.Auth), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(s.cfg.Auth), []byte(pass)) == 1
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.svc.Status())
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "n", 10)
	top, err := s.svc.Leaderboard(r.Context(), n)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, top)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil {
		jsonError(w, "missing or invalid user parameter", http.StatusBadRequest)
		return
	}
	n := queryInt(r, "n", 20)

	recs, err := s.svc.History(r.Context(), userID, n)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, recs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil {
		jsonError(w, "missing or invalid user parameter", http.StatusBadRequest)
		return
	}

	total, err := s.svc.Stats(r.Context(), userID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]any{"user_id": userID, "total_minutes": total})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ExportAll(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="work_sessions.csv"`)
	if err := export.WriteCSV(w, records); err != nil {
		slog.Error("csv export failed", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{
		"version":         s.version,
		"uptime_seconds":  int(time.Since(s.startedAt).Seconds()),
		"active_sessions": len(s.svc.Status()),
	})
}

func (s *Server) subscribeEvents() {
	if s.bus == nil {
		return
	}
	client, err := natsbus.NewClient(s.bus)
	if err != nil {
		slog.Error("web server nats client failed", "error", err)
		return
	}
	s.nats = client

	_, err = client.Subscribe(natsbus.TopicSessionsAll, func(msg *nats.Msg) {
		var payload any
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			slog.Warn("invalid session event payload", "error", err)
			return
		}
		s.hub.Broadcast(Event{Type: "session", Payload: payload})
	})
	if err != nil {
		slog.Error("session event subscription failed", "topic", natsbus.TopicSessionsAll, "error", err)
		client.Close()
		s.nats = nil
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
