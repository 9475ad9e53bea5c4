package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/GasCanCharlie/chambers-api/internal/auth"
	"github.com/GasCanCharlie/chambers-api/internal/bridge"
	"github.com/GasCanCharlie/chambers-api/internal/config"
	"github.com/GasCanCharlie/chambers-api/internal/observability"
	"github.com/GasCanCharlie/chambers-api/internal/store"
)

type Server struct {
	cfg      config.Config
	store    store.Store
	verifier auth.Verifier
	bridge   *bridge.Bridge
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, st store.Store, verifier auth.Verifier, br *bridge.Bridge, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		verifier: verifier,
		bridge:   br,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections by default; other
				// sites must not be able to drive a judge's session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	// The reflection bridge authenticates in-band over the socket.
	r.Get("/v1/reflect/ws", s.handleReflectWS)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/v1/journal", s.handleCreateJournalEntry)
		r.Get("/v1/journal", s.handleListJournalEntries)
		r.Get("/v1/journal/{id}", s.handleGetJournalEntry)
		r.Delete("/v1/journal/{id}", s.handleDeleteJournalEntry)

		r.Post("/v1/moods", s.handleCreateMoodLog)
		r.Get("/v1/moods", s.handleListMoodLogs)

		r.Get("/v1/exercises", s.handleListExercises)
		r.Post("/v1/exercises/{id}/complete", s.handleCompleteExercise)
		r.Get("/v1/exercises/completions", s.handleListCompletions)

		r.Get("/v1/spaces", s.handleListSpaces)
		r.Get("/v1/spaces/{id}/posts", s.handleListPosts)
		r.Post("/v1/spaces/{id}/posts", s.handleCreatePost)

		r.Get("/v1/reflect/sessions", s.handleListReflectionSessions)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleReflectWS(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "reflection bridge not configured")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.bridge.HandleConn(r.Context(), conn)
}

type subjectKey struct{}

// requireAuth verifies the bearer token and stashes the subject id in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(w, http.StatusUnauthorized, "auth_required", "bearer token required")
			return
		}
		subject, err := s.verifier.Verify(r.Context(), strings.TrimSpace(token))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "auth_failed", "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), subjectKey{}, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func subjectFrom(r *http.Request) string {
	subject, _ := r.Context().Value(subjectKey{}).(string)
	return subject
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
