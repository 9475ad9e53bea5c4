package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/GasCanCharlie/chambers-api/internal/audit"
	"github.com/GasCanCharlie/chambers-api/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	maxTitleLen   = 200
	maxContentLen = 20000
	maxNoteLen    = 2000
	maxAliasLen   = 64
)

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

type createJournalRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleCreateJournalEntry(w http.ResponseWriter, r *http.Request) {
	var req createJournalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "invalid_body", "content is required")
		return
	}
	if len(req.Title) > maxTitleLen || len(req.Content) > maxContentLen {
		respondError(w, http.StatusBadRequest, "invalid_body", "title or content too long")
		return
	}

	content, redacted := audit.RedactPII(req.Content)
	entry, err := s.store.CreateJournalEntry(r.Context(), store.JournalEntry{
		SubjectID: subjectFrom(r),
		Title:     req.Title,
		Content:   content,
		Redacted:  redacted,
	})
	if err != nil {
		audit.L().Error("create journal entry", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not save entry")
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListJournalEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListJournalEntries(r.Context(), subjectFrom(r), listLimit(r))
	if err != nil {
		audit.L().Error("list journal entries", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not list entries")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleGetJournalEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.GetJournalEntry(r.Context(), subjectFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "entry not found")
			return
		}
		audit.L().Error("get journal entry", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not load entry")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteJournalEntry(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteJournalEntry(r.Context(), subjectFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "entry not found")
			return
		}
		audit.L().Error("delete journal entry", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not delete entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createMoodRequest struct {
	Score int    `json:"score"`
	Note  string `json:"note"`
}

func (s *Server) handleCreateMoodLog(w http.ResponseWriter, r *http.Request) {
	var req createMoodRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	if req.Score < 1 || req.Score > 10 {
		respondError(w, http.StatusBadRequest, "invalid_body", "score must be between 1 and 10")
		return
	}
	note := strings.TrimSpace(req.Note)
	if len(note) > maxNoteLen {
		respondError(w, http.StatusBadRequest, "invalid_body", "note too long")
		return
	}
	note, _ = audit.RedactPII(note)

	log, err := s.store.CreateMoodLog(r.Context(), store.MoodLog{
		SubjectID: subjectFrom(r),
		Score:     req.Score,
		Note:      note,
	})
	if err != nil {
		audit.L().Error("create mood log", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not save mood")
		return
	}
	respondJSON(w, http.StatusCreated, log)
}

func (s *Server) handleListMoodLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.ListMoodLogs(r.Context(), subjectFrom(r), listLimit(r))
	if err != nil {
		audit.L().Error("list mood logs", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not list moods")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"moods": logs})
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.store.ListExercises(r.Context())
	if err != nil {
		audit.L().Error("list exercises", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not list exercises")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"exercises": exercises})
}

func (s *Server) handleCompleteExercise(w http.ResponseWriter, r *http.Request) {
	completion, err := s.store.CompleteExercise(r.Context(), subjectFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "exercise not found")
			return
		}
		audit.L().Error("complete exercise", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not record completion")
		return
	}
	respondJSON(w, http.StatusCreated, completion)
}

func (s *Server) handleListCompletions(w http.ResponseWriter, r *http.Request) {
	completions, err := s.store.ListCompletions(r.Context(), subjectFrom(r))
	if err != nil {
		audit.L().Error("list completions", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not list completions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"completions": completions})
}

func (s *Server) handleListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := s.store.ListSpaces(r.Context())
	if err != nil {
		audit.L().Error("list spaces", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not list spaces")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"spaces": spaces})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context(), chi.URLParam(r, "id"), listLimit(r))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "space not found")
			return
		}
		audit.L().Error("list posts", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not list posts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

type createPostRequest struct {
	AuthorAlias string `json:"author_alias"`
	Content     string `json:"content"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}
	req.AuthorAlias = strings.TrimSpace(req.AuthorAlias)
	req.Content = strings.TrimSpace(req.Content)
	if req.AuthorAlias == "" || req.Content == "" {
		respondError(w, http.StatusBadRequest, "invalid_body", "author_alias and content are required")
		return
	}
	if len(req.AuthorAlias) > maxAliasLen || len(req.Content) > maxContentLen {
		respondError(w, http.StatusBadRequest, "invalid_body", "author_alias or content too long")
		return
	}

	content, redacted := audit.RedactPII(req.Content)
	post, err := s.store.CreatePost(r.Context(), store.Post{
		SpaceID:     chi.URLParam(r, "id"),
		AuthorAlias: req.AuthorAlias,
		Content:     content,
		Redacted:    redacted,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "space not found")
			return
		}
		audit.L().Error("create post", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not save post")
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

func (s *Server) handleListReflectionSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListReflectionSessions(r.Context(), subjectFrom(r), listLimit(r))
	if err != nil {
		audit.L().Error("list reflection sessions", "error", err)
		respondError(w, http.StatusInternalServerError, "internal", "could not list sessions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
