package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. Used when DATABASE_URL is
// unset and throughout the tests.
type MemoryStore struct {
	mu          sync.Mutex
	journal     map[string]JournalEntry
	moods       map[string]MoodLog
	exercises   []Exercise
	completions map[string]ExerciseCompletion
	spaces      []Space
	posts       map[string]Post
	sessions    map[string]ReflectionSession
}

func NewMemoryStore() *MemoryStore {
	now := time.Now().UTC()
	return &MemoryStore{
		journal:     make(map[string]JournalEntry),
		moods:       make(map[string]MoodLog),
		completions: make(map[string]ExerciseCompletion),
		posts:       make(map[string]Post),
		sessions:    make(map[string]ReflectionSession),
		exercises:   seedExercises(),
		spaces: []Space{
			{ID: uuid.NewString(), Slug: "heavy-dockets", Title: "Heavy Dockets", Description: "Caseload pressure and pacing.", CreatedAt: now},
			{ID: uuid.NewString(), Slug: "after-the-verdict", Title: "After the Verdict", Description: "Processing difficult rulings.", CreatedAt: now},
			{ID: uuid.NewString(), Slug: "off-the-bench", Title: "Off the Bench", Description: "Life outside chambers.", CreatedAt: now},
		},
	}
}

func seedExercises() []Exercise {
	return []Exercise{
		{ID: uuid.NewString(), Slug: "box-breathing", Title: "Box Breathing", Body: "Breathe in for four counts, hold for four, out for four, hold for four. Repeat for the full duration.", DurationMinutes: 5},
		{ID: uuid.NewString(), Slug: "recess-reset", Title: "Recess Reset", Body: "Between hearings: stand, roll your shoulders, name three things you can see, hear, and feel.", DurationMinutes: 3},
		{ID: uuid.NewString(), Slug: "end-of-day-ledger", Title: "End-of-day Ledger", Body: "Write one decision you stand behind today and one worry you are setting down until tomorrow.", DurationMinutes: 10},
	}
}

func (s *MemoryStore) CreateJournalEntry(_ context.Context, entry JournalEntry) (JournalEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal[entry.ID] = entry
	return entry, nil
}

func (s *MemoryStore) ListJournalEntries(_ context.Context, subjectID string, limit int) ([]JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []JournalEntry
	for _, e := range s.journal {
		if e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clip(out, limit), nil
}

func (s *MemoryStore) GetJournalEntry(_ context.Context, subjectID, id string) (JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.journal[id]
	if !ok || e.SubjectID != subjectID {
		return JournalEntry{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) DeleteJournalEntry(_ context.Context, subjectID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.journal[id]
	if !ok || e.SubjectID != subjectID {
		return ErrNotFound
	}
	delete(s.journal, id)
	return nil
}

func (s *MemoryStore) CreateMoodLog(_ context.Context, log MoodLog) (MoodLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moods[log.ID] = log
	return log, nil
}

func (s *MemoryStore) ListMoodLogs(_ context.Context, subjectID string, limit int) ([]MoodLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []MoodLog
	for _, m := range s.moods {
		if m.SubjectID == subjectID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clip(out, limit), nil
}

func (s *MemoryStore) ListExercises(_ context.Context) ([]Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Exercise, len(s.exercises))
	copy(out, s.exercises)
	return out, nil
}

func (s *MemoryStore) CompleteExercise(_ context.Context, subjectID, exerciseID string) (ExerciseCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, e := range s.exercises {
		if e.ID == exerciseID {
			found = true
			break
		}
	}
	if !found {
		return ExerciseCompletion{}, ErrNotFound
	}
	c := ExerciseCompletion{
		ID:          uuid.NewString(),
		SubjectID:   subjectID,
		ExerciseID:  exerciseID,
		CompletedAt: time.Now().UTC(),
	}
	s.completions[c.ID] = c
	return c, nil
}

func (s *MemoryStore) ListCompletions(_ context.Context, subjectID string) ([]ExerciseCompletion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ExerciseCompletion
	for _, c := range s.completions {
		if c.SubjectID == subjectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

func (s *MemoryStore) ListSpaces(_ context.Context) ([]Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Space, len(s.spaces))
	copy(out, s.spaces)
	return out, nil
}

func (s *MemoryStore) CreatePost(_ context.Context, post Post) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, sp := range s.spaces {
		if sp.ID == post.SpaceID {
			found = true
			break
		}
	}
	if !found {
		return Post{}, ErrNotFound
	}
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	s.posts[post.ID] = post
	return post, nil
}

func (s *MemoryStore) ListPosts(_ context.Context, spaceID string, limit int) ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Post
	for _, p := range s.posts {
		if p.SpaceID == spaceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return clip(out, limit), nil
}

func (s *MemoryStore) ReflectionStarted(_ context.Context, sessionID, subjectID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = ReflectionSession{ID: sessionID, SubjectID: subjectID, StartedAt: startedAt}
	return nil
}

func (s *MemoryStore) ReflectionEnded(_ context.Context, sessionID, reason string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.EndedAt = &endedAt
	sess.Reason = reason
	s.sessions[sessionID] = sess
	return nil
}

func (s *MemoryStore) ListReflectionSessions(_ context.Context, subjectID string, limit int) ([]ReflectionSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ReflectionSession
	for _, sess := range s.sessions {
		if sess.SubjectID == subjectID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return clip(out, limit), nil
}

func (s *MemoryStore) Close() error { return nil }

func clip[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
