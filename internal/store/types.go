// Package store persists the platform's relational entities. Audio content
// never passes through this layer.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

// JournalEntry is one private journaling entry, keyed to a pseudonymous
// subject id. Content is PII-redacted before it reaches the store.
type JournalEntry struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"-"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Redacted  bool      `json:"redacted"`
	CreatedAt time.Time `json:"created_at"`
}

// MoodLog is one mood tracking sample on a 1..10 scale.
type MoodLog struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"-"`
	Score     int       `json:"score"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Exercise is one guided exercise from the catalog.
type Exercise struct {
	ID              string `json:"id"`
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	Body            string `json:"body"`
	DurationMinutes int    `json:"duration_minutes"`
}

// ExerciseCompletion records that a subject finished an exercise.
type ExerciseCompletion struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"-"`
	ExerciseID  string    `json:"exercise_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Space is one pseudonymous discussion space.
type Space struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Post is one discussion post; authors appear only by alias.
type Post struct {
	ID          string    `json:"id"`
	SpaceID     string    `json:"space_id"`
	AuthorAlias string    `json:"author_alias"`
	Content     string    `json:"content"`
	Redacted    bool      `json:"redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReflectionSession records the lifecycle of one voice session: when it
// started, when and why it ended. Never any audio.
type ReflectionSession struct {
	ID        string     `json:"id"`
	SubjectID string     `json:"-"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// Store is the persistence boundary for the CRUD side of the platform.
type Store interface {
	CreateJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	ListJournalEntries(ctx context.Context, subjectID string, limit int) ([]JournalEntry, error)
	GetJournalEntry(ctx context.Context, subjectID, id string) (JournalEntry, error)
	DeleteJournalEntry(ctx context.Context, subjectID, id string) error

	CreateMoodLog(ctx context.Context, log MoodLog) (MoodLog, error)
	ListMoodLogs(ctx context.Context, subjectID string, limit int) ([]MoodLog, error)

	ListExercises(ctx context.Context) ([]Exercise, error)
	CompleteExercise(ctx context.Context, subjectID, exerciseID string) (ExerciseCompletion, error)
	ListCompletions(ctx context.Context, subjectID string) ([]ExerciseCompletion, error)

	ListSpaces(ctx context.Context) ([]Space, error)
	CreatePost(ctx context.Context, post Post) (Post, error)
	ListPosts(ctx context.Context, spaceID string, limit int) ([]Post, error)

	ReflectionStarted(ctx context.Context, sessionID, subjectID string, startedAt time.Time) error
	ReflectionEnded(ctx context.Context, sessionID, reason string, endedAt time.Time) error
	ListReflectionSessions(ctx context.Context, subjectID string, limit int) ([]ReflectionSession, error)

	Close() error
}
