package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreJournalCRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.CreateJournalEntry(ctx, JournalEntry{
		SubjectID: "judge-1",
		Title:     "long day",
		Content:   "sentencing took everything I had",
	})
	if err != nil {
		t.Fatalf("CreateJournalEntry() error = %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("missing generated fields: %+v", created)
	}

	got, err := s.GetJournalEntry(ctx, "judge-1", created.ID)
	if err != nil {
		t.Fatalf("GetJournalEntry() error = %v", err)
	}
	if got.Content != created.Content {
		t.Fatalf("content = %q, want %q", got.Content, created.Content)
	}

	// Another subject must not see or delete the entry.
	if _, err := s.GetJournalEntry(ctx, "judge-2", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-subject get error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteJournalEntry(ctx, "judge-2", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-subject delete error = %v, want ErrNotFound", err)
	}

	if err := s.DeleteJournalEntry(ctx, "judge-1", created.ID); err != nil {
		t.Fatalf("DeleteJournalEntry() error = %v", err)
	}
	if _, err := s.GetJournalEntry(ctx, "judge-1", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListOrderAndLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.CreateJournalEntry(ctx, JournalEntry{
			SubjectID: "judge-1",
			Content:   "entry",
			CreatedAt: time.Unix(int64(1000+i), 0),
		})
		if err != nil {
			t.Fatalf("CreateJournalEntry() error = %v", err)
		}
	}

	items, err := s.ListJournalEntries(ctx, "judge-1", 2)
	if err != nil {
		t.Fatalf("ListJournalEntries() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if !items[0].CreatedAt.After(items[1].CreatedAt) {
		t.Fatalf("entries not newest-first: %v then %v", items[0].CreatedAt, items[1].CreatedAt)
	}
}

func TestMemoryStoreExercises(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	exercises, err := s.ListExercises(ctx)
	if err != nil {
		t.Fatalf("ListExercises() error = %v", err)
	}
	if len(exercises) == 0 {
		t.Fatalf("exercise catalog should be seeded")
	}

	c, err := s.CompleteExercise(ctx, "judge-1", exercises[0].ID)
	if err != nil {
		t.Fatalf("CompleteExercise() error = %v", err)
	}
	if c.ExerciseID != exercises[0].ID {
		t.Fatalf("ExerciseID = %q, want %q", c.ExerciseID, exercises[0].ID)
	}

	if _, err := s.CompleteExercise(ctx, "judge-1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown exercise error = %v, want ErrNotFound", err)
	}

	done, err := s.ListCompletions(ctx, "judge-1")
	if err != nil || len(done) != 1 {
		t.Fatalf("ListCompletions() = (%v, %v), want one completion", done, err)
	}
}

func TestMemoryStorePosts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	spaces, err := s.ListSpaces(ctx)
	if err != nil || len(spaces) == 0 {
		t.Fatalf("ListSpaces() = (%v, %v), want seeded spaces", spaces, err)
	}

	p, err := s.CreatePost(ctx, Post{SpaceID: spaces[0].ID, AuthorAlias: "quiet-gavel", Content: "anyone else dread mondays"})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if p.ID == "" {
		t.Fatalf("post id not generated")
	}

	if _, err := s.CreatePost(ctx, Post{SpaceID: "missing", Content: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown space error = %v, want ErrNotFound", err)
	}

	posts, err := s.ListPosts(ctx, spaces[0].ID, 10)
	if err != nil || len(posts) != 1 {
		t.Fatalf("ListPosts() = (%v, %v), want one post", posts, err)
	}
}

func TestMemoryStoreReflectionSessions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	started := time.Now().UTC()

	if err := s.ReflectionStarted(ctx, "conn-1", "judge-1", started); err != nil {
		t.Fatalf("ReflectionStarted() error = %v", err)
	}
	if err := s.ReflectionEnded(ctx, "conn-1", "Client requested end", started.Add(time.Minute)); err != nil {
		t.Fatalf("ReflectionEnded() error = %v", err)
	}
	if err := s.ReflectionEnded(ctx, "conn-missing", "x", started); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown session error = %v, want ErrNotFound", err)
	}

	sessions, err := s.ListReflectionSessions(ctx, "judge-1", 10)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("ListReflectionSessions() = (%v, %v), want one session", sessions, err)
	}
	if sessions[0].EndedAt == nil || sessions[0].Reason != "Client requested end" {
		t.Fatalf("unexpected session record: %+v", sessions[0])
	}
}
