package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore persists platform entities in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if err := runMigrations(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// runMigrations applies embedded goose migrations through the pgx stdlib
// driver; the pool itself stays on the native interface.
func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO journal_entries (id, subject_id, title, content, redacted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.SubjectID, entry.Title, entry.Content, entry.Redacted, entry.CreatedAt,
	)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("create journal entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListJournalEntries(ctx context.Context, subjectID string, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject_id, title, content, redacted, created_at
		 FROM journal_entries WHERE subject_id=$1 ORDER BY created_at DESC LIMIT $2`,
		subjectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var items []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Title, &e.Content, &e.Redacted, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetJournalEntry(ctx context.Context, subjectID, id string) (JournalEntry, error) {
	var e JournalEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, subject_id, title, content, redacted, created_at
		 FROM journal_entries WHERE id=$1 AND subject_id=$2`,
		id, subjectID,
	).Scan(&e.ID, &e.SubjectID, &e.Title, &e.Content, &e.Redacted, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return JournalEntry{}, ErrNotFound
	}
	if err != nil {
		return JournalEntry{}, fmt.Errorf("get journal entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) DeleteJournalEntry(ctx context.Context, subjectID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM journal_entries WHERE id=$1 AND subject_id=$2`, id, subjectID)
	if err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateMoodLog(ctx context.Context, log MoodLog) (MoodLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO mood_logs (id, subject_id, score, note, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		log.ID, log.SubjectID, log.Score, log.Note, log.CreatedAt,
	)
	if err != nil {
		return MoodLog{}, fmt.Errorf("create mood log: %w", err)
	}
	return log, nil
}

func (s *PostgresStore) ListMoodLogs(ctx context.Context, subjectID string, limit int) ([]MoodLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject_id, score, note, created_at
		 FROM mood_logs WHERE subject_id=$1 ORDER BY created_at DESC LIMIT $2`,
		subjectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list mood logs: %w", err)
	}
	defer rows.Close()

	var items []MoodLog
	for rows.Next() {
		var m MoodLog
		if err := rows.Scan(&m.ID, &m.SubjectID, &m.Score, &m.Note, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood log: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListExercises(ctx context.Context) ([]Exercise, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, slug, title, body, duration_minutes FROM exercises ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var items []Exercise
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.Slug, &e.Title, &e.Body, &e.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CompleteExercise(ctx context.Context, subjectID, exerciseID string) (ExerciseCompletion, error) {
	c := ExerciseCompletion{
		ID:          uuid.NewString(),
		SubjectID:   subjectID,
		ExerciseID:  exerciseID,
		CompletedAt: time.Now().UTC(),
	}
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM exercises WHERE id=$1)`, exerciseID).Scan(&exists); err != nil {
		return ExerciseCompletion{}, fmt.Errorf("check exercise: %w", err)
	}
	if !exists {
		return ExerciseCompletion{}, ErrNotFound
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO exercise_completions (id, subject_id, exercise_id, completed_at)
		 VALUES ($1, $2, $3, $4)`,
		c.ID, c.SubjectID, c.ExerciseID, c.CompletedAt,
	)
	if err != nil {
		return ExerciseCompletion{}, fmt.Errorf("complete exercise: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCompletions(ctx context.Context, subjectID string) ([]ExerciseCompletion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject_id, exercise_id, completed_at
		 FROM exercise_completions WHERE subject_id=$1 ORDER BY completed_at DESC`,
		subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var items []ExerciseCompletion
	for rows.Next() {
		var c ExerciseCompletion
		if err := rows.Scan(&c.ID, &c.SubjectID, &c.ExerciseID, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListSpaces(ctx context.Context) ([]Space, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, slug, title, description, created_at FROM spaces ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	var items []Space
	for rows.Next() {
		var sp Space
		if err := rows.Scan(&sp.ID, &sp.Slug, &sp.Title, &sp.Description, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		items = append(items, sp)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CreatePost(ctx context.Context, post Post) (Post, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM spaces WHERE id=$1)`, post.SpaceID).Scan(&exists); err != nil {
		return Post{}, fmt.Errorf("check space: %w", err)
	}
	if !exists {
		return Post{}, ErrNotFound
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO posts (id, space_id, author_alias, content, redacted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		post.ID, post.SpaceID, post.AuthorAlias, post.Content, post.Redacted, post.CreatedAt,
	)
	if err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (s *PostgresStore) ListPosts(ctx context.Context, spaceID string, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, space_id, author_alias, content, redacted, created_at
		 FROM posts WHERE space_id=$1 ORDER BY created_at DESC LIMIT $2`,
		spaceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var items []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.SpaceID, &p.AuthorAlias, &p.Content, &p.Redacted, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ReflectionStarted(ctx context.Context, sessionID, subjectID string, startedAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reflection_sessions (id, subject_id, started_at) VALUES ($1, $2, $3)`,
		sessionID, subjectID, startedAt,
	)
	if err != nil {
		return fmt.Errorf("record reflection start: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReflectionEnded(ctx context.Context, sessionID, reason string, endedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reflection_sessions SET ended_at=$2, reason=$3 WHERE id=$1`,
		sessionID, endedAt, reason,
	)
	if err != nil {
		return fmt.Errorf("record reflection end: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListReflectionSessions(ctx context.Context, subjectID string, limit int) ([]ReflectionSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject_id, started_at, ended_at, reason
		 FROM reflection_sessions WHERE subject_id=$1 ORDER BY started_at DESC LIMIT $2`,
		subjectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list reflection sessions: %w", err)
	}
	defer rows.Close()

	var items []ReflectionSession
	for rows.Next() {
		var r ReflectionSession
		if err := rows.Scan(&r.ID, &r.SubjectID, &r.StartedAt, &r.EndedAt, &r.Reason); err != nil {
			return nil, fmt.Errorf("scan reflection session: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
