package store

import (
	"context"
	"strings"

	"github.com/GasCanCharlie/chambers-api/internal/audit"
)

// NewStore returns the Postgres store when a database URL is configured,
// otherwise the in-memory store.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		audit.L().Info("store: DATABASE_URL not set, using in-memory store")
		return NewMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
