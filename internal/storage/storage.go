package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/wikiquiz/internal/domain"
	"github.com/samvad-hq/wikiquiz/internal/logger"
)

// Package storage persists generated quiz records.

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("quiz not found")
	// ErrDuplicate is returned when a record for the same URL already exists.
	ErrDuplicate = errors.New("quiz already exists for url")
)

// Store persists quiz records keyed by id with a unique URL index.
type Store interface {
	Close() error
	GetByURL(ctx context.Context, url string) (domain.QuizRecord, error)
	GetByID(ctx context.Context, id int64) (domain.QuizRecord, error)
	List(ctx context.Context) ([]domain.QuizSummary, error)
	// Create assigns the id and creation time and returns the stored record.
	Create(ctx context.Context, rec domain.QuizRecord) (domain.QuizRecord, error)
}

// Backend names reported by Kind.
const (
	KindBBolt    = "bbolt"
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
)

// NewStore picks the backend from databaseURL. An empty URL opens the embedded
// bbolt file at boltPath.
func NewStore(databaseURL, boltPath string, log logger.Logger) (Store, error) {
	kind, dsn, err := Resolve(databaseURL)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindBBolt:
		if strings.TrimSpace(boltPath) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(boltPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case KindPostgres:
		store, err := openPostgres(dsn, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := openSQLite(dsn, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// Resolve maps a DATABASE_URL value to a backend kind and driver DSN. sqlite URLs
// follow the sqlite:///relative and sqlite:////absolute convention.
func Resolve(databaseURL string) (kind, dsn string, err error) {
	raw := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(raw)

	switch {
	case raw == "":
		return KindBBolt, "", nil
	case strings.HasPrefix(lower, "postgres://"):
		return KindPostgres, "postgresql://" + raw[len("postgres://"):], nil
	case strings.HasPrefix(lower, "postgresql://"):
		return KindPostgres, raw, nil
	case strings.HasPrefix(lower, "sqlite:///"):
		return KindSQLite, raw[len("sqlite:///"):], nil
	case strings.HasPrefix(lower, "sqlite://"):
		return KindSQLite, raw[len("sqlite://"):], nil
	case strings.HasPrefix(lower, "file:"):
		return KindSQLite, raw, nil
	default:
		return "", "", fmt.Errorf("unsupported database url scheme in %q", redactScheme(raw))
	}
}

func redactScheme(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		return raw[:i] + "://..."
	}
	return "..."
}
