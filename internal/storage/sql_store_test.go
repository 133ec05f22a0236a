package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/samvad-hq/wikiquiz/internal/logger"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore("sqlite:///"+filepath.Join(t.TempDir(), "quizzes.db"), "", logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewStore sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	store := newSQLiteStore(t)
	if _, ok := store.(*sqlStore); !ok {
		t.Fatalf("expected sql store, got %T", store)
	}
	exerciseStore(t, store)
}

func TestSQLiteStoreConcurrentCreateSameURL(t *testing.T) {
	store := newSQLiteStore(t)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	created, duplicates := 0, 0
	var others []error
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create(context.Background(), sampleRecord("https://en.wikipedia.org/wiki/Colossus"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrDuplicate):
				duplicates++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if created != 1 || duplicates != workers-1 {
		t.Fatalf("expected exactly one record, created=%d duplicates=%d", created, duplicates)
	}
}

func TestSQLiteStoreConcurrentCreateDistinctURLs(t *testing.T) {
	store := newSQLiteStore(t)

	const workers = 64
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := fmt.Sprintf("https://en.wikipedia.org/wiki/Article_%d", i)
			if _, err := store.Create(context.Background(), sampleRecord(url)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("create failed: %v", err)
	}
	items, err := store.List(context.Background())
	if err != nil || len(items) != workers {
		t.Fatalf("expected %d records, got %d err=%v", workers, len(items), err)
	}
}

func TestOpenSQLClosesPoolWhenMigrationFails(t *testing.T) {
	var opened *gorm.DB
	orig := migrateSchema
	migrateSchema = func(db *gorm.DB) error {
		opened = db
		return errors.New("migration refused")
	}
	defer func() { migrateSchema = orig }()

	_, err := NewStore("sqlite:///"+filepath.Join(t.TempDir(), "quizzes.db"), "", nil)
	if err == nil {
		t.Fatalf("expected migration error")
	}
	if opened == nil {
		t.Fatalf("migration hook not called")
	}
	sqlDB, err := opened.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if err := sqlDB.Ping(); err == nil {
		t.Fatalf("expected pool to be closed after failed migration")
	}
}

func TestSQLiteDSNAddsBusyTimeout(t *testing.T) {
	cases := map[string]string{
		"quiz.db":                        "quiz.db?_busy_timeout=5000",
		"file:quiz.db?cache=shared":      "file:quiz.db?cache=shared&_busy_timeout=5000",
		"file:quiz.db?_busy_timeout=100": "file:quiz.db?_busy_timeout=100",
	}
	for in, want := range cases {
		if got := sqliteDSN(in); got != want {
			t.Fatalf("sqliteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
