package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/samvad-hq/wikiquiz/internal/domain"
	"github.com/samvad-hq/wikiquiz/internal/logger"
)

// quizRow is the relational shape of a quiz record. List-valued fields are JSON columns.
type quizRow struct {
	ID            int64          `gorm:"primaryKey;autoIncrement"`
	URL           string         `gorm:"size:2048;not null;uniqueIndex"`
	Title         string         `gorm:"size:512;not null"`
	Sections      datatypes.JSON `gorm:"not null"`
	Summary       string         `gorm:"type:text;not null"`
	Quiz          datatypes.JSON `gorm:"not null"`
	RelatedTopics datatypes.JSON `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"not null;index"`
}

func (quizRow) TableName() string { return "quizzes" }

// sqlStore implements Store on gorm for postgres and sqlite.
type sqlStore struct {
	db *gorm.DB
}

const sqliteBusyTimeoutMillis = 5000

var migrateSchema = func(db *gorm.DB) error {
	return db.AutoMigrate(&quizRow{})
}

func openPostgres(dsn string, log logger.Logger) (*sqlStore, error) {
	return openSQL(postgres.Open(dsn), KindPostgres, 0, log)
}

// openSQLite funnels every statement through one connection: sqlite allows a
// single writer, and lock upgrades between pooled connections fail with
// "database is locked" instead of waiting.
func openSQLite(dsn string, log logger.Logger) (*sqlStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite storage requires a path")
	}
	return openSQL(sqlite.Open(sqliteDSN(dsn)), KindSQLite, 1, log)
}

// sqliteDSN adds a busy timeout so other processes sharing the file wait for the lock.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_busy_timeout=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", dsn, sep, sqliteBusyTimeoutMillis)
}

func openSQL(dialector gorm.Dialector, kind string, maxOpenConns int, log logger.Logger) (*sqlStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", kind, err)
	}
	store := &sqlStore{db: db}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open %s pool: %w", kind, err)
	}
	if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}

	if err := migrateSchema(db); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate quizzes table: %w", err)
	}
	return store, nil
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *sqlStore) GetByURL(ctx context.Context, url string) (domain.QuizRecord, error) {
	var row quizRow
	if err := s.db.WithContext(ctx).Where("url = ?", url).Take(&row).Error; err != nil {
		return domain.QuizRecord{}, mapSQLError(err)
	}
	return row.record()
}

func (s *sqlStore) GetByID(ctx context.Context, id int64) (domain.QuizRecord, error) {
	var row quizRow
	if err := s.db.WithContext(ctx).Take(&row, id).Error; err != nil {
		return domain.QuizRecord{}, mapSQLError(err)
	}
	return row.record()
}

func (s *sqlStore) List(ctx context.Context) ([]domain.QuizSummary, error) {
	var rows []quizRow
	err := s.db.WithContext(ctx).
		Select("id", "url", "title", "created_at").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	items := make([]domain.QuizSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.QuizSummary{
			ID:        row.ID,
			URL:       row.URL,
			Title:     row.Title,
			CreatedAt: row.CreatedAt,
		})
	}
	return items, nil
}

func (s *sqlStore) Create(ctx context.Context, rec domain.QuizRecord) (domain.QuizRecord, error) {
	row, err := newQuizRow(rec)
	if err != nil {
		return domain.QuizRecord{}, err
	}

	// The unique url index decides races; TranslateError surfaces the
	// violation as gorm.ErrDuplicatedKey.
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.QuizRecord{}, mapSQLError(err)
	}

	rec.ID = row.ID
	rec.CreatedAt = row.CreatedAt
	return rec, nil
}

func newQuizRow(rec domain.QuizRecord) (quizRow, error) {
	sections, err := json.Marshal(nonNil(rec.Sections))
	if err != nil {
		return quizRow{}, fmt.Errorf("encode sections: %w", err)
	}
	quiz, err := json.Marshal(rec.Quiz)
	if err != nil {
		return quizRow{}, fmt.Errorf("encode quiz: %w", err)
	}
	topics, err := json.Marshal(nonNil(rec.RelatedTopics))
	if err != nil {
		return quizRow{}, fmt.Errorf("encode related topics: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return quizRow{
		URL:           rec.URL,
		Title:         rec.Title,
		Sections:      datatypes.JSON(sections),
		Summary:       rec.Summary,
		Quiz:          datatypes.JSON(quiz),
		RelatedTopics: datatypes.JSON(topics),
		CreatedAt:     createdAt,
	}, nil
}

func (r quizRow) record() (domain.QuizRecord, error) {
	rec := domain.QuizRecord{
		ID:        r.ID,
		URL:       r.URL,
		Title:     r.Title,
		Summary:   r.Summary,
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal(r.Sections, &rec.Sections); err != nil {
		return domain.QuizRecord{}, fmt.Errorf("decode sections: %w", err)
	}
	if err := json.Unmarshal(r.Quiz, &rec.Quiz); err != nil {
		return domain.QuizRecord{}, fmt.Errorf("decode quiz: %w", err)
	}
	if err := json.Unmarshal(r.RelatedTopics, &rec.RelatedTopics); err != nil {
		return domain.QuizRecord{}, fmt.Errorf("decode related topics: %w", err)
	}
	rec.Sections = nonNil(rec.Sections)
	rec.RelatedTopics = nonNil(rec.RelatedTopics)
	return rec, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func mapSQLError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// gormWriter forwards gorm's log lines to the structured logger.
type gormWriter struct {
	log logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.WarnObj("database", "gorm", map[string]any{
		"message": fmt.Sprintf(format, args...),
	})
}

func newGormLogger(log logger.Logger) gormLogger.Interface {
	return gormLogger.New(gormWriter{log: logger.Ensure(log)}, gormLogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormLogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
