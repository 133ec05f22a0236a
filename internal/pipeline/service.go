package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/wikiquiz/internal/domain"
	"github.com/samvad-hq/wikiquiz/internal/logger"
	"github.com/samvad-hq/wikiquiz/internal/quizgen"
	"github.com/samvad-hq/wikiquiz/internal/storage"
	"github.com/samvad-hq/wikiquiz/pkg/publishers"
)

const publishTimeout = 5 * time.Second

// ErrEmptyURL is returned when GenerateQuiz is called without a url.
var ErrEmptyURL = errors.New("url is required")

// Service coordinates extraction, generation and persistence of quizzes.
type Service struct {
	extractor ArticleExtractor
	generator QuizGenerator
	store     storage.Store
	events    EventPublisher
	log       logger.Logger
}

// NewService wires the pipeline. events may be nil.
func NewService(extractor ArticleExtractor, generator QuizGenerator, store storage.Store, events EventPublisher, log logger.Logger) *Service {
	return &Service{
		extractor: extractor,
		generator: generator,
		store:     store,
		events:    events,
		log:       logger.Ensure(log),
	}
}

// GenerateQuiz returns the stored quiz for url, generating and storing it on a
// cache miss. URLs are matched literally.
func (s *Service) GenerateQuiz(ctx context.Context, url string) (domain.QuizRecord, error) {
	if s == nil || s.store == nil || s.extractor == nil || s.generator == nil {
		return domain.QuizRecord{}, fmt.Errorf("pipeline service is not initialized")
	}
	if strings.TrimSpace(url) == "" {
		return domain.QuizRecord{}, ErrEmptyURL
	}

	cached, err := s.store.GetByURL(ctx, url)
	switch {
	case err == nil:
		s.log.InfoObj("quiz cache hit", "quiz_cache", map[string]any{
			"url":     url,
			"quiz_id": cached.ID,
		})
		return cached, nil
	case !errors.Is(err, storage.ErrNotFound):
		return domain.QuizRecord{}, fmt.Errorf("lookup quiz: %w", err)
	}

	start := time.Now()
	article, err := s.extractor.Extract(ctx, url)
	if err != nil {
		return domain.QuizRecord{}, err
	}

	gen := s.generator.Generate(ctx, article.Body)
	if err := quizgen.ValidateQuiz(gen.Quiz); err != nil {
		return domain.QuizRecord{}, fmt.Errorf("generated quiz rejected: %w", err)
	}

	rec, err := s.store.Create(ctx, domain.NewQuizRecord(article, gen))
	if errors.Is(err, storage.ErrDuplicate) {
		// A concurrent request stored the same url first.
		existing, getErr := s.store.GetByURL(ctx, url)
		if getErr != nil {
			return domain.QuizRecord{}, fmt.Errorf("reload duplicate quiz: %w", getErr)
		}
		return existing, nil
	}
	if err != nil {
		return domain.QuizRecord{}, fmt.Errorf("store quiz: %w", err)
	}

	s.log.InfoObj("quiz generated", "quiz_meta", map[string]any{
		"quiz_id":    rec.ID,
		"url":        rec.URL,
		"title":      rec.Title,
		"questions":  len(rec.Quiz),
		"fallback":   gen.Fallback,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	s.publishCreated(ctx, rec)
	return rec, nil
}

// ListQuizzes returns the history projection in id order.
func (s *Service) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return items, nil
}

// GetQuiz returns the record with id or storage.ErrNotFound.
func (s *Service) GetQuiz(ctx context.Context, id int64) (domain.QuizRecord, error) {
	rec, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.QuizRecord{}, err
		}
		return domain.QuizRecord{}, fmt.Errorf("get quiz %d: %w", id, err)
	}
	return rec, nil
}

// publishCreated is best-effort; delivery failures are logged only.
func (s *Service) publishCreated(ctx context.Context, rec domain.QuizRecord) {
	if s.events == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	evt := publishers.NewQuizCreatedEvent(rec)
	delivered, err := s.events.Publish(pubCtx, evt)
	if err != nil {
		s.log.WarnObj("quiz event publish failed", "publish_error", map[string]any{
			"event_id":  evt.EventID,
			"quiz_id":   rec.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return
	}
	s.log.DebugObj("quiz event published", "publish_result", map[string]any{
		"event_id":  evt.EventID,
		"delivered": delivered,
	})
}
