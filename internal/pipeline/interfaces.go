package pipeline

import (
	"context"

	"github.com/samvad-hq/wikiquiz/internal/domain"
	"github.com/samvad-hq/wikiquiz/pkg/publishers"
)

// ArticleExtractor fetches and cleans an article.
type ArticleExtractor interface {
	Extract(ctx context.Context, url string) (domain.ArticleContent, error)
}

// QuizGenerator turns article text into a quiz payload. It never fails.
type QuizGenerator interface {
	Generate(ctx context.Context, body string) domain.GenerationResult
}

// EventPublisher fans quiz events out downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
