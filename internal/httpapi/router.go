package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/samvad-hq/wikiquiz/internal/domain"
	"github.com/samvad-hq/wikiquiz/internal/logger"
)

// QuizService is the pipeline surface the handlers depend on.
type QuizService interface {
	GenerateQuiz(ctx context.Context, url string) (domain.QuizRecord, error)
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
	GetQuiz(ctx context.Context, id int64) (domain.QuizRecord, error)
}

// Options configures the router.
type Options struct {
	ServiceName    string
	AllowedOrigins []string
}

// NewRouter builds the gin engine serving the quiz API.
func NewRouter(svc QuizService, opts Options, log logger.Logger) *gin.Engine {
	log = logger.Ensure(log)
	h := &handlers{svc: svc, service: opts.ServiceName, log: log}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(log))
	if len(opts.AllowedOrigins) > 0 {
		router.Use(corsMiddleware(opts.AllowedOrigins))
	}

	router.GET("/", h.root)
	router.POST("/generate-quiz", h.generateQuiz)
	router.GET("/quizzes", h.listQuizzes)
	router.GET("/quiz/:id", h.getQuiz)
	return router
}
