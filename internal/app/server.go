package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samvad-hq/wikiquiz/internal/config"
	"github.com/samvad-hq/wikiquiz/internal/extractor"
	"github.com/samvad-hq/wikiquiz/internal/httpapi"
	"github.com/samvad-hq/wikiquiz/internal/logger"
	"github.com/samvad-hq/wikiquiz/internal/pipeline"
	"github.com/samvad-hq/wikiquiz/internal/quizgen"
	"github.com/samvad-hq/wikiquiz/internal/storage"
	"github.com/samvad-hq/wikiquiz/pkg/httpclient"
	"github.com/samvad-hq/wikiquiz/pkg/publishers"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server represents the quiz API runtime. It owns the store, the publisher
// fanout and the HTTP listener.
type Server struct {
	cfg    *config.Config
	store  storage.Store
	fanout *publishers.Fanout
	http   *http.Server
	log    logger.Logger
}

// NewServer builds the runtime from config.
func NewServer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := storage.NewStore(cfg.DatabaseURL, cfg.BBoltPath, log)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	kind, _, _ := storage.Resolve(cfg.DatabaseURL)
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": kind,
		"path": cfg.BBoltPath,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	temperature := float32(cfg.ModelTemperature)
	generator, err := quizgen.NewGenerator(ctx, quizgen.Config{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.GeminiModel,
		Temperature: &temperature,
		Timeout:     cfg.ModelTimeout,
		MaxAttempts: cfg.ModelMaxAttempts,
	}, log)
	if err != nil {
		fanout.Close()
		store.Close()
		return nil, fmt.Errorf("init quiz generator: %w", err)
	}
	log.InfoObj("quiz generator initialized", "generator_config", map[string]any{
		"model":            cfg.GeminiModel,
		"temperature":      temperature,
		"model_configured": cfg.ModelConfigured() && generator.ModelConfigured(),
		"max_attempts":     cfg.ModelMaxAttempts,
		"timeout_seconds":  int(cfg.ModelTimeout.Seconds()),
	})

	fetcher := extractor.New(httpclient.NewRestyClient(cfg.FetchTimeout, extractor.UserAgent).WithBodyLimit(extractor.MaxHTMLBodyBytes), log)
	svc := pipeline.NewService(fetcher, generator, store, fanout, log)

	if strings.EqualFold(cfg.Env, "production") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(svc, httpapi.Options{
		ServiceName:    cfg.AppName,
		AllowedOrigins: cfg.Origins,
	}, log)

	// Write timeout covers fetch plus every model attempt.
	writeTimeout := cfg.FetchTimeout + time.Duration(cfg.ModelMaxAttempts)*cfg.ModelTimeout + 30*time.Second

	return &Server{
		cfg:    cfg,
		store:  store,
		fanout: fanout,
		log:    log,
		http: &http.Server{
			Addr:              cfg.ListenAddr(),
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		log.InfoObj("no publishers file configured; quiz events disabled", "publishers_meta", map[string]any{
			"count": 0,
		})
		return publishers.NewFanout(nil, log), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients, log), nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s == nil || s.http == nil {
		return fmt.Errorf("server is not initialized")
	}
	defer s.closeResources()

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "server_state", map[string]any{
			"addr":       s.http.Addr,
			"publishers": s.fanout.Size(),
		})
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.log.InfoObj("http server shutting down", "reason", ctx.Err().Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// closeResources releases the store and publisher clients, logging any errors.
func (s *Server) closeResources() {
	if err := s.fanout.Close(); err != nil {
		s.log.ErrorObj("publisher close failed", "error", err.Error())
	}
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
