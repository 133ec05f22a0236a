package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/samvad-hq/wikiquiz/internal/extractor"
	"github.com/samvad-hq/wikiquiz/internal/logger"
	"github.com/samvad-hq/wikiquiz/internal/storage"
)

type handlers struct {
	svc     QuizService
	service string
	log     logger.Logger
}

// GenerateRequest is the body of POST /generate-quiz.
type GenerateRequest struct {
	URL string `json:"url"`
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.service})
}

func (h *handlers) generateQuiz(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondError(c, http.StatusBadRequest, "url is required")
		return
	}

	rec, err := h.svc.GenerateQuiz(c.Request.Context(), req.URL)
	if err != nil {
		_ = c.Error(err)
		h.log.ErrorObj("quiz generation failed", "generate_failure", map[string]any{
			"url":        req.URL,
			"stage":      failureStage(err),
			"request_id": c.GetString(requestIDHeader),
			"error":      err.Error(),
		})
		respondError(c, http.StatusInternalServerError, "Error generating quiz: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, rec)
}

// failureStage names the pipeline step that produced err.
func failureStage(err error) string {
	var fetchErr *extractor.FetchError
	var parseErr *extractor.ParseError
	switch {
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.Is(err, storage.ErrDuplicate), errors.Is(err, storage.ErrNotFound):
		return "store"
	default:
		return "pipeline"
	}
}

func (h *handlers) listQuizzes(c *gin.Context) {
	items, err := h.svc.ListQuizzes(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Error listing quizzes: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handlers) getQuiz(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid quiz id")
		return
	}

	rec, err := h.svc.GetQuiz(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Quiz not found")
		return
	}
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "Error loading quiz: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, rec)
}
