package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/samvad-hq/wikiquiz/internal/domain"
	"github.com/samvad-hq/wikiquiz/internal/extractor"
	"github.com/samvad-hq/wikiquiz/internal/logger"
	"github.com/samvad-hq/wikiquiz/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService serves canned records keyed by id.
type fakeService struct {
	records  map[int64]domain.QuizRecord
	genErr   error
	listErr  error
	gotURL   string
	genCalls int
}

func (f *fakeService) GenerateQuiz(_ context.Context, url string) (domain.QuizRecord, error) {
	f.genCalls++
	f.gotURL = url
	if f.genErr != nil {
		return domain.QuizRecord{}, f.genErr
	}
	return f.records[1], nil
}

func (f *fakeService) ListQuizzes(context.Context) ([]domain.QuizSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	items := []domain.QuizSummary{}
	for id := int64(1); id <= int64(len(f.records)); id++ {
		items = append(items, f.records[id].ListItem())
	}
	return items, nil
}

func (f *fakeService) GetQuiz(_ context.Context, id int64) (domain.QuizRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return domain.QuizRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

func newFakeService() *fakeService {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	quiz := make([]domain.QuizQuestion, 6)
	for i := range quiz {
		quiz[i] = domain.QuizQuestion{
			Question:    "Question?",
			Options:     []string{"a", "b", "c", "d"},
			Answer:      "a",
			Difficulty:  domain.DifficultyEasy,
			Explanation: "because",
		}
	}
	return &fakeService{records: map[int64]domain.QuizRecord{
		1: {ID: 1, URL: "https://en.wikipedia.org/wiki/Alan_Turing", Title: "Alan Turing", Sections: []string{}, Summary: "s", Quiz: quiz, RelatedTopics: []string{}, CreatedAt: created},
		2: {ID: 2, URL: "https://en.wikipedia.org/wiki/Enigma", Title: "Enigma", Sections: []string{}, Summary: "s", Quiz: quiz, RelatedTopics: []string{}, CreatedAt: created.Add(time.Minute)},
	}}
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Detail
}

func TestRootReportsLiveness(t *testing.T) {
	router := NewRouter(newFakeService(), Options{ServiceName: "wikiquiz"}, nil)
	rec := serve(router, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["status"] != "ok" || body["service"] != "wikiquiz" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestGenerateQuizReturnsRecord(t *testing.T) {
	svc := newFakeService()
	router := NewRouter(svc, Options{}, nil)

	rec := serve(router, http.MethodPost, "/generate-quiz", `{"url":"https://en.wikipedia.org/wiki/Alan_Turing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.gotURL != "https://en.wikipedia.org/wiki/Alan_Turing" {
		t.Fatalf("service got url %q", svc.gotURL)
	}

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"id", "url", "title", "sections", "summary", "quiz", "related_topics", "created_at"} {
		if _, ok := got[key]; !ok {
			t.Fatalf("response missing %q: %s", key, rec.Body.String())
		}
	}
	quiz := got["quiz"].([]any)
	first := quiz[0].(map[string]any)
	for _, key := range []string{"question", "options", "answer", "difficulty", "explanation"} {
		if _, ok := first[key]; !ok {
			t.Fatalf("question missing %q", key)
		}
	}
}

func TestGenerateQuizRejectsBadRequests(t *testing.T) {
	cases := map[string]string{
		"blank url":  `{"url":"   "}`,
		"no url":     `{}`,
		"bad json":   `{"url":`,
		"empty body": ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newFakeService()
			rec := serve(NewRouter(svc, Options{}, nil), http.MethodPost, "/generate-quiz", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if decodeDetail(t, rec) == "" {
				t.Fatalf("expected detail message")
			}
			if svc.genCalls != 0 {
				t.Fatalf("service should not be called")
			}
		})
	}
}

func TestGenerateQuizFailureUsesDetailEnvelope(t *testing.T) {
	svc := newFakeService()
	svc.genErr = errors.New("fetch https://x: status 404")
	rec := serve(NewRouter(svc, Options{}, nil), http.MethodPost, "/generate-quiz", `{"url":"https://x"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeDetail(t, rec); got != "Error generating quiz: fetch https://x: status 404" {
		t.Fatalf("detail = %q", got)
	}
}

func TestGenerateQuizFailureLogsURLAndStage(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	svc := newFakeService()
	svc.genErr = &extractor.FetchError{URL: "https://x", StatusCode: 404, Err: errors.New("unexpected status")}

	req := httptest.NewRequest(http.MethodPost, "/generate-quiz", strings.NewReader(`{"url":"https://x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, "req-42")
	NewRouter(svc, Options{}, logger.NewZapLogger(zap.New(core))).ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("quiz generation failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one failure log, got %d", len(entries))
	}
	fields, ok := entries[0].ContextMap()["generate_failure"].(map[string]any)
	if !ok {
		t.Fatalf("missing generate_failure fields: %v", entries[0].ContextMap())
	}
	if fields["url"] != "https://x" || fields["stage"] != "fetch" || fields["request_id"] != "req-42" {
		t.Fatalf("unexpected failure fields %v", fields)
	}
}

func TestListQuizzesInIDOrder(t *testing.T) {
	rec := serve(NewRouter(newFakeService(), Options{}, nil), http.MethodGet, "/quizzes", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0]["id"].(float64) != 1 || items[1]["title"] != "Enigma" {
		t.Fatalf("unexpected items %s", rec.Body.String())
	}
	if _, ok := items[0]["quiz"]; ok {
		t.Fatalf("list items must not carry the quiz")
	}
}

func TestListQuizzesEmptyIsArray(t *testing.T) {
	svc := &fakeService{records: map[int64]domain.QuizRecord{}}
	rec := serve(NewRouter(svc, Options{}, nil), http.MethodGet, "/quizzes", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestGetQuiz(t *testing.T) {
	router := NewRouter(newFakeService(), Options{}, nil)

	rec := serve(router, http.MethodGet, "/quiz/2", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"title":"Enigma"`) {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/quiz/999999", "")
	if rec.Code != http.StatusNotFound || decodeDetail(t, rec) != "Quiz not found" {
		t.Fatalf("expected 404 Quiz not found, got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/quiz/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestCORSAllowsConfiguredOriginWithCredentials(t *testing.T) {
	router := NewRouter(newFakeService(), Options{AllowedOrigins: []string{"http://localhost:3000"}}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/generate-quiz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow credentials = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/quizzes", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow origin for foreign origin")
	}
}
