package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/samvad-hq/wikiquiz/internal/logger"
)

type stubPublisher struct {
	id     string
	typ    string
	err    error
	calls  int
	closed bool
}

func (s *stubPublisher) ID() string   { return s.id }
func (s *stubPublisher) Type() string { return s.typ }
func (s *stubPublisher) Publish(context.Context, Event) error {
	s.calls++
	return s.err
}
func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}

func TestFanoutPublishAggregatesErrors(t *testing.T) {
	ok := &stubPublisher{id: "ok", typ: "http"}
	bad := &stubPublisher{id: "bad", typ: "http", err: errors.New("failed")}
	fanout := NewFanout([]Publisher{ok, nil, bad}, nil)

	count, err := fanout.Publish(context.Background(), Event{Type: EventQuizCreated, QuizID: 7})
	if count != 1 {
		t.Fatalf("expected 1 success, got %d", count)
	}
	if err == nil || !strings.Contains(err.Error(), "publisher[bad] quiz 7") {
		t.Fatalf("expected aggregated error naming the quiz, got %v", err)
	}
	if fanout.Size() != 2 || ok.calls != 1 || bad.calls != 1 {
		t.Fatalf("expected both publishers called once, size=%d", fanout.Size())
	}
}

func TestFanoutLogsEachDeliveryByQuizID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ok := &stubPublisher{id: "hook", typ: TypeHTTP}
	bad := &stubPublisher{id: "queue", typ: TypeSQS, err: errors.New("throttled")}
	fanout := NewFanout([]Publisher{ok, bad}, logger.NewZapLogger(zap.New(core)))

	if _, err := fanout.Publish(context.Background(), Event{EventID: "evt-1", Type: EventQuizCreated, QuizID: 42}); err == nil {
		t.Fatalf("expected delivery error from queue publisher")
	}

	delivered := logs.FilterMessage("quiz event delivered").All()
	failed := logs.FilterMessage("quiz event delivery failed").All()
	if len(delivered) != 1 || len(failed) != 1 {
		t.Fatalf("expected one delivered and one failed line, got %d and %d", len(delivered), len(failed))
	}
	for _, entry := range append(delivered, failed...) {
		fields, _ := entry.ContextMap()["quiz_delivery"].(map[string]any)
		if fields["quiz_id"] != int64(42) || fields["event_id"] != "evt-1" {
			t.Fatalf("delivery line not keyed by quiz: %v", fields)
		}
	}
	if fields, _ := failed[0].ContextMap()["quiz_delivery"].(map[string]any); fields["publisher_id"] != "queue" || fields["error"] != "throttled" {
		t.Fatalf("unexpected failure fields %v", fields)
	}
}

func TestFanoutRejectsEventWithoutQuiz(t *testing.T) {
	pub := &stubPublisher{id: "hook", typ: TypeHTTP}
	fanout := NewFanout([]Publisher{pub}, nil)

	for _, evt := range []Event{{Type: EventQuizCreated}, {QuizID: 3}} {
		count, err := fanout.Publish(context.Background(), evt)
		if count != 0 || !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("Publish(%+v) = %d, %v; want ErrInvalidEvent", evt, count, err)
		}
	}
	if pub.calls != 0 {
		t.Fatalf("publisher should not be called for invalid events")
	}
}

func TestFanoutNilIsNoop(t *testing.T) {
	var fanout *Fanout
	count, err := fanout.Publish(context.Background(), Event{})
	if count != 0 || err != nil {
		t.Fatalf("nil fanout should be a no-op, got %d %v", count, err)
	}
	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestFanoutCloseReleasesPublishers(t *testing.T) {
	pub := &stubPublisher{id: "p", typ: "gcp_pubsub"}
	if err := NewFanout([]Publisher{pub}, nil).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !pub.closed {
		t.Fatalf("expected publisher to be closed")
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com", Method: "POST", TimeoutSeconds: 1}},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 || pubs[0].Type() != TypeHTTP {
		t.Fatalf("expected 1 http publisher, got %#v", pubs)
	}
}

func TestBuildAllRejectsUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), DefaultRegistry(), []PublisherConfig{
		{ID: "kafka", Type: "kafka"},
	}, nil)
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}
