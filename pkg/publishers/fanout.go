package publishers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidEvent is returned for events that do not identify a stored quiz.
var ErrInvalidEvent = errors.New("quiz event must carry a type and a positive quiz id")

// Fanout delivers quiz events to every configured publisher in order and logs
// one delivery line per publisher keyed by quiz id.
type Fanout struct {
	publishers []Publisher
	log        Logger
}

// NewFanout builds a dispatcher over pubs, skipping nil entries.
func NewFanout(pubs []Publisher, log Logger) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	return &Fanout{publishers: cp, log: ensureLogger(log)}
}

// Publish delivers evt to every publisher and returns how many accepted it.
// A failing publisher does not stop delivery to the rest; all failures are
// joined into the returned error.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}
	if evt.Type == "" || evt.QuizID <= 0 {
		return 0, fmt.Errorf("%w: type=%q quiz_id=%d", ErrInvalidEvent, evt.Type, evt.QuizID)
	}

	var errs []error
	delivered := 0
	for _, p := range f.publishers {
		start := time.Now()
		err := p.Publish(ctx, evt)
		fields := map[string]any{
			"quiz_id":        evt.QuizID,
			"event_id":       evt.EventID,
			"event_type":     evt.Type,
			"publisher_id":   p.ID(),
			"publisher_type": p.Type(),
			"elapsed_ms":     time.Since(start).Milliseconds(),
		}
		if err != nil {
			fields["error"] = err.Error()
			f.log.WarnObj("quiz event delivery failed", "quiz_delivery", fields)
			errs = append(errs, fmt.Errorf("%s publisher[%s] quiz %d: %w", p.Type(), p.ID(), evt.QuizID, err))
			continue
		}
		delivered++
		f.log.DebugObj("quiz event delivered", "quiz_delivery", fields)
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases publishers that hold client connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.publishers)
}
