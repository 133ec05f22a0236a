package publishers

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/wikiquiz/internal/domain"
)

// EventQuizCreated is emitted once per newly stored quiz record.
const EventQuizCreated = "quiz.created"

// Event represents the payload published downstream.
type Event struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	QuizID      int64     `json:"quiz_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Questions   int       `json:"questions"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
}

// NewQuizCreatedEvent constructs the event announcing a stored quiz record.
func NewQuizCreatedEvent(rec domain.QuizRecord) Event {
	return Event{
		EventID:     uuid.NewString(),
		Type:        EventQuizCreated,
		QuizID:      rec.ID,
		URL:         rec.URL,
		Title:       rec.Title,
		Questions:   len(rec.Quiz),
		CreatedAt:   rec.CreatedAt,
		PublishedAt: time.Now().UTC(),
	}
}

// attributes are the string attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_type": e.Type,
		"event_id":   e.EventID,
		"quiz_id":    strconv.FormatInt(e.QuizID, 10),
	}
}
