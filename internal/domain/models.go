package domain

import "time"

// Domain contains core models shared by the extractor, generator, store and API.

// UnknownTitle is used when an article has no primary heading.
const UnknownTitle = "Unknown Title"

// ArticleContent is the cleaned article produced by the extractor.
type ArticleContent struct {
	URL      string
	Title    string
	Sections []string
	Body     string
}

// Difficulty tags a quiz question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// QuizQuestion is a single multiple-choice question. Answer must equal one of Options.
type QuizQuestion struct {
	Question    string     `json:"question"`
	Options     []string   `json:"options"`
	Answer      string     `json:"answer"`
	Difficulty  Difficulty `json:"difficulty"`
	Explanation string     `json:"explanation"`
}

// GenerationResult is the payload produced for one article body.
type GenerationResult struct {
	Summary       string         `json:"summary"`
	Quiz          []QuizQuestion `json:"quiz"`
	RelatedTopics []string       `json:"related_topics"`

	// KeyPoints is only filled by the synthesizer and is not persisted.
	KeyPoints []string `json:"-"`
	// Fallback marks results that did not come from the model.
	Fallback bool `json:"-"`
	// Repairs lists the optional fields that were coerced or dropped while
	// decoding model output.
	Repairs []string `json:"-"`
}

// QuizRecord is the persisted quiz for one source URL.
type QuizRecord struct {
	ID            int64          `json:"id"`
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	Sections      []string       `json:"sections"`
	Summary       string         `json:"summary"`
	Quiz          []QuizQuestion `json:"quiz"`
	RelatedTopics []string       `json:"related_topics"`
	CreatedAt     time.Time      `json:"created_at"`
}

// QuizSummary is the lightweight list projection of a QuizRecord.
type QuizSummary struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// NewQuizRecord merges extracted article data with a generation result.
// ID and CreatedAt are left for the store to assign.
func NewQuizRecord(article ArticleContent, gen GenerationResult) QuizRecord {
	sections := article.Sections
	if sections == nil {
		sections = []string{}
	}
	topics := gen.RelatedTopics
	if topics == nil {
		topics = []string{}
	}
	return QuizRecord{
		URL:           article.URL,
		Title:         article.Title,
		Sections:      sections,
		Summary:       gen.Summary,
		Quiz:          gen.Quiz,
		RelatedTopics: topics,
	}
}

// ListItem returns the list projection of the record.
func (r QuizRecord) ListItem() QuizSummary {
	return QuizSummary{ID: r.ID, URL: r.URL, Title: r.Title, CreatedAt: r.CreatedAt}
}
