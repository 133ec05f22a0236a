package quizgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samvad-hq/wikiquiz/internal/domain"
)

// SchemaValidationError reports model output that breaks the quiz contract.
type SchemaValidationError struct {
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return "invalid quiz payload: " + e.Reason
}

func invalid(format string, args ...any) error {
	return &SchemaValidationError{Reason: fmt.Sprintf(format, args...)}
}

type rawQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Difficulty  string   `json:"difficulty"`
	Explanation string   `json:"explanation"`
}

// ParseResponse turns raw model text into a validated GenerationResult.
func ParseResponse(raw string) (domain.GenerationResult, error) {
	doc, err := ExtractJSON(stripCodeFences(raw))
	if err != nil {
		return domain.GenerationResult{}, err
	}
	return DecodeResult(doc)
}

// DecodeResult decodes a JSON document, validates the quiz and applies repairs
// that cannot affect the option/answer invariant.
func DecodeResult(doc []byte) (domain.GenerationResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return domain.GenerationResult{}, invalid("top level must be an object: %v", err)
	}

	rawQuiz, ok := fields["quiz"]
	if !ok {
		return domain.GenerationResult{}, invalid("quiz is missing")
	}
	var questions []rawQuestion
	if err := json.Unmarshal(rawQuiz, &questions); err != nil {
		return domain.GenerationResult{}, invalid("quiz must be a list of questions: %v", err)
	}
	if len(questions) < MinQuestions {
		return domain.GenerationResult{}, invalid("quiz must have at least %d questions, got %d", MinQuestions, len(questions))
	}

	quiz := make([]domain.QuizQuestion, 0, len(questions))
	for i, q := range questions {
		if problem := questionProblem(q); problem != "" {
			return domain.GenerationResult{}, invalid("question %d: %s", i+1, problem)
		}
		quiz = append(quiz, domain.QuizQuestion{
			Question:    strings.TrimSpace(q.Question),
			Options:     q.Options,
			Answer:      q.Answer,
			Difficulty:  normalizeDifficulty(q.Difficulty),
			Explanation: strings.TrimSpace(q.Explanation),
		})
	}

	var repairs []string
	summary, note := decodeSummary(fields["summary"])
	if note != "" {
		repairs = append(repairs, note)
	}
	topics, note := decodeTopics(fields["related_topics"])
	if note != "" {
		repairs = append(repairs, note)
	}

	return domain.GenerationResult{
		Summary:       strings.TrimSpace(summary),
		Quiz:          quiz,
		RelatedTopics: cleanTopics(topics),
		Repairs:       repairs,
	}, nil
}

// decodeSummary reads the optional summary. A value of the wrong type is
// dropped and described in the returned note.
func decodeSummary(raw json.RawMessage) (string, string) {
	if isAbsent(raw) {
		return "", ""
	}
	var summary string
	if err := json.Unmarshal(raw, &summary); err != nil {
		return "", fmt.Sprintf("summary dropped: %v", err)
	}
	return summary, ""
}

// decodeTopics reads the optional related_topics list. A bare string becomes a
// one-element list. Anything else that is not a list of strings is dropped.
func decodeTopics(raw json.RawMessage) ([]string, string) {
	if isAbsent(raw) {
		return nil, ""
	}
	var topics []string
	err := json.Unmarshal(raw, &topics)
	if err == nil {
		return topics, ""
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return []string{single}, "related_topics coerced from string to list"
	}
	return nil, fmt.Sprintf("related_topics dropped: %v", err)
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// questionProblem describes why q breaks the contract, or returns "" if it is valid.
func questionProblem(q rawQuestion) string {
	if strings.TrimSpace(q.Question) == "" {
		return "question text is empty"
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Sprintf("must have exactly %d options, got %d", OptionsPerQuestion, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Sprintf("duplicate option %q", opt)
		}
		seen[opt] = struct{}{}
	}
	if _, ok := seen[q.Answer]; !ok {
		return fmt.Sprintf("answer %q does not match any option", q.Answer)
	}
	return ""
}

// ValidateQuiz checks the shape invariant on an already decoded quiz.
func ValidateQuiz(quiz []domain.QuizQuestion) error {
	if len(quiz) < MinQuestions {
		return invalid("quiz must have at least %d questions, got %d", MinQuestions, len(quiz))
	}
	for i, q := range quiz {
		problem := questionProblem(rawQuestion{Question: q.Question, Options: q.Options, Answer: q.Answer})
		if problem != "" {
			return invalid("question %d: %s", i+1, problem)
		}
	}
	return nil
}

func normalizeDifficulty(raw string) domain.Difficulty {
	d := domain.Difficulty(strings.ToLower(strings.TrimSpace(raw)))
	if d.Valid() {
		return d
	}
	return domain.DifficultyMedium
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, MaxRelatedTopics)
	seen := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == MaxRelatedTopics {
			break
		}
	}
	return out
}
