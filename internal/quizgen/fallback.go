package quizgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samvad-hq/wikiquiz/internal/domain"
)

const (
	maxCandidates        = 3
	firstSentenceRunes   = 100
	depthWordThreshold   = 500
	namesSentinel        = "Not mentioned"
	yearsSentinel        = "2023"
	topicGeneral         = "General Knowledge"
	topicWikipedia       = "Wikipedia"
	topicScience         = "Science"
	topicTechnology      = "Technology"
	topicHistory         = "History"
	topicComputerScience = "Computer Science"
)

var (
	namePattern = regexp.MustCompile(`\b[A-Z][a-z]+\s[A-Z][a-z]+\b`)
	yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

	// Fillers keep option lists at four distinct entries when too few candidates were found.
	nameFillers = []string{"John Smith", "Mary Johnson", "Robert Brown", "Linda Davis"}
	yearFillers = []string{"1900", "1950", "2000", "2010"}

	computingTerms = []string{"computer", "software", "programming"}
)

var (
	contentTypeQuestion = domain.QuizQuestion{
		Question:    "What type of content does this Wikipedia article contain?",
		Options:     []string{"Entertainment", "Educational", "Commercial", "Personal"},
		Answer:      "Educational",
		Difficulty:  domain.DifficultyEasy,
		Explanation: "Wikipedia articles are primarily educational resources.",
	}
	structureQuestion = domain.QuizQuestion{
		Question:    "How is information typically organized in Wikipedia articles?",
		Options:     []string{"Randomly", "By sections", "Alphabetically", "Chronologically"},
		Answer:      "By sections",
		Difficulty:  domain.DifficultyEasy,
		Explanation: "Wikipedia articles use structured sections for better readability.",
	}
	purposeQuestion = domain.QuizQuestion{
		Question:    "What is the primary purpose of this article?",
		Options:     []string{"Entertainment", "Information sharing", "Advertising", "Social networking"},
		Answer:      "Information sharing",
		Difficulty:  domain.DifficultyEasy,
		Explanation: "Wikipedia articles aim to share knowledge and information.",
	}
	depthQuestion = domain.QuizQuestion{
		Question:    "What can be inferred about the article's depth?",
		Options:     []string{"Very brief", "Moderately detailed", "Highly comprehensive", "Too long"},
		Answer:      "Moderately detailed",
		Difficulty:  domain.DifficultyMedium,
		Explanation: "The article length suggests moderate detail on the subject.",
	}
	encyclopediaQuestion = domain.QuizQuestion{
		Question:    "What kind of publication is Wikipedia?",
		Options:     []string{"A free online encyclopedia", "A daily newspaper", "A social network", "A scientific journal"},
		Answer:      "A free online encyclopedia",
		Difficulty:  domain.DifficultyEasy,
		Explanation: "Wikipedia is a free, collaboratively edited online encyclopedia.",
	}
)

// Synthesize derives a summary, quiz and related topics from body using lexical
// heuristics only. It is deterministic and always returns at least MinQuestions
// questions, each with OptionsPerQuestion distinct options.
func Synthesize(body string) domain.GenerationResult {
	wordCount := len(strings.Fields(body))
	first := firstSentence(body)
	names := firstDistinct(namePattern.FindAllString(body, -1), maxCandidates)
	years := firstDistinct(yearPattern.FindAllString(body, -1), maxCandidates)

	quiz := []domain.QuizQuestion{topicQuestion(first)}
	if len(names) > 0 {
		quiz = append(quiz, domain.QuizQuestion{
			Question:    "Which of these individuals is mentioned in the article?",
			Options:     fillOptions(names, namesSentinel, nameFillers),
			Answer:      names[0],
			Difficulty:  domain.DifficultyMedium,
			Explanation: fmt.Sprintf("%s is referenced in the article content.", names[0]),
		})
	}
	if len(years) > 0 {
		quiz = append(quiz, domain.QuizQuestion{
			Question:    "Which year is referenced in the article?",
			Options:     fillOptions(years, yearsSentinel, yearFillers),
			Answer:      years[0],
			Difficulty:  domain.DifficultyMedium,
			Explanation: fmt.Sprintf("The year %s appears in the article content.", years[0]),
		})
	}
	quiz = append(quiz, cloneQuestion(contentTypeQuestion), cloneQuestion(structureQuestion), cloneQuestion(purposeQuestion))
	if wordCount > depthWordThreshold {
		quiz = append(quiz, cloneQuestion(depthQuestion))
	}

	for _, extra := range []domain.QuizQuestion{lengthQuestion(wordCount), cloneQuestion(encyclopediaQuestion)} {
		if len(quiz) >= MinQuestions {
			break
		}
		quiz = append(quiz, extra)
	}

	return domain.GenerationResult{
		Summary:       strings.TrimSpace(first),
		Quiz:          quiz,
		RelatedTopics: relatedTopics(body),
		KeyPoints:     keyPoints(first, wordCount, names, years),
		Fallback:      true,
	}
}

// firstSentence returns the text before the first period, or the first 100
// characters when there is none.
func firstSentence(body string) string {
	if i := strings.IndexByte(body, '.'); i >= 0 {
		return body[:i]
	}
	return truncateRunes(body, firstSentenceRunes)
}

// firstDistinct keeps the first limit distinct values in order of first appearance.
func firstDistinct(values []string, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

// fillOptions returns candidates plus sentinel, topped up from fillers until there
// are OptionsPerQuestion distinct entries.
func fillOptions(candidates []string, sentinel string, fillers []string) []string {
	opts := make([]string, 0, OptionsPerQuestion)
	seen := make(map[string]struct{}, OptionsPerQuestion)
	add := func(v string) {
		if len(opts) == OptionsPerQuestion {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		opts = append(opts, v)
	}
	for _, c := range candidates {
		add(c)
	}
	add(sentinel)
	for _, f := range fillers {
		add(f)
	}
	return opts
}

func topicQuestion(first string) domain.QuizQuestion {
	question := "What is the main subject discussed in this article?"
	if subject := strings.ToLower(strings.TrimSpace(first)); subject != "" {
		question = fmt.Sprintf("What is the main subject discussed in this article about %s?", subject)
	}
	return domain.QuizQuestion{
		Question:    question,
		Options:     []string{"History", "Science", "Technology", "Culture"},
		Answer:      "History",
		Difficulty:  domain.DifficultyEasy,
		Explanation: "The article focuses on historical and informational content.",
	}
}

func lengthQuestion(wordCount int) domain.QuizQuestion {
	options := []string{"Under 100 words", "100 to 500 words", "501 to 2000 words", "Over 2000 words"}
	var answer string
	switch {
	case wordCount < 100:
		answer = options[0]
	case wordCount <= 500:
		answer = options[1]
	case wordCount <= 2000:
		answer = options[2]
	default:
		answer = options[3]
	}
	return domain.QuizQuestion{
		Question:    "Approximately how long is this article?",
		Options:     options,
		Answer:      answer,
		Difficulty:  domain.DifficultyMedium,
		Explanation: fmt.Sprintf("The article contains about %d words.", wordCount),
	}
}

func keyPoints(first string, wordCount int, names, years []string) []string {
	points := []string{
		fmt.Sprintf("This article discusses %s.", strings.ToLower(first)),
		fmt.Sprintf("The content spans approximately %d words of information.", wordCount),
	}
	if len(names) > 0 {
		points = append(points, fmt.Sprintf("Key individuals mentioned include %s.", strings.Join(names, ", ")))
	}
	if len(years) > 0 {
		points = append(points, fmt.Sprintf("Important years referenced: %s.", strings.Join(years, ", ")))
	}
	return append(points,
		"The article provides detailed information on the subject matter.",
		"Various aspects of the topic are explored in depth.",
	)
}

func relatedTopics(body string) []string {
	lower := strings.ToLower(body)
	topics := []string{topicGeneral, topicWikipedia}
	if strings.Contains(lower, "science") || strings.Contains(lower, "technology") {
		topics = append(topics, topicScience, topicTechnology)
	}
	if strings.Contains(lower, "history") {
		topics = append(topics, topicHistory)
	}
	for _, term := range computingTerms {
		if strings.Contains(lower, term) {
			topics = append(topics, topicComputerScience)
			break
		}
	}
	if len(topics) > MaxRelatedTopics {
		topics = topics[:MaxRelatedTopics]
	}
	return topics
}

// cloneQuestion copies q so callers never share the package-level option slices.
func cloneQuestion(q domain.QuizQuestion) domain.QuizQuestion {
	q.Options = append([]string(nil), q.Options...)
	return q
}
