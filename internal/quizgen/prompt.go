package quizgen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// BuildPrompt renders the generation prompt for an (already truncated) article body.
func BuildPrompt(body string) string {
	var sb strings.Builder
	sb.WriteString("You are a strict JSON generator.\n\n")
	sb.WriteString("Return ONLY valid JSON in this schema:\n\n")
	sb.WriteString(renderExample(ResponseSchema()))
	sb.WriteString("\n\nRules:\n")
	sb.WriteString("- Use ONLY facts from the article.\n")
	sb.WriteString(fmt.Sprintf("- %d-%d quiz questions.\n", MinQuestions, MaxQuestions))
	sb.WriteString(fmt.Sprintf("- Exactly %d options per question.\n", OptionsPerQuestion))
	sb.WriteString("- Answer must match one option exactly.\n")
	sb.WriteString(fmt.Sprintf("- Difficulty must be one of: %s.\n", strings.Join(difficultyEnum(), ", ")))
	sb.WriteString(fmt.Sprintf("- At most %d related topics.\n", MaxRelatedTopics))
	sb.WriteString("- No markdown. No commentary.\n\n")
	sb.WriteString("Article:\n\"\"\"")
	sb.WriteString(body)
	sb.WriteString("\"\"\"\n")
	return sb.String()
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
