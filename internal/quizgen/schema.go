package quizgen

import (
	"encoding/json"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/samvad-hq/wikiquiz/internal/domain"
)

// Output contract shared by the prompt, the model response schema and the validator.
const (
	MinQuestions       = 6
	MaxQuestions       = 10
	OptionsPerQuestion = 4
	MaxRelatedTopics   = 5
	MaxBodyChars       = 9000
)

// Difficulties lists the accepted difficulty tags in prompt order.
var Difficulties = []domain.Difficulty{
	domain.DifficultyEasy,
	domain.DifficultyMedium,
	domain.DifficultyHard,
}

func difficultyEnum() []string {
	out := make([]string, len(Difficulties))
	for i, d := range Difficulties {
		out[i] = string(d)
	}
	return out
}

// ResponseSchema describes the JSON object the model must return.
func ResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {
				Type:        genai.TypeString,
				Description: "Short article summary (3-5 lines)",
			},
			"quiz": {
				Type:        genai.TypeArray,
				Description: "Multiple-choice questions about the article",
				MinItems:    genai.Ptr[int64](MinQuestions),
				MaxItems:    genai.Ptr[int64](MaxQuestions),
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question": {
							Type:        genai.TypeString,
							Description: "...?",
						},
						"options": {
							Type:     genai.TypeArray,
							MinItems: genai.Ptr[int64](OptionsPerQuestion),
							MaxItems: genai.Ptr[int64](OptionsPerQuestion),
							Items: &genai.Schema{
								Type:        genai.TypeString,
								Description: "Option",
							},
						},
						"answer": {
							Type:        genai.TypeString,
							Description: "Option 1",
						},
						"difficulty": {
							Type: genai.TypeString,
							Enum: difficultyEnum(),
						},
						"explanation": {
							Type:        genai.TypeString,
							Description: "...",
						},
					},
					Required:         []string{"question", "options", "answer", "difficulty", "explanation"},
					PropertyOrdering: []string{"question", "options", "answer", "difficulty", "explanation"},
				},
			},
			"related_topics": {
				Type:     genai.TypeArray,
				MaxItems: genai.Ptr[int64](MaxRelatedTopics),
				Items: &genai.Schema{
					Type:        genai.TypeString,
					Description: "Topic",
				},
			},
		},
		Required:         []string{"summary", "quiz", "related_topics"},
		PropertyOrdering: []string{"summary", "quiz", "related_topics"},
	}
}

// renderExample writes an indented JSON skeleton of s, honouring PropertyOrdering.
// String arrays render numbered placeholders (the fixed length if there is one,
// otherwise three); object arrays render a single item.
func renderExample(s *genai.Schema) string {
	var b strings.Builder
	writeExample(&b, s, "")
	return b.String()
}

func writeExample(b *strings.Builder, s *genai.Schema, indent string) {
	inner := indent + "  "
	switch s.Type {
	case genai.TypeObject:
		b.WriteString("{\n")
		for i, key := range s.PropertyOrdering {
			b.WriteString(inner)
			writeString(b, key)
			b.WriteString(": ")
			writeExample(b, s.Properties[key], inner)
			if i < len(s.PropertyOrdering)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(indent + "}")
	case genai.TypeArray:
		if s.Items.Type == genai.TypeString {
			n := exampleLen(s)
			parts := make([]string, n)
			for i := range parts {
				parts[i] = quote(s.Items.Description + " " + strconv.Itoa(i+1))
			}
			b.WriteString("[" + strings.Join(parts, ", ") + "]")
			return
		}
		b.WriteString("[\n" + inner)
		writeExample(b, s.Items, inner)
		b.WriteString("\n" + indent + "]")
	default:
		if len(s.Enum) > 0 {
			writeString(b, strings.Join(s.Enum, "|"))
			return
		}
		writeString(b, s.Description)
	}
}

func exampleLen(s *genai.Schema) int {
	if s.MinItems != nil && s.MaxItems != nil && *s.MinItems == *s.MaxItems {
		return int(*s.MinItems)
	}
	return 3
}

func writeString(b *strings.Builder, s string) {
	b.WriteString(quote(s))
}

func quote(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
