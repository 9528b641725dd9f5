// Package composer assembles the generation prompt from a question and the
// retrieved passages.
package composer

import (
	"strings"
)

const DefaultSource = "The Complete Works of William Shakespeare"

const instructions = `You are a Shakespeare scholar answering questions about the plays and poems.
Answer using the excerpts below from %SOURCE%. Quote the text where it helps.
If the excerpts do not contain the answer, say so and answer from general knowledge of Shakespeare, marking it as such.`

// Composer renders prompts for one named source.
type Composer struct {
	source string
}

func New(source string) *Composer {
	if source == "" {
		source = DefaultSource
	}
	return &Composer{source: source}
}

// Compose renders the prompt. Empty passages are skipped; with none left the
// context section says so explicitly.
func (c *Composer) Compose(question string, passages ...string) string {
	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(instructions, "%SOURCE%", c.source))
	sb.WriteString("\n\nExcerpts:\n")

	n := 0
	for _, p := range passages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n++
		sb.WriteString("---\n")
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	if n == 0 {
		sb.WriteString("(no relevant excerpts found)\n")
	} else {
		sb.WriteString("---\n")
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\nAnswer:")
	return sb.String()
}

// Compose renders a prompt for the default source.
func Compose(question string, passages ...string) string {
	return New("").Compose(question, passages...)
}
