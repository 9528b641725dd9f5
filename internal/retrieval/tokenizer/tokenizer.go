// Package tokenizer turns a question into the keyword set the ranker scores
// against. It lower-cases, splits on whitespace, trims surrounding
// punctuation and keeps words longer than a threshold.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultThreshold keeps words of four or more characters.
const DefaultThreshold = 3

// Keywords returns the distinct keywords of question in first-seen order.
// A word is kept when its length in characters is greater than threshold.
func Keywords(question string, threshold int) []string {
	words := strings.Fields(strings.ToLower(question))
	keywords := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, word := range words {
		word = strings.TrimFunc(word, isPunctuation)
		if utf8.RuneCountInString(word) <= threshold {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}

func isPunctuation(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
