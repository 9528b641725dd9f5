package corpus

import (
	"regexp"
	"strings"
)

// DefaultStartMarkers are the titles the Gutenberg edition opens its content
// with, tried in order.
var DefaultStartMarkers = []string{
	"THE SONNETS",
	"ALL’S WELL THAT ENDS WELL",
	"THE TRAGEDY OF ANTONY AND CLEOPATRA",
}

var (
	blankLineRun   = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)*`)
	stageDirection = regexp.MustCompile(`\[[^\]]*\]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	annotation     = regexp.MustCompile(`<<[^<>]*>>`)
)

// Normalize cleans raw corpus text. The steps run in a fixed order and the
// result is a fixed point: Normalize(Normalize(s, m), m) == Normalize(s, m).
//
// Collapsing whitespace removes paragraph structure; callers that split on
// newlines see a single line.
func Normalize(text string, startMarkers []string) string {
	text = unifyLineEndings(text)
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	text = stageDirection.ReplaceAllString(text, "")
	text = collapseWhitespace(text)
	text = stripAnnotations(text)
	return cutToStartMarker(text, startMarkers)
}

func unifyLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// stripAnnotations removes <<...>> innermost first and repeats until none
// remain, so nested annotations go with their enclosing pair.
func stripAnnotations(text string) string {
	for annotation.MatchString(text) {
		text = annotation.ReplaceAllString(text, "")
	}
	return collapseWhitespace(text)
}

// cutToStartMarker drops everything before the first marker, in list order,
// that occurs in text. Text without any marker is returned whole.
func cutToStartMarker(text string, markers []string) string {
	for _, marker := range markers {
		if marker == "" {
			continue
		}
		if idx := strings.Index(text, marker); idx >= 0 {
			return text[idx:]
		}
	}
	return text
}
