// Package ranker selects the passages of a corpus most relevant to a
// question by counting how many question keywords each line or sentence
// contains.
package ranker

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/retrieval/tokenizer"
)

// Mode picks the unit of retrieval.
type Mode string

const (
	ModeLine     Mode = "line"
	ModeSentence Mode = "sentence"
)

const ellipsis = "..."

var sentenceTerminators = regexp.MustCompile(`[.!?]+`)

type Options struct {
	Mode              Mode
	KeywordThreshold  int
	MinLineLength     int
	MinSentenceLength int
	MaxOutputLength   int
}

// DefaultOptions returns sentence mode with the usual thresholds.
func DefaultOptions() Options {
	return Options{
		Mode:              ModeSentence,
		KeywordThreshold:  tokenizer.DefaultThreshold,
		MinLineLength:     20,
		MinSentenceLength: 50,
		MaxOutputLength:   2000,
	}
}

// Fragment is a scored unit. Position is its ordinal among the corpus units.
type Fragment struct {
	Text     string `json:"text"`
	Score    int    `json:"score"`
	Position int    `json:"position"`
}

// Result is the outcome of ranking. Fallback reports that no unit was
// selected: in line mode Text then holds the head of the raw corpus, in
// sentence mode Text is empty and the caller decides what to substitute.
type Result struct {
	Text      string
	Fragments []Fragment
	Keywords  []string
	Mode      Mode
	Fallback  bool
}

type unit struct {
	text     string
	lower    string
	position int
}

// Prepared is a corpus split into candidate units for one mode, reusable
// across questions.
type Prepared struct {
	raw   string
	mode  Mode
	units []unit
}

// Len returns the number of candidate units.
func (p *Prepared) Len() int {
	return len(p.units)
}

type Ranker struct {
	opts Options
}

func New(opts Options) *Ranker {
	if opts.Mode == "" {
		opts.Mode = ModeSentence
	}
	return &Ranker{opts: opts}
}

func (r *Ranker) Options() Options {
	return r.opts
}

// Prepare splits corpus into the units of the configured mode, dropping
// those shorter than the mode's minimum length.
func (r *Ranker) Prepare(corpus string) *Prepared {
	var parts []string
	minLen := r.opts.MinSentenceLength
	if r.opts.Mode == ModeLine {
		parts = strings.Split(corpus, "\n")
		minLen = r.opts.MinLineLength
	} else {
		parts = sentenceTerminators.Split(corpus, -1)
	}

	p := &Prepared{raw: corpus, mode: r.opts.Mode}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || utf8.RuneCountInString(part) < minLen {
			continue
		}
		p.units = append(p.units, unit{
			text:     part,
			lower:    strings.ToLower(part),
			position: len(p.units),
		})
	}
	return p
}

// Rank prepares corpus and ranks it against question.
func (r *Ranker) Rank(question, corpus string) Result {
	return r.RankPrepared(question, r.Prepare(corpus))
}

// RankPrepared scores every unit by the number of distinct keywords it
// contains and assembles the output for the prepared mode.
func (r *Ranker) RankPrepared(question string, p *Prepared) Result {
	keywords := tokenizer.Keywords(question, r.opts.KeywordThreshold)
	res := Result{Keywords: keywords, Mode: p.mode}

	scored := score(p.units, keywords)
	if p.mode == ModeLine {
		return r.assembleLines(res, scored, p.raw)
	}
	return r.assembleSentences(res, scored)
}

func score(units []unit, keywords []string) []Fragment {
	if len(keywords) == 0 {
		return nil
	}
	var scored []Fragment
	for _, u := range units {
		n := 0
		for _, kw := range keywords {
			if strings.Contains(u.lower, kw) {
				n++
			}
		}
		if n > 0 {
			scored = append(scored, Fragment{Text: u.text, Score: n, Position: u.position})
		}
	}
	return scored
}

// assembleLines keeps corpus order, joins with newlines and truncates with an
// ellipsis past the output limit. Without scoring lines it returns the head
// of the raw corpus with no ellipsis.
func (r *Ranker) assembleLines(res Result, scored []Fragment, raw string) Result {
	limit := r.opts.MaxOutputLength
	if len(scored) == 0 {
		res.Fallback = true
		res.Text = truncateRunes(raw, limit)
		return res
	}

	lines := make([]string, len(scored))
	for i, f := range scored {
		lines[i] = f.Text
	}
	joined := strings.Join(lines, "\n")
	if utf8.RuneCountInString(joined) > limit {
		joined = truncateRunes(joined, limit) + ellipsis
	}
	res.Text = joined
	res.Fragments = scored
	return res
}

// assembleSentences orders by score, ties by corpus order, and appends whole
// sentences while they fit. When even the best sentence is longer than
// MaxOutputLength nothing is selected, and the result is the same empty
// fallback as a question that matched nothing.
func (r *Ranker) assembleSentences(res Result, scored []Fragment) Result {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	limit := r.opts.MaxOutputLength
	var sb strings.Builder
	length := 0
	var selected []Fragment
	for _, f := range scored {
		piece := f.Text + ". "
		n := utf8.RuneCountInString(piece)
		if length+n > limit {
			break
		}
		sb.WriteString(piece)
		length += n
		selected = append(selected, f)
	}

	if len(selected) == 0 {
		res.Fallback = true
		return res
	}
	res.Text = sb.String()
	res.Fragments = selected
	return res
}

func truncateRunes(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
