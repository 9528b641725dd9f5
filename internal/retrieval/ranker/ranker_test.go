package ranker

import (
	"strings"
	"testing"
)

func lineOptions() Options {
	opts := DefaultOptions()
	opts.Mode = ModeLine
	return opts
}

func TestLineModeIncludesMatchingLine(t *testing.T) {
	corpus := strings.Join([]string{
		"ACT III. SCENE I. A room in the castle.",
		"HAMLET: To be or not to be, that is the question",
		"OPHELIA: Good my lord, how does your honour for this many a day?",
	}, "\n")

	res := New(lineOptions()).Rank("What does Hamlet say about death?", corpus)
	if res.Fallback {
		t.Fatal("unexpected fallback")
	}
	if !strings.Contains(res.Text, "HAMLET: To be or not to be, that is the question") {
		t.Errorf("result %q does not include the Hamlet line", res.Text)
	}
	// "does" also matches Ophelia's line; corpus order is kept.
	if want := "HAMLET: To be or not to be, that is the question\nOPHELIA: Good my lord, how does your honour for this many a day?"; res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
}

func TestLineModeDropsShortLines(t *testing.T) {
	corpus := "HAMLET dies.\nHAMLET: The rest is silence, and so it ends."
	res := New(lineOptions()).Rank("hamlet", corpus)
	if res.Text != "HAMLET: The rest is silence, and so it ends." {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestLineModeTruncatesWithEllipsis(t *testing.T) {
	opts := lineOptions()
	opts.MaxOutputLength = 30
	corpus := "Romeo speaks to the night sky above\nRomeo again speaks under the balcony"

	res := New(opts).Rank("romeo", corpus)
	if !strings.HasSuffix(res.Text, "...") {
		t.Fatalf("Text = %q, want ellipsis suffix", res.Text)
	}
	if got := len([]rune(strings.TrimSuffix(res.Text, "..."))); got != 30 {
		t.Errorf("truncated body has %d chars, want 30", got)
	}
}

func TestLineModeFallbackReturnsCorpusUnmodified(t *testing.T) {
	corpus := "Shall I compare thee to a summer's day?\nThou art more lovely and more temperate."
	res := New(lineOptions()).Rank("xylophone quantum", corpus)
	if !res.Fallback {
		t.Fatal("expected fallback")
	}
	if res.Text != corpus {
		t.Errorf("Text = %q, want the corpus unmodified", res.Text)
	}
	if strings.HasSuffix(res.Text, "...") {
		t.Error("fallback must not carry the truncation marker")
	}
}

func TestLineModeFallbackTakesHead(t *testing.T) {
	opts := lineOptions()
	opts.MaxOutputLength = 10
	res := New(opts).Rank("", "0123456789abcdef")
	if !res.Fallback || res.Text != "0123456789" {
		t.Errorf("got fallback=%v text=%q", res.Fallback, res.Text)
	}
}

func TestEmptyKeywordSetAlwaysFallsBack(t *testing.T) {
	corpus := "To be or not to be, that is the question.\nIt is a tale told by an idiot, full of sound and fury."
	questions := []string{"", "   ", "is it to be?", "a an the of", "Who? Why?"}
	for _, mode := range []Mode{ModeLine, ModeSentence} {
		opts := DefaultOptions()
		opts.Mode = mode
		opts.MinSentenceLength = 10
		r := New(opts)
		for _, q := range questions {
			res := r.Rank(q, corpus)
			if len(res.Keywords) != 0 {
				t.Fatalf("question %q produced keywords %v", q, res.Keywords)
			}
			if !res.Fallback || len(res.Fragments) != 0 {
				t.Errorf("mode=%s question=%q: fallback=%v fragments=%d", mode, q, res.Fallback, len(res.Fragments))
			}
		}
	}
}

func TestSentenceModeOrdersByScore(t *testing.T) {
	opts := DefaultOptions()
	opts.MinSentenceLength = 10
	corpus := "The king rode out across the moors at dawn. " +
		"The king and the queen walked in the garden of the castle."

	res := New(opts).Rank("king queen castle", corpus)
	if len(res.Fragments) != 2 {
		t.Fatalf("got %d fragments, want 2", len(res.Fragments))
	}
	if res.Fragments[0].Score != 3 || !strings.Contains(res.Fragments[0].Text, "queen") {
		t.Errorf("first fragment = %+v, want the 3-keyword sentence", res.Fragments[0])
	}
	if !strings.HasPrefix(res.Text, "The king and the queen walked in the garden of the castle. ") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestSentenceModeTwoOfThreeBeatsOneOfThree(t *testing.T) {
	opts := DefaultOptions()
	opts.MinSentenceLength = 10
	corpus := "Macbeth hears the witches upon the heath! Banquo wonders aloud about their prophecy."

	res := New(opts).Rank("macbeth witches banquo", corpus)
	if len(res.Fragments) != 2 {
		t.Fatalf("got %d fragments", len(res.Fragments))
	}
	if res.Fragments[0].Score != 2 || res.Fragments[1].Score != 1 {
		t.Errorf("scores = %d, %d; want 2, 1", res.Fragments[0].Score, res.Fragments[1].Score)
	}
	if !strings.HasPrefix(res.Text, "Macbeth hears the witches upon the heath. ") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestSentenceModeStableTies(t *testing.T) {
	opts := DefaultOptions()
	opts.MinSentenceLength = 5
	corpus := "First mention of Juliet here. Second mention of Juliet there. Third mention of Juliet."

	res := New(opts).Rank("juliet", corpus)
	for i, f := range res.Fragments {
		if f.Position != i {
			t.Errorf("fragment %d has position %d; ties must keep corpus order", i, f.Position)
		}
	}
}

func TestSentenceModeStopsAtFirstUnitThatDoesNotFit(t *testing.T) {
	opts := DefaultOptions()
	opts.MinSentenceLength = 5
	opts.MaxOutputLength = 40
	// Scores: 2, 1, 1. The second sentence does not fit; the short third one
	// would, but selection stops.
	corpus := "Othello loves Desdemona dearly. Othello is deceived by honest Iago at every turn. Othello weeps."

	res := New(opts).Rank("othello desdemona", corpus)
	if res.Text != "Othello loves Desdemona dearly. " {
		t.Errorf("Text = %q", res.Text)
	}
	if len([]rune(res.Text)) > opts.MaxOutputLength {
		t.Errorf("Text exceeds limit: %d", len([]rune(res.Text)))
	}
}

func TestSentenceModeFallbackIsEmpty(t *testing.T) {
	res := New(DefaultOptions()).Rank("unrelated keywords entirely", strings.Repeat("Nothing matches in this long sentence at all here. ", 3))
	if !res.Fallback || res.Text != "" {
		t.Errorf("got fallback=%v text=%q", res.Fallback, res.Text)
	}
}

func TestSentenceModeOversizedTopSentenceFallsBack(t *testing.T) {
	opts := DefaultOptions()
	opts.MinSentenceLength = 5
	opts.MaxOutputLength = 20
	corpus := "Hamlet speaks at length to the skull of poor Yorick in the graveyard. Short one."

	res := New(opts).Rank("hamlet yorick", corpus)
	if !res.Fallback || res.Text != "" || len(res.Fragments) != 0 {
		t.Errorf("got fallback=%v text=%q fragments=%d", res.Fallback, res.Text, len(res.Fragments))
	}
}

func TestEmptyCorpus(t *testing.T) {
	for _, mode := range []Mode{ModeLine, ModeSentence} {
		opts := DefaultOptions()
		opts.Mode = mode
		res := New(opts).Rank("where is hamlet", "")
		if res.Text != "" || len(res.Fragments) != 0 {
			t.Errorf("mode=%s: got %+v", mode, res)
		}
	}
}

func TestScoredFragmentsContainAKeyword(t *testing.T) {
	corpus := strings.Join([]string{
		"Friends, Romans, countrymen, lend me your ears; I come to bury Caesar, not to praise him.",
		"The evil that men do lives after them; the good is oft interred with their bones.",
		"So let it be with Caesar. The noble Brutus hath told you Caesar was ambitious.",
	}, " ")
	opts := DefaultOptions()
	opts.MinSentenceLength = 10
	res := New(opts).Rank("Why did BRUTUS call Caesar ambitious?", corpus)
	if len(res.Fragments) == 0 {
		t.Fatal("expected fragments")
	}
	for _, f := range res.Fragments {
		lower := strings.ToLower(f.Text)
		found := false
		for _, kw := range res.Keywords {
			if strings.Contains(lower, kw) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("fragment %q scored %d but contains no keyword of %v", f.Text, f.Score, res.Keywords)
		}
	}
}

func TestPreparedReuse(t *testing.T) {
	opts := DefaultOptions()
	opts.MinSentenceLength = 10
	r := New(opts)
	p := r.Prepare("Portia speaks of mercy in the court. Shylock demands his pound of flesh.")
	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2", p.Len())
	}
	a := r.RankPrepared("portia mercy", p)
	b := r.RankPrepared("shylock flesh", p)
	if !strings.Contains(a.Text, "Portia") || !strings.Contains(b.Text, "Shylock") {
		t.Errorf("a=%q b=%q", a.Text, b.Text)
	}
}
