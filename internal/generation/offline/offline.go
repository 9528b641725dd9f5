// Package offline answers from a fixed table of play summaries, for use as
// the fallback when no remote provider is reachable. It never fails.
package offline

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation"
)

const model = "knowledge-base"

type entry struct {
	titles []string
	answer string
}

var plays = []entry{
	{[]string{"hamlet"}, "Hamlet, Prince of Denmark, is urged by his father's ghost to avenge his murder by Claudius. His delay, feigned madness and the famous \"To be, or not to be\" soliloquy turn the play into a meditation on death, action and conscience; it ends with nearly every principal dead."},
	{[]string{"macbeth"}, "Macbeth, spurred by three witches' prophecy and his wife's ambition, murders King Duncan to take the Scottish crown. Guilt and tyranny follow: Lady Macbeth sleepwalks and dies, and Macbeth is killed by Macduff, who was \"from his mother's womb untimely ripp'd.\""},
	{[]string{"romeo", "juliet"}, "Romeo and Juliet are young lovers from the feuding Montague and Capulet houses of Verona. They marry in secret; a chain of mischance, Tybalt's death and Romeo's banishment leads to both taking their own lives, which finally reconciles their families."},
	{[]string{"king lear", "lear"}, "King Lear divides his kingdom between the daughters who flatter him, Goneril and Regan, and banishes honest Cordelia. Cast out, he goes mad on the heath; the parallel Gloucester plot mirrors his blindness, and the play closes with Lear carrying Cordelia's body."},
	{[]string{"othello", "desdemona", "iago"}, "Othello, a Moorish general in Venice, is manipulated by his ensign Iago into believing his wife Desdemona is unfaithful. He smothers her, learns the truth from Emilia, and kills himself."},
	{[]string{"tempest", "prospero"}, "In The Tempest, the exiled duke Prospero uses magic on his island to shipwreck his usurping brother, arranges his daughter Miranda's match with Ferdinand, frees the spirit Ariel and finally renounces his art."},
	{[]string{"midsummer", "puck", "oberon"}, "A Midsummer Night's Dream tangles four Athenian lovers, a troupe of amateur actors led by Bottom, and the fairy king Oberon and queen Titania in a night of love potions worked by Puck, before all is set right for a triple wedding."},
	{[]string{"julius caesar", "caesar", "brutus"}, "Julius Caesar follows the conspiracy of Brutus and Cassius to assassinate Caesar, Antony's funeral oration that turns Rome against them, and the conspirators' defeat and suicides at Philippi."},
	{[]string{"twelfth night", "viola", "malvolio"}, "Twelfth Night follows the shipwrecked Viola, disguised as Cesario, caught in a love triangle with Duke Orsino and Countess Olivia, alongside the gulling of the steward Malvolio."},
	{[]string{"merchant of venice", "shylock", "portia"}, "In The Merchant of Venice, Antonio borrows from the moneylender Shylock on the bond of a pound of flesh; Portia, disguised as a lawyer, defeats the bond in court with her plea for mercy."},
	{[]string{"sonnet", "sonnets"}, "Shakespeare's 154 sonnets, published in 1609, address a Fair Youth and a Dark Lady and a rival poet. Sonnet 18, \"Shall I compare thee to a summer's day?\", promises the beloved immortality through verse."},
	{[]string{"antony", "cleopatra"}, "Antony and Cleopatra sets the Roman triumvir Antony's passion for the Egyptian queen against his duty to Rome; defeated by Octavius at Actium, both die by their own hands."},
}

var trivia = []string{
	"Shakespeare wrote about 39 plays and 154 sonnets; the First Folio of 1623 collected 36 of the plays.",
	"Shakespeare was born in Stratford-upon-Avon in 1564 and died there in 1616.",
	"Much of Shakespeare's work premiered at the Globe Theatre, built in 1599 by his company, the Lord Chamberlain's Men.",
	"Shakespeare is credited with the earliest recorded use of hundreds of English words, among them \"assassination\" and \"lonely\".",
	"Most of Shakespeare's plays are written largely in blank verse, unrhymed iambic pentameter.",
}

// KnowledgeBase matches play titles and character names in the question.
type KnowledgeBase struct{}

func New() *KnowledgeBase {
	return &KnowledgeBase{}
}

func (*KnowledgeBase) Provider() generation.Provider {
	return generation.ProviderOffline
}

// Generate returns the answer of the first entry whose title appears in the
// question, or a trivia line chosen deterministically from the question.
func (kb *KnowledgeBase) Generate(_ context.Context, req generation.Request) (generation.Response, error) {
	return generation.Response{
		Text:     kb.Lookup(req.Question),
		Provider: generation.ProviderOffline,
		Model:    model,
	}, nil
}

// Lookup matches titles on whole words, so "lear" does not fire on "learn".
func (*KnowledgeBase) Lookup(question string) string {
	q := strings.ToLower(question)
	padded := " " + strings.Join(words(q), " ") + " "
	for _, e := range plays {
		for _, title := range e.titles {
			if strings.Contains(padded, " "+title+" ") {
				return e.answer
			}
		}
	}
	h := fnv.New32a()
	h.Write([]byte(q))
	return "I can't reach a language model right now, but here is something about Shakespeare: " +
		trivia[h.Sum32()%uint32(len(trivia))]
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
