// Package prompt turns a curriculum unit into the system instructions handed
// to the conversational model. Vocabulary restriction is advisory only: the
// instructions are the whole contract, nothing checks the model's output.
package prompt

import (
	"fmt"
	"strings"

	"github.com/antoniostano/vocabtutor/internal/curriculum"
)

// Fallback is used when no unit is known.
const Fallback = "You are a friendly Spanish tutor for absolute beginners. " +
	"Speak slowly and simply, use very common words, keep every answer to one or two short sentences, " +
	"and end with a simple question so the learner keeps talking."

// TurnRules are the behavioral constraints for the turn-based text exchange.
var TurnRules = []string{
	"Use ONLY words from the vocabulary list and the phrases above. Do not introduce any other words.",
	"Keep every response short: one or two sentences at most.",
	"Always end with a simple question that the learner can answer with the allowed vocabulary.",
	"If the learner makes a mistake, do not point it out; repeat the correct form naturally in your reply.",
	"Never use vocabulary from other units, even if the learner does.",
	"Respond only in Spanish.",
}

// RealtimeRules apply to the live voice session, on top of the shared unit content.
var RealtimeRules = []string{
	"Use ONLY words from the vocabulary list and the phrases above. Do not introduce any other words.",
	"Keep every response short: one or two sentences at most.",
	"Speak slowly and pronounce each word clearly, as a model for a beginner.",
	"If the learner mispronounces a word, say the word again correctly within your reply.",
	"Ask open questions that invite the learner to speak, using only the allowed vocabulary.",
	"If the learner makes a mistake, do not point it out; repeat the correct form naturally in your reply.",
	"Never use vocabulary from other units, even if the learner does.",
	"Respond only in Spanish.",
}

// Compose returns the turn-based system instructions for u, or Fallback when u is nil.
func Compose(u *curriculum.Unit) string {
	if u == nil {
		return Fallback
	}
	return render(u, "You are a patient Spanish conversation partner for a beginner.", TurnRules)
}

// ComposeRealtime returns the live voice session instructions for u.
func ComposeRealtime(u *curriculum.Unit) string {
	if u == nil {
		return Fallback
	}
	return render(u, "You are a patient Spanish conversation partner talking out loud with a beginner.", RealtimeRules)
}

func render(u *curriculum.Unit, persona string, rules []string) string {
	var b strings.Builder
	b.WriteString(persona)
	fmt.Fprintf(&b, " The learner is working on unit %d: %s.\n", u.Number, u.Title)

	writeList(&b, "Allowed vocabulary", u.Vocabulary)
	writeList(&b, "Allowed phrases", u.Phrases)
	writeList(&b, "Grammar in focus", u.Grammar)
	writeList(&b, "Communicative goals", u.Goals)

	b.WriteString("\nRules:\n")
	for i, r := range rules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", heading)
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteByte('\n')
	}
}
