package voice

import (
	"regexp"
	"strings"
	"unicode"
)

// Tutor replies are short chat-formatted Spanish: vocabulary lists, glosses
// like "hola → hello", alternatives like "llamo/llamas" and the odd emoji.
var (
	fencedCode  = regexp.MustCompile("(?s)```.*?```")
	inlineCode  = regexp.MustCompile("`([^`]*)`")
	mdLink      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	bareURL     = regexp.MustCompile(`https?://\S+`)
	lineMarker  = regexp.MustCompile(`^\s*(?:#{1,6}|>+|[-*+•]|\d{1,2}[.)])\s+`)
	glossArrow  = regexp.MustCompile(`\s*(?:→|=>|->|=)\s*`)
	alternative = regexp.MustCompile(`(\pL+)/(\pL+)`)
)

// SpeakableText turns a chat reply into what the synthesizer should read.
// Each list item or heading becomes its own sentence, vocabulary in inline
// code is spoken, and markup and emoji are dropped.
func SpeakableText(raw string) string {
	raw = fencedCode.ReplaceAllString(strings.TrimSpace(raw), "\n")

	var phrases []string
	for _, line := range strings.Split(raw, "\n") {
		if p := speakableLine(line); p != "" {
			phrases = append(phrases, p)
		}
	}

	var b strings.Builder
	for i, p := range phrases {
		if i > 0 {
			if !endsClause(phrases[i-1]) {
				b.WriteByte('.')
			}
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

func speakableLine(line string) string {
	line = lineMarker.ReplaceAllString(line, "")
	line = mdLink.ReplaceAllString(line, "$1")
	line = bareURL.ReplaceAllString(line, " ")
	line = inlineCode.ReplaceAllString(line, "$1")
	line = glossArrow.ReplaceAllString(line, ", ")
	line = alternative.ReplaceAllString(line, "$1 o $2")

	var b strings.Builder
	b.Grow(len(line))
	gap := false
	for _, r := range line {
		switch {
		case r == '\u200d' || r == '\ufe0f' || r == '\u20e3':
		case unicode.IsSpace(r), unicode.IsControl(r),
			unicode.In(r, unicode.So, unicode.Sm, unicode.Sk),
			unicode.IsPunct(r) && !keepsPunct(r):
			gap = b.Len() > 0
		default:
			if gap && !hugsLeft(r) {
				b.WriteByte(' ')
			}
			gap = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// keepsPunct reports whether r changes how a Spanish sentence is read aloud.
func keepsPunct(r rune) bool {
	return strings.ContainsRune(".,;:!?¡¿()'\"-…", r)
}

func hugsLeft(r rune) bool {
	return strings.ContainsRune(".,;:!?)…", r)
}

func endsClause(p string) bool {
	last := []rune(p)
	return len(last) > 0 && strings.ContainsRune(".,;:!?…", last[len(last)-1])
}
