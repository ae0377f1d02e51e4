package analysis

import (
	"slices"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/podium/pkg/speech"
)

// fillerSimilarity is the minimum Jaro-Winkler score a transcribed token
// needs, on top of a shared Double Metaphone code, to count as a filler.
const fillerSimilarity = 0.85

// FillerTally counts filler words in transcribed text. Single-word fillers
// also match ASR spelling variants ("umm", "uhh") when the token sounds the
// same and is spelled close enough. Multi-word fillers ("you know") only
// match as an exact token sequence.
//
// Read-only after construction and safe for concurrent use.
type FillerTally struct {
	fillers []filler
}

type filler struct {
	word   string
	tokens []string
	codes  []string
}

// NewFillerTally prepares a tally for words. Blank entries are skipped.
func NewFillerTally(words []string) *FillerTally {
	t := &FillerTally{}
	for _, w := range words {
		tokens := tokenize(w)
		if len(tokens) == 0 {
			continue
		}
		f := filler{word: strings.Join(tokens, " "), tokens: tokens}
		if len(tokens) == 1 {
			f.codes = metaphone(tokens[0])
		}
		t.fillers = append(t.fillers, f)
	}
	return t
}

// Count returns one entry per configured filler, in configuration order,
// with the number of occurrences in text.
func (t *FillerTally) Count(text string) []speech.FillerWord {
	tokens := tokenize(text)
	out := make([]speech.FillerWord, len(t.fillers))
	for i, f := range t.fillers {
		out[i] = speech.FillerWord{Word: f.word, Count: f.count(tokens)}
	}
	return out
}

func (f filler) count(tokens []string) int {
	n := 0
	if len(f.tokens) > 1 {
		for i := 0; i+len(f.tokens) <= len(tokens); i++ {
			if slices.Equal(tokens[i:i+len(f.tokens)], f.tokens) {
				n++
			}
		}
		return n
	}
	for _, tok := range tokens {
		if f.matches(tok) {
			n++
		}
	}
	return n
}

func (f filler) matches(tok string) bool {
	if tok == f.word {
		return true
	}
	if !sharesCode(metaphone(tok), f.codes) {
		return false
	}
	return matchr.JaroWinkler(tok, f.word, false) >= fillerSimilarity
}

// Fillers tallies words over the report's segment text, falling back to the
// full transcription when the backend sent no segments.
func (r *Report) Fillers(words []string) []speech.FillerWord {
	t := NewFillerTally(words)
	if len(r.Segments) == 0 {
		return t.Count(r.FullTranscription)
	}
	var sb strings.Builder
	for _, seg := range r.Segments {
		sb.WriteString(seg.Text)
		sb.WriteByte(' ')
	}
	return t.Count(sb.String())
}

// tokenize lowercases s and splits it on anything but letters and apostrophes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func metaphone(word string) []string {
	p, s := matchr.DoubleMetaphone(word)
	codes := make([]string, 0, 2)
	if p != "" {
		codes = append(codes, p)
	}
	if s != "" && s != p {
		codes = append(codes, s)
	}
	return codes
}

func sharesCode(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
