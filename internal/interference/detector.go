// Package interference detects first-language interference in a spoken
// target-language answer: Spanish words that slipped into an English
// utterance.
//
// Detection is lexical. The transcript is normalised and tokenised, each token
// is checked against a closed Spanish lexicon, and tokens that are valid in
// both languages (short function words, "-al" cognates such as "hotel" or
// "normal") are discarded. The share of remaining matches decides the
// confidence tier:
//
//	high    matches >= 3 or ratio >= 0.40
//	medium  matches == 2 or ratio >= 0.25
//	low     matches == 1 and ratio >= 0.15
//
// Anything below is reported as not detected. Detection is a pure function of
// the transcript and the lexicon tables.
package interference

import (
	"fmt"
	"strings"
	"unicode"
)

// Confidence grades how strongly a transcript shows interference.
type Confidence string

const (
	// ConfidenceNone is reported when nothing was detected.
	ConfidenceNone   Confidence = ""
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// genericTip is returned when the first matched word has no curated
// suggestion.
const genericTip = "Try to think of the English word first, then speak."

// Result is the outcome of [Detector.Detect].
type Result struct {
	Detected bool `json:"detected"`

	// MatchedTerms lists every interfering token in transcript order,
	// repetitions included.
	MatchedTerms []string `json:"matched_terms"`

	Confidence Confidence `json:"confidence,omitempty"`

	// Feedback is a learner-facing message quoting the matched terms.
	Feedback string `json:"feedback,omitempty"`

	// Tip is a coaching suggestion for the first matched term.
	Tip string `json:"tip,omitempty"`
}

// Detector scans transcripts for interfering words. It is read-only after
// construction and safe for concurrent use.
type Detector struct {
	lexicon     map[string]struct{}
	ambiguous   map[string]struct{}
	suggestions map[string]string
}

// Option configures a [Detector].
type Option func(*Detector)

// WithExtraCognates adds words that must never count as interference, on top
// of the built-in cognate set.
func WithExtraCognates(words ...string) Option {
	return func(d *Detector) {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				d.ambiguous[w] = struct{}{}
			}
		}
	}
}

// New returns a [Detector] using the built-in Spanish tables.
func New(opts ...Option) *Detector {
	d := &Detector{
		lexicon:     spanishLexicon,
		ambiguous:   make(map[string]struct{}, len(ambiguousWords)),
		suggestions: suggestions,
	}
	for w := range ambiguousWords {
		d.ambiguous[w] = struct{}{}
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

var defaultDetector = New()

// Detect runs the default detector over transcript.
func Detect(transcript string) Result {
	return defaultDetector.Detect(transcript)
}

// Detect scans transcript and grades the interference found.
func (d *Detector) Detect(transcript string) Result {
	if transcript == "" {
		return notDetected()
	}

	tokens := Tokenize(transcript)
	var found []string
	for _, tok := range tokens {
		if _, ok := d.lexicon[tok]; !ok {
			continue
		}
		if _, amb := d.ambiguous[tok]; amb {
			continue
		}
		found = append(found, tok)
	}

	ratio := float64(len(found)) / float64(max(len(tokens), 1))
	conf := grade(len(found), ratio)
	if conf == ConfidenceNone {
		return notDetected()
	}

	return Result{
		Detected:     true,
		MatchedTerms: found,
		Confidence:   conf,
		Feedback:     feedback(found, conf),
		Tip:          d.tip(found[0]),
	}
}

// Tokenize lower-cases s, keeps Latin letters (including accented vowels,
// ü and ñ) and whitespace, and splits on whitespace.
func Tokenize(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if isSpanishLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

func isSpanishLetter(r rune) bool {
	if r >= 'a' && r <= 'z' {
		return true
	}
	switch r {
	case 'á', 'é', 'í', 'ó', 'ú', 'ü', 'ñ':
		return true
	}
	return false
}

func grade(matches int, ratio float64) Confidence {
	switch {
	case matches >= 3 || ratio >= 0.4:
		return ConfidenceHigh
	case matches == 2 || ratio >= 0.25:
		return ConfidenceMedium
	case matches == 1 && ratio >= 0.15:
		return ConfidenceLow
	}
	return ConfidenceNone
}

func feedback(words []string, conf Confidence) string {
	switch conf {
	case ConfidenceHigh:
		return "Detecté español: " + quoteAll(words[:min(3, len(words))])
	case ConfidenceMedium:
		return "Mezclaste idiomas: " + quoteAll(words)
	default:
		return "Palabra en español detectada: " + quoteAll(words[:1])
	}
}

func (d *Detector) tip(word string) string {
	if s, ok := d.suggestions[word]; ok {
		return fmt.Sprintf("Use %s instead of %q.", s, word)
	}
	return genericTip
}

func quoteAll(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = fmt.Sprintf("%q", w)
	}
	return strings.Join(quoted, ", ")
}

func notDetected() Result {
	return Result{MatchedTerms: []string{}}
}
