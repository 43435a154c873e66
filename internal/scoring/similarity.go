// Package scoring compares a spoken transcript against the phrase the learner
// was asked to repeat.
//
// [Score] is the canonical 0–100 match score. It normalises both strings to
// lower-case alphanumerics and spaces, short-circuits exact matches to 100 and
// otherwise counts how many target tokens appear in the set of transcript
// tokens, dividing by the larger of the two cardinalities:
//
//	score = round(100 * matches / max(|set(transcript)|, |target|))
//
// Missing words and extra words both lower the score. Repeating the same word
// only grows the transcript set by one, so filler repetition is penalised less
// than distinct extra words. This is a known quirk kept for compatibility.
//
// [Analyze] adds a word-level breakdown (missing words, extra words, phonetic
// near misses) without changing the score.
package scoring

import (
	"math"
	"strings"
)

// Normalize lower-cases s, drops every rune outside [a-z0-9 ] and trims the
// result.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Score returns how closely transcript matches target as an integer in
// [0, 100]. Score is case- and punctuation-insensitive.
func Score(transcript, target string) int {
	t := Normalize(transcript)
	g := Normalize(target)
	if t == g {
		return 100
	}

	heard := tokenSet(strings.Fields(t))
	want := strings.Fields(g)

	denom := max(len(heard), len(want))
	if denom == 0 {
		return 100
	}

	matches := 0
	for _, w := range want {
		if _, ok := heard[w]; ok {
			matches++
		}
	}
	return int(math.Floor(100*float64(matches)/float64(denom) + 0.5))
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
