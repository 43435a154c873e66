package scoring

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// NearMiss pairs a target word the learner did not produce with the heard word
// that most likely was an attempt at it.
type NearMiss struct {
	Expected   string  `json:"expected"`
	Heard      string  `json:"heard"`
	Similarity float64 `json:"similarity"`

	// Phonetic is true when the two words share a Double Metaphone code.
	Phonetic bool `json:"phonetic"`
}

// Analysis is the word-level breakdown of a transcript against a target.
type Analysis struct {
	// Score is identical to [Score] for the same inputs.
	Score int `json:"score"`

	// Missing lists target words absent from the transcript, in target order
	// without duplicates.
	Missing []string `json:"missing"`

	// Extra lists transcript words absent from the target, in transcript order
	// without duplicates.
	Extra []string `json:"extra"`

	// NearMisses pairs missing words with the extra word that sounds or spells
	// closest to them.
	NearMisses []NearMiss `json:"near_misses"`
}

// Analyzer computes [Analysis] values. It is read-only after construction and
// safe for concurrent use.
type Analyzer struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// AnalyzerOption configures an [Analyzer].
type AnalyzerOption func(*Analyzer)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a pair that
// shares a phonetic code. Default: 0.70.
func WithPhoneticThreshold(threshold float64) AnalyzerOption {
	return func(a *Analyzer) {
		a.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a pair without a
// phonetic overlap. Default: 0.85.
func WithFuzzyThreshold(threshold float64) AnalyzerOption {
	return func(a *Analyzer) {
		a.fuzzyThreshold = threshold
	}
}

// NewAnalyzer returns an [Analyzer] configured with opts.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze scores transcript against target and explains the difference.
func (a *Analyzer) Analyze(transcript, target string) Analysis {
	heardTokens := strings.Fields(Normalize(transcript))
	wantTokens := strings.Fields(Normalize(target))
	heard := tokenSet(heardTokens)
	want := tokenSet(wantTokens)

	res := Analysis{
		Score:      Score(transcript, target),
		Missing:    []string{},
		Extra:      []string{},
		NearMisses: []NearMiss{},
	}

	seen := make(map[string]struct{})
	for _, w := range wantTokens {
		if _, ok := heard[w]; ok {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		res.Missing = append(res.Missing, w)
	}
	clear(seen)
	for _, h := range heardTokens {
		if _, ok := want[h]; ok {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		res.Extra = append(res.Extra, h)
	}

	used := make(map[string]struct{})
	for _, m := range res.Missing {
		nm, ok := a.bestNearMiss(m, res.Extra, used)
		if !ok {
			continue
		}
		used[nm.Heard] = struct{}{}
		res.NearMisses = append(res.NearMisses, nm)
	}
	return res
}

// bestNearMiss finds the candidate closest to expected. Phonetic candidates
// win over purely orthographic ones.
func (a *Analyzer) bestNearMiss(expected string, candidates []string, used map[string]struct{}) (NearMiss, bool) {
	var best NearMiss
	found := false

	p1, s1 := matchr.DoubleMetaphone(expected)
	for _, c := range candidates {
		if _, taken := used[c]; taken {
			continue
		}
		p2, s2 := matchr.DoubleMetaphone(c)
		phonetic := codesOverlap(p1, s1, p2, s2)
		jw := matchr.JaroWinkler(expected, c, false)

		threshold := a.fuzzyThreshold
		if phonetic {
			threshold = a.phoneticThreshold
		}
		if jw < threshold {
			continue
		}
		better := !found ||
			(phonetic && !best.Phonetic) ||
			(phonetic == best.Phonetic && jw > best.Similarity)
		if better {
			best = NearMiss{Expected: expected, Heard: c, Similarity: jw, Phonetic: phonetic}
			found = true
		}
	}
	return best, found
}

// codesOverlap reports whether any non-empty Double Metaphone code is shared.
func codesOverlap(p1, s1, p2, s2 string) bool {
	for _, a := range []string{p1, s1} {
		if a == "" {
			continue
		}
		if a == p2 || a == s2 {
			return true
		}
	}
	return false
}
