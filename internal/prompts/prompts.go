// Package prompts supplies the practice content: phrases to repeat, filler
// phrases, open speaking topics, situational questions with starter
// suggestions, and phrase-builder sets.
//
// Catalogues are fixed. Selection policy is a concern of the caller: a
// [Queue] walks a shuffled catalogue without repeats, a [Picker] draws
// uniformly at random.
package prompts

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
)

// ErrUnknownKind is returned for a catalogue name that does not exist.
var ErrUnknownKind = errors.New("prompts: unknown kind")

// Kind names a catalogue.
type Kind string

const (
	KindPhrases    Kind = "phrases"
	KindFillers    Kind = "fillers"
	KindTopics     Kind = "topics"
	KindSituations Kind = "situations"
)

// Kinds lists every catalogue in display order.
func Kinds() []Kind {
	return []Kind{KindPhrases, KindFillers, KindTopics, KindSituations}
}

// Prompt is one item of practice content.
type Prompt struct {
	// Text is what gets spoken to the learner, and for phrases the answer
	// the learner is scored against.
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
	Tip      string `json:"tip,omitempty"`

	// Starters are opening lines offered for situational questions.
	Starters []string `json:"starters,omitempty"`

	// Translation renders Text in the learner's native language. It is
	// shown only after the learner has answered.
	Translation string `json:"translation,omitempty"`
}

// BuilderSet is a group of sentence fragments that combine into a phrase.
type BuilderSet struct {
	Name        string   `json:"name"`
	Subjects    []string `json:"subjects"`
	Verbs       []string `json:"verbs"`
	Complements []string `json:"complements"`
}

// Catalogue returns a copy of the named catalogue.
func Catalogue(kind Kind) ([]Prompt, error) {
	var src []Prompt
	switch kind {
	case KindPhrases:
		src = fluencyPhrases
	case KindFillers:
		src = fillerPhrases
	case KindTopics:
		src = topics
	case KindSituations:
		src = situations
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	out := make([]Prompt, len(src))
	for i, p := range src {
		p.Starters = slices.Clone(p.Starters)
		out[i] = p
	}
	return out, nil
}

// MustCatalogue is like [Catalogue] but panics on an unknown kind. It is
// meant for the fixed kinds declared in this package.
func MustCatalogue(kind Kind) []Prompt {
	c, err := Catalogue(kind)
	if err != nil {
		panic(err)
	}
	return c
}

// BuilderSets returns a copy of the phrase-builder sets.
func BuilderSets() []BuilderSet {
	out := make([]BuilderSet, len(builderSets))
	for i, s := range builderSets {
		out[i] = BuilderSet{
			Name:        s.Name,
			Subjects:    slices.Clone(s.Subjects),
			Verbs:       slices.Clone(s.Verbs),
			Complements: slices.Clone(s.Complements),
		}
	}
	return out
}

// Build joins one fragment of each part of s, drawn with rng.
func (s BuilderSet) Build(rng *rand.Rand) string {
	pick := func(xs []string) string {
		if len(xs) == 0 {
			return ""
		}
		return xs[rng.IntN(len(xs))]
	}
	return pick(s.Subjects) + " " + pick(s.Verbs) + " " + pick(s.Complements)
}

// Source yields prompts one at a time.
type Source interface {
	Next() Prompt
}

// NewRand returns a generator seeded from seed, for reproducible selection
// in tests and demos.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func defaultRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Queue hands out every item of a catalogue once in shuffled order before
// reshuffling. The first item of a new round never equals the last item of
// the previous one. A Queue is safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []Prompt
	order []int
	pos   int
	last  int
	rng   *rand.Rand
}

var _ Source = (*Queue)(nil)

// NewQueue creates a Queue over items. A nil rng uses a randomly seeded
// generator. NewQueue panics if items is empty.
func NewQueue(items []Prompt, rng *rand.Rand) *Queue {
	if len(items) == 0 {
		panic("prompts: NewQueue with empty catalogue")
	}
	if rng == nil {
		rng = defaultRand()
	}
	q := &Queue{items: items, rng: rng, last: -1}
	q.reshuffle()
	return q
}

func (q *Queue) reshuffle() {
	q.order = q.rng.Perm(len(q.items))
	if len(q.order) > 1 && q.order[0] == q.last {
		q.order[0], q.order[len(q.order)-1] = q.order[len(q.order)-1], q.order[0]
	}
	q.pos = 0
}

// Next implements [Source].
func (q *Queue) Next() Prompt {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pos >= len(q.order) {
		q.reshuffle()
	}
	i := q.order[q.pos]
	q.pos++
	q.last = i
	return q.items[i]
}

// Picker draws items uniformly at random, with repeats. A Picker is safe for
// concurrent use.
type Picker struct {
	mu    sync.Mutex
	items []Prompt
	rng   *rand.Rand
}

var _ Source = (*Picker)(nil)

// NewPicker creates a Picker over items. A nil rng uses a randomly seeded
// generator. NewPicker panics if items is empty.
func NewPicker(items []Prompt, rng *rand.Rand) *Picker {
	if len(items) == 0 {
		panic("prompts: NewPicker with empty catalogue")
	}
	if rng == nil {
		rng = defaultRand()
	}
	return &Picker{items: items, rng: rng}
}

// Next implements [Source].
func (p *Picker) Next() Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items[p.rng.IntN(len(p.items))]
}
