package scoring

import (
	"slices"
	"testing"
)

func TestAnalyze_NearMissPhonetic(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer()
	got := a.Analyze("I sea what you mean", "I see what you mean")

	if got.Score != Score("I sea what you mean", "I see what you mean") {
		t.Errorf("Score = %d, want it to equal Score()", got.Score)
	}
	if !slices.Equal(got.Missing, []string{"see"}) {
		t.Errorf("Missing = %v, want [see]", got.Missing)
	}
	if !slices.Equal(got.Extra, []string{"sea"}) {
		t.Errorf("Extra = %v, want [sea]", got.Extra)
	}
	if len(got.NearMisses) != 1 {
		t.Fatalf("NearMisses = %v, want one entry", got.NearMisses)
	}
	nm := got.NearMisses[0]
	if nm.Expected != "see" || nm.Heard != "sea" || !nm.Phonetic {
		t.Errorf("NearMiss = %+v, want see->sea phonetic", nm)
	}
}

func TestAnalyze_NoNearMissForUnrelatedWords(t *testing.T) {
	t.Parallel()
	got := NewAnalyzer().Analyze("hello banana", "hello world")
	if !slices.Equal(got.Missing, []string{"world"}) {
		t.Errorf("Missing = %v, want [world]", got.Missing)
	}
	if !slices.Equal(got.Extra, []string{"banana"}) {
		t.Errorf("Extra = %v, want [banana]", got.Extra)
	}
	if len(got.NearMisses) != 0 {
		t.Errorf("NearMisses = %v, want none", got.NearMisses)
	}
}

func TestAnalyze_PerfectAnswer(t *testing.T) {
	t.Parallel()
	got := NewAnalyzer().Analyze("That's a tough one!", "That's a tough one.")
	if got.Score != 100 {
		t.Errorf("Score = %d, want 100", got.Score)
	}
	if len(got.Missing) != 0 || len(got.Extra) != 0 || len(got.NearMisses) != 0 {
		t.Errorf("expected empty breakdown, got %+v", got)
	}
	if got.Missing == nil || got.Extra == nil || got.NearMisses == nil {
		t.Error("breakdown slices must be non-nil")
	}
}

func TestAnalyze_Dedup(t *testing.T) {
	t.Parallel()
	got := NewAnalyzer().Analyze("um um um", "no no")
	if !slices.Equal(got.Missing, []string{"no"}) {
		t.Errorf("Missing = %v, want [no]", got.Missing)
	}
	if !slices.Equal(got.Extra, []string{"um"}) {
		t.Errorf("Extra = %v, want [um]", got.Extra)
	}
}

func TestAnalyze_StrictThresholds(t *testing.T) {
	t.Parallel()
	a := NewAnalyzer(WithPhoneticThreshold(0.99), WithFuzzyThreshold(0.99))
	got := a.Analyze("I sea what you mean", "I see what you mean")
	if len(got.NearMisses) != 0 {
		t.Errorf("NearMisses = %v, want none with strict thresholds", got.NearMisses)
	}
}
