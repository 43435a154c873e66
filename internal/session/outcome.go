package session

import (
	"github.com/MrWong99/parla/internal/interference"
	"github.com/MrWong99/parla/internal/prompts"
	"github.com/MrWong99/parla/internal/scoring"
	"github.com/MrWong99/parla/pkg/speech"
)

// Outcome is the evaluated answer to one prompt.
type Outcome struct {
	Index  int            `json:"index"`
	Prompt prompts.Prompt `json:"prompt"`
	Ending Ending         `json:"ending"`

	// Starter is the starter phrase picked when Ending is EndStarter.
	Starter string `json:"starter,omitempty"`

	Transcript    string        `json:"transcript"`
	Confidence    float64       `json:"confidence"`
	CaptureStatus speech.Status `json:"capture_status,omitempty"`

	// Scored is false for modes without a target phrase and for skipped
	// prompts; Score and Analysis are then zero.
	Scored   bool              `json:"scored"`
	Score    int               `json:"score"`
	Analysis *scoring.Analysis `json:"analysis,omitempty"`

	Interference interference.Result `json:"interference"`

	// Survived reports that the learner answered rather than freezing until
	// the window ran out or skipping.
	Survived bool `json:"survived"`
}

// evaluate scores the answer held in c. It runs exactly once per prompt.
func (c *Controller) evaluate(ending Ending, starter string) Outcome {
	out := Outcome{
		Index:         c.completed,
		Prompt:        c.prompt,
		Ending:        ending,
		Starter:       starter,
		Transcript:    c.transcript,
		Confidence:    c.confidence,
		CaptureStatus: c.captureStatus,
		Interference:  interference.Result{MatchedTerms: []string{}},
	}

	if c.mode.Scored && ending != EndSkipped {
		out.Scored = true
		out.Score = scoring.Score(c.transcript, c.prompt.Text)
		if c.transcript != "" {
			a := c.analyzer.Analyze(c.transcript, c.prompt.Text)
			out.Analysis = &a
		}
	}
	if c.transcript != "" {
		out.Interference = c.detector.Detect(c.transcript)
	}

	switch ending {
	case EndSaidIt, EndStarter:
		out.Survived = true
	case EndCaptured:
		out.Survived = c.transcript != ""
	}
	return out
}
