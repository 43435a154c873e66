package session

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/MrWong99/parla/internal/prompts"
)

// Stage is a timed intermediate state between Listen and the answer state.
type Stage struct {
	State    State
	Duration time.Duration
}

// Mode configures the controller for one kind of exercise.
type Mode struct {
	// Name identifies the mode in the progress history.
	Name  string
	Title string

	// Target is the number of prompts that completes a session.
	Target int

	// Catalogue supplies the prompts. Shuffle walks it without repeats;
	// otherwise prompts are drawn uniformly at random.
	Catalogue prompts.Kind
	Shuffle   bool

	// WaitForPlayback starts ListenDelay only once the prompt has finished
	// playing. Otherwise ListenDelay starts with playback.
	WaitForPlayback bool
	ListenDelay     time.Duration

	// Stages run in order after Listen.
	Stages []Stage

	// Answer is the state in which the learner answers: StateSpeak or
	// StateRespond.
	Answer State

	// ResponseWindow bounds the answer state. Zero leaves it open until the
	// capture ends or the learner acts.
	ResponseWindow time.Duration

	// Windows, when set, lists the response windows a learner may pick at
	// start.
	Windows []time.Duration

	// Capture opens speech capture in the answer state.
	Capture bool

	// Scored compares the transcript with the prompt text.
	Scored bool

	// AutoAdvance leaves Result immediately.
	AutoAdvance bool

	// CreditByMinutes credits round(elapsed/60) phrases instead of the
	// number of completed prompts.
	CreditByMinutes bool

	// Pausable allows pausing the response window.
	Pausable bool
}

// Validate reports configuration errors.
func (m Mode) Validate() error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if m.Target < 1 {
		errs = append(errs, fmt.Errorf("target must be at least 1, got %d", m.Target))
	}
	if m.Answer != StateSpeak && m.Answer != StateRespond {
		errs = append(errs, fmt.Errorf("answer state must be %q or %q, got %q", StateSpeak, StateRespond, m.Answer))
	}
	if m.ListenDelay < 0 || m.ResponseWindow < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	for i, st := range m.Stages {
		if st.State == "" || st.State.IsTerminal() || st.State == StateReady || st.State == StateResult {
			errs = append(errs, fmt.Errorf("stage %d: %q cannot be an intermediate state", i, st.State))
		}
		if st.Duration <= 0 {
			errs = append(errs, fmt.Errorf("stage %d: duration must be positive", i))
		}
	}
	for _, w := range m.Windows {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("window %s must be positive", w))
		}
	}
	if m.Pausable && m.ResponseWindow == 0 && len(m.Windows) == 0 {
		errs = append(errs, errors.New("pausable modes need a response window"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("mode %q: %w", m.Name, err)
	}
	return nil
}

// Override adjusts a mode's tunables. Zero fields keep the mode's value.
type Override struct {
	Target         int
	ListenDelay    time.Duration
	ResponseWindow time.Duration
}

// With returns a copy of m with o applied.
func (m Mode) With(o Override) Mode {
	m.Stages = slices.Clone(m.Stages)
	m.Windows = slices.Clone(m.Windows)
	if o.Target > 0 {
		m.Target = o.Target
	}
	if o.ListenDelay > 0 {
		m.ListenDelay = o.ListenDelay
	}
	if o.ResponseWindow > 0 {
		m.ResponseWindow = o.ResponseWindow
		if len(m.Windows) > 0 && !slices.Contains(m.Windows, o.ResponseWindow) {
			m.Windows = append(m.Windows, o.ResponseWindow)
			slices.Sort(m.Windows)
		}
	}
	return m
}

// Built-in modes.
var (
	Fluency = Mode{
		Name:            "fluency",
		Title:           "Fluency",
		Target:          8,
		Catalogue:       prompts.KindPhrases,
		Shuffle:         true,
		WaitForPlayback: true,
		ListenDelay:     400 * time.Millisecond,
		Answer:          StateSpeak,
		Capture:         true,
		Scored:          true,
	}

	Recall = Mode{
		Name:            "recall",
		Title:           "Recall",
		Target:          6,
		Catalogue:       prompts.KindPhrases,
		Shuffle:         true,
		WaitForPlayback: true,
		Stages:          []Stage{{State: StateMemorize, Duration: 3 * time.Second}},
		Answer:          StateSpeak,
		Capture:         true,
		Scored:          true,
	}

	Reaction = Mode{
		Name:           "reaction",
		Title:          "Reaction",
		Target:         6,
		Catalogue:      prompts.KindSituations,
		ListenDelay:    2500 * time.Millisecond,
		Answer:         StateRespond,
		ResponseWindow: 5 * time.Second,
		Capture:        true,
	}

	Focus = Mode{
		Name:            "focus",
		Title:           "Focus",
		Target:          1,
		Catalogue:       prompts.KindTopics,
		Answer:          StateSpeak,
		ResponseWindow:  5 * time.Minute,
		Windows:         []time.Duration{5 * time.Minute, 10 * time.Minute, 15 * time.Minute},
		AutoAdvance:     true,
		CreditByMinutes: true,
		Pausable:        true,
	}

	AntiBlock = Mode{
		Name:            "antiblock",
		Title:           "Anti-block",
		Target:          1,
		Catalogue:       prompts.KindTopics,
		WaitForPlayback: true,
		ListenDelay:     500 * time.Millisecond,
		Answer:          StateSpeak,
		ResponseWindow:  time.Minute,
		AutoAdvance:     true,
	}
)

// Modes returns the built-in modes in display order.
func Modes() []Mode {
	return []Mode{Fluency, Recall, Reaction, Focus, AntiBlock}
}

// Lookup returns the built-in mode called name.
func Lookup(name string) (Mode, bool) {
	for _, m := range Modes() {
		if m.Name == name {
			return m, true
		}
	}
	return Mode{}, false
}

// Info is the public description of a mode.
type Info struct {
	Name           string  `json:"name"`
	Title          string  `json:"title"`
	Target         int     `json:"target"`
	Scored         bool    `json:"scored"`
	Capture        bool    `json:"capture"`
	Pausable       bool    `json:"pausable"`
	WindowSeconds  float64 `json:"window_seconds"`
	WindowsSeconds []int   `json:"windows_seconds"`
}

// Info describes m.
func (m Mode) Info() Info {
	info := Info{
		Name:           m.Name,
		Title:          m.Title,
		Target:         m.Target,
		Scored:         m.Scored,
		Capture:        m.Capture,
		Pausable:       m.Pausable,
		WindowSeconds:  m.ResponseWindow.Seconds(),
		WindowsSeconds: make([]int, 0, len(m.Windows)),
	}
	for _, w := range m.Windows {
		info.WindowsSeconds = append(info.WindowsSeconds, int(w/time.Second))
	}
	return info
}

// Describe returns the description of every mode in order.
func Describe(modes []Mode) []Info {
	out := make([]Info, len(modes))
	for i, m := range modes {
		out[i] = m.Info()
	}
	return out
}
