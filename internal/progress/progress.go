// Package progress implements the practice ledger: daily streak, lifetime
// totals, experience points, level and a per-day history of completed
// sessions.
//
// [Ledger.RecordSession] is a pure transformation of a [UserProgress] value.
// Persistence lives in [Service], which wraps a key-value [Store] and degrades
// to a fresh zero-state record when the persisted bytes cannot be decoded.
package progress

import (
	"slices"
	"time"
)

const (
	// XPPerPhrase is awarded for every completed phrase.
	XPPerPhrase = 10
	// XPPerSecond is awarded for every second spent speaking.
	XPPerSecond = 1
	// XPPerLevel is the experience needed to climb one level.
	XPPerLevel = 500

	// DateLayout formats day keys.
	DateLayout = "2006-01-02"
)

// DayRecord aggregates the sessions completed on one calendar day.
type DayRecord struct {
	Date             string   `json:"date"`
	PhrasesCompleted int      `json:"phrasesCompleted"`
	SecondsTalking   int      `json:"secondsTalking"`
	ModesUsed        []string `json:"modesUsed"`
}

// UserProgress is the persisted learner record. The JSON layout matches the
// single-record format stored by earlier browser clients so existing exports
// decode unchanged.
type UserProgress struct {
	Streak         int         `json:"streak"`
	LastActiveDate string      `json:"lastActiveDate"`
	TotalPhrases   int         `json:"totalPhrases"`
	TotalSeconds   int         `json:"totalSeconds"`
	Level          int         `json:"level"`
	XP             int         `json:"xp"`
	History        []DayRecord `json:"history"`
}

// Default returns the zero-state record.
func Default() UserProgress {
	return UserProgress{Level: 1, History: []DayRecord{}}
}

// Clone returns a deep copy of p.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.History = make([]DayRecord, len(p.History))
	for i, r := range p.History {
		r.ModesUsed = slices.Clone(r.ModesUsed)
		if r.ModesUsed == nil {
			r.ModesUsed = []string{}
		}
		out.History[i] = r
	}
	return out
}

// normalize repairs a decoded record: nil slices become empty, negative
// accumulators are clamped to zero, history entries sharing a date are merged
// and the level is derived from XP again.
func (p UserProgress) normalize() UserProgress {
	p = p.Clone()
	p.Streak = max(p.Streak, 0)
	p.TotalPhrases = max(p.TotalPhrases, 0)
	p.TotalSeconds = max(p.TotalSeconds, 0)
	p.XP = max(p.XP, 0)
	p.Level = LevelFor(p.XP)

	merged := make([]DayRecord, 0, len(p.History))
	byDate := make(map[string]int, len(p.History))
	for _, r := range p.History {
		r.PhrasesCompleted = max(r.PhrasesCompleted, 0)
		r.SecondsTalking = max(r.SecondsTalking, 0)
		i, dup := byDate[r.Date]
		if !dup {
			byDate[r.Date] = len(merged)
			merged = append(merged, r)
			continue
		}
		m := &merged[i]
		m.PhrasesCompleted += r.PhrasesCompleted
		m.SecondsTalking += r.SecondsTalking
		for _, mode := range r.ModesUsed {
			if !slices.Contains(m.ModesUsed, mode) {
				m.ModesUsed = append(m.ModesUsed, mode)
			}
		}
	}
	p.History = merged
	return p
}

// LevelFor returns the level reached with xp experience points.
func LevelFor(xp int) int {
	return max(xp, 0)/XPPerLevel + 1
}

// Ledger applies completed sessions to progress records. The zero value is
// not usable; create one with [NewLedger].
type Ledger struct {
	now func() time.Time
}

// LedgerOption configures a [Ledger].
type LedgerOption func(*Ledger)

// WithNow overrides the wall clock used to derive the current date.
func WithNow(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger creates a Ledger that reads dates from the local wall clock.
func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// CurrentDate returns today's day key in the local timezone.
func (l *Ledger) CurrentDate() string {
	return l.now().Local().Format(DateLayout)
}

// yesterday returns the day key preceding today. Noon is used as the anchor
// so daylight-saving shifts never skip or repeat a day.
func (l *Ledger) yesterday() string {
	y, m, d := l.now().Local().Date()
	return time.Date(y, m, d-1, 12, 0, 0, 0, time.Local).Format(DateLayout)
}

// RecordSession credits one completed session to p and returns the updated
// record. p itself is not modified. Negative counts are treated as zero.
//
// The operation is additive: calling it twice credits the session twice.
func (l *Ledger) RecordSession(p UserProgress, phrases, seconds int, mode string) UserProgress {
	phrases = max(phrases, 0)
	seconds = max(seconds, 0)
	today := l.CurrentDate()

	out := UpdateStreak(p.Clone(), today, l.yesterday())

	if i := slices.IndexFunc(out.History, func(r DayRecord) bool { return r.Date == today }); i >= 0 {
		rec := &out.History[i]
		rec.PhrasesCompleted += phrases
		rec.SecondsTalking += seconds
		if !slices.Contains(rec.ModesUsed, mode) {
			rec.ModesUsed = append(rec.ModesUsed, mode)
		}
	} else {
		out.History = append(out.History, DayRecord{
			Date:             today,
			PhrasesCompleted: phrases,
			SecondsTalking:   seconds,
			ModesUsed:        []string{mode},
		})
	}

	out.TotalPhrases += phrases
	out.TotalSeconds += seconds
	out.XP += phrases*XPPerPhrase + seconds*XPPerSecond
	out.Level = LevelFor(out.XP)
	return out
}

// UpdateStreak advances the streak for activity on today. Activity already
// credited today changes nothing, activity following yesterday extends the
// streak, and any other gap restarts it at 1.
func UpdateStreak(p UserProgress, today, yesterday string) UserProgress {
	if p.LastActiveDate == today {
		return p
	}
	if p.LastActiveDate == yesterday && p.LastActiveDate != "" {
		p.Streak++
	} else {
		p.Streak = 1
	}
	p.LastActiveDate = today
	return p
}

// TodayRecord returns the history entry for today, if any.
func TodayRecord(p UserProgress, today string) (DayRecord, bool) {
	for _, r := range p.History {
		if r.Date == today {
			return r, true
		}
	}
	return DayRecord{}, false
}

var levelTitles = []string{
	"", "Beginner", "Explorer", "Connector", "Communicator",
	"Fluent", "Confident", "Advanced", "Expert", "Master", "Legend",
}

// LevelTitle names a level. Levels past the last title are "Legend".
func LevelTitle(level int) string {
	if level < 0 {
		return ""
	}
	return levelTitles[min(level, len(levelTitles)-1)]
}

// LevelStatus describes where a record stands inside its current level.
type LevelStatus struct {
	Level       int    `json:"level"`
	Title       string `json:"title"`
	XPIntoLevel int    `json:"xp_into_level"`
	XPToNext    int    `json:"xp_to_next"`
}

// Status summarises the level position of p.
func Status(p UserProgress) LevelStatus {
	xp := max(p.XP, 0)
	level := LevelFor(xp)
	into := xp % XPPerLevel
	return LevelStatus{
		Level:       level,
		Title:       LevelTitle(level),
		XPIntoLevel: into,
		XPToNext:    XPPerLevel - into,
	}
}
