// Package progress tracks per-student, per-subtopic attempt counters and mastery.
package progress

import (
	"maps"
	"math"
	"time"
)

const (
	// MasteryThreshold is the minimum rounded accuracy percentage for mastery.
	MasteryThreshold = 85
	// MinAttemptsForMastery is the minimum number of attempts for mastery.
	MinAttemptsForMastery = 3
)

// SubtopicProgress holds a student's counters for one subtopic.
type SubtopicProgress struct {
	SubtopicID      string     `json:"subtopic_id"`
	AttemptCount    int        `json:"attempt_count"`
	CorrectCount    int        `json:"correct_count"`
	MasteryScore    int        `json:"mastery_score"`
	Mastered        bool       `json:"mastered"`
	TotalTimeSpent  int        `json:"total_time_spent"`
	FirstAttemptAt  time.Time  `json:"first_attempt_at"`
	LastAttemptedAt time.Time  `json:"last_attempted_at"`
	MasteredAt      *time.Time `json:"mastered_at,omitempty"`
}

// StudentProgress is everything the engine knows about one student.
// A subtopic missing from Subtopics has never been attempted.
type StudentProgress struct {
	UserID         string                      `json:"user_id"`
	Subtopics      map[string]SubtopicProgress `json:"subtopics"`
	TotalXP        int                         `json:"total_xp"`
	CurrentStreak  int                         `json:"current_streak"`
	LastActiveDate time.Time                   `json:"last_active_date"`
}

// New returns empty progress for userID.
func New(userID string) *StudentProgress {
	return &StudentProgress{
		UserID:    userID,
		Subtopics: make(map[string]SubtopicProgress),
	}
}

// Clone returns a deep copy.
func (p *StudentProgress) Clone() *StudentProgress {
	c := *p
	c.Subtopics = make(map[string]SubtopicProgress, len(p.Subtopics))
	for id, sp := range p.Subtopics {
		if sp.MasteredAt != nil {
			at := *sp.MasteredAt
			sp.MasteredAt = &at
		}
		c.Subtopics[id] = sp
	}
	return &c
}

// Subtopic returns the row for id; ok is false when it was never attempted.
func (p *StudentProgress) Subtopic(id string) (SubtopicProgress, bool) {
	sp, ok := p.Subtopics[id]
	return sp, ok
}

// MasteredSet returns the IDs of every mastered subtopic.
func (p *StudentProgress) MasteredSet() map[string]bool {
	set := make(map[string]bool)
	for id, sp := range p.Subtopics {
		if sp.Mastered {
			set[id] = true
		}
	}
	return set
}

// AddXP adds n to the running XP total.
func (p *StudentProgress) AddXP(n int) {
	p.TotalXP += n
}

// RecordActivity updates the daily streak for activity at now.
// Days are compared in UTC.
func (p *StudentProgress) RecordActivity(now time.Time) {
	today := day(now)
	switch {
	case p.LastActiveDate.IsZero():
		p.CurrentStreak = 1
	case today.Equal(p.LastActiveDate):
		if p.CurrentStreak == 0 {
			p.CurrentStreak = 1
		}
	case today.Equal(p.LastActiveDate.AddDate(0, 0, 1)):
		p.CurrentStreak++
	case today.After(p.LastActiveDate):
		p.CurrentStreak = 1
	default:
		// Clock went backwards; keep the later date.
		return
	}
	p.LastActiveDate = today
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Apply records one graded attempt at subtopicID and returns the row before and
// after the update. A mastered row stays mastered whatever the new score.
func (p *StudentProgress) Apply(subtopicID string, isCorrect bool, timeSpent int, now time.Time) (before, after SubtopicProgress) {
	if p.Subtopics == nil {
		p.Subtopics = make(map[string]SubtopicProgress)
	}

	before, existed := p.Subtopics[subtopicID]
	after = before
	if !existed {
		after = SubtopicProgress{SubtopicID: subtopicID, FirstAttemptAt: now}
		before.SubtopicID = subtopicID
	}

	after.AttemptCount++
	if isCorrect {
		after.CorrectCount++
	}
	after.TotalTimeSpent += timeSpent
	after.MasteryScore = Score(after.CorrectCount, after.AttemptCount)
	after.LastAttemptedAt = now

	if !after.Mastered && MeetsMastery(after.MasteryScore, after.AttemptCount) {
		after.Mastered = true
		at := now
		after.MasteredAt = &at
	}

	p.Subtopics[subtopicID] = after
	return before, after
}

// Score returns round(correct/attempts × 100), or 0 without attempts.
func Score(correct, attempts int) int {
	if attempts <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(attempts) * 100))
}

// MeetsMastery reports whether a score and attempt count cross the mastery bar.
func MeetsMastery(score, attempts int) bool {
	return score >= MasteryThreshold && attempts >= MinAttemptsForMastery
}

// Equal reports whether two snapshots hold the same values.
func Equal(a, b *StudentProgress) bool {
	if a.UserID != b.UserID || a.TotalXP != b.TotalXP || a.CurrentStreak != b.CurrentStreak ||
		!a.LastActiveDate.Equal(b.LastActiveDate) {
		return false
	}
	return maps.EqualFunc(a.Subtopics, b.Subtopics, subtopicEqual)
}

func subtopicEqual(a, b SubtopicProgress) bool {
	if (a.MasteredAt == nil) != (b.MasteredAt == nil) {
		return false
	}
	if a.MasteredAt != nil && !a.MasteredAt.Equal(*b.MasteredAt) {
		return false
	}
	return a.SubtopicID == b.SubtopicID &&
		a.AttemptCount == b.AttemptCount &&
		a.CorrectCount == b.CorrectCount &&
		a.MasteryScore == b.MasteryScore &&
		a.Mastered == b.Mastered &&
		a.TotalTimeSpent == b.TotalTimeSpent &&
		a.FirstAttemptAt.Equal(b.FirstAttemptAt) &&
		a.LastAttemptedAt.Equal(b.LastAttemptedAt)
}
