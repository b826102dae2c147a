// Package attempt records graded submissions: it awards XP, updates progress,
// reports unlocks and appends the immutable attempt log.
package attempt

import (
	"slices"
	"time"
)

// TraceMessage is one turn of the tutoring conversation that produced an attempt.
type TraceMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

// Attempt is the immutable log entry for one graded submission.
type Attempt struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	SubtopicID      string         `json:"subtopic_id"`
	ProblemText     string         `json:"problem_text"`
	ImageRef        string         `json:"image_ref,omitempty"`
	StudentResponse string         `json:"student_response"`
	IsCorrect       bool           `json:"is_correct"`
	TimeSpent       int            `json:"time_spent"`
	HintsUsed       int            `json:"hints_used"`
	XPEarned        int            `json:"xp_earned"`
	Feedback        string         `json:"feedback"`
	MasteryAchieved bool           `json:"mastery_achieved"`
	UnlockedTopics  []string       `json:"unlocked_topics,omitempty"`
	Conversation    []TraceMessage `json:"conversation,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (a Attempt) clone() Attempt {
	a.UnlockedTopics = slices.Clone(a.UnlockedTopics)
	a.Conversation = slices.Clone(a.Conversation)
	return a
}
