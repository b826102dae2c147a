package attempt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/feedback"
	"github.com/p-n-ai/pai-tutor/internal/gating"
	"github.com/p-n-ai/pai-tutor/internal/platform/apperr"
	"github.com/p-n-ai/pai-tutor/internal/platform/metrics"
	"github.com/p-n-ai/pai-tutor/internal/progress"
	"github.com/p-n-ai/pai-tutor/internal/xp"
)

// Submission is one graded interaction handed over by the grading collaborator.
type Submission struct {
	AttemptID       string // optional; generated when empty
	UserID          string
	SubtopicID      string
	ProblemText     string
	StudentResponse string
	IsCorrect       bool
	TimeSpent       int // seconds
	HintsUsed       int
	ImageRef        string
	Conversation    []TraceMessage
	Language        string // feedback language; empty uses the recorder default
}

func (s Submission) validate() error {
	switch {
	case s.UserID == "":
		return apperr.Invalid("user id is required")
	case s.SubtopicID == "":
		return apperr.Invalid("subtopic id is required")
	case s.TimeSpent < 0:
		return apperr.Invalid("time spent %d is negative", s.TimeSpent)
	case s.HintsUsed < 0:
		return apperr.Invalid("hints used %d is negative", s.HintsUsed)
	}
	return nil
}

// Result is what the student is shown after a submission.
type Result struct {
	AttemptID         string                    `json:"attempt_id"`
	IsCorrect         bool                      `json:"is_correct"`
	XPEarned          int                       `json:"xp_earned"`
	Award             *xp.Award                 `json:"award,omitempty"`
	Feedback          string                    `json:"feedback"`
	MasteryAchieved   bool                      `json:"mastery_achieved"`
	NewTopicsUnlocked []string                  `json:"new_topics_unlocked,omitempty"`
	Progress          progress.SubtopicProgress `json:"progress"`
	TotalXP           int                       `json:"total_xp"`

	// Duplicate is set when the attempt id was already recorded and nothing
	// was applied. Persisted is false when the award was computed but could
	// not be stored.
	Duplicate bool `json:"duplicate"`
	Persisted bool `json:"persisted"`
}

// RecorderConfig holds dependencies for the attempt recorder.
type RecorderConfig struct {
	Graph    *curriculum.Graph
	Store    Store              // default: in-memory
	Events   EventLogger        // default: discard
	Metrics  *metrics.Metrics   // optional
	Feedback *feedback.Composer // default: English
	Clock    func() time.Time   // default: time.Now
}

// Recorder is the entry point for graded attempts.
type Recorder struct {
	graph    *curriculum.Graph
	store    Store
	events   EventLogger
	metrics  *metrics.Metrics
	feedback *feedback.Composer
	now      func() time.Time
}

// NewRecorder creates a new attempt recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	fb := cfg.Feedback
	if fb == nil {
		fb = feedback.NewComposer("en")
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		graph:    cfg.Graph,
		store:    store,
		events:   events,
		metrics:  cfg.Metrics,
		feedback: fb,
		now:      now,
	}
}

// Submit records one graded attempt. Progress, XP and the attempt log are
// committed together. Resubmitting an attempt id returns the original result
// with Duplicate set and changes nothing.
//
// When storage fails after the award was computed, Submit returns both the
// Result (Persisted false) and an ErrStorage error.
func (r *Recorder) Submit(ctx context.Context, s Submission) (*Result, error) {
	start := time.Now()

	if err := s.validate(); err != nil {
		r.metrics.ObserveFailure("invalid")
		return nil, err
	}
	node, ok := r.graph.Node(s.SubtopicID)
	if !ok {
		r.metrics.ObserveFailure("not_found")
		return nil, apperr.NotFound("subtopic %q", s.SubtopicID)
	}

	attemptID := s.AttemptID
	if attemptID == "" {
		attemptID = NewID()
	}
	now := r.now()

	var res *Result
	stored, duplicate, err := r.store.Commit(ctx, s.UserID, attemptID, func(p *progress.StudentProgress) (Attempt, error) {
		prior, _ := p.Subtopic(node.ID)
		award, err := xp.Compute(xp.Input{
			Difficulty:        node.Difficulty,
			IsCorrect:         s.IsCorrect,
			TimeSpent:         s.TimeSpent,
			HintsUsed:         s.HintsUsed,
			AttemptNumber:     prior.AttemptCount + 1,
			IsAlreadyMastered: prior.Mastered,
		})
		if err != nil {
			return Attempt{}, err
		}

		// Unlocks are judged against the state before this attempt.
		view := gating.NewView(r.graph, p)

		before, after := p.Apply(node.ID, s.IsCorrect, s.TimeSpent, now)
		p.RecordActivity(now)
		p.AddXP(award.Total)

		mastered := !before.Mastered && after.Mastered
		var unlocked []string
		if mastered {
			unlocked = view.UnlockedBy(node.ID)
		}

		text := r.feedback.Compose(s.Language, feedback.Outcome{
			IsCorrect:    s.IsCorrect,
			XPEarned:     award.Total,
			Mastered:     mastered,
			SubtopicName: node.Name,
			Unlocked:     r.names(unlocked),
		})

		res = &Result{
			AttemptID:         attemptID,
			IsCorrect:         s.IsCorrect,
			XPEarned:          award.Total,
			Award:             &award,
			Feedback:          text,
			MasteryAchieved:   mastered,
			NewTopicsUnlocked: unlocked,
			Progress:          after,
			TotalXP:           p.TotalXP,
		}
		return Attempt{
			ID:              attemptID,
			UserID:          s.UserID,
			SubtopicID:      node.ID,
			ProblemText:     s.ProblemText,
			ImageRef:        s.ImageRef,
			StudentResponse: s.StudentResponse,
			IsCorrect:       s.IsCorrect,
			TimeSpent:       s.TimeSpent,
			HintsUsed:       s.HintsUsed,
			XPEarned:        award.Total,
			Feedback:        text,
			MasteryAchieved: mastered,
			UnlockedTopics:  unlocked,
			Conversation:    s.Conversation,
			CreatedAt:       now,
		}, nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			r.metrics.ObserveFailure("invalid")
			return nil, err
		}
		r.metrics.ObserveFailure("storage")
		slog.Error("attempt not persisted",
			"user_id", s.UserID,
			"subtopic_id", node.ID,
			"attempt_id", attemptID,
			"error", err,
		)
		err = apperr.Storage("commit attempt", err)
		if res != nil {
			res.Persisted = false
			return res, err
		}
		return nil, err
	}

	if duplicate {
		r.metrics.ObserveDuplicate()
		slog.Info("duplicate attempt ignored",
			"user_id", s.UserID,
			"attempt_id", attemptID,
		)
		return r.replay(ctx, stored)
	}

	res.Persisted = true
	r.metrics.ObserveAttempt(res.IsCorrect, res.XPEarned, res.MasteryAchieved, len(res.NewTopicsUnlocked), time.Since(start))
	slog.Info("attempt recorded",
		"user_id", s.UserID,
		"subtopic_id", node.ID,
		"attempt_id", attemptID,
		"correct", res.IsCorrect,
		"xp", res.XPEarned,
		"mastered", res.MasteryAchieved,
	)
	r.emit(ctx, s.UserID, res, now)
	return res, nil
}

// replay rebuilds the result of an attempt that was already committed.
func (r *Recorder) replay(ctx context.Context, a Attempt) (*Result, error) {
	p, err := r.store.Load(ctx, a.UserID)
	if err != nil {
		return nil, apperr.Storage("load progress", err)
	}
	sp, _ := p.Subtopic(a.SubtopicID)
	return &Result{
		AttemptID:         a.ID,
		IsCorrect:         a.IsCorrect,
		XPEarned:          a.XPEarned,
		Feedback:          a.Feedback,
		MasteryAchieved:   a.MasteryAchieved,
		NewTopicsUnlocked: a.UnlockedTopics,
		Progress:          sp,
		TotalXP:           p.TotalXP,
		Duplicate:         true,
		Persisted:         true,
	}, nil
}

func (r *Recorder) emit(ctx context.Context, userID string, res *Result, at time.Time) {
	events := []Event{{
		UserID:    userID,
		EventType: EventAttemptRecorded,
		CreatedAt: at,
		Data: map[string]any{
			"attempt_id":  res.AttemptID,
			"subtopic_id": res.Progress.SubtopicID,
			"is_correct":  res.IsCorrect,
			"xp_earned":   res.XPEarned,
			"total_xp":    res.TotalXP,
		},
	}}
	if res.MasteryAchieved {
		events = append(events, Event{
			UserID:    userID,
			EventType: EventMasteryAchieved,
			CreatedAt: at,
			Data: map[string]any{
				"attempt_id":    res.AttemptID,
				"subtopic_id":   res.Progress.SubtopicID,
				"mastery_score": res.Progress.MasteryScore,
			},
		})
	}
	if len(res.NewTopicsUnlocked) > 0 {
		events = append(events, Event{
			UserID:    userID,
			EventType: EventTopicsUnlocked,
			CreatedAt: at,
			Data: map[string]any{
				"subtopic_id": res.Progress.SubtopicID,
				"unlocked":    res.NewTopicsUnlocked,
			},
		})
	}

	for _, e := range events {
		if err := r.events.LogEvent(ctx, e); err != nil {
			r.metrics.ObserveEventError(e.EventType)
			slog.Warn("failed to log event",
				"type", e.EventType,
				"user_id", userID,
				"error", err,
			)
		}
	}
}

func (r *Recorder) names(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := r.graph.Node(id); ok {
			out = append(out, n.Name)
		}
	}
	return out
}

// Attempt returns one logged attempt.
func (r *Recorder) Attempt(ctx context.Context, userID, attemptID string) (Attempt, error) {
	a, err := r.store.GetAttempt(ctx, userID, attemptID)
	if err != nil {
		return Attempt{}, apperr.Storage("get attempt", err)
	}
	return a, nil
}

// History returns up to limit attempts for userID, newest first.
func (r *Recorder) History(ctx context.Context, userID string, limit int) ([]Attempt, error) {
	if userID == "" {
		return nil, apperr.Invalid("user id is required")
	}
	list, err := r.store.ListAttempts(ctx, userID, limit)
	if err != nil {
		return nil, apperr.Storage("list attempts", err)
	}
	return list, nil
}

// Progress returns the student's progress snapshot.
func (r *Recorder) Progress(ctx context.Context, userID string) (*progress.StudentProgress, error) {
	if userID == "" {
		return nil, apperr.Invalid("user id is required")
	}
	p, err := r.store.Load(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("load progress", err)
	}
	return p, nil
}
