package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/platform/apperr"
)

// Tracker is the only writer of subtopic counters outside the attempt recorder.
type Tracker struct {
	graph *curriculum.Graph
	store Store
	now   func() time.Time
}

// NewTracker creates a progress tracker over graph and store.
func NewTracker(graph *curriculum.Graph, store Store) *Tracker {
	return &Tracker{graph: graph, store: store, now: time.Now}
}

// WithClock replaces the tracker's time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// RecordAttempt records one graded attempt and returns the updated row.
func (t *Tracker) RecordAttempt(ctx context.Context, userID, subtopicID string, isCorrect bool, timeSpent int) (SubtopicProgress, error) {
	if userID == "" {
		return SubtopicProgress{}, apperr.Invalid("user id is required")
	}
	if _, ok := t.graph.Node(subtopicID); !ok {
		return SubtopicProgress{}, apperr.NotFound("subtopic %q", subtopicID)
	}
	if timeSpent < 0 {
		return SubtopicProgress{}, apperr.Invalid("time spent %d is negative", timeSpent)
	}

	now := t.now()
	var before, after SubtopicProgress
	_, err := t.store.Update(ctx, userID, func(p *StudentProgress) error {
		before, after = p.Apply(subtopicID, isCorrect, timeSpent, now)
		p.RecordActivity(now)
		return nil
	})
	if err != nil {
		return SubtopicProgress{}, apperr.Storage("record attempt", err)
	}

	if !before.Mastered && after.Mastered {
		slog.Info("subtopic mastered",
			"user_id", userID,
			"subtopic_id", subtopicID,
			"attempts", after.AttemptCount,
			"score", after.MasteryScore,
		)
	}
	return after, nil
}

// Progress returns the student's full progress snapshot.
func (t *Tracker) Progress(ctx context.Context, userID string) (*StudentProgress, error) {
	if userID == "" {
		return nil, apperr.Invalid("user id is required")
	}
	p, err := t.store.Load(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("load progress", err)
	}
	return p, nil
}
