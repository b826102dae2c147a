// Package recommend picks the next subtopic a student should practise.
package recommend

import (
	"cmp"
	"context"
	"slices"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/gating"
	"github.com/p-n-ai/pai-tutor/internal/platform/apperr"
)

// Reason says why a subtopic was recommended.
type Reason string

const (
	ReasonNew      Reason = "new"
	ReasonContinue Reason = "continue"
	ReasonReview   Reason = "review"
)

// Recommendation is one ranked candidate.
type Recommendation struct {
	Subtopic     curriculum.Subtopic `json:"subtopic"`
	Reason       Reason              `json:"reason"`
	MasteryScore int                 `json:"mastery_score"`
}

// Engine ranks subtopics for a student over a fresh gating snapshot.
type Engine struct {
	gating *gating.Engine
}

// NewEngine creates a recommendation engine.
func NewEngine(g *gating.Engine) *Engine {
	return &Engine{gating: g}
}

// Next returns the best subtopic to practise next, or nil when nothing is unlocked.
func (e *Engine) Next(ctx context.Context, userID string) (*Recommendation, error) {
	v, err := e.gating.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NextFor(v), nil
}

// Frontier returns up to count unmastered candidates, not-started first.
func (e *Engine) Frontier(ctx context.Context, userID string, count int) ([]Recommendation, error) {
	if count < 1 {
		return nil, apperr.Invalid("count %d must be at least 1", count)
	}
	v, err := e.gating.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FrontierFor(v, count), nil
}

// NextFor ranks over an existing view.
func NextFor(v *gating.View) *Recommendation {
	if ranked := frontier(v); len(ranked) > 0 {
		return &ranked[0]
	}

	var review *Recommendation
	for _, c := range candidates(v, gating.StatusMastered) {
		if review == nil || c.MasteryScore < review.MasteryScore ||
			(c.MasteryScore == review.MasteryScore && c.Subtopic.Name < review.Subtopic.Name) {
			rec := Recommendation{Subtopic: c.Subtopic, Reason: ReasonReview, MasteryScore: c.MasteryScore}
			review = &rec
		}
	}
	return review
}

// FrontierFor ranks over an existing view.
func FrontierFor(v *gating.View, count int) []Recommendation {
	ranked := frontier(v)
	if len(ranked) > count {
		ranked = ranked[:count]
	}
	return ranked
}

func frontier(v *gating.View) []Recommendation {
	fresh := candidates(v, gating.StatusNotStarted)
	slices.SortFunc(fresh, func(a, b Recommendation) int {
		return cmp.Or(
			cmp.Compare(a.Subtopic.Difficulty, b.Subtopic.Difficulty),
			cmp.Compare(a.Subtopic.Name, b.Subtopic.Name),
			cmp.Compare(a.Subtopic.ID, b.Subtopic.ID),
		)
	})

	started := candidates(v, gating.StatusInProgress)
	slices.SortFunc(started, func(a, b Recommendation) int {
		return cmp.Or(
			cmp.Compare(b.MasteryScore, a.MasteryScore),
			cmp.Compare(a.Subtopic.Difficulty, b.Subtopic.Difficulty),
			cmp.Compare(a.Subtopic.Name, b.Subtopic.Name),
			cmp.Compare(a.Subtopic.ID, b.Subtopic.ID),
		)
	})

	return append(fresh, started...)
}

// candidates returns the unlocked subtopics with the given status.
func candidates(v *gating.View, status gating.Status) []Recommendation {
	reason := map[gating.Status]Reason{
		gating.StatusNotStarted: ReasonNew,
		gating.StatusInProgress: ReasonContinue,
		gating.StatusMastered:   ReasonReview,
	}[status]

	var out []Recommendation
	for _, n := range v.Graph().Nodes() {
		if !v.IsUnlocked(n.ID) || v.Status(n.ID) != status {
			continue
		}
		sp, _ := v.Progress().Subtopic(n.ID)
		out = append(out, Recommendation{Subtopic: n, Reason: reason, MasteryScore: sp.MasteryScore})
	}
	return out
}
