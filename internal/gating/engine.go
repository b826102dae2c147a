package gating

import (
	"context"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/platform/apperr"
	"github.com/p-n-ai/pai-tutor/internal/progress"
)

// Loader reads a student's progress. progress.Store satisfies it.
type Loader interface {
	Load(ctx context.Context, userID string) (*progress.StudentProgress, error)
}

// Engine answers gating questions per user, loading a fresh snapshot on every call.
type Engine struct {
	graph  *curriculum.Graph
	loader Loader
}

// NewEngine creates a gating engine.
func NewEngine(graph *curriculum.Graph, loader Loader) *Engine {
	return &Engine{graph: graph, loader: loader}
}

// View loads the student's progress and returns a snapshot view over it.
func (e *Engine) View(ctx context.Context, userID string) (*View, error) {
	if userID == "" {
		return nil, apperr.Invalid("user id is required")
	}
	p, err := e.loader.Load(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("load progress", err)
	}
	return NewView(e.graph, p), nil
}

func (e *Engine) viewFor(ctx context.Context, userID, subtopicID string) (*View, error) {
	if _, ok := e.graph.Node(subtopicID); !ok {
		return nil, apperr.NotFound("subtopic %q", subtopicID)
	}
	return e.View(ctx, userID)
}

func (e *Engine) IsUnlocked(ctx context.Context, userID, subtopicID string) (bool, error) {
	v, err := e.viewFor(ctx, userID, subtopicID)
	if err != nil {
		return false, err
	}
	return v.IsUnlocked(subtopicID), nil
}

func (e *Engine) StatusOf(ctx context.Context, userID, subtopicID string) (Status, error) {
	v, err := e.viewFor(ctx, userID, subtopicID)
	if err != nil {
		return "", err
	}
	return v.Status(subtopicID), nil
}

func (e *Engine) LockedReason(ctx context.Context, userID, subtopicID string) (string, error) {
	v, err := e.viewFor(ctx, userID, subtopicID)
	if err != nil {
		return "", err
	}
	return v.LockedReason(subtopicID), nil
}

func (e *Engine) TopicsUnlockedBy(ctx context.Context, userID, subtopicID string) ([]string, error) {
	v, err := e.viewFor(ctx, userID, subtopicID)
	if err != nil {
		return nil, err
	}
	return v.UnlockedBy(subtopicID), nil
}

// SubtopicState is one row of a student's curriculum map.
type SubtopicState struct {
	Subtopic     curriculum.Subtopic `json:"subtopic"`
	Status       Status              `json:"status"`
	Unlocked     bool                `json:"unlocked"`
	LockedReason string              `json:"locked_reason,omitempty"`
	MasteryScore int                 `json:"mastery_score"`
}

// States returns the state of every subtopic in curriculum order.
func (v *View) States() []SubtopicState {
	nodes := v.graph.Nodes()
	out := make([]SubtopicState, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, v.state(n))
	}
	return out
}

// State returns the state of one subtopic; ok is false for an unknown id.
func (v *View) State(id string) (SubtopicState, bool) {
	n, ok := v.graph.Node(id)
	if !ok {
		return SubtopicState{}, false
	}
	return v.state(n), true
}

func (v *View) state(n curriculum.Subtopic) SubtopicState {
	sp, _ := v.progress.Subtopic(n.ID)
	return SubtopicState{
		Subtopic:     n,
		Status:       v.Status(n.ID),
		Unlocked:     v.IsUnlocked(n.ID),
		LockedReason: v.LockedReason(n.ID),
		MasteryScore: sp.MasteryScore,
	}
}

// Statuses returns every subtopic's state for a student.
func (e *Engine) Statuses(ctx context.Context, userID string) ([]SubtopicState, error) {
	v, err := e.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	return v.States(), nil
}
