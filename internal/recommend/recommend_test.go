package recommend_test

import (
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-tutor/internal/curriculum"
	"github.com/p-n-ai/pai-tutor/internal/gating"
	"github.com/p-n-ai/pai-tutor/internal/platform/apperr"
	"github.com/p-n-ai/pai-tutor/internal/progress"
	"github.com/p-n-ai/pai-tutor/internal/recommend"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func graph(t *testing.T, subtopics ...curriculum.Subtopic) *curriculum.Graph {
	t.Helper()
	g, err := curriculum.NewGraph([]curriculum.Topic{{ID: "t", Name: "T", Subtopics: subtopics}})
	if err != nil {
		t.Fatalf("NewGraph() error = %v", err)
	}
	return g
}

func sub(id, name string, difficulty int, prereqs ...string) curriculum.Subtopic {
	return curriculum.Subtopic{ID: id, Name: name, Difficulty: difficulty, EstimatedMinutes: 10, Prerequisites: prereqs}
}

func record(p *progress.StudentProgress, id string, results ...bool) {
	for _, ok := range results {
		p.Apply(id, ok, 30, now)
	}
}

func TestNextFor_NotStartedTieBreak(t *testing.T) {
	// Declared in reverse so graph order cannot decide.
	g := graph(t,
		sub("b", "Beta", 1),
		sub("a", "Alpha", 1),
		sub("z", "Zero", 2),
	)

	for i := 0; i < 5; i++ {
		rec := recommend.NextFor(gating.NewView(g, progress.New("user-1")))
		if rec == nil || rec.Subtopic.Name != "Alpha" {
			t.Fatalf("NextFor() = %+v, want Alpha", rec)
		}
		if rec.Reason != recommend.ReasonNew {
			t.Errorf("Reason = %q, want new", rec.Reason)
		}
	}
}

func TestNextFor_LowestDifficultyFirst(t *testing.T) {
	g := graph(t,
		sub("a", "Alpha", 2),
		sub("b", "Beta", 1),
	)
	rec := recommend.NextFor(gating.NewView(g, progress.New("user-1")))
	if rec == nil || rec.Subtopic.ID != "b" {
		t.Fatalf("NextFor() = %+v, want b", rec)
	}
}

func TestNextFor_InProgressHighestScore(t *testing.T) {
	g := graph(t,
		sub("a", "Alpha", 1),
		sub("b", "Beta", 1),
		sub("c", "Gamma", 1),
	)
	p := progress.New("user-1")
	record(p, "a", true, false)        // 50
	record(p, "b", true, true, false)  // 67
	record(p, "c", false, false, true) // 33

	rec := recommend.NextFor(gating.NewView(g, p))
	if rec == nil || rec.Subtopic.ID != "b" {
		t.Fatalf("NextFor() = %+v, want b", rec)
	}
	if rec.Reason != recommend.ReasonContinue || rec.MasteryScore != 67 {
		t.Errorf("rec = %+v, want continue with score 67", rec)
	}
}

func TestNextFor_NotStartedBeatsInProgress(t *testing.T) {
	g := graph(t,
		sub("a", "Alpha", 1),
		sub("b", "Beta", 3),
	)
	p := progress.New("user-1")
	record(p, "a", true, true)

	rec := recommend.NextFor(gating.NewView(g, p))
	if rec == nil || rec.Subtopic.ID != "b" {
		t.Fatalf("NextFor() = %+v, want b", rec)
	}
}

func TestNextFor_ExcludesLockedAndMastered(t *testing.T) {
	g := graph(t,
		sub("a", "Alpha", 1),
		sub("b", "Beta", 1, "a"),
		sub("c", "Gamma", 1, "b"),
	)
	p := progress.New("user-1")
	record(p, "a", true, true, true)

	rec := recommend.NextFor(gating.NewView(g, p))
	if rec == nil || rec.Subtopic.ID != "b" {
		t.Fatalf("NextFor() = %+v, want b", rec)
	}
}

func TestNextFor_ReviewWeakestMastered(t *testing.T) {
	g := graph(t,
		sub("a", "Alpha", 1),
		sub("b", "Beta", 1),
		sub("c", "Gamma", 1, "a", "b"),
	)
	p := progress.New("user-1")
	record(p, "a", true, true, true)
	record(p, "b", true, true, true, false, false) // mastered, now 60
	record(p, "c", true, true, true, false)        // mastered, now 75

	rec := recommend.NextFor(gating.NewView(g, p))
	if rec == nil || rec.Subtopic.ID != "b" {
		t.Fatalf("NextFor() = %+v, want b", rec)
	}
	if rec.Reason != recommend.ReasonReview || rec.MasteryScore != 60 {
		t.Errorf("rec = %+v, want review with score 60", rec)
	}
}

func TestNextFor_AllMasteredReviews(t *testing.T) {
	g := graph(t, sub("a", "Alpha", 1))
	p := progress.New("user-1")
	record(p, "a", true, true, true)

	v := gating.NewView(g, p)
	if rec := recommend.NextFor(v); rec == nil || rec.Reason != recommend.ReasonReview {
		t.Errorf("NextFor() = %+v, want review of a", rec)
	}
	if got := recommend.FrontierFor(v, 3); len(got) != 0 {
		t.Errorf("FrontierFor() = %+v, want empty when everything is mastered", got)
	}
}

func TestNextFor_NothingUnlocked(t *testing.T) {
	g, err := curriculum.NewGraph(nil)
	if err != nil {
		t.Fatalf("NewGraph(nil) error = %v", err)
	}
	if rec := recommend.NextFor(gating.NewView(g, progress.New("user-1"))); rec != nil {
		t.Errorf("NextFor() = %+v, want nil", rec)
	}
}

func TestFrontierFor_Order(t *testing.T) {
	g := graph(t,
		sub("a", "Alpha", 1),
		sub("b", "Beta", 2),
		sub("c", "Gamma", 1),
		sub("d", "Delta", 1),
		sub("e", "Echo", 1),
		sub("f", "Foxtrot", 3, "a"),
	)
	p := progress.New("user-1")
	record(p, "c", true, false)       // 50
	record(p, "d", true, true, false) // 67

	got := recommend.FrontierFor(gating.NewView(g, p), 10)
	want := []string{"a", "e", "b", "d", "c"}
	if len(got) != len(want) {
		t.Fatalf("FrontierFor() = %+v, want ids %v", got, want)
	}
	for i, id := range want {
		if got[i].Subtopic.ID != id {
			t.Errorf("FrontierFor()[%d] = %s, want %s", i, got[i].Subtopic.ID, id)
		}
	}

	if short := recommend.FrontierFor(gating.NewView(g, p), 2); len(short) != 2 || short[1].Subtopic.ID != "e" {
		t.Errorf("FrontierFor(2) = %+v", short)
	}
}

func TestEngine_DefaultCurriculum(t *testing.T) {
	g, err := curriculum.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	engine := recommend.NewEngine(gating.NewEngine(g, progress.NewMemoryStore()))

	rec, err := engine.Next(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if rec == nil || rec.Subtopic.ID != "sub-inequality-basics" {
		t.Errorf("Next() = %+v, want sub-inequality-basics", rec)
	}

	frontier, err := engine.Frontier(t.Context(), "user-1", 5)
	if err != nil {
		t.Fatalf("Frontier() error = %v", err)
	}
	if len(frontier) != 2 || frontier[1].Subtopic.ID != "sub-one-step" {
		t.Errorf("Frontier() = %+v", frontier)
	}
}

func TestEngine_FrontierRejectsCount(t *testing.T) {
	g, _ := curriculum.Default()
	engine := recommend.NewEngine(gating.NewEngine(g, progress.NewMemoryStore()))

	for _, n := range []int{0, -3} {
		if _, err := engine.Frontier(t.Context(), "user-1", n); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Frontier(%d) error = %v, want ErrInvalidInput", n, err)
		}
	}
}
