package xp_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-tutor/internal/platform/apperr"
	"github.com/p-n-ai/pai-tutor/internal/xp"
)

func TestCompute_Incorrect(t *testing.T) {
	tests := []struct {
		difficulty int
		want       int
	}{
		{1, 3},
		{2, 6},
		{3, 9},
	}

	for _, tt := range tests {
		// Other multipliers never apply to an incorrect answer.
		award, err := xp.Compute(xp.Input{
			Difficulty:        tt.difficulty,
			IsCorrect:         false,
			TimeSpent:         1,
			HintsUsed:         3,
			AttemptNumber:     1,
			IsAlreadyMastered: true,
		})
		if err != nil {
			t.Fatalf("Compute() error = %v", err)
		}
		if award.Total != tt.want {
			t.Errorf("difficulty %d: Total = %d, want %d", tt.difficulty, award.Total, tt.want)
		}
		if award.TimeMultiplier != 1 || award.HintMultiplier != 1 || award.AttemptMultiplier != 1 || award.MaintenanceMultiplier != 1 {
			t.Errorf("difficulty %d: multipliers should stay neutral, got %+v", tt.difficulty, award)
		}
	}
}

func TestCompute_Correct(t *testing.T) {
	tests := []struct {
		name string
		in   xp.Input
		want int
		pace xp.Pace
	}{
		{
			name: "optimal first attempt at the lower ratio bound",
			in:   xp.Input{Difficulty: 2, IsCorrect: true, TimeSpent: 30, AttemptNumber: 1},
			want: 26, // round(20 × 1.1 × 1.2) = round(26.4)
			pace: xp.PaceOptimal,
		},
		{
			name: "optimal at upper ratio bound",
			in:   xp.Input{Difficulty: 1, IsCorrect: true, TimeSpent: 60, AttemptNumber: 2},
			want: 11, // round(10 × 1.1)
			pace: xp.PaceOptimal,
		},
		{
			name: "too fast",
			in:   xp.Input{Difficulty: 2, IsCorrect: true, TimeSpent: 29, AttemptNumber: 2},
			want: 14, // round(20 × 0.7)
			pace: xp.PaceTooFast,
		},
		{
			name: "zero time is too fast",
			in:   xp.Input{Difficulty: 1, IsCorrect: true, TimeSpent: 0, AttemptNumber: 2},
			want: 7,
			pace: xp.PaceTooFast,
		},
		{
			name: "slow",
			in:   xp.Input{Difficulty: 3, IsCorrect: true, TimeSpent: 181, AttemptNumber: 2},
			want: 27, // round(30 × 0.9)
			pace: xp.PaceSlow,
		},
		{
			name: "one hint",
			in:   xp.Input{Difficulty: 2, IsCorrect: true, TimeSpent: 60, HintsUsed: 1, AttemptNumber: 2},
			want: 19, // round(20 × 1.1 × 0.85) = round(18.7)
			pace: xp.PaceOptimal,
		},
		{
			name: "two hints",
			in:   xp.Input{Difficulty: 2, IsCorrect: true, TimeSpent: 60, HintsUsed: 2, AttemptNumber: 2},
			want: 15, // round(20 × 1.1 × 0.7) = round(15.4)
			pace: xp.PaceOptimal,
		},
		{
			name: "hints capped at three",
			in:   xp.Input{Difficulty: 2, IsCorrect: true, TimeSpent: 60, HintsUsed: 9, AttemptNumber: 2},
			want: 12, // round(20 × 1.1 × 0.55) = round(12.1)
			pace: xp.PaceOptimal,
		},
		{
			name: "maintenance review",
			in:   xp.Input{Difficulty: 2, IsCorrect: true, TimeSpent: 60, AttemptNumber: 5, IsAlreadyMastered: true},
			want: 11, // round(20 × 1.1 × 0.5)
			pace: xp.PaceOptimal,
		},
		{
			name: "every modifier",
			in:   xp.Input{Difficulty: 3, IsCorrect: true, TimeSpent: 10, HintsUsed: 1, AttemptNumber: 1, IsAlreadyMastered: true},
			want: 11, // round(30 × 0.7 × 0.85 × 1.2 × 0.5) = round(10.71)
			pace: xp.PaceTooFast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			award, err := xp.Compute(tt.in)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if award.Total != tt.want {
				t.Errorf("Total = %d, want %d", award.Total, tt.want)
			}
			if award.Pace != tt.pace {
				t.Errorf("Pace = %q, want %q", award.Pace, tt.pace)
			}
		})
	}
}

func TestCompute_Breakdown(t *testing.T) {
	award, err := xp.Compute(xp.Input{Difficulty: 2, IsCorrect: true, TimeSpent: 30, AttemptNumber: 1})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	want := []xp.Line{
		{Label: "Base XP (difficulty 2)", Value: "20"},
		{Label: "Pace: optimal", Value: "x1.1"},
		{Label: "Hints used: 0", Value: "x1"},
		{Label: "First attempt bonus", Value: "x1.2"},
		{Label: "Total", Value: "26"},
	}
	if len(award.Breakdown) != len(want) {
		t.Fatalf("Breakdown = %+v, want %d lines", award.Breakdown, len(want))
	}
	for i := range want {
		if award.Breakdown[i] != want[i] {
			t.Errorf("Breakdown[%d] = %+v, want %+v", i, award.Breakdown[i], want[i])
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	in := xp.Input{Difficulty: 3, IsCorrect: true, TimeSpent: 95, HintsUsed: 2, AttemptNumber: 1}
	first, _ := xp.Compute(in)
	for i := 0; i < 10; i++ {
		got, _ := xp.Compute(in)
		if got.Total != first.Total {
			t.Fatalf("Compute() not deterministic: %d vs %d", got.Total, first.Total)
		}
	}
}

func TestCompute_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   xp.Input
	}{
		{"difficulty zero", xp.Input{Difficulty: 0, AttemptNumber: 1}},
		{"difficulty four", xp.Input{Difficulty: 4, AttemptNumber: 1}},
		{"negative time", xp.Input{Difficulty: 1, TimeSpent: -1, AttemptNumber: 1}},
		{"negative hints", xp.Input{Difficulty: 1, HintsUsed: -1, AttemptNumber: 1}},
		{"attempt zero", xp.Input{Difficulty: 1, AttemptNumber: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := xp.Compute(tt.in)
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("Compute() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}
