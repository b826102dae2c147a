// Package xp computes the experience points awarded for a graded attempt.
// Compute is pure: identical inputs always yield identical awards.
package xp

import (
	"fmt"
	"math"
	"strconv"

	"github.com/p-n-ai/pai-tutor/internal/platform/apperr"
)

const (
	basePerDifficulty      = 10
	expectedSecondsPerStep = 30

	incorrectMultiplier = 0.3

	tooFastRatio = 0.5
	tooSlowRatio = 2.0

	tooFastMultiplier = 0.7
	optimalMultiplier = 1.1
	slowMultiplier    = 0.9

	firstAttemptMultiplier = 1.2
	maintenanceMultiplier  = 0.5
)

// hintMultipliers is indexed by min(hintsUsed, 3).
var hintMultipliers = [...]float64{1.0, 0.85, 0.70, 0.55}

// Input describes the facts of one graded attempt.
type Input struct {
	Difficulty        int
	IsCorrect         bool
	TimeSpent         int // seconds
	HintsUsed         int
	AttemptNumber     int // 1 for the first attempt at the subtopic
	IsAlreadyMastered bool
}

// Pace classifies time spent relative to the expected time.
type Pace string

const (
	PaceTooFast Pace = "too-fast"
	PaceOptimal Pace = "optimal"
	PaceSlow    Pace = "slow"
)

// Line is one labelled row of an award breakdown.
type Line struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Award is the XP result with every multiplier that produced it.
type Award struct {
	Base                  int     `json:"base"`
	Total                 int     `json:"total"`
	Pace                  Pace    `json:"pace,omitempty"`
	TimeMultiplier        float64 `json:"time_multiplier"`
	HintMultiplier        float64 `json:"hint_multiplier"`
	AttemptMultiplier     float64 `json:"attempt_multiplier"`
	MaintenanceMultiplier float64 `json:"maintenance_multiplier"`
	Breakdown             []Line  `json:"breakdown"`
}

// Validate rejects inputs outside the calculator's domain.
func (in Input) Validate() error {
	switch {
	case in.Difficulty < 1 || in.Difficulty > 3:
		return apperr.Invalid("difficulty %d outside 1..3", in.Difficulty)
	case in.TimeSpent < 0:
		return apperr.Invalid("time spent %d is negative", in.TimeSpent)
	case in.HintsUsed < 0:
		return apperr.Invalid("hints used %d is negative", in.HintsUsed)
	case in.AttemptNumber < 1:
		return apperr.Invalid("attempt number %d is below 1", in.AttemptNumber)
	}
	return nil
}

// Compute returns the XP award for in.
func Compute(in Input) (Award, error) {
	if err := in.Validate(); err != nil {
		return Award{}, err
	}

	base := in.Difficulty * basePerDifficulty
	award := Award{
		Base:                  base,
		TimeMultiplier:        1,
		HintMultiplier:        1,
		AttemptMultiplier:     1,
		MaintenanceMultiplier: 1,
	}
	award.Breakdown = append(award.Breakdown, Line{
		Label: fmt.Sprintf("Base XP (difficulty %d)", in.Difficulty),
		Value: strconv.Itoa(base),
	})

	if !in.IsCorrect {
		award.Total = int(math.Round(float64(base) * incorrectMultiplier))
		award.Breakdown = append(award.Breakdown,
			Line{Label: "Incorrect answer", Value: multiplier(incorrectMultiplier)},
			Line{Label: "Total", Value: strconv.Itoa(award.Total)},
		)
		return award, nil
	}

	award.Pace, award.TimeMultiplier = pace(in.Difficulty, in.TimeSpent)
	award.HintMultiplier = hintMultipliers[min(in.HintsUsed, len(hintMultipliers)-1)]
	if in.AttemptNumber == 1 {
		award.AttemptMultiplier = firstAttemptMultiplier
	}
	if in.IsAlreadyMastered {
		award.MaintenanceMultiplier = maintenanceMultiplier
	}

	product := float64(base) * award.TimeMultiplier * award.HintMultiplier *
		award.AttemptMultiplier * award.MaintenanceMultiplier
	award.Total = int(math.Round(product))

	award.Breakdown = append(award.Breakdown,
		Line{Label: paceLabel(award.Pace), Value: multiplier(award.TimeMultiplier)},
		Line{Label: fmt.Sprintf("Hints used: %d", in.HintsUsed), Value: multiplier(award.HintMultiplier)},
	)
	if award.AttemptMultiplier != 1 {
		award.Breakdown = append(award.Breakdown, Line{Label: "First attempt bonus", Value: multiplier(award.AttemptMultiplier)})
	}
	if award.MaintenanceMultiplier != 1 {
		award.Breakdown = append(award.Breakdown, Line{Label: "Review of mastered subtopic", Value: multiplier(award.MaintenanceMultiplier)})
	}
	award.Breakdown = append(award.Breakdown, Line{Label: "Total", Value: strconv.Itoa(award.Total)})

	return award, nil
}

// pace compares time spent with difficulty×30 seconds.
func pace(difficulty, timeSpent int) (Pace, float64) {
	expected := float64(difficulty * expectedSecondsPerStep)
	ratio := float64(timeSpent) / expected
	switch {
	case ratio < tooFastRatio:
		return PaceTooFast, tooFastMultiplier
	case ratio <= tooSlowRatio:
		return PaceOptimal, optimalMultiplier
	default:
		return PaceSlow, slowMultiplier
	}
}

func paceLabel(p Pace) string {
	switch p {
	case PaceTooFast:
		return "Pace: too fast"
	case PaceSlow:
		return "Pace: slow"
	default:
		return "Pace: optimal"
	}
}

func multiplier(m float64) string {
	return "x" + strconv.FormatFloat(m, 'f', -1, 64)
}
