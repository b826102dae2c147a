package feedback_test

import (
	"testing"

	"github.com/p-n-ai/pai-tutor/internal/feedback"
)

func TestCompose(t *testing.T) {
	c := feedback.NewComposer("en")

	tests := []struct {
		name string
		lang string
		in   feedback.Outcome
		want string
	}{
		{
			name: "correct",
			in:   feedback.Outcome{IsCorrect: true, XPEarned: 26},
			want: "Correct! +26 XP",
		},
		{
			name: "incorrect",
			in:   feedback.Outcome{XPEarned: 3},
			want: "Not quite right. +3 XP for the effort",
		},
		{
			name: "mastery with unlocks",
			in: feedback.Outcome{
				IsCorrect:    true,
				XPEarned:     11,
				Mastered:     true,
				SubtopicName: "One-Step Equations",
				Unlocked:     []string{"Two-Step Equations", "One-Step Inequalities"},
			},
			want: "Correct! +11 XP You have mastered One-Step Equations! New topics unlocked: Two-Step Equations, One-Step Inequalities",
		},
		{
			name: "malay",
			lang: "ms",
			in:   feedback.Outcome{IsCorrect: true, XPEarned: 11, Mastered: true, SubtopicName: "Slope"},
			want: "Betul! +11 XP Tahniah, anda telah menguasai Slope!",
		},
		{
			name: "malay region",
			lang: "ms-MY",
			in:   feedback.Outcome{XPEarned: 6, Unlocked: []string{"Slope"}},
			want: "Belum tepat. +6 XP untuk usaha anda Topik baharu dibuka: Slope",
		},
		{
			name: "unsupported falls back",
			lang: "ja",
			in:   feedback.Outcome{IsCorrect: true, XPEarned: 7},
			want: "Correct! +7 XP",
		},
		{
			name: "garbage falls back",
			lang: "!!",
			in:   feedback.Outcome{IsCorrect: true, XPEarned: 7},
			want: "Correct! +7 XP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Compose(tt.lang, tt.in); got != tt.want {
				t.Errorf("Compose() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewComposer_Fallback(t *testing.T) {
	c := feedback.NewComposer("ms")
	if got := c.Compose("", feedback.Outcome{IsCorrect: true, XPEarned: 10}); got != "Betul! +10 XP" {
		t.Errorf("Compose() = %q, want Malay fallback", got)
	}

	c = feedback.NewComposer("xx-invalid-")
	if got := c.Compose("", feedback.Outcome{IsCorrect: true, XPEarned: 10}); got != "Correct! +10 XP" {
		t.Errorf("Compose() = %q, want English", got)
	}
}

func TestLanguages(t *testing.T) {
	langs := feedback.Languages()
	if len(langs) != 2 || langs[0] != "en" || langs[1] != "ms" {
		t.Errorf("Languages() = %v, want [en ms]", langs)
	}
}
