// Package report exports a student's progress as an xlsx workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-tutor/internal/attempt"
	"github.com/p-n-ai/pai-tutor/internal/gating"
	"github.com/p-n-ai/pai-tutor/internal/progress"
)

// Sheet names.
const (
	SheetSummary  = "Summary"
	SheetProgress = "Progress"
	SheetAttempts = "Attempts"
)

var (
	progressHeader = []any{"Subtopic ID", "Name", "Topic", "Difficulty", "Status", "Attempts", "Correct", "Score", "Mastered", "Mastered At", "Locked Reason"}
	attemptsHeader = []any{"Attempt ID", "Subtopic ID", "Correct", "Time Spent (s)", "Hints", "XP", "Mastery", "Unlocked", "Created At"}
)

// Input is everything a workbook is built from.
type Input struct {
	Progress *progress.StudentProgress
	States   []gating.SubtopicState // curriculum order
	Attempts []attempt.Attempt      // newest first
}

// WriteWorkbook writes the workbook for in to w.
func WriteWorkbook(w io.Writer, in Input) error {
	if in.Progress == nil {
		return fmt.Errorf("progress is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetProgress, SheetAttempts} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeSummary(f, in); err != nil {
		return err
	}
	if err := writeRows(f, SheetProgress, header, progressHeader, progressRows(in)); err != nil {
		return err
	}
	if err := writeRows(f, SheetAttempts, header, attemptsHeader, attemptRows(in.Attempts)); err != nil {
		return err
	}

	if err := f.SetColWidth(SheetProgress, "B", "B", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(SheetProgress, "K", "K", 48); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, in Input) error {
	mastered := 0
	for _, s := range in.States {
		if s.Status == gating.StatusMastered {
			mastered++
		}
	}
	lastActive := ""
	if !in.Progress.LastActiveDate.IsZero() {
		lastActive = in.Progress.LastActiveDate.Format(time.DateOnly)
	}

	rows := [][]any{
		{"User", in.Progress.UserID},
		{"Total XP", in.Progress.TotalXP},
		{"Current Streak", in.Progress.CurrentStreak},
		{"Last Active", lastActive},
		{"Mastered", fmt.Sprintf("%d/%d", mastered, len(in.States))},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", SheetSummary, i+1, err)
		}
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, style int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func progressRows(in Input) [][]any {
	rows := make([][]any, 0, len(in.States))
	for _, s := range in.States {
		sp, _ := in.Progress.Subtopic(s.Subtopic.ID)
		masteredAt := ""
		if sp.MasteredAt != nil {
			masteredAt = sp.MasteredAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []any{
			s.Subtopic.ID,
			s.Subtopic.Name,
			s.Subtopic.TopicID,
			s.Subtopic.Difficulty,
			string(s.Status),
			sp.AttemptCount,
			sp.CorrectCount,
			sp.MasteryScore,
			yesNo(sp.Mastered),
			masteredAt,
			s.LockedReason,
		})
	}
	return rows
}

func attemptRows(attempts []attempt.Attempt) [][]any {
	rows := make([][]any, 0, len(attempts))
	for _, a := range attempts {
		unlocked := ""
		for i, id := range a.UnlockedTopics {
			if i > 0 {
				unlocked += ", "
			}
			unlocked += id
		}
		rows = append(rows, []any{
			a.ID,
			a.SubtopicID,
			yesNo(a.IsCorrect),
			a.TimeSpent,
			a.HintsUsed,
			a.XPEarned,
			yesNo(a.MasteryAchieved),
			unlocked,
			a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
