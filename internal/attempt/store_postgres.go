package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-tutor/internal/platform/apperr"
	"github.com/p-n-ai/pai-tutor/internal/progress"
)

const dbTimeout = 5 * time.Second

const attemptColumns = `id, user_id, subtopic_id, problem_text, image_ref, student_response,
	is_correct, time_spent, hints_used, xp_earned, feedback, mastery_achieved,
	unlocked_topics, conversation, created_at`

// PostgresStore is a PostgreSQL-backed Store implementation. Progress and the
// attempt row are written in one transaction.
type PostgresStore struct {
	*progress.PostgresStore
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed attempt store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	ps, err := progress.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{PostgresStore: ps, pool: pool}, nil
}

func (s *PostgresStore) Commit(ctx context.Context, userID, attemptID string, fn CommitFunc) (Attempt, bool, error) {
	if attemptID == "" {
		return Attempt{}, false, fmt.Errorf("attempt_id is required")
	}

	var stored Attempt
	_, err := s.UpdateTx(ctx, userID, func(ctx context.Context, tx pgx.Tx, p *progress.StudentProgress) error {
		// The student row is locked, so a concurrent retry waits here.
		existing, err := scanAttempt(tx.QueryRow(ctx,
			`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1 AND id = $2`,
			userID, attemptID,
		))
		if err == nil {
			stored = existing
			return errDuplicate
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("get attempt: %w", err)
		}

		a, err := fn(p)
		if err != nil {
			return err
		}
		a.ID = attemptID
		a.UserID = userID
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now()
		}
		if err := insertAttempt(ctx, tx, a); err != nil {
			return err
		}
		stored = a
		return nil
	})
	if errors.Is(err, errDuplicate) {
		return stored, true, nil
	}
	if err != nil {
		return Attempt{}, false, err
	}
	return stored, false, nil
}

func insertAttempt(ctx context.Context, tx pgx.Tx, a Attempt) error {
	var conversation []byte
	if len(a.Conversation) > 0 {
		data, err := json.Marshal(a.Conversation)
		if err != nil {
			return fmt.Errorf("marshal conversation: %w", err)
		}
		conversation = data
	}
	unlocked := a.UnlockedTopics
	if unlocked == nil {
		unlocked = []string{}
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO attempts (`+attemptColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.ID,
		a.UserID,
		a.SubtopicID,
		a.ProblemText,
		nullIfEmpty(a.ImageRef),
		a.StudentResponse,
		a.IsCorrect,
		a.TimeSpent,
		a.HintsUsed,
		a.XPEarned,
		a.Feedback,
		a.MasteryAchieved,
		unlocked,
		conversation,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAttempt(ctx context.Context, userID, attemptID string) (Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	a, err := scanAttempt(s.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1 AND id = $2`,
		userID, attemptID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, apperr.NotFound("attempt %s for user %s", attemptID, userID)
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListAttempts(ctx context.Context, userID string, limit int) ([]Attempt, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		userID, limitArg,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func scanAttempt(row pgx.Row) (Attempt, error) {
	var (
		a            Attempt
		imageRef     *string
		conversation []byte
	)
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.SubtopicID,
		&a.ProblemText,
		&imageRef,
		&a.StudentResponse,
		&a.IsCorrect,
		&a.TimeSpent,
		&a.HintsUsed,
		&a.XPEarned,
		&a.Feedback,
		&a.MasteryAchieved,
		&a.UnlockedTopics,
		&conversation,
		&a.CreatedAt,
	)
	if err != nil {
		return Attempt{}, err
	}
	if imageRef != nil {
		a.ImageRef = *imageRef
	}
	if len(a.UnlockedTopics) == 0 {
		a.UnlockedTopics = nil
	}
	if len(conversation) > 0 {
		if err := json.Unmarshal(conversation, &a.Conversation); err != nil {
			return Attempt{}, fmt.Errorf("unmarshal conversation: %w", err)
		}
	}
	return a, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
