package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (*StudentProgress, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return loadProgress(ctx, s.pool, userID, false)
}

func (s *PostgresStore) Update(ctx context.Context, userID string, fn func(*StudentProgress) error) (*StudentProgress, error) {
	return s.UpdateTx(ctx, userID, func(_ context.Context, _ pgx.Tx, p *StudentProgress) error {
		return fn(p)
	})
}

// UpdateTx runs fn inside a transaction that holds the student's row lock, then
// writes back every changed field. Other writes made by fn through tx commit or
// roll back together with the progress change.
func (s *PostgresStore) UpdateTx(ctx context.Context, userID string, fn func(ctx context.Context, tx pgx.Tx, p *StudentProgress) error) (*StudentProgress, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx,
		`INSERT INTO students (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("ensure student: %w", err)
	}

	current, err := loadProgress(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}
	working := current.Clone()

	if err := fn(ctx, tx, working); err != nil {
		return nil, err
	}

	if err := saveProgress(ctx, tx, current, working); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit progress: %w", err)
	}
	return working, nil
}

func loadProgress(ctx context.Context, q querier, userID string, forUpdate bool) (*StudentProgress, error) {
	p := New(userID)

	query := `SELECT total_xp, current_streak, last_active_date FROM students WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var lastActive *time.Time
	err := q.QueryRow(ctx, query, userID).Scan(&p.TotalXP, &p.CurrentStreak, &lastActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, nil
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	if lastActive != nil {
		p.LastActiveDate = lastActive.UTC()
	}

	rows, err := q.Query(ctx,
		`SELECT subtopic_id, attempt_count, correct_count, mastery_score, mastered,
		        total_time_spent, first_attempt_at, last_attempted_at, mastered_at
		 FROM subtopic_progress
		 WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query subtopic progress: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sp SubtopicProgress
		if err := rows.Scan(
			&sp.SubtopicID,
			&sp.AttemptCount,
			&sp.CorrectCount,
			&sp.MasteryScore,
			&sp.Mastered,
			&sp.TotalTimeSpent,
			&sp.FirstAttemptAt,
			&sp.LastAttemptedAt,
			&sp.MasteredAt,
		); err != nil {
			return nil, fmt.Errorf("scan subtopic progress: %w", err)
		}
		p.Subtopics[sp.SubtopicID] = sp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtopic progress: %w", err)
	}

	return p, nil
}

func saveProgress(ctx context.Context, tx pgx.Tx, before, after *StudentProgress) error {
	var lastActive any
	if !after.LastActiveDate.IsZero() {
		lastActive = after.LastActiveDate
	}
	if _, err := tx.Exec(ctx,
		`UPDATE students
		 SET total_xp = $2, current_streak = $3, last_active_date = $4, updated_at = NOW()
		 WHERE user_id = $1`,
		after.UserID,
		after.TotalXP,
		after.CurrentStreak,
		lastActive,
	); err != nil {
		return fmt.Errorf("update student: %w", err)
	}

	for id, sp := range after.Subtopics {
		if prev, ok := before.Subtopics[id]; ok && subtopicEqual(prev, sp) {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO subtopic_progress (user_id, subtopic_id, attempt_count, correct_count,
			    mastery_score, mastered, total_time_spent, first_attempt_at, last_attempted_at, mastered_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (user_id, subtopic_id) DO UPDATE SET
			    attempt_count = EXCLUDED.attempt_count,
			    correct_count = EXCLUDED.correct_count,
			    mastery_score = EXCLUDED.mastery_score,
			    mastered = subtopic_progress.mastered OR EXCLUDED.mastered,
			    total_time_spent = EXCLUDED.total_time_spent,
			    last_attempted_at = EXCLUDED.last_attempted_at,
			    mastered_at = COALESCE(subtopic_progress.mastered_at, EXCLUDED.mastered_at)`,
			after.UserID,
			id,
			sp.AttemptCount,
			sp.CorrectCount,
			sp.MasteryScore,
			sp.Mastered,
			sp.TotalTimeSpent,
			sp.FirstAttemptAt,
			sp.LastAttemptedAt,
			sp.MasteredAt,
		); err != nil {
			return fmt.Errorf("upsert subtopic progress %s: %w", id, err)
		}
	}
	return nil
}
