package attempt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/p-n-ai/pai-tutor/internal/platform/apperr"
	"github.com/p-n-ai/pai-tutor/internal/progress"
)

// errDuplicate aborts a commit whose attempt id is already logged.
var errDuplicate = errors.New("duplicate attempt")

// CommitFunc mutates the student's progress and returns the attempt to log.
type CommitFunc func(p *progress.StudentProgress) (Attempt, error)

// Store persists progress and the attempt log together.
type Store interface {
	progress.Store

	// Commit applies fn and appends its attempt as one atomic write. If
	// (userID, attemptID) is already logged nothing is applied and the stored
	// attempt is returned with duplicate set.
	Commit(ctx context.Context, userID, attemptID string, fn CommitFunc) (stored Attempt, duplicate bool, err error)
	// GetAttempt returns one logged attempt or an ErrNotFound error.
	GetAttempt(ctx context.Context, userID, attemptID string) (Attempt, error)
	// ListAttempts returns up to limit attempts, newest first. limit <= 0 means all.
	ListAttempts(ctx context.Context, userID string, limit int) ([]Attempt, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	*progress.MemoryStore

	mu       sync.RWMutex
	attempts map[string][]Attempt
	index    map[string]map[string]int
}

// NewMemoryStore creates a new in-memory attempt store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		MemoryStore: progress.NewMemoryStore(),
		attempts:    make(map[string][]Attempt),
		index:       make(map[string]map[string]int),
	}
}

func (s *MemoryStore) Commit(ctx context.Context, userID, attemptID string, fn CommitFunc) (Attempt, bool, error) {
	if attemptID == "" {
		return Attempt{}, false, fmt.Errorf("attempt_id is required")
	}

	var stored Attempt
	_, err := s.MemoryStore.Update(ctx, userID, func(p *progress.StudentProgress) error {
		if existing, ok := s.lookup(userID, attemptID); ok {
			stored = existing
			return errDuplicate
		}

		a, err := fn(p)
		if err != nil {
			return err
		}
		a.ID = attemptID
		a.UserID = userID
		stored = a.clone()

		// Progress commits as soon as fn returns nil, under the same lock.
		s.mu.Lock()
		if s.index[userID] == nil {
			s.index[userID] = make(map[string]int)
		}
		s.index[userID][attemptID] = len(s.attempts[userID])
		s.attempts[userID] = append(s.attempts[userID], stored)
		s.mu.Unlock()
		return nil
	})
	if errors.Is(err, errDuplicate) {
		return stored.clone(), true, nil
	}
	if err != nil {
		return Attempt{}, false, err
	}
	return stored.clone(), false, nil
}

func (s *MemoryStore) lookup(userID, attemptID string) (Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[userID][attemptID]
	if !ok {
		return Attempt{}, false
	}
	return s.attempts[userID][i], true
}

func (s *MemoryStore) GetAttempt(_ context.Context, userID, attemptID string) (Attempt, error) {
	a, ok := s.lookup(userID, attemptID)
	if !ok {
		return Attempt{}, apperr.NotFound("attempt %s for user %s", attemptID, userID)
	}
	return a.clone(), nil
}

func (s *MemoryStore) ListAttempts(_ context.Context, userID string, limit int) ([]Attempt, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.attempts[userID]
	n := len(all)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Attempt, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i].clone())
	}
	return out, nil
}
