package progress

import (
	"context"
	"fmt"
	"sync"
)

// Store persists student progress.
type Store interface {
	// Load returns the student's progress, or empty progress for a new student.
	Load(ctx context.Context, userID string) (*StudentProgress, error)
	// Update applies fn to the student's progress as one atomic read-modify-write.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, userID string, fn func(*StudentProgress) error) (*StudentProgress, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	students map[string]*StudentProgress
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students: make(map[string]*StudentProgress),
	}
}

func (s *MemoryStore) Load(_ context.Context, userID string) (*StudentProgress, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.students[userID]
	if !ok {
		return New(userID), nil
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, userID string, fn func(*StudentProgress) error) (*StudentProgress, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := New(userID)
	if p, ok := s.students[userID]; ok {
		working = p.Clone()
	}
	if err := fn(working); err != nil {
		return nil, err
	}
	s.students[userID] = working
	return working.Clone(), nil
}
