package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
)

// Event types emitted after a committed submission.
const (
	EventAttemptRecorded = "attempt_recorded"
	EventMasteryAchieved = "mastery_achieved"
	EventTopicsUnlocked  = "topics_unlocked"
)

// Event is one engine event about a student.
type Event struct {
	UserID    string         `json:"user_id"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresEventLogger inserts events into the events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if err := checkEvent(event); err != nil {
		return err
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO events (user_id, event_type, data, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		event.UserID,
		event.EventType,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"user_id", event.UserID,
	)
	return nil
}

// NATSEventLogger publishes events as JSON on "<prefix>.<event_type>".
type NATSEventLogger struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSEventLogger(conn *nats.Conn, prefix string) (*NATSEventLogger, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection is nil")
	}
	if prefix == "" {
		prefix = "tutor.events"
	}
	return &NATSEventLogger{conn: conn, prefix: prefix}, nil
}

// Subject returns the subject an event type is published on.
func (l *NATSEventLogger) Subject(eventType string) string {
	return l.prefix + "." + eventType
}

func (l *NATSEventLogger) LogEvent(_ context.Context, event Event) error {
	if err := checkEvent(event); err != nil {
		return err
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := l.conn.Publish(l.Subject(event.EventType), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// MultiEventLogger fans an event out to every logger and joins their errors.
type MultiEventLogger []EventLogger

func (m MultiEventLogger) LogEvent(ctx context.Context, event Event) error {
	var errs []error
	for _, l := range m {
		if err := l.LogEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}
