package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const defaultWriteTimeout = 3 * time.Second

// Repository defines persistence operations for the audit module.
type Repository interface {
	Append(ctx context.Context, entry Entry) error
	TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error)
}

// Logger appends immutable audit entries with a bounded write deadline so a
// slow store cannot stall the request that triggered the write. The write
// survives caller cancellation: once an outcome has been decided its audit
// entry is still attempted.
type Logger struct {
	repo    Repository
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// LoggerOption configures Logger behavior.
type LoggerOption func(*Logger)

// WithWriteTimeout bounds each append.
func WithWriteTimeout(d time.Duration) LoggerOption {
	return func(l *Logger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) LoggerOption {
	return func(l *Logger) {
		if fn != nil {
			l.now = fn
		}
	}
}

// NewLogger constructs a Logger.
func NewLogger(repo Repository, log *slog.Logger, opts ...LoggerOption) *Logger {
	l := &Logger{
		repo:    repo,
		log:     log,
		timeout: defaultWriteTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends one entry. The store's own error is folded into
// ErrAuditUnavailable; callers decide whether that is fatal to their request.
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if entry.Action == "" || entry.ResourceType == "" {
		return errors.New("audit: entry requires action and resource type")
	}
	if entry.Outcome == "" {
		return errors.New("audit: entry requires an outcome")
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = l.now().UTC()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	if err := l.repo.Append(writeCtx, entry); err != nil {
		if l.log != nil {
			l.log.Warn("audit append failed",
				slog.String("action", entry.Action),
				slog.String("resource", entry.ResourceType),
				slog.Any("error", err),
			)
		}
		return ErrAuditUnavailable
	}
	return nil
}

var _ Recorder = (*Logger)(nil)
