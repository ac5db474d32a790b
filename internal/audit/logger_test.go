package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubAppendRepo struct {
	entries   []Entry
	appendErr error
	lastCtx   context.Context
}

func (s *stubAppendRepo) Append(ctx context.Context, entry Entry) error {
	s.lastCtx = ctx
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubAppendRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	return s.entries, nil
}

func TestRecordAppendsEntry(t *testing.T) {
	repo := &stubAppendRepo{}
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	logger := NewLogger(repo, nil, WithClock(func() time.Time { return at }))

	err := logger.Record(context.Background(), Entry{
		ActorID:      7,
		Action:       "case.update",
		ResourceType: "case",
		ResourceID:   "31",
		Outcome:      OutcomeSuccess,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	if !repo.entries[0].OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at stamped from clock, got %v", repo.entries[0].OccurredAt)
	}
}

func TestRecordRejectsIncompleteEntry(t *testing.T) {
	logger := NewLogger(&stubAppendRepo{}, nil)
	if err := logger.Record(context.Background(), Entry{Action: "x", Outcome: OutcomeSuccess}); err == nil {
		t.Fatalf("expected error for missing resource type")
	}
	if err := logger.Record(context.Background(), Entry{Action: "x", ResourceType: "case"}); err == nil {
		t.Fatalf("expected error for missing outcome")
	}
}

func TestRecordMapsStoreFailure(t *testing.T) {
	repo := &stubAppendRepo{appendErr: errors.New("connection refused")}
	logger := NewLogger(repo, nil)

	err := logger.Record(context.Background(), Entry{
		ActorID:      1,
		Action:       "case.update",
		ResourceType: "case",
		Outcome:      OutcomeError,
	})
	if !errors.Is(err, ErrAuditUnavailable) {
		t.Fatalf("expected ErrAuditUnavailable, got %v", err)
	}
}

func TestRecordSurvivesCallerCancellation(t *testing.T) {
	repo := &stubAppendRepo{}
	logger := NewLogger(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := logger.Record(ctx, Entry{
		ActorID:      1,
		Action:       "case.update",
		ResourceType: "case",
		Outcome:      OutcomeDenied,
	})
	if err != nil {
		t.Fatalf("record after cancel: %v", err)
	}
	if repo.lastCtx.Err() != nil {
		t.Fatalf("append context must not inherit caller cancellation")
	}
}
