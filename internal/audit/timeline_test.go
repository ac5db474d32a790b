package audit

import (
	"context"
	"testing"
	"time"
)

type stubTimelineRepo struct {
	rows       []Entry
	lastOffset int
	lastLimit  int
}

func (s *stubTimelineRepo) Append(ctx context.Context, entry Entry) error {
	return nil
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	s.lastOffset = offset
	s.lastLimit = limit
	if len(s.rows) > limit {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func mockEntry(ts string, actor int64, action string) Entry {
	tval, _ := time.Parse(time.RFC3339, ts)
	return Entry{
		ActorID:      actor,
		Action:       action,
		ResourceType: "case",
		ResourceID:   "1",
		Outcome:      OutcomeSuccess,
		OccurredAt:   tval,
	}
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		rows: []Entry{
			mockEntry("2025-03-10T10:00:00Z", 1, "case.update"),
			mockEntry("2025-03-09T09:00:00Z", 1, "case.update"),
			mockEntry("2025-03-08T08:00:00Z", 2, "case.create"),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext {
		t.Fatalf("expected hasNext true")
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastLimit)
	}
	if repo.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastOffset)
	}
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)
	if _, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 500}); err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if repo.lastLimit != 51 {
		t.Fatalf("expected clamped limit 51, got %d", repo.lastLimit)
	}
	if repo.lastOffset != 50 {
		t.Fatalf("expected offset 50, got %d", repo.lastOffset)
	}
}
