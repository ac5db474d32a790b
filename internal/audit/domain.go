package audit

import (
	"context"
	"errors"
	"time"
)

// ErrAuditUnavailable indicates the audit store could not accept a write
// within the configured deadline.
var ErrAuditUnavailable = errors.New("audit: store unavailable")

// Outcome classifies how an audited request ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// Entry is one immutable audit record. Entries are written once and never
// updated or deleted by the application.
type Entry struct {
	ActorID      int64
	ActorSeq     int64
	Action       string
	ResourceType string
	ResourceID   string
	Outcome      Outcome
	Diff         map[string]any
	OccurredAt   time.Time
}

// Recorder is the append-only write interface consumed by the pipeline and
// the auth handlers.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}
