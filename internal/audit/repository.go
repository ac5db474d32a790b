package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository implements Repository using PostgreSQL. The actor advisory
// lock serializes appends per actor so actor_seq preserves submission order;
// appends for different actors proceed in parallel.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Append inserts one entry with the next per-actor sequence number.
func (r *PGRepository) Append(ctx context.Context, entry Entry) error {
	diffJSON, err := json.Marshal(entry.Diff)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, auditLockClass, int32(entry.ActorID)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO audit_logs (actor_id, actor_seq, action, resource_type, resource_id, outcome, diff, occurred_at)
			VALUES ($1, (SELECT COALESCE(MAX(actor_seq), 0) + 1 FROM audit_logs WHERE actor_id = $1), $2, $3, $4, $5, $6, $7)`,
			entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID, string(entry.Outcome), diffJSON, entry.OccurredAt,
		)
		return err
	})
}

// auditLockClass namespaces the advisory lock so other subsystems sharing the
// database cannot collide with audit serialization.
const auditLockClass = int32(4170)

// TimelineWindow returns entries ordered newest first with optional filters.
func (r *PGRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT actor_id, actor_seq, action, resource_type, resource_id, outcome, diff, occurred_at
		FROM audit_logs
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
		  AND ($3::bigint IS NULL OR actor_id = $3)
		  AND ($4::text IS NULL OR action = $4)
		  AND ($5::text IS NULL OR resource_type = $5)
		ORDER BY occurred_at DESC, actor_id DESC, actor_seq DESC
		OFFSET $6 LIMIT $7`,
		optionalTime(filters.From), optionalTime(filters.To), optionalInt8(filters.ActorID),
		optionalText(filters.Action), optionalText(filters.ResourceType), offset, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var outcome string
		var diffJSON []byte
		if err := rows.Scan(&entry.ActorID, &entry.ActorSeq, &entry.Action, &entry.ResourceType, &entry.ResourceID, &outcome, &diffJSON, &entry.OccurredAt); err != nil {
			return nil, err
		}
		entry.Outcome = Outcome(outcome)
		if len(diffJSON) > 0 {
			if err := json.Unmarshal(diffJSON, &entry.Diff); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func optionalTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalInt8(v int64) pgtype.Int8 {
	if v == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: v, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

var _ Repository = (*PGRepository)(nil)
