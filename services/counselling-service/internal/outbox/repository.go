package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/counselbook/libs/db"
	otelx "github.com/md-rashed-zaman/counselbook/libs/otel"
)

// Repository reads and writes outbox_events. Writes join the caller's
// transaction so an event commits or rolls back with the change it describes.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record is an outbox row as the publisher sees it.
type Record struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Trace         otelx.TraceContext
	CreatedAt     time.Time
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	tc := otelx.CaptureTraceContext(ctx)
	occurred := evt.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate, created_at)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
	`, evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, tc.Parent, tc.State, occurred)
	return err
}

// FetchUnpublished locks up to limit pending rows in id order. Concurrent
// publishers skip each other's rows.
func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id::text, aggregate_type, aggregate_id, event_type, payload,
			COALESCE(traceparent, ''), COALESCE(tracestate, ''), created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rec Record
		err := row.Scan(&rec.ID, &rec.EventID, &rec.AggregateType, &rec.AggregateID, &rec.EventType,
			&rec.Payload, &rec.Trace.Parent, &rec.Trace.State, &rec.CreatedAt)
		return rec, err
	})
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`, ids)
	return err
}

// PrunePublished deletes rows published before the cutoff and reports how many went.
func (r *Repository) PrunePublished(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM outbox_events
		WHERE published_at IS NOT NULL AND published_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
