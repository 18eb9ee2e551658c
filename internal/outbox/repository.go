package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clinicbook/clinicbook/internal/db"
	"github.com/clinicbook/clinicbook/internal/otelx"
)

// Repository owns the outbox_events table. Appointment mutations insert
// their events through the caller's transaction; the publisher drains
// rows in insertion order.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert writes an event inside the caller's transaction so the event is
// committed atomically with the appointment change it describes. The
// current trace context is captured so the eventual Kafka message links
// back to the HTTP request that caused it.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, traceparent, tracestate)
	return err
}

// PendingEvent is an outbox row awaiting publication: the domain event
// plus the delivery metadata the publisher needs.
type PendingEvent struct {
	Event
	RowID       int64
	EventID     string
	Traceparent string
	Tracestate  string
	CreatedAt   time.Time
}

// NextBatch claims up to limit unpublished rows, oldest first. The rows
// stay locked until the caller's transaction ends; SKIP LOCKED lets
// concurrent publishers drain disjoint batches instead of blocking.
func (r *Repository) NextBatch(ctx context.Context, tx pgx.Tx, limit int) ([]PendingEvent, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingEvent
	for rows.Next() {
		var pe PendingEvent
		if err := rows.Scan(&pe.RowID, &pe.EventID, &pe.AggregateType, &pe.AggregateID, &pe.EventType, &pe.Payload, &pe.Traceparent, &pe.Tracestate, &pe.CreatedAt); err != nil {
			return nil, err
		}
		pending = append(pending, pe)
	}
	return pending, rows.Err()
}

// MarkPublished stamps the given rows so they are never picked up again.
func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, rowIDs []int64) error {
	if len(rowIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET published_at = now()
		WHERE id = ANY($1)
	`, rowIDs)
	return err
}
