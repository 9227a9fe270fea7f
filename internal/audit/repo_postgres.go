package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists call events to the call_events table.
//
// Expected schema:
//
//	CREATE TABLE call_events (
//	    id          uuid PRIMARY KEY,
//	    request_id  text NOT NULL,
//	    connector   text NOT NULL,
//	    instance_id text NOT NULL,
//	    state       text NOT NULL,
//	    digits      text NOT NULL DEFAULT '',
//	    caller      text NOT NULL DEFAULT '',
//	    payment_id  text NOT NULL DEFAULT '',
//	    created_at  timestamptz NOT NULL
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
		INSERT INTO call_events
			(id, request_id, connector, instance_id, state, digits, caller, payment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.RequestID, e.Connector, e.InstanceID, e.State, e.Digits, e.Caller, e.PaymentID, e.CreatedAt)
	return err
}
