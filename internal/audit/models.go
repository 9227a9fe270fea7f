package audit

import "time"

// Event is an immutable, append-only record of one IVR webhook hit.
//
// Invariants:
// - Events are never updated or deleted.
// - Capture is best-effort; never block a live call on audit failures.
// - The instance secret is never recorded.
//
// Storage recommendation (Postgres):
// - Table call_events with an INSERT-only policy.
// - Optional: partition by time for retention.
type Event struct {
	ID         string `json:"id" db:"id"`
	RequestID  string `json:"request_id" db:"request_id"`
	Connector  string `json:"connector" db:"connector"`
	InstanceID string `json:"instance_id" db:"instance_id"`

	// State is the IVR state handling the request (e.g. "main_menu").
	State string `json:"state" db:"state"`

	// Digits is the caller's DTMF input for this turn, if any.
	Digits string `json:"digits,omitempty" db:"digits"`

	// Caller is the caller id when the provider delivered one.
	Caller string `json:"caller,omitempty" db:"caller"`

	// PaymentID is set for payment-scoped states.
	PaymentID string `json:"payment_id,omitempty" db:"payment_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
