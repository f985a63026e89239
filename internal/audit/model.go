package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the event log.
const (
	ActionImport   = "license.import"
	ActionValidate = "license.validate"
	ActionAlert    = "license.alert"
)

// Event is a single append-only log entry. Details must never carry
// customer PII; reasons and timestamps only.
type Event struct {
	EventID   uuid.UUID         `json:"event_id"`
	Action    string            `json:"action"`
	Result    string            `json:"result"` // "ok" or a failure reason
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
