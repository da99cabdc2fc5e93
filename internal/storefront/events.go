package storefront

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventCartSynced     = "CartSynced"
	EventSessionCleared = "SessionCleared"
)

// Envelope wraps every event published by the BFF.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // session id
	Payload       json.RawMessage `json:"payload"`
}

type CartSyncedPayload struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	Cart      Cart   `json:"cart"`
}

const (
	ReasonLogout       = "LOGOUT"
	ReasonUnauthorized = "UNAUTHORIZED"
	ReasonExpired      = "EXPIRED"
)

type SessionClearedPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// NewEnvelope builds a version 1 envelope around payload.
func NewEnvelope(eventType, producer, sessionID, traceID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: sessionID,
		Payload:       b,
	}, nil
}
