package models

import "time"

// Access event types published to the notification collaborators
const (
	EventCodeCreated          = "code.created"
	EventCodeRevoked          = "code.revoked"
	EventVerificationAccepted = "verification.accepted"
	EventVerificationPending  = "verification.pending"
)

// AccessEvent is the domain event emitted by the access engine for downstream
// notification delivery (websocket hub, email).
type AccessEvent struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	EstateID    string            `json:"estateId"`
	CodeID      string            `json:"codeId"`
	ResidentID  string            `json:"residentId"`
	VerifierID  string            `json:"verifierId,omitempty"`
	VisitorName string            `json:"visitorName,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
	OccurredAt  time.Time         `json:"occurredAt"`
}
