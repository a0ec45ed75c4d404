package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Verification results recorded in the access log
const (
	LogResultAccepted  = "accepted"
	LogResultConfirmed = "confirmed"
)

// AccessLog is an append-only record of a code verification at an entry
// point. A single-use code accumulates at most one entry; a long-lived code
// accumulates one per visit.
type AccessLog struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	CodeID     primitive.ObjectID `json:"codeId" bson:"codeId"`
	EstateID   string             `json:"estateId" bson:"estateId"`
	VerifierID string             `json:"verifierId" bson:"verifierId"`
	Result     string             `json:"result" bson:"result"`
	Meta       map[string]string  `json:"meta" bson:"meta,omitempty"`
	VerifiedAt time.Time          `json:"verifiedAt" bson:"verifiedAt"`
}
