package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PendingVerification is a verification attempt parked until the resident (or
// an external confirmation callback) approves it. Created only for estates
// with requireConfirmation enabled.
type PendingVerification struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	CodeID     primitive.ObjectID `json:"codeId" bson:"codeId"`
	EstateID   string             `json:"estateId" bson:"estateId"`
	VerifierID string             `json:"verifierId" bson:"verifierId"`
	Meta       map[string]string  `json:"meta" bson:"meta,omitempty"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	ExpiresAt  time.Time          `json:"expiresAt" bson:"expiresAt"`
}
