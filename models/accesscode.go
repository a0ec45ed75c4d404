package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CodeKind distinguishes one-shot visitor codes from standing codes for
// recurring visitors (domestic staff, family).
type CodeKind string

// Access code kinds
const (
	CodeKindSingleUse CodeKind = "singleUse"
	CodeKindLongLived CodeKind = "longLived"
)

// CodeStatus is the persisted lifecycle status of an access code. The status a
// caller observes may additionally be derived from the clock, see
// access.EffectiveStatus.
type CodeStatus string

// Access code statuses. Used, Expired and Revoked are terminal.
const (
	CodeStatusActive  CodeStatus = "active"
	CodeStatusUsed    CodeStatus = "used"
	CodeStatusExpired CodeStatus = "expired"
	CodeStatusRevoked CodeStatus = "revoked"
)

// AccessCode represents the structure of an access code document in MongoDB
type AccessCode struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	EstateID     string             `json:"estateId" bson:"estateId"`
	ResidentID   string             `json:"residentId" bson:"residentId"`
	Code         string             `json:"code" bson:"code"`
	Kind         CodeKind           `json:"kind" bson:"kind"`
	VisitorName  string             `json:"visitorName" bson:"visitorName"`
	VisitorPhone string             `json:"visitorPhone" bson:"visitorPhone"`
	Purpose      string             `json:"purpose" bson:"purpose"`
	Status       CodeStatus         `json:"status" bson:"status"`
	ExpiresAt    *time.Time         `json:"expiresAt" bson:"expiresAt"`
	UsedAt       *time.Time         `json:"usedAt" bson:"usedAt,omitempty"`
	RevokedAt    *time.Time         `json:"revokedAt" bson:"revokedAt,omitempty"`
	RevokedBy    string             `json:"revokedBy" bson:"revokedBy,omitempty"`
	VerifiedBy   string             `json:"verifiedBy" bson:"verifiedBy,omitempty"`
	Notes        string             `json:"notes" bson:"notes,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}
