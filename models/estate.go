package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTimezone is the estate-local timezone assumed when an estate has not
// configured one. The daily creation quota window is computed in this zone.
const DefaultTimezone = "Africa/Lagos"

// Estate holds the structure for the estate collection in mongo
type Estate struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	OwnerID   string             `json:"ownerID" bson:"ownerID"`
	Address   string             `json:"address" bson:"address,omitempty"`
	Settings  EstateSettings     `json:"settings" bson:"settings"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// EstateSettings is the per-estate access-code policy, stored inside the
// estate document and cached by access.Resolver.
type EstateSettings struct {
	Enabled               bool   `json:"enabled" bson:"enabled"`
	MinDurationMinutes    int    `json:"minDurationMinutes" bson:"minDurationMinutes"`
	MaxDurationMinutes    int    `json:"maxDurationMinutes" bson:"maxDurationMinutes"`
	DefaultSingleUse      bool   `json:"defaultSingleUse" bson:"defaultSingleUse"`
	GracePeriodMinutes    int    `json:"gracePeriodMinutes" bson:"gracePeriodMinutes"`
	DailyLimitPerResident *int   `json:"dailyLimitPerResident" bson:"dailyLimitPerResident"`
	RequireConfirmation   bool   `json:"requireConfirmation" bson:"requireConfirmation"`
	Timezone              string `json:"timezone" bson:"timezone"`
}

// DefaultEstateSettings returns the policy seeded for an estate that has
// never configured one. A nil daily limit means unlimited.
func DefaultEstateSettings() EstateSettings {
	return EstateSettings{
		Enabled:               true,
		MinDurationMinutes:    15,
		MaxDurationMinutes:    1440,
		DefaultSingleUse:      true,
		GracePeriodMinutes:    10,
		DailyLimitPerResident: nil,
		RequireConfirmation:   false,
		Timezone:              DefaultTimezone,
	}
}
