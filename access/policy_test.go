package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/estatekit/estate-access-api/databases/mocks"
	"github.com/estatekit/estate-access-api/models"
)

func TestResolver_GetPolicyCaches(t *testing.T) {
	edb := &mocks.EstateDatabase{}
	estateID := primitive.NewObjectID()
	edb.On("EnsureSettings", mock.Anything, estateID.Hex(), mock.Anything).
		Return(&models.Estate{ID: estateID, Settings: models.DefaultEstateSettings()}, nil)

	r := NewResolver(edb)
	first, err := r.GetPolicy(context.Background(), estateID.Hex())
	assert.NoError(t, err)
	second, err := r.GetPolicy(context.Background(), estateID.Hex())
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	edb.AssertNumberOfCalls(t, "EnsureSettings", 1)
}

func TestResolver_GetPolicySeedsLegacyEstate(t *testing.T) {
	edb := &mocks.EstateDatabase{}
	estateID := primitive.NewObjectID()
	// Pre-existing estate document with no settings block at all.
	edb.On("EnsureSettings", mock.Anything, estateID.Hex(), mock.Anything).
		Return(&models.Estate{ID: estateID}, nil)
	edb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	r := NewResolver(edb)
	policy, err := r.GetPolicy(context.Background(), estateID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, models.DefaultEstateSettings(), policy)
	edb.AssertCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolver_SetPolicyInvalidatesCache(t *testing.T) {
	edb := &mocks.EstateDatabase{}
	estateID := primitive.NewObjectID()
	edb.On("EnsureSettings", mock.Anything, estateID.Hex(), mock.Anything).
		Return(&models.Estate{ID: estateID, Settings: models.DefaultEstateSettings()}, nil)
	edb.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	r := NewResolver(edb)
	_, err := r.GetPolicy(context.Background(), estateID.Hex())
	assert.NoError(t, err)

	updated := models.DefaultEstateSettings()
	updated.MaxDurationMinutes = 720
	assert.NoError(t, r.SetPolicy(context.Background(), estateID.Hex(), updated))

	_, err = r.GetPolicy(context.Background(), estateID.Hex())
	assert.NoError(t, err)
	// Cache was dropped, so the second read goes back to the database.
	edb.AssertNumberOfCalls(t, "EnsureSettings", 2)
}

func TestResolver_SetPolicyValidation(t *testing.T) {
	edb := &mocks.EstateDatabase{}
	r := NewResolver(edb)
	estateID := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		mutate func(*models.EstateSettings)
	}{
		{"unknown timezone", func(s *models.EstateSettings) { s.Timezone = "Not/AZone" }},
		{"zero min duration", func(s *models.EstateSettings) { s.MinDurationMinutes = 0 }},
		{"max below min", func(s *models.EstateSettings) { s.MaxDurationMinutes = s.MinDurationMinutes - 1 }},
		{"negative grace", func(s *models.EstateSettings) { s.GracePeriodMinutes = -1 }},
		{"zero daily limit", func(s *models.EstateSettings) { s.DailyLimitPerResident = intPtr(0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := models.DefaultEstateSettings()
			tt.mutate(&settings)
			err := r.SetPolicy(context.Background(), estateID, settings)
			assert.True(t, IsCode(err, CodeValidation))
		})
	}
	edb.AssertNotCalled(t, "UpdateOne")
}
