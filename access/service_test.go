package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/estatekit/estate-access-api/databases/mocks"
	"github.com/estatekit/estate-access-api/models"
)

type serviceMocks struct {
	acdb *mocks.AccessCodeDatabase
	aldb *mocks.AccessLogDatabase
	pvdb *mocks.PendingVerificationDatabase
	edb  *mocks.EstateDatabase
}

func newTestService(t *testing.T, settings models.EstateSettings, now time.Time) (*Service, *serviceMocks) {
	t.Helper()
	m := &serviceMocks{
		acdb: &mocks.AccessCodeDatabase{},
		aldb: &mocks.AccessLogDatabase{},
		pvdb: &mocks.PendingVerificationDatabase{},
		edb:  &mocks.EstateDatabase{},
	}
	m.edb.On("EnsureSettings", mock.Anything, mock.Anything, mock.Anything).
		Return(&models.Estate{ID: primitive.NewObjectID(), Settings: settings}, nil)

	s := NewService(m.acdb, m.aldb, m.pvdb, NewResolver(m.edb), NewDispatcher())
	s.Now = func() time.Time { return now }
	return s, m
}

func defaultSettings() models.EstateSettings {
	return models.DefaultEstateSettings()
}

var testEstateID = primitive.NewObjectID().Hex()

func TestService_CreateCodeSingleUse(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, m := newTestService(t, defaultSettings(), now)
	m.acdb.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)
	m.acdb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	code, err := s.CreateCode(context.Background(), CreateCodeParams{
		EstateID:        testEstateID,
		ResidentID:      "resident-1",
		DurationMinutes: 60,
		VisitorName:     "Ada",
		Purpose:         "delivery",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.CodeKindSingleUse, code.Kind)
	assert.Equal(t, models.CodeStatusActive, code.Status)
	assert.Regexp(t, `^\d{6}$`, code.Code)
	assert.NotNil(t, code.ExpiresAt)
	assert.Equal(t, now.Add(60*time.Minute), *code.ExpiresAt)
}

func TestService_CreateCodeDefaultsKindFromPolicy(t *testing.T) {
	now := time.Now()
	settings := defaultSettings()
	settings.DefaultSingleUse = false
	s, m := newTestService(t, settings, now)
	m.acdb.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)
	m.acdb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	code, err := s.CreateCode(context.Background(), CreateCodeParams{
		EstateID:     testEstateID,
		ResidentID:   "resident-1",
		VisitorName:  "Chinedu",
		VisitorPhone: "+2348012345678",
	})
	assert.NoError(t, err)
	assert.Equal(t, models.CodeKindLongLived, code.Kind)
	assert.Nil(t, code.ExpiresAt)
}

func TestService_CreateCodeDurationBounds(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		duration int
		wantCode ErrorCode
	}{
		{"below minimum", 10, CodeDurationOutOfBounds},
		{"at minimum", 15, ""},
		{"at maximum", 1440, ""},
		{"above maximum", 1441, CodeDurationOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newTestService(t, defaultSettings(), now)
			m.acdb.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)
			m.acdb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

			_, err := s.CreateCode(context.Background(), CreateCodeParams{
				EstateID:        testEstateID,
				ResidentID:      "resident-1",
				Kind:            string(models.CodeKindSingleUse),
				DurationMinutes: tt.duration,
			})
			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsCode(err, tt.wantCode))
			}
		})
	}
}

func TestService_CreateCodePolicyDisabled(t *testing.T) {
	settings := defaultSettings()
	settings.Enabled = false
	s, _ := newTestService(t, settings, time.Now())

	_, err := s.CreateCode(context.Background(), CreateCodeParams{
		EstateID:        testEstateID,
		ResidentID:      "resident-1",
		DurationMinutes: 60,
	})
	assert.True(t, IsCode(err, CodePolicyDisabled))
}

func TestService_CreateCodeLongLivedRequiresVisitorIdentity(t *testing.T) {
	s, _ := newTestService(t, defaultSettings(), time.Now())

	_, err := s.CreateCode(context.Background(), CreateCodeParams{
		EstateID:   testEstateID,
		ResidentID: "resident-1",
		Kind:       string(models.CodeKindLongLived),
	})
	assert.True(t, IsCode(err, CodeValidation))
}

func TestService_CreateCodeMissingIDs(t *testing.T) {
	s, _ := newTestService(t, defaultSettings(), time.Now())

	_, err := s.CreateCode(context.Background(), CreateCodeParams{ResidentID: "resident-1"})
	assert.True(t, IsCode(err, CodeValidation))
}

func TestService_CreateCodeQuotaExceeded(t *testing.T) {
	settings := defaultSettings()
	settings.DailyLimitPerResident = intPtr(3)
	s, m := newTestService(t, settings, time.Now())
	m.acdb.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(3), nil)

	_, err := s.CreateCode(context.Background(), CreateCodeParams{
		EstateID:        testEstateID,
		ResidentID:      "resident-1",
		DurationMinutes: 60,
	})
	assert.True(t, IsCode(err, CodeQuotaExceeded))
}

func TestService_RevokeCode(t *testing.T) {
	now := time.Now()
	s, m := newTestService(t, defaultSettings(), now)

	id := primitive.NewObjectID()
	active := &models.AccessCode{ID: id, ResidentID: "resident-1", Status: models.CodeStatusActive}
	revoked := &models.AccessCode{ID: id, ResidentID: "resident-1", Status: models.CodeStatusRevoked}

	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(active, nil)
	m.acdb.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(revoked, nil)

	got, err := s.RevokeCode(context.Background(), id.Hex(), "resident-1", models.RoleResident)
	assert.NoError(t, err)
	assert.Equal(t, models.CodeStatusRevoked, got.Status)
}

func TestService_RevokeCodeNotOwner(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())

	id := primitive.NewObjectID()
	active := &models.AccessCode{ID: id, ResidentID: "resident-1", Status: models.CodeStatusActive}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(active, nil)

	_, err := s.RevokeCode(context.Background(), id.Hex(), "resident-2", models.RoleResident)
	assert.True(t, IsCode(err, CodeNotOwner))
}

func TestService_RevokeCodeAdminOverride(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())

	id := primitive.NewObjectID()
	active := &models.AccessCode{ID: id, ResidentID: "resident-1", Status: models.CodeStatusActive}
	revoked := &models.AccessCode{ID: id, ResidentID: "resident-1", Status: models.CodeStatusRevoked}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(active, nil)
	m.acdb.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(revoked, nil)

	_, err := s.RevokeCode(context.Background(), id.Hex(), "admin-1", models.RoleAdmin)
	assert.NoError(t, err)
}

func TestService_RevokeCodeAlreadyTerminal(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())

	id := primitive.NewObjectID()
	used := &models.AccessCode{ID: id, ResidentID: "resident-1", Status: models.CodeStatusUsed}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(used, nil)

	_, err := s.RevokeCode(context.Background(), id.Hex(), "resident-1", models.RoleResident)
	assert.True(t, IsCode(err, CodeStateConflict))
	m.acdb.AssertNotCalled(t, "FindOneAndUpdate")
}

func TestService_RevokeCodeLostRace(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())

	id := primitive.NewObjectID()
	active := &models.AccessCode{ID: id, ResidentID: "resident-1", Status: models.CodeStatusActive}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(active, nil)
	m.acdb.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	_, err := s.RevokeCode(context.Background(), id.Hex(), "resident-1", models.RoleResident)
	assert.True(t, IsCode(err, CodeStateConflict))
}

func TestService_RevokeCodeNotFound(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	_, err := s.RevokeCode(context.Background(), primitive.NewObjectID().Hex(), "resident-1", models.RoleResident)
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestService_ListActiveCodesFiltersEffectivelyExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s, m := newTestService(t, defaultSettings(), now)

	fresh := now.Add(time.Hour)
	// Past expiry and past the 10 minute default grace.
	stale := now.Add(-time.Hour)
	codes := []models.AccessCode{
		{ID: primitive.NewObjectID(), EstateID: testEstateID, Status: models.CodeStatusActive, ExpiresAt: &fresh},
		{ID: primitive.NewObjectID(), EstateID: testEstateID, Status: models.CodeStatusActive, ExpiresAt: &stale},
		{ID: primitive.NewObjectID(), EstateID: testEstateID, Status: models.CodeStatusActive, ExpiresAt: nil},
	}
	m.acdb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(codes, nil)

	got, err := s.ListActiveCodes(context.Background(), "resident-1")
	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestService_ListHistoryPagination(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())

	codes := make([]models.AccessCode, 3)
	for i := range codes {
		codes[i] = models.AccessCode{ID: primitive.NewObjectID(), Status: models.CodeStatusUsed}
	}
	m.acdb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(codes, nil)

	got, next, err := s.ListHistory(context.Background(), "resident-1", HistoryFilter{Limit: 2})
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, got[1].ID.Hex(), next)
}

func TestService_ListHistoryLastPage(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())

	codes := []models.AccessCode{{ID: primitive.NewObjectID(), Status: models.CodeStatusUsed}}
	m.acdb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(codes, nil)

	got, next, err := s.ListHistory(context.Background(), "resident-1", HistoryFilter{Limit: 2})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Empty(t, next)
}

func TestService_ListHistoryInvalidCursor(t *testing.T) {
	s, _ := newTestService(t, defaultSettings(), time.Now())

	_, _, err := s.ListHistory(context.Background(), "resident-1", HistoryFilter{Cursor: "not-a-hex"})
	assert.True(t, IsCode(err, CodeValidation))
}

func TestService_GetCodeNotFound(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	_, err := s.GetCode(context.Background(), primitive.NewObjectID().Hex())
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestService_CreateCodeInsertError(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())
	m.acdb.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)
	m.acdb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))

	_, err := s.CreateCode(context.Background(), CreateCodeParams{
		EstateID:        testEstateID,
		ResidentID:      "resident-1",
		DurationMinutes: 60,
	})
	assert.True(t, IsCode(err, CodeInternal))
}
