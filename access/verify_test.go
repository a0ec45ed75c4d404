package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/estatekit/estate-access-api/models"
)

func TestService_VerifyCodeSingleUseAccepted(t *testing.T) {
	now := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	s, m := newTestService(t, defaultSettings(), now)

	id := primitive.NewObjectID()
	expiry := now.Add(time.Hour)
	active := &models.AccessCode{
		ID: id, EstateID: testEstateID, ResidentID: "resident-1",
		Code: "042617", Kind: models.CodeKindSingleUse,
		Status: models.CodeStatusActive, ExpiresAt: &expiry,
	}
	used := &models.AccessCode{
		ID: id, EstateID: testEstateID, ResidentID: "resident-1",
		Code: "042617", Kind: models.CodeKindSingleUse,
		Status: models.CodeStatusUsed, ExpiresAt: &expiry,
	}

	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(active, nil)
	m.acdb.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(used, nil)
	m.aldb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	res, err := s.VerifyCode(context.Background(), testEstateID, "042617", "guard-1", map[string]string{"gate": "north"})
	assert.NoError(t, err)
	assert.Equal(t, VerificationAccepted, res.Status)
	assert.Equal(t, models.CodeStatusUsed, res.Code.Status)
	m.aldb.AssertNumberOfCalls(t, "InsertOne", 1)
}

func TestService_VerifyCodeSingleUseSecondAttemptRejected(t *testing.T) {
	now := time.Now()
	s, m := newTestService(t, defaultSettings(), now)

	// The first gate already consumed the code: the active lookup misses and
	// the terminal lookup finds the used row.
	used := &models.AccessCode{
		ID: primitive.NewObjectID(), EstateID: testEstateID,
		Code: "042617", Kind: models.CodeKindSingleUse, Status: models.CodeStatusUsed,
	}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	m.acdb.On("FindOne", mock.Anything, mock.Anything, mock.Anything).Return(used, nil)

	_, err := s.VerifyCode(context.Background(), testEstateID, "042617", "guard-2", nil)
	rej, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonAlreadyUsed, rej.Reason)
	m.aldb.AssertNotCalled(t, "InsertOne")
}

func TestService_VerifyCodeConcurrentConsumeLosesGracefully(t *testing.T) {
	now := time.Now()
	s, m := newTestService(t, defaultSettings(), now)

	id := primitive.NewObjectID()
	expiry := now.Add(time.Hour)
	active := &models.AccessCode{
		ID: id, EstateID: testEstateID, Code: "042617",
		Kind: models.CodeKindSingleUse, Status: models.CodeStatusActive, ExpiresAt: &expiry,
	}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(active, nil)
	// Another gate won the compare-and-swap between lookup and consume.
	m.acdb.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	_, err := s.VerifyCode(context.Background(), testEstateID, "042617", "guard-1", nil)
	rej, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonAlreadyUsed, rej.Reason)
	m.aldb.AssertNotCalled(t, "InsertOne")
}

func TestService_VerifyCodeLongLivedStaysActive(t *testing.T) {
	now := time.Now()
	s, m := newTestService(t, defaultSettings(), now)

	longLived := &models.AccessCode{
		ID: primitive.NewObjectID(), EstateID: testEstateID, ResidentID: "resident-1",
		Code: "118823", Kind: models.CodeKindLongLived,
		Status: models.CodeStatusActive, VisitorName: "Chinedu",
	}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(longLived, nil)
	m.aldb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	for i := 0; i < 3; i++ {
		res, err := s.VerifyCode(context.Background(), testEstateID, "118823", "guard-1", nil)
		assert.NoError(t, err)
		assert.Equal(t, VerificationAccepted, res.Status)
		assert.Equal(t, models.CodeStatusActive, res.Code.Status)
	}
	m.acdb.AssertNotCalled(t, "FindOneAndUpdate")
	m.aldb.AssertNumberOfCalls(t, "InsertOne", 3)
}

func TestService_VerifyCodeExpiredPastGrace(t *testing.T) {
	now := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	s, m := newTestService(t, defaultSettings(), now)

	// Expired 11 minutes ago, past the 10 minute default grace.
	expiry := now.Add(-11 * time.Minute)
	stale := &models.AccessCode{
		ID: primitive.NewObjectID(), EstateID: testEstateID, Code: "042617",
		Kind: models.CodeKindSingleUse, Status: models.CodeStatusActive, ExpiresAt: &expiry,
	}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(stale, nil)

	_, err := s.VerifyCode(context.Background(), testEstateID, "042617", "guard-1", nil)
	rej, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonExpired, rej.Reason)
	m.aldb.AssertNotCalled(t, "InsertOne")
}

func TestService_VerifyCodeWithinGraceAccepted(t *testing.T) {
	now := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	s, m := newTestService(t, defaultSettings(), now)

	id := primitive.NewObjectID()
	expiry := now.Add(-5 * time.Minute)
	graced := &models.AccessCode{
		ID: id, EstateID: testEstateID, Code: "042617",
		Kind: models.CodeKindSingleUse, Status: models.CodeStatusActive, ExpiresAt: &expiry,
	}
	used := &models.AccessCode{ID: id, EstateID: testEstateID, Status: models.CodeStatusUsed}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(graced, nil)
	m.acdb.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(used, nil)
	m.aldb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	res, err := s.VerifyCode(context.Background(), testEstateID, "042617", "guard-1", nil)
	assert.NoError(t, err)
	assert.Equal(t, VerificationAccepted, res.Status)
}

func TestService_VerifyCodeRevokedRejected(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())

	revoked := &models.AccessCode{
		ID: primitive.NewObjectID(), EstateID: testEstateID,
		Code: "042617", Status: models.CodeStatusRevoked,
	}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	m.acdb.On("FindOne", mock.Anything, mock.Anything, mock.Anything).Return(revoked, nil)

	_, err := s.VerifyCode(context.Background(), testEstateID, "042617", "guard-1", nil)
	rej, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonRevoked, rej.Reason)
}

func TestService_VerifyCodeUnknownRejected(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())

	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	m.acdb.On("FindOne", mock.Anything, mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	_, err := s.VerifyCode(context.Background(), testEstateID, "999999", "guard-1", nil)
	rej, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonNotFound, rej.Reason)
}

func TestService_VerifyCodePolicyDisabled(t *testing.T) {
	settings := defaultSettings()
	settings.Enabled = false
	s, _ := newTestService(t, settings, time.Now())

	_, err := s.VerifyCode(context.Background(), testEstateID, "042617", "guard-1", nil)
	assert.True(t, IsCode(err, CodePolicyDisabled))
}

func TestService_VerifyCodePendingWhenConfirmationRequired(t *testing.T) {
	now := time.Now()
	settings := defaultSettings()
	settings.RequireConfirmation = true
	s, m := newTestService(t, settings, now)

	expiry := now.Add(time.Hour)
	active := &models.AccessCode{
		ID: primitive.NewObjectID(), EstateID: testEstateID, ResidentID: "resident-1",
		Code: "042617", Kind: models.CodeKindSingleUse,
		Status: models.CodeStatusActive, ExpiresAt: &expiry,
	}
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(active, nil)
	m.pvdb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	res, err := s.VerifyCode(context.Background(), testEstateID, "042617", "guard-1", nil)
	assert.NoError(t, err)
	assert.Equal(t, VerificationPending, res.Status)
	assert.NotEmpty(t, res.PendingID)
	// Parking must not consume the code or write a log entry yet.
	m.acdb.AssertNotCalled(t, "FindOneAndUpdate")
	m.aldb.AssertNotCalled(t, "InsertOne")
}

func TestService_ConfirmVerification(t *testing.T) {
	now := time.Now()
	s, m := newTestService(t, defaultSettings(), now)

	codeID := primitive.NewObjectID()
	pendingID := primitive.NewObjectID()
	pending := &models.PendingVerification{
		ID: pendingID, CodeID: codeID, EstateID: testEstateID,
		VerifierID: "guard-1", CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(9 * time.Minute),
	}
	expiry := now.Add(time.Hour)
	active := &models.AccessCode{
		ID: codeID, EstateID: testEstateID, Code: "042617",
		Kind: models.CodeKindSingleUse, Status: models.CodeStatusActive, ExpiresAt: &expiry,
	}
	used := &models.AccessCode{ID: codeID, EstateID: testEstateID, Status: models.CodeStatusUsed}

	m.pvdb.On("FindOne", mock.Anything, mock.Anything).Return(pending, nil)
	m.pvdb.On("DeleteOne", mock.Anything, mock.Anything).Return(nil)
	m.acdb.On("FindOne", mock.Anything, mock.Anything).Return(active, nil)
	m.acdb.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything).Return(used, nil)
	m.aldb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	res, err := s.ConfirmVerification(context.Background(), pendingID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, VerificationAccepted, res.Status)
	m.pvdb.AssertCalled(t, "DeleteOne", mock.Anything, mock.Anything)
}

func TestService_ConfirmVerificationExpiredWindow(t *testing.T) {
	now := time.Now()
	s, m := newTestService(t, defaultSettings(), now)

	pendingID := primitive.NewObjectID()
	pending := &models.PendingVerification{
		ID: pendingID, CodeID: primitive.NewObjectID(), EstateID: testEstateID,
		ExpiresAt: now.Add(-time.Minute),
	}
	m.pvdb.On("FindOne", mock.Anything, mock.Anything).Return(pending, nil)

	_, err := s.ConfirmVerification(context.Background(), pendingID.Hex())
	assert.True(t, IsCode(err, CodeStateConflict))
	m.aldb.AssertNotCalled(t, "InsertOne")
}

func TestService_ConfirmVerificationNotFound(t *testing.T) {
	s, m := newTestService(t, defaultSettings(), time.Now())
	m.pvdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	_, err := s.ConfirmVerification(context.Background(), primitive.NewObjectID().Hex())
	assert.True(t, IsCode(err, CodeNotFound))
}
