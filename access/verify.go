package access

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/estatekit/estate-access-api/models"
)

// Verification outcome statuses
const (
	VerificationAccepted = "accepted"
	VerificationPending  = "pending"
)

// pendingWindow bounds how long a parked verification stays confirmable when
// the estate's grace period is zero.
const pendingWindow = 10 * time.Minute

// VerificationResult is the successful outcome of VerifyCode. Status is
// accepted, or pending when the estate requires resident confirmation.
type VerificationResult struct {
	Status    string             `json:"status"`
	Code      *models.AccessCode `json:"code"`
	PendingID string             `json:"pendingId,omitempty"`
}

// VerifyCode checks a submitted code at an estate gate. Refusals come back as
// *Rejection with a diagnostic reason; other errors are engine failures.
//
// Accepting a single-use code flips it to Used via a compare-and-swap on
// {_id, status: active}, so two gates submitting the same code concurrently
// produce exactly one acceptance and one already_used rejection. Long-lived
// codes stay Active and only append a log entry.
func (s *Service) VerifyCode(ctx context.Context, estateID, submittedCode, verifierID string, meta map[string]string) (*VerificationResult, error) {
	if estateID == "" || submittedCode == "" {
		return nil, NewError(CodeValidation, "estateId and code are required")
	}

	policy, err := s.Policy.GetPolicy(ctx, estateID)
	if err != nil {
		return nil, err
	}
	if !policy.Enabled {
		return nil, NewError(CodePolicyDisabled, "access code verification is disabled for this estate")
	}
	grace := GracePeriod(policy)
	now := s.now()

	code, err := s.ACDB.FindOne(ctx, bson.M{
		"estateId": estateID,
		"code":     submittedCode,
		"status":   models.CodeStatusActive,
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, s.rejectTerminal(ctx, estateID, submittedCode)
		}
		return nil, WrapError(err, CodeInternal, "failed to look up access code")
	}

	if EffectiveStatus(code, now, grace) == models.CodeStatusExpired {
		return nil, Reject(ReasonExpired)
	}

	if policy.RequireConfirmation {
		return s.parkVerification(ctx, code, verifierID, meta, now, grace)
	}

	if code.Kind == models.CodeKindSingleUse {
		code, err = s.consumeSingleUse(ctx, code.ID, verifierID, now)
		if err != nil {
			return nil, err
		}
	}

	if err := s.appendLog(ctx, code, verifierID, models.LogResultAccepted, meta, now); err != nil {
		return nil, err
	}

	zap.S().Infow("access code accepted",
		"codeId", code.ID.Hex(),
		"estateId", code.EstateID,
		"kind", code.Kind,
		"verifierId", verifierID,
	)
	s.Events.Publish(models.AccessEvent{
		Type:        models.EventVerificationAccepted,
		EstateID:    code.EstateID,
		CodeID:      code.ID.Hex(),
		ResidentID:  code.ResidentID,
		VerifierID:  verifierID,
		VisitorName: code.VisitorName,
		Meta:        meta,
	})

	return &VerificationResult{Status: VerificationAccepted, Code: code}, nil
}

// rejectTerminal distinguishes a stale code from one that never existed, so
// the gate sees already_used, revoked or expired rather than a blanket
// not_found. The newest terminal row wins when the value was reissued.
func (s *Service) rejectTerminal(ctx context.Context, estateID, submittedCode string) error {
	opts := options.FindOne().SetSort(bson.M{"updatedAt": -1})
	terminal, err := s.ACDB.FindOne(ctx, bson.M{
		"estateId": estateID,
		"code":     submittedCode,
		"status": bson.M{"$in": []models.CodeStatus{
			models.CodeStatusUsed,
			models.CodeStatusRevoked,
			models.CodeStatusExpired,
		}},
	}, opts)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Reject(ReasonNotFound)
		}
		return WrapError(err, CodeInternal, "failed to look up access code")
	}

	switch terminal.Status {
	case models.CodeStatusUsed:
		return Reject(ReasonAlreadyUsed)
	case models.CodeStatusRevoked:
		return Reject(ReasonRevoked)
	default:
		return Reject(ReasonExpired)
	}
}

// consumeSingleUse flips a single-use code Active -> Used, losing gracefully
// when a concurrent verification or revocation got there first.
func (s *Service) consumeSingleUse(ctx context.Context, id primitive.ObjectID, verifierID string, now time.Time) (*models.AccessCode, error) {
	updated, err := s.ACDB.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.CodeStatusActive},
		bson.M{"$set": bson.M{
			"status":     models.CodeStatusUsed,
			"usedAt":     now,
			"verifiedBy": verifierID,
			"updatedAt":  now,
		}},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, Reject(ReasonAlreadyUsed)
		}
		return nil, WrapError(err, CodeInternal, "failed to consume access code")
	}
	return updated, nil
}

// parkVerification records the attempt for resident confirmation instead of
// admitting immediately. No access log entry is written here; the log entry
// for a single-use code must appear at most once, on confirmation.
func (s *Service) parkVerification(ctx context.Context, code *models.AccessCode, verifierID string, meta map[string]string, now time.Time, grace time.Duration) (*VerificationResult, error) {
	window := grace
	if window <= 0 {
		window = pendingWindow
	}

	pending := models.PendingVerification{
		ID:         primitive.NewObjectID(),
		CodeID:     code.ID,
		EstateID:   code.EstateID,
		VerifierID: verifierID,
		Meta:       meta,
		CreatedAt:  now,
		ExpiresAt:  now.Add(window),
	}
	if _, err := s.PVDB.InsertOne(ctx, pending); err != nil {
		return nil, WrapError(err, CodeInternal, "failed to record pending verification")
	}

	zap.S().Infow("verification pending confirmation",
		"pendingId", pending.ID.Hex(),
		"codeId", code.ID.Hex(),
		"estateId", code.EstateID,
	)
	s.Events.Publish(models.AccessEvent{
		Type:        models.EventVerificationPending,
		EstateID:    code.EstateID,
		CodeID:      code.ID.Hex(),
		ResidentID:  code.ResidentID,
		VerifierID:  verifierID,
		VisitorName: code.VisitorName,
		Meta:        map[string]string{"pendingId": pending.ID.Hex()},
	})

	return &VerificationResult{Status: VerificationPending, Code: code, PendingID: pending.ID.Hex()}, nil
}

// ConfirmVerification completes a parked verification after the resident (or
// a confirmation callback) approves it. The same transition and logging rules
// as the direct path apply; the log entry is written with the confirmed
// result.
func (s *Service) ConfirmVerification(ctx context.Context, pendingID string) (*VerificationResult, error) {
	id, err := primitive.ObjectIDFromHex(pendingID)
	if err != nil {
		return nil, NewError(CodeValidation, "invalid pending verification id")
	}

	pending, err := s.PVDB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewError(CodeNotFound, "pending verification not found")
		}
		return nil, WrapError(err, CodeInternal, "failed to load pending verification")
	}

	now := s.now()
	if now.After(pending.ExpiresAt) {
		// Leave the row for the pruning job; a retried confirm gets the same
		// answer either way.
		return nil, NewError(CodeStateConflict, "pending verification has expired")
	}

	code, err := s.ACDB.FindOne(ctx, bson.M{"_id": pending.CodeID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewError(CodeNotFound, "access code not found")
		}
		return nil, WrapError(err, CodeInternal, "failed to load access code")
	}

	if code.Kind == models.CodeKindSingleUse {
		if code.Status != models.CodeStatusActive {
			return nil, Reject(ReasonAlreadyUsed)
		}
		code, err = s.consumeSingleUse(ctx, code.ID, pending.VerifierID, now)
		if err != nil {
			return nil, err
		}
	} else if code.Status != models.CodeStatusActive {
		return nil, Reject(ReasonRevoked)
	}

	if err := s.appendLog(ctx, code, pending.VerifierID, models.LogResultConfirmed, pending.Meta, now); err != nil {
		return nil, err
	}
	if err := s.PVDB.DeleteOne(ctx, bson.M{"_id": pending.ID}); err != nil {
		zap.S().Errorw("failed to delete confirmed pending verification", "pendingId", pending.ID.Hex(), "error", err)
	}

	zap.S().Infow("pending verification confirmed",
		"pendingId", pending.ID.Hex(),
		"codeId", code.ID.Hex(),
		"estateId", code.EstateID,
	)
	s.Events.Publish(models.AccessEvent{
		Type:        models.EventVerificationAccepted,
		EstateID:    code.EstateID,
		CodeID:      code.ID.Hex(),
		ResidentID:  code.ResidentID,
		VerifierID:  pending.VerifierID,
		VisitorName: code.VisitorName,
		Meta:        pending.Meta,
	})

	return &VerificationResult{Status: VerificationAccepted, Code: code}, nil
}

func (s *Service) appendLog(ctx context.Context, code *models.AccessCode, verifierID, result string, meta map[string]string, now time.Time) error {
	_, err := s.ALDB.InsertOne(ctx, models.AccessLog{
		ID:         primitive.NewObjectID(),
		CodeID:     code.ID,
		EstateID:   code.EstateID,
		VerifierID: verifierID,
		Result:     result,
		Meta:       meta,
		VerifiedAt: now,
	})
	if err != nil {
		return WrapError(err, CodeInternal, "failed to append access log")
	}
	return nil
}
