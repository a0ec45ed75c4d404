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

	"github.com/estatekit/estate-access-api/databases"
	"github.com/estatekit/estate-access-api/models"
)

// Service is the access code engine. It owns issuance, revocation and the
// resident-facing read views; the verification path lives in verify.go on the
// same receiver.
type Service struct {
	ACDB   databases.AccessCodeDatabase
	ALDB   databases.AccessLogDatabase
	PVDB   databases.PendingVerificationDatabase
	Policy *Resolver
	Gen    *Generator
	Quota  *Quota
	Events *Dispatcher

	// Now is the engine clock, swappable in tests.
	Now func() time.Time
}

// NewService wires the engine from its collaborators.
func NewService(acdb databases.AccessCodeDatabase, aldb databases.AccessLogDatabase, pvdb databases.PendingVerificationDatabase, policy *Resolver, events *Dispatcher) *Service {
	return &Service{
		ACDB:   acdb,
		ALDB:   aldb,
		PVDB:   pvdb,
		Policy: policy,
		Gen:    NewGenerator(acdb),
		Quota:  NewQuota(acdb),
		Events: events,
		Now:    time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateCodeParams carries the resident's issuance request. Kind may be left
// empty, in which case the estate's defaultSingleUse setting picks it.
type CreateCodeParams struct {
	EstateID        string `json:"estateId"`
	ResidentID      string `json:"residentId"`
	Kind            string `json:"kind"`
	DurationMinutes int    `json:"durationMinutes"`
	VisitorName     string `json:"visitorName"`
	VisitorPhone    string `json:"visitorPhone"`
	Purpose         string `json:"purpose"`
	Notes           string `json:"notes"`
}

// CreateCode issues a new access code for a resident's visitor, enforcing the
// estate policy, duration bounds and the daily quota.
func (s *Service) CreateCode(ctx context.Context, params CreateCodeParams) (*models.AccessCode, error) {
	if params.EstateID == "" || params.ResidentID == "" {
		return nil, NewError(CodeValidation, "estateId and residentId are required")
	}

	policy, err := s.Policy.GetPolicy(ctx, params.EstateID)
	if err != nil {
		return nil, err
	}
	if !policy.Enabled {
		return nil, NewError(CodePolicyDisabled, "access code issuance is disabled for this estate")
	}

	kind := models.CodeKind(params.Kind)
	switch kind {
	case models.CodeKindSingleUse, models.CodeKindLongLived:
	case "":
		if policy.DefaultSingleUse {
			kind = models.CodeKindSingleUse
		} else {
			kind = models.CodeKindLongLived
		}
	default:
		return nil, NewError(CodeValidation, "kind must be singleUse or longLived")
	}

	now := s.now()
	var expiresAt *time.Time
	switch kind {
	case models.CodeKindSingleUse:
		if params.DurationMinutes <= 0 {
			return nil, NewError(CodeValidation, "durationMinutes is required for single-use codes")
		}
		if params.DurationMinutes < policy.MinDurationMinutes || params.DurationMinutes > policy.MaxDurationMinutes {
			return nil, NewError(CodeDurationOutOfBounds, "duration outside the estate's allowed window")
		}
		t := now.Add(time.Duration(params.DurationMinutes) * time.Minute)
		expiresAt = &t
	case models.CodeKindLongLived:
		// Standing codes identify a recurring person, not a one-off visit, so
		// the visitor's identity is mandatory.
		if params.VisitorName == "" || params.VisitorPhone == "" {
			return nil, NewError(CodeValidation, "visitorName and visitorPhone are required for long-lived codes")
		}
	}

	if err := s.Quota.CheckDailyLimit(ctx, params.ResidentID, params.EstateID, policy, now); err != nil {
		return nil, err
	}

	code, err := s.Gen.Generate(ctx)
	if err != nil {
		return nil, err
	}

	accessCode := models.AccessCode{
		ID:           primitive.NewObjectID(),
		EstateID:     params.EstateID,
		ResidentID:   params.ResidentID,
		Code:         code,
		Kind:         kind,
		VisitorName:  params.VisitorName,
		VisitorPhone: params.VisitorPhone,
		Purpose:      params.Purpose,
		Status:       models.CodeStatusActive,
		ExpiresAt:    expiresAt,
		Notes:        params.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.ACDB.InsertOne(ctx, accessCode); err != nil {
		return nil, WrapError(err, CodeInternal, "failed to insert access code")
	}

	zap.S().Infow("access code created",
		"codeId", accessCode.ID.Hex(),
		"estateId", accessCode.EstateID,
		"residentId", accessCode.ResidentID,
		"kind", accessCode.Kind,
	)
	s.Events.Publish(models.AccessEvent{
		Type:        models.EventCodeCreated,
		EstateID:    accessCode.EstateID,
		CodeID:      accessCode.ID.Hex(),
		ResidentID:  accessCode.ResidentID,
		VisitorName: accessCode.VisitorName,
	})

	return &accessCode, nil
}

// RevokeCode moves an Active code to Revoked. Only the issuing resident or an
// admin may revoke; a code already in a terminal status is a state conflict.
// The status flip is a compare-and-swap on {_id, status: active} so two
// concurrent revokes (or a revoke racing a verification) cannot both win.
func (s *Service) RevokeCode(ctx context.Context, codeID, requesterID, requesterRole string) (*models.AccessCode, error) {
	id, err := primitive.ObjectIDFromHex(codeID)
	if err != nil {
		return nil, NewError(CodeValidation, "invalid code id")
	}

	existing, err := s.ACDB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewError(CodeNotFound, "access code not found")
		}
		return nil, WrapError(err, CodeInternal, "failed to load access code")
	}

	if existing.ResidentID != requesterID && requesterRole != models.RoleAdmin {
		return nil, NewError(CodeNotOwner, "only the issuing resident or an admin may revoke this code")
	}
	if IsTerminal(existing.Status) {
		return nil, NewError(CodeStateConflict, "code is already "+string(existing.Status))
	}

	now := s.now()
	updated, err := s.ACDB.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.CodeStatusActive},
		bson.M{"$set": bson.M{
			"status":    models.CodeStatusRevoked,
			"revokedAt": now,
			"revokedBy": requesterID,
			"updatedAt": now,
		}},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Lost the race to a verification or another revoke.
			return nil, NewError(CodeStateConflict, "code left the active state concurrently")
		}
		return nil, WrapError(err, CodeInternal, "failed to revoke access code")
	}

	zap.S().Infow("access code revoked",
		"codeId", updated.ID.Hex(),
		"estateId", updated.EstateID,
		"revokedBy", requesterID,
	)
	s.Events.Publish(models.AccessEvent{
		Type:        models.EventCodeRevoked,
		EstateID:    updated.EstateID,
		CodeID:      updated.ID.Hex(),
		ResidentID:  updated.ResidentID,
		VisitorName: updated.VisitorName,
	})

	return updated, nil
}

// GetCode loads a single code by id.
func (s *Service) GetCode(ctx context.Context, codeID string) (*models.AccessCode, error) {
	id, err := primitive.ObjectIDFromHex(codeID)
	if err != nil {
		return nil, NewError(CodeValidation, "invalid code id")
	}
	code, err := s.ACDB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, NewError(CodeNotFound, "access code not found")
		}
		return nil, WrapError(err, CodeInternal, "failed to load access code")
	}
	return code, nil
}

// ListActiveCodes returns the resident's usable codes, newest first. Rows the
// reconciliation job has not flipped yet are filtered by the graced clock, so
// the view never shows a code expired while a gate would still accept it.
func (s *Service) ListActiveCodes(ctx context.Context, residentID string) ([]models.AccessCode, error) {
	if residentID == "" {
		return nil, NewError(CodeValidation, "residentId is required")
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	codes, err := s.ACDB.Find(ctx, bson.M{
		"residentId": residentID,
		"status":     models.CodeStatusActive,
	}, opts)
	if err != nil {
		return nil, WrapError(err, CodeInternal, "failed to list active codes")
	}

	now := s.now()
	graceByEstate := map[string]time.Duration{}
	active := make([]models.AccessCode, 0, len(codes))
	for i := range codes {
		grace, ok := graceByEstate[codes[i].EstateID]
		if !ok {
			policy, err := s.Policy.GetPolicy(ctx, codes[i].EstateID)
			if err != nil {
				return nil, err
			}
			grace = GracePeriod(policy)
			graceByEstate[codes[i].EstateID] = grace
		}
		if EffectiveActive(&codes[i], now, grace) {
			active = append(active, codes[i])
		}
	}
	return active, nil
}

// HistoryFilter narrows and pages ListHistory. Cursor is the _id of the last
// code from the previous page; Limit defaults to 20 and caps at 100.
type HistoryFilter struct {
	Status string
	Kind   string
	Cursor string
	Limit  int
}

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ListHistory returns the resident's codes in all statuses, newest first by
// _id, cursor-paginated. The second return is the cursor for the next page,
// empty when this page is the last.
func (s *Service) ListHistory(ctx context.Context, residentID string, filter HistoryFilter) ([]models.AccessCode, string, error) {
	if residentID == "" {
		return nil, "", NewError(CodeValidation, "residentId is required")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := bson.M{"residentId": residentID}
	if filter.Status != "" {
		query["status"] = models.CodeStatus(filter.Status)
	}
	if filter.Kind != "" {
		query["kind"] = models.CodeKind(filter.Kind)
	}
	if filter.Cursor != "" {
		cursorID, err := primitive.ObjectIDFromHex(filter.Cursor)
		if err != nil {
			return nil, "", NewError(CodeValidation, "invalid cursor")
		}
		query["_id"] = bson.M{"$lt": cursorID}
	}

	// Fetch one extra row to learn whether another page exists.
	opts := options.Find().
		SetSort(bson.M{"_id": -1}).
		SetLimit(int64(limit + 1))
	codes, err := s.ACDB.Find(ctx, query, opts)
	if err != nil {
		return nil, "", WrapError(err, CodeInternal, "failed to list code history")
	}

	nextCursor := ""
	if len(codes) > limit {
		codes = codes[:limit]
		nextCursor = codes[limit-1].ID.Hex()
	}
	return codes, nextCursor, nil
}

// ListCodeLogs returns the verification log entries for one code, newest
// first.
func (s *Service) ListCodeLogs(ctx context.Context, codeID string) ([]models.AccessLog, error) {
	id, err := primitive.ObjectIDFromHex(codeID)
	if err != nil {
		return nil, NewError(CodeValidation, "invalid code id")
	}
	opts := options.Find().SetSort(bson.M{"verifiedAt": -1})
	logs, err := s.ALDB.Find(ctx, bson.M{"codeId": id}, opts)
	if err != nil {
		return nil, WrapError(err, CodeInternal, "failed to list access logs")
	}
	return logs, nil
}
