package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/estatekit/estate-access-api/access"
	"github.com/estatekit/estate-access-api/databases"
	"github.com/estatekit/estate-access-api/models"
)

// Scheduler handles periodic background jobs for access code hygiene: it
// persists the Expired status for single-use codes whose graced window has
// passed, and prunes stale pending verifications.
type Scheduler struct {
	cron       *cron.Cron
	ACDB       databases.AccessCodeDatabase
	PVDB       databases.PendingVerificationDatabase
	EDB        databases.EstateDatabase
	Policy     *access.Resolver
	LockDB     databases.SchedulerLockDatabase
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	acDB databases.AccessCodeDatabase,
	pvDB databases.PendingVerificationDatabase,
	eDB databases.EstateDatabase,
	policy *access.Resolver,
	lockDB databases.SchedulerLockDatabase,
) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		ACDB:       acDB,
		PVDB:       pvDB,
		EDB:        eDB,
		Policy:     policy,
		LockDB:     lockDB,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Persist expiry for stale single-use codes every 10 minutes
	_, err := s.cron.AddFunc("*/10 * * * *", s.ReconcileExpiredCodes)
	if err != nil {
		zap.S().Errorw("failed to register expiry reconciliation job", "error", err)
	}

	// Prune pending verifications whose confirmation window lapsed, hourly
	_, err = s.cron.AddFunc("0 * * * *", s.PrunePendingVerifications)
	if err != nil {
		zap.S().Errorw("failed to register pending verification pruning job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Access code scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Access code scheduler stopped")
}

// ReconcileExpiredCodes flips single-use codes from Active to Expired once
// their expiry plus the estate's grace period has passed. The filter pins
// status to Active, so a code concurrently moving to Used or Revoked is left
// alone; gates never depend on this job because verification derives expiry
// from the clock.
func (s *Scheduler) ReconcileExpiredCodes() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, "expiry_reconciliation_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for expiry reconciliation job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Expiry reconciliation already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "expiry_reconciliation_job", s.instanceID)

	estates, err := s.EDB.Find(ctx, bson.M{})
	if err != nil {
		zap.S().Errorw("failed to list estates for expiry reconciliation", "error", err)
		return
	}

	now := time.Now()
	var flipped int64
	for _, estate := range estates {
		estateID := estate.ID.Hex()
		policy, err := s.Policy.GetPolicy(ctx, estateID)
		if err != nil {
			zap.S().Errorw("failed to load policy for expiry reconciliation",
				"estateId", estateID, "error", err)
			continue
		}
		// The cutoff honors the grace window so a code a gate would still
		// accept is never persisted as Expired.
		cutoff := now.Add(-access.GracePeriod(policy))

		modified, err := s.ACDB.UpdateMany(ctx,
			bson.M{
				"estateId":  estateID,
				"kind":      models.CodeKindSingleUse,
				"status":    models.CodeStatusActive,
				"expiresAt": bson.M{"$lt": cutoff},
			},
			bson.M{"$set": bson.M{
				"status":    models.CodeStatusExpired,
				"updatedAt": now,
			}},
		)
		if err != nil {
			zap.S().Errorw("failed to expire codes", "estateId", estateID, "error", err)
			continue
		}
		flipped += modified
	}

	zap.S().Infow("Expiry reconciliation complete",
		"instance", s.instanceID,
		"estates", len(estates),
		"codesExpired", flipped,
	)
}

// PrunePendingVerifications deletes pending verifications whose confirmation
// window has lapsed
func (s *Scheduler) PrunePendingVerifications() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, "pending_pruning_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for pending pruning job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Pending pruning already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "pending_pruning_job", s.instanceID)

	err = s.PVDB.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": time.Now()}})
	if err != nil {
		zap.S().Errorw("failed to prune pending verifications", "error", err)
		return
	}

	zap.S().Infow("Pending verification pruning complete", "instance", s.instanceID)
}
