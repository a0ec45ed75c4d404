package access

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/estatekit/estate-access-api/databases"
	"github.com/estatekit/estate-access-api/models"
)

// PolicyCacheTTL bounds how stale a cached estate policy may get when no
// write invalidates it first.
const PolicyCacheTTL = 5 * time.Minute

// Resolver loads per-estate access policy with a read-through TTL cache.
// Every write goes through SetPolicy, which invalidates the cache entry
// synchronously before returning, so a caller that wrote a policy never
// reads an older one back.
type Resolver struct {
	EDB   databases.EstateDatabase
	cache *gocache.Cache
}

// NewResolver creates a policy resolver backed by the estate collection.
func NewResolver(edb databases.EstateDatabase) *Resolver {
	return &Resolver{
		EDB:   edb,
		cache: gocache.New(PolicyCacheTTL, 2*PolicyCacheTTL),
	}
}

// GetPolicy returns the estate's access policy, seeding the defaults the
// first time an estate is touched (idempotent get-or-create).
func (r *Resolver) GetPolicy(ctx context.Context, estateID string) (models.EstateSettings, error) {
	if cached, ok := r.cache.Get(estateID); ok {
		return cached.(models.EstateSettings), nil
	}

	estate, err := r.EDB.EnsureSettings(ctx, estateID, models.DefaultEstateSettings())
	if err != nil {
		return models.EstateSettings{}, WrapError(err, CodeInternal, "failed to load estate settings")
	}

	settings := estate.Settings
	if settings.Timezone == "" {
		// Estate document predates the settings block: seed it in place. The
		// $exists filter keeps concurrent seeders from clobbering each other.
		settings = models.DefaultEstateSettings()
		eID, idErr := primitive.ObjectIDFromHex(estateID)
		if idErr != nil {
			return models.EstateSettings{}, WrapError(idErr, CodeValidation, "invalid estate id")
		}
		err = r.EDB.UpdateOne(ctx,
			bson.M{"_id": eID, "settings.timezone": bson.M{"$exists": false}},
			bson.M{"$set": bson.M{"settings": settings}},
		)
		if err != nil {
			return models.EstateSettings{}, WrapError(err, CodeInternal, "failed to seed estate settings")
		}
		zap.S().Infow("seeded default access settings", "estateId", estateID)
	}

	r.cache.Set(estateID, settings, gocache.DefaultExpiration)
	return settings, nil
}

// SetPolicy persists the estate's policy and invalidates the cached entry
// before returning, guaranteeing read-after-write for subsequent GetPolicy
// calls.
func (r *Resolver) SetPolicy(ctx context.Context, estateID string, settings models.EstateSettings) error {
	if settings.Timezone == "" {
		settings.Timezone = models.DefaultTimezone
	}
	if _, err := time.LoadLocation(settings.Timezone); err != nil {
		return WrapError(err, CodeValidation, "unknown timezone")
	}
	if settings.MinDurationMinutes <= 0 || settings.MaxDurationMinutes < settings.MinDurationMinutes {
		return NewError(CodeValidation, "duration bounds must satisfy 0 < min <= max")
	}
	if settings.GracePeriodMinutes < 0 {
		return NewError(CodeValidation, "grace period must not be negative")
	}
	if settings.DailyLimitPerResident != nil && *settings.DailyLimitPerResident < 1 {
		return NewError(CodeValidation, "daily limit must be at least 1, or null for unlimited")
	}

	eID, err := primitive.ObjectIDFromHex(estateID)
	if err != nil {
		return WrapError(err, CodeValidation, "invalid estate id")
	}

	err = r.EDB.UpdateOne(ctx,
		bson.M{"_id": eID},
		bson.M{"$set": bson.M{"settings": settings, "updatedAt": time.Now()}},
	)
	if err != nil {
		return WrapError(err, CodeInternal, "failed to update estate settings")
	}

	r.Invalidate(estateID)
	return nil
}

// Invalidate drops the cached policy for an estate. Exposed for callers that
// write estate settings outside SetPolicy (e.g. cascade teardown).
func (r *Resolver) Invalidate(estateID string) {
	r.cache.Delete(estateID)
}
