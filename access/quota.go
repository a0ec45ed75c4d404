package access

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/estatekit/estate-access-api/databases"
	"github.com/estatekit/estate-access-api/models"
)

// Quota enforces the per-resident daily creation limit. The guarantee is a
// soft limit: the count and the subsequent insert are not one transaction, so
// a burst of concurrent creates can overshoot the limit by the number of
// requests in flight. See DESIGN.md.
type Quota struct {
	ACDB databases.AccessCodeDatabase
}

// NewQuota creates a quota enforcer backed by the accessCodes collection.
func NewQuota(acdb databases.AccessCodeDatabase) *Quota {
	return &Quota{ACDB: acdb}
}

// DayWindow returns the [start, end) bounds of the calendar day containing
// `now` in the given IANA timezone. An unknown or empty timezone falls back
// to the platform default so a bad setting cannot block code creation.
func DayWindow(now time.Time, timezone string) (time.Time, time.Time) {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc, err = time.LoadLocation(models.DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// CheckDailyLimit returns a quota_exceeded error when the resident has
// already created policy.DailyLimitPerResident codes today (estate-local
// day). A nil limit means unlimited and passes without a query.
func (q *Quota) CheckDailyLimit(ctx context.Context, residentID, estateID string, policy models.EstateSettings, now time.Time) error {
	if policy.DailyLimitPerResident == nil {
		return nil
	}
	limit := int64(*policy.DailyLimitPerResident)

	start, end := DayWindow(now, policy.Timezone)
	count, err := q.ACDB.CountDocuments(ctx, bson.M{
		"residentId": residentID,
		"estateId":   estateID,
		"createdAt":  bson.M{"$gte": start, "$lt": end},
	})
	if err != nil {
		return WrapError(err, CodeInternal, "failed to count today's codes")
	}

	if count >= limit {
		return NewError(CodeQuotaExceeded, fmt.Sprintf("daily limit of %d codes reached", limit))
	}
	return nil
}
