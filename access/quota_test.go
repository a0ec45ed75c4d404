package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/estatekit/estate-access-api/databases/mocks"
	"github.com/estatekit/estate-access-api/models"
)

func intPtr(i int) *int { return &i }

func TestDayWindow(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	assert.NoError(t, err)

	// 2024-06-01 23:30 UTC is already 2024-06-02 00:30 in Lagos (UTC+1).
	now := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	start, end := DayWindow(now, "Africa/Lagos")
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, lagos), start)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, lagos), end)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestDayWindow_UnknownTimezoneFallsBack(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	start, _ := DayWindow(now, "Not/AZone")
	fallbackStart, _ := DayWindow(now, models.DefaultTimezone)
	assert.Equal(t, fallbackStart, start)
}

func TestQuota_CheckDailyLimitUnlimited(t *testing.T) {
	acdb := &mocks.AccessCodeDatabase{}
	q := NewQuota(acdb)

	err := q.CheckDailyLimit(context.Background(), "resident-1", "estate-1", models.EstateSettings{}, time.Now())
	assert.NoError(t, err)
	acdb.AssertNotCalled(t, "CountDocuments")
}

func TestQuota_CheckDailyLimitUnderLimit(t *testing.T) {
	acdb := &mocks.AccessCodeDatabase{}
	acdb.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(2), nil)
	q := NewQuota(acdb)

	policy := models.EstateSettings{DailyLimitPerResident: intPtr(3), Timezone: "Africa/Lagos"}
	err := q.CheckDailyLimit(context.Background(), "resident-1", "estate-1", policy, time.Now())
	assert.NoError(t, err)
}

func TestQuota_CheckDailyLimitReached(t *testing.T) {
	acdb := &mocks.AccessCodeDatabase{}
	acdb.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(3), nil)
	q := NewQuota(acdb)

	policy := models.EstateSettings{DailyLimitPerResident: intPtr(3), Timezone: "Africa/Lagos"}
	err := q.CheckDailyLimit(context.Background(), "resident-1", "estate-1", policy, time.Now())
	assert.Error(t, err)
	assert.True(t, IsCode(err, CodeQuotaExceeded))
}

func TestQuota_CheckDailyLimitExcludesPriorDays(t *testing.T) {
	acdb := &mocks.AccessCodeDatabase{}
	var gotFilter bson.M
	acdb.On("CountDocuments", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotFilter = args.Get(1).(bson.M)
		}).
		Return(int64(0), nil)
	q := NewQuota(acdb)

	now := time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)
	policy := models.EstateSettings{DailyLimitPerResident: intPtr(1), Timezone: "Africa/Lagos"}
	err := q.CheckDailyLimit(context.Background(), "resident-1", "estate-1", policy, now)
	assert.NoError(t, err)

	window := gotFilter["createdAt"].(bson.M)
	start := window["$gte"].(time.Time)
	end := window["$lt"].(time.Time)

	// A code from the prior Lagos day falls outside the window.
	yesterday := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC)
	assert.True(t, yesterday.Before(start))
	assert.True(t, now.After(start) || now.Equal(start))
	assert.True(t, now.Before(end))
}
