package access

import (
	"time"

	"github.com/estatekit/estate-access-api/models"
)

// The lifecycle is deliberately small: Active is the only non-terminal
// status, and every transition out of it is one hop.
//
//	Active -> Used     (single-use code verified at a gate)
//	Active -> Revoked  (owner or admin pulls the code)
//	Active -> Expired  (single-use code outlived expiresAt; persisted lazily)
//
// Long-lived codes never move to Used or Expired; they stay Active until
// revoked, no matter how often they are verified.
var validTransitions = map[models.CodeStatus][]models.CodeStatus{
	models.CodeStatusActive: {
		models.CodeStatusUsed,
		models.CodeStatusExpired,
		models.CodeStatusRevoked,
	},
	models.CodeStatusUsed:    {},
	models.CodeStatusExpired: {},
	models.CodeStatusRevoked: {},
}

// IsTerminal reports whether status permits no further transitions.
func IsTerminal(status models.CodeStatus) bool {
	return status == models.CodeStatusUsed ||
		status == models.CodeStatusExpired ||
		status == models.CodeStatusRevoked
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to models.CodeStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EffectiveStatus derives the status a caller should observe at `now`,
// independent of whether the reconciliation job has persisted it yet. The
// persisted row may still say Active after expiresAt has passed; verification
// and read views must consult this predicate rather than trust the row.
//
// grace widens the acceptance window past nominal expiry. Callers on the
// verification path pass the estate's configured grace period; callers that
// want the nominal view pass zero.
func EffectiveStatus(code *models.AccessCode, now time.Time, grace time.Duration) models.CodeStatus {
	if code.Status != models.CodeStatusActive {
		return code.Status
	}
	// Long-lived codes carry no expiresAt and time never expires them.
	if code.ExpiresAt == nil {
		return models.CodeStatusActive
	}
	if now.After(code.ExpiresAt.Add(grace)) {
		return models.CodeStatusExpired
	}
	return models.CodeStatusActive
}

// EffectiveActive reports whether the code is usable at `now` under the given
// grace period.
func EffectiveActive(code *models.AccessCode, now time.Time, grace time.Duration) bool {
	return EffectiveStatus(code, now, grace) == models.CodeStatusActive
}

// GracePeriod converts the estate's configured grace minutes to a duration.
func GracePeriod(settings models.EstateSettings) time.Duration {
	return time.Duration(settings.GracePeriodMinutes) * time.Minute
}
