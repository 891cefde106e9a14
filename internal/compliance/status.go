package compliance

import (
	"math"
	"time"

	"github.com/incubatehub/compliance-api/internal/models"
)

// DefaultExpiringWindowDays is used whenever a non-positive window is supplied.
const DefaultExpiringWindowDays = 30

var storedStatuses = map[string]models.EffectiveStatus{
	string(models.StatusValid):    models.StatusValid,
	string(models.StatusExpired):  models.StatusExpired,
	string(models.StatusExpiring): models.StatusExpiring,
	string(models.StatusInvalid):  models.StatusInvalid,
	string(models.StatusMissing):  models.StatusMissing,
}

// ResolveStatus applies the status cascade; the first matching rule wins:
// queried, missing file, expiry against now, stored status, pending.
func ResolveStatus(doc models.NormalizedDocument, now time.Time, expiringWindowDays int) models.EffectiveStatus {
	if expiringWindowDays <= 0 {
		expiringWindowDays = DefaultExpiringWindowDays
	}

	if doc.VerificationStatusRaw == models.VerificationQueried {
		return models.StatusInvalid
	}
	if !doc.HasFile || doc.StatusRaw == string(models.StatusMissing) {
		return models.StatusMissing
	}
	if doc.Expiry != nil {
		days := daysBetween(now, *doc.Expiry)
		if days < 0 {
			return models.StatusExpired
		}
		if days <= expiringWindowDays {
			return models.StatusExpiring
		}
	}
	if status, ok := storedStatuses[doc.StatusRaw]; ok {
		return status
	}
	return models.StatusPending
}

// NeedsAction reports whether a status requires follow-up.
func NeedsAction(status models.EffectiveStatus) bool {
	return status != models.StatusValid
}

func daysBetween(from, to time.Time) int {
	diff := truncateToDay(to).Sub(truncateToDay(from))
	return int(math.Round(diff.Hours() / 24))
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
