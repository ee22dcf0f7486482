package entitlement

import (
	"math"
	"time"

	"github.com/omnidesk/omnidesk/internal/domain/addon"
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	"github.com/omnidesk/omnidesk/internal/types"
)

// Snapshot is the computed entitlement at a point in time. It is derived
// on demand from the subscription, the add-on ledger and the message log;
// nothing here is stored.
type Snapshot struct {
	OwnerID            string                      `json:"owner_id"`
	PlanType           types.PlanType              `json:"plan_type"`
	SubscriptionStatus types.SubscriptionStatus    `json:"subscription_status"`
	Class              subscription.EntitlementClass `json:"entitlement_class"`

	// Monthly ceiling breakdown. AddOnLimit only ever extends the monthly
	// side; daily limits come from the base plan alone.
	BaseLimit    int `json:"base_limit"`
	AddOnLimit   int `json:"addon_limit"`
	MonthlyLimit int `json:"monthly_limit"`

	MonthlyUsed       int `json:"monthly_used"`
	MonthlyRemaining  int `json:"monthly_remaining"`
	MonthlyPercentage int `json:"monthly_percentage"`

	DailyLimit      int `json:"daily_limit"`
	DailyUsed       int `json:"daily_used"`
	DailyRemaining  int `json:"daily_remaining"`
	DailyPercentage int `json:"daily_percentage"`

	UsageStatus types.UsageAlertStatus `json:"usage_status"`
	CanSend     bool                   `json:"can_send"`

	ComputedAt time.Time `json:"computed_at"`
}

// Compute derives the snapshot. Callers are responsible for having applied
// lazy expiration to the subscription first; a nil subscription means the
// owner has none and gets the fallback tier.
func Compute(sub *subscription.Subscription, credits []*addon.AddOnCredit, monthlyUsed, dailyUsed int, now time.Time) *Snapshot {
	now = now.UTC()

	snap := &Snapshot{
		MonthlyUsed: monthlyUsed,
		DailyUsed:   dailyUsed,
		ComputedAt:  now,
		Class:       subscription.ClassNotEntitled,
	}

	base := types.FallbackLimits
	if sub != nil {
		snap.OwnerID = sub.OwnerID
		snap.PlanType = sub.PlanType
		snap.SubscriptionStatus = sub.SubscriptionStatus
		snap.Class = sub.Classify(now)
		if snap.Class.Entitled() {
			base = types.LimitsFor(sub.PlanType)
		}
	}

	snap.BaseLimit = base.MonthlyMessages
	snap.DailyLimit = base.DailyMessages

	for _, credit := range credits {
		if credit.IsActiveAt(now) {
			snap.AddOnLimit += credit.CreditsGranted
		}
	}

	snap.MonthlyLimit = snap.BaseLimit + snap.AddOnLimit
	snap.MonthlyRemaining = remaining(snap.MonthlyLimit, monthlyUsed)
	snap.MonthlyPercentage = percentage(snap.MonthlyLimit, monthlyUsed)
	snap.DailyRemaining = remaining(snap.DailyLimit, dailyUsed)
	snap.DailyPercentage = percentage(snap.DailyLimit, dailyUsed)

	snap.UsageStatus = alertStatus(snap.MonthlyPercentage, snap.DailyPercentage)
	snap.CanSend = monthlyUsed < snap.MonthlyLimit && dailyUsed < snap.DailyLimit

	return snap
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

// percentage rounds to the nearest whole percent; a zero limit reads as 0
// so empty fallback tiers do not divide by zero.
func percentage(limit, used int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Round(float64(used) / float64(limit) * 100))
}

func alertStatus(monthlyPct, dailyPct int) types.UsageAlertStatus {
	pct := monthlyPct
	if dailyPct > pct {
		pct = dailyPct
	}
	switch {
	case pct >= types.UsageCriticalThreshold:
		return types.UsageAlertStatusCritical
	case pct >= types.UsageWarningThreshold:
		return types.UsageAlertStatusWarning
	default:
		return types.UsageAlertStatusHealthy
	}
}
