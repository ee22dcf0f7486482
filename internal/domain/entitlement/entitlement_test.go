package entitlement

import (
	"testing"
	"time"

	"github.com/omnidesk/omnidesk/internal/domain/addon"
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeSubscription(planType types.PlanType, now time.Time) *subscription.Subscription {
	sub := subscription.New("owner_1", planType, 14, now, types.BaseModel{Status: types.StatusPublished})
	sub.SubscriptionStatus = types.SubscriptionStatusActive
	sub.EndDate = lo.ToPtr(now.AddDate(0, 1, 0))
	return sub
}

func completedCredit(credits int, now time.Time) *addon.AddOnCredit {
	credit := addon.NewPending("owner_1", types.PlanTypeBasic, credits, decimal.NewFromInt(10), "usd", types.AddOnSourceDashboard, now, types.BaseModel{Status: types.StatusPublished})
	if err := credit.Complete("pi_1"); err != nil {
		panic(err)
	}
	return credit
}

func TestComputeNilSubscriptionUsesFallback(t *testing.T) {
	now := time.Now().UTC()

	snap := Compute(nil, nil, 0, 0, now)

	assert.Equal(t, subscription.ClassNotEntitled, snap.Class)
	assert.Equal(t, types.FallbackLimits.MonthlyMessages, snap.BaseLimit)
	assert.Equal(t, types.FallbackLimits.MonthlyMessages, snap.MonthlyLimit)
	assert.Equal(t, types.FallbackLimits.DailyMessages, snap.DailyLimit)
	assert.True(t, snap.CanSend)
	assert.Equal(t, types.UsageAlertStatusHealthy, snap.UsageStatus)
}

func TestComputePlanLimitsPerTier(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		plan    types.PlanType
		monthly int
		daily   int
	}{
		{types.PlanTypeBasic, 450, 50},
		{types.PlanTypeGrowth, 1500, 150},
		{types.PlanTypeScale, 5000, 500},
	}

	for _, tc := range cases {
		snap := Compute(activeSubscription(tc.plan, now), nil, 0, 0, now)
		assert.Equal(t, tc.monthly, snap.BaseLimit, "plan %s", tc.plan)
		assert.Equal(t, tc.daily, snap.DailyLimit, "plan %s", tc.plan)
		assert.Equal(t, subscription.ClassActive, snap.Class)
	}
}

func TestComputeCreditsExtendMonthlyCeilingOnly(t *testing.T) {
	now := time.Now().UTC()
	sub := activeSubscription(types.PlanTypeBasic, now)
	credits := []*addon.AddOnCredit{
		completedCredit(500, now),
		completedCredit(250, now),
	}

	snap := Compute(sub, credits, 0, 0, now)

	assert.Equal(t, 450, snap.BaseLimit)
	assert.Equal(t, 750, snap.AddOnLimit)
	assert.Equal(t, 1200, snap.MonthlyLimit)
	assert.Equal(t, 50, snap.DailyLimit)
}

func TestComputeSkipsInactiveCredits(t *testing.T) {
	now := time.Now().UTC()
	sub := activeSubscription(types.PlanTypeBasic, now)

	pending := addon.NewPending("owner_1", types.PlanTypeBasic, 500, decimal.NewFromInt(10), "usd", types.AddOnSourceDashboard, now, types.BaseModel{})
	expired := completedCredit(500, now)
	expired.ExpirationDate = now.Add(-time.Hour)

	snap := Compute(sub, []*addon.AddOnCredit{pending, expired}, 0, 0, now)
	assert.Equal(t, 0, snap.AddOnLimit)
}

func TestComputeRemainingNeverNegative(t *testing.T) {
	now := time.Now().UTC()
	sub := activeSubscription(types.PlanTypeBasic, now)

	snap := Compute(sub, nil, 600, 60, now)

	assert.Equal(t, 0, snap.MonthlyRemaining)
	assert.Equal(t, 0, snap.DailyRemaining)
	assert.False(t, snap.CanSend)
}

func TestComputePercentageRounding(t *testing.T) {
	now := time.Now().UTC()
	sub := activeSubscription(types.PlanTypeBasic, now)

	// 150 of 450 is 33.33 percent, rounded down to 33.
	snap := Compute(sub, nil, 150, 0, now)
	assert.Equal(t, 33, snap.MonthlyPercentage)

	// 151 of 450 is 33.55 percent, rounded up to 34.
	snap = Compute(sub, nil, 151, 0, now)
	assert.Equal(t, 34, snap.MonthlyPercentage)
}

func TestComputeAlertThresholds(t *testing.T) {
	now := time.Now().UTC()
	sub := activeSubscription(types.PlanTypeGrowth, now)

	// 69% monthly is healthy.
	snap := Compute(sub, nil, 1035, 0, now)
	assert.Equal(t, types.UsageAlertStatusHealthy, snap.UsageStatus)

	// 70% crosses into warning.
	snap = Compute(sub, nil, 1050, 0, now)
	assert.Equal(t, types.UsageAlertStatusWarning, snap.UsageStatus)

	// 90% crosses into critical.
	snap = Compute(sub, nil, 1350, 0, now)
	assert.Equal(t, types.UsageAlertStatusCritical, snap.UsageStatus)
}

func TestComputeAlertTakesWorseOfBothWindows(t *testing.T) {
	now := time.Now().UTC()
	sub := activeSubscription(types.PlanTypeGrowth, now)

	// Monthly is barely touched but the day is nearly spent.
	snap := Compute(sub, nil, 10, 140, now)
	assert.Equal(t, types.UsageAlertStatusCritical, snap.UsageStatus)
}

func TestComputeCanSendRequiresBothWindows(t *testing.T) {
	now := time.Now().UTC()
	sub := activeSubscription(types.PlanTypeGrowth, now)

	// At the daily ceiling sending stops even with monthly headroom.
	snap := Compute(sub, nil, 200, 150, now)
	assert.False(t, snap.CanSend)

	// At the monthly ceiling sending stops even with daily headroom.
	snap = Compute(sub, nil, 1500, 10, now)
	assert.False(t, snap.CanSend)

	snap = Compute(sub, nil, 1499, 149, now)
	assert.True(t, snap.CanSend)
}

func TestComputeNotEntitledSubscriptionGetsFallback(t *testing.T) {
	now := time.Now().UTC()
	sub := activeSubscription(types.PlanTypeScale, now)
	sub.SubscriptionStatus = types.SubscriptionStatusPastDue

	snap := Compute(sub, nil, 0, 0, now)

	require.Equal(t, subscription.ClassNotEntitled, snap.Class)
	assert.Equal(t, types.FallbackLimits.MonthlyMessages, snap.BaseLimit)
	assert.Equal(t, types.FallbackLimits.DailyMessages, snap.DailyLimit)
	assert.Equal(t, types.SubscriptionStatusPastDue, snap.SubscriptionStatus)
	assert.Equal(t, types.PlanTypeScale, snap.PlanType)
}
