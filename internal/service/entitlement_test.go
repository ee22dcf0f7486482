package service

import (
	"testing"
	"time"

	"github.com/omnidesk/omnidesk/internal/api/dto"
	"github.com/omnidesk/omnidesk/internal/cache"
	"github.com/omnidesk/omnidesk/internal/domain/addon"
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	"github.com/omnidesk/omnidesk/internal/testutil"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type EntitlementServiceTestSuite struct {
	testutil.BaseServiceTestSuite
	service  EntitlementService
	usageSvc UsageService
}

func TestEntitlementService(t *testing.T) {
	suite.Run(t, new(EntitlementServiceTestSuite))
}

func (s *EntitlementServiceTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		Cache:           cache.GetInMemoryCache(),
		SubRepo:         s.GetStores().SubscriptionRepo,
		AddOnRepo:       s.GetStores().AddOnRepo,
		MessageRepo:     s.GetStores().MessageRepo,
		BillingProvider: s.GetProvider(),
	}
	s.service = NewEntitlementService(params)
	s.usageSvc = NewUsageService(params)
}

func (s *EntitlementServiceTestSuite) seedSubscription(status types.SubscriptionStatus, planType types.PlanType) *subscription.Subscription {
	now := s.GetNow()
	sub := subscription.New(types.DefaultOwnerID, planType, s.GetConfig().Billing.TrialDays, now, types.GetDefaultBaseModel(s.GetContext()))

	switch status {
	case types.SubscriptionStatusTrial:
	case types.SubscriptionStatusActive:
		sub.SubscriptionStatus = types.SubscriptionStatusActive
		sub.EndDate = lo.ToPtr(now.AddDate(0, 1, 0))
	case types.SubscriptionStatusPaused:
		sub.SubscriptionStatus = types.SubscriptionStatusPaused
		sub.PausedAt = lo.ToPtr(now.Add(-time.Hour))
		sub.OriginalEndDate = lo.ToPtr(now.AddDate(0, 1, 0))
	case types.SubscriptionStatusGracePeriod:
		sub.SubscriptionStatus = types.SubscriptionStatusGracePeriod
		sub.CancelledAt = lo.ToPtr(now.Add(-time.Hour))
		sub.GracePeriodEndDate = lo.ToPtr(now.AddDate(0, 0, 5))
		sub.AutoRenew = false
	default:
		sub.SubscriptionStatus = status
		sub.AutoRenew = false
	}

	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *EntitlementServiceTestSuite) seedCompletedCredit(credits int, effective time.Time) *addon.AddOnCredit {
	credit := addon.NewPending(types.DefaultOwnerID, types.PlanTypeBasic, credits, decimal.NewFromInt(10), "usd", types.AddOnSourceDashboard, effective, types.GetDefaultBaseModel(s.GetContext()))
	s.NoError(credit.Complete("pi_test_1"))
	s.NoError(s.GetStores().AddOnRepo.Create(s.GetContext(), credit))
	return credit
}

func (s *EntitlementServiceTestSuite) recordOutbound(count int) {
	for i := 0; i < count; i++ {
		s.NoError(s.usageSvc.RecordMessage(s.GetContext(), &dto.MessageEvent{
			OwnerID:   types.DefaultOwnerID,
			Channel:   types.ChannelWhatsApp,
			Direction: types.MessageDirectionOutbound,
			Timestamp: s.GetNow(),
		}))
	}
}

func (s *EntitlementServiceTestSuite) TestOwnerWithoutSubscriptionGetsFallbackTier() {
	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)

	snap := resp.Snapshot
	s.Equal(types.DefaultOwnerID, snap.OwnerID)
	s.Equal(subscription.ClassNotEntitled, snap.Class)
	s.Equal(types.FallbackLimits.MonthlyMessages, snap.BaseLimit)
	s.Equal(types.FallbackLimits.DailyMessages, snap.DailyLimit)
	s.Equal(0, snap.AddOnLimit)
	s.True(snap.CanSend)
	s.Equal(types.UsageAlertStatusHealthy, snap.UsageStatus)
}

func (s *EntitlementServiceTestSuite) TestTrialGetsFullPlanLimits() {
	s.seedSubscription(types.SubscriptionStatusTrial, types.PlanTypeGrowth)

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)

	snap := resp.Snapshot
	s.Equal(subscription.ClassTrial, snap.Class)
	s.Equal(1500, snap.BaseLimit)
	s.Equal(1500, snap.MonthlyLimit)
	s.Equal(150, snap.DailyLimit)
}

func (s *EntitlementServiceTestSuite) TestExpiredTrialDropsToFallbackTier() {
	sub := s.seedSubscription(types.SubscriptionStatusTrial, types.PlanTypeScale)
	sub.StartDate = s.GetNow().AddDate(0, 0, -30)
	sub.TrialEndDate = s.GetNow().AddDate(0, 0, -16)
	s.NoError(s.GetStores().SubscriptionRepo.UpdateWithExpectedStatus(s.GetContext(), sub, types.SubscriptionStatusTrial))

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)

	snap := resp.Snapshot
	s.Equal(types.SubscriptionStatusExpired, snap.SubscriptionStatus)
	s.Equal(subscription.ClassNotEntitled, snap.Class)
	s.Equal(types.FallbackLimits.MonthlyMessages, snap.BaseLimit)
	s.Equal(types.FallbackLimits.DailyMessages, snap.DailyLimit)
}

func (s *EntitlementServiceTestSuite) TestEntitlementReflectsSubscriptionWritesImmediately() {
	sub := s.seedSubscription(types.SubscriptionStatusActive, types.PlanTypeGrowth)

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)
	s.Equal(1500, resp.Snapshot.MonthlyLimit)

	// A concurrent write (e.g. a webhook on another instance) must be
	// visible on the very next read; entitlement is never answered from
	// a cached subscription record.
	next, err := subscription.MarkPastDue(sub, s.GetNow())
	s.NoError(err)
	s.NoError(s.GetStores().SubscriptionRepo.UpdateWithExpectedStatus(s.GetContext(), next, types.SubscriptionStatusActive))

	resp, err = s.service.GetEntitlement(s.GetContext())
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, resp.Snapshot.SubscriptionStatus)
	s.Equal(subscription.ClassNotEntitled, resp.Snapshot.Class)
	s.Equal(types.FallbackLimits.MonthlyMessages, resp.Snapshot.BaseLimit)
}

func (s *EntitlementServiceTestSuite) TestGraceWindowKeepsPlanLimits() {
	s.seedSubscription(types.SubscriptionStatusGracePeriod, types.PlanTypeScale)

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)

	snap := resp.Snapshot
	s.Equal(subscription.ClassGrace, snap.Class)
	s.Equal(5000, snap.BaseLimit)
	s.Equal(500, snap.DailyLimit)
}

func (s *EntitlementServiceTestSuite) TestPausedDropsToFallbackTier() {
	s.seedSubscription(types.SubscriptionStatusPaused, types.PlanTypeGrowth)

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)

	snap := resp.Snapshot
	s.Equal(subscription.ClassNotEntitled, snap.Class)
	s.Equal(types.FallbackLimits.MonthlyMessages, snap.BaseLimit)
}

func (s *EntitlementServiceTestSuite) TestAddOnCreditsExtendMonthlyOnly() {
	s.seedSubscription(types.SubscriptionStatusActive, types.PlanTypeBasic)
	s.seedCompletedCredit(500, s.GetNow())
	s.seedCompletedCredit(200, s.GetNow())

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)

	snap := resp.Snapshot
	s.Equal(450, snap.BaseLimit)
	s.Equal(700, snap.AddOnLimit)
	s.Equal(1150, snap.MonthlyLimit)

	// Daily ceilings never grow with credits.
	s.Equal(50, snap.DailyLimit)
}

func (s *EntitlementServiceTestSuite) TestPendingAndFailedCreditsDoNotContribute() {
	s.seedSubscription(types.SubscriptionStatusActive, types.PlanTypeBasic)

	pending := addon.NewPending(types.DefaultOwnerID, types.PlanTypeBasic, 500, decimal.NewFromInt(10), "usd", types.AddOnSourceDashboard, s.GetNow(), types.GetDefaultBaseModel(s.GetContext()))
	s.NoError(s.GetStores().AddOnRepo.Create(s.GetContext(), pending))

	failed := addon.NewPending(types.DefaultOwnerID, types.PlanTypeBasic, 500, decimal.NewFromInt(10), "usd", types.AddOnSourceDashboard, s.GetNow(), types.GetDefaultBaseModel(s.GetContext()))
	s.NoError(failed.Fail())
	s.NoError(s.GetStores().AddOnRepo.Create(s.GetContext(), failed))

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)
	s.Equal(0, resp.Snapshot.AddOnLimit)
	s.Equal(450, resp.Snapshot.MonthlyLimit)
}

func (s *EntitlementServiceTestSuite) TestCreditFromPreviousMonthIsExpired() {
	s.seedSubscription(types.SubscriptionStatusActive, types.PlanTypeBasic)

	// Effective last month, so the window closed at the start of this month.
	lastMonth := types.MonthWindowFor(s.GetNow()).Start.AddDate(0, 0, -5)
	s.seedCompletedCredit(500, lastMonth)

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)
	s.Equal(0, resp.Snapshot.AddOnLimit)
}

func (s *EntitlementServiceTestSuite) TestInboundMessagesDoNotConsumeQuota() {
	s.seedSubscription(types.SubscriptionStatusActive, types.PlanTypeBasic)
	s.recordOutbound(3)
	s.NoError(s.usageSvc.RecordMessage(s.GetContext(), &dto.MessageEvent{
		OwnerID:   types.DefaultOwnerID,
		Channel:   types.ChannelWhatsApp,
		Direction: types.MessageDirectionInbound,
		Timestamp: s.GetNow(),
	}))

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)
	s.Equal(3, resp.Snapshot.MonthlyUsed)
	s.Equal(3, resp.Snapshot.DailyUsed)
}

func (s *EntitlementServiceTestSuite) TestDailyCeilingDrivesAlertAndBlocksSending() {
	// Fallback tier: 50 monthly, 10 daily.
	s.recordOutbound(10)

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)

	snap := resp.Snapshot
	s.Equal(10, snap.DailyUsed)
	s.Equal(0, snap.DailyRemaining)
	s.Equal(100, snap.DailyPercentage)
	s.Equal(types.UsageAlertStatusCritical, snap.UsageStatus)
	s.False(snap.CanSend)

	// The monthly side alone would still allow sending.
	s.Equal(20, snap.MonthlyPercentage)
	s.Positive(snap.MonthlyRemaining)
}

func (s *EntitlementServiceTestSuite) TestWarningThreshold() {
	// 8 of 10 daily messages is 80%, inside the warning band.
	s.recordOutbound(8)

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)
	s.Equal(types.UsageAlertStatusWarning, resp.Snapshot.UsageStatus)
	s.True(resp.Snapshot.CanSend)
}

func (s *EntitlementServiceTestSuite) TestUsageIsScopedToOwner() {
	s.seedSubscription(types.SubscriptionStatusActive, types.PlanTypeBasic)
	s.recordOutbound(5)

	s.NoError(s.usageSvc.RecordMessage(s.GetContext(), &dto.MessageEvent{
		OwnerID:   "owner_other",
		Channel:   types.ChannelTelegram,
		Direction: types.MessageDirectionOutbound,
		Timestamp: s.GetNow(),
	}))

	resp, err := s.service.GetEntitlement(s.GetContext())
	s.NoError(err)
	s.Equal(5, resp.Snapshot.MonthlyUsed)
}
