package service

import (
	"testing"
	"time"

	"github.com/omnidesk/omnidesk/internal/cache"
	"github.com/omnidesk/omnidesk/internal/domain/addon"
	"github.com/omnidesk/omnidesk/internal/domain/billing"
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/testutil"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BillingReconcilerTestSuite struct {
	testutil.BaseServiceTestSuite
	service BillingReconcilerService
}

func TestBillingReconcilerService(t *testing.T) {
	suite.Run(t, new(BillingReconcilerTestSuite))
}

func (s *BillingReconcilerTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewBillingReconcilerService(ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		Cache:           cache.GetInMemoryCache(),
		SubRepo:         s.GetStores().SubscriptionRepo,
		AddOnRepo:       s.GetStores().AddOnRepo,
		MessageRepo:     s.GetStores().MessageRepo,
		BillingProvider: s.GetProvider(),
	})
}

// seedLinkedSubscription stores a subscription already linked to a provider
// subscription id, the way the checkout completion leaves it.
func (s *BillingReconcilerTestSuite) seedLinkedSubscription(status types.SubscriptionStatus, providerSubID string) *subscription.Subscription {
	now := s.GetNow()
	sub := subscription.New(types.DefaultOwnerID, types.PlanTypeGrowth, s.GetConfig().Billing.TrialDays, now, types.GetDefaultBaseModel(s.GetContext()))
	sub.ProviderSubscriptionID = providerSubID

	switch status {
	case types.SubscriptionStatusTrial:
	case types.SubscriptionStatusActive:
		sub.SubscriptionStatus = types.SubscriptionStatusActive
		sub.EndDate = lo.ToPtr(now.AddDate(0, 1, 0))
	case types.SubscriptionStatusPastDue:
		sub.SubscriptionStatus = types.SubscriptionStatusPastDue
		sub.AutoRenew = false
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

func (s *BillingReconcilerTestSuite) seedPendingCredit() *addon.AddOnCredit {
	credit := addon.NewPending(types.DefaultOwnerID, types.PlanTypeGrowth, 500, decimal.NewFromInt(10), "usd", types.AddOnSourceDashboard, s.GetNow(), types.GetDefaultBaseModel(s.GetContext()))
	credit.ProviderSessionID = "cs_" + credit.ID
	s.NoError(s.GetStores().AddOnRepo.Create(s.GetContext(), credit))
	return credit
}

func (s *BillingReconcilerTestSuite) event(eventType types.BillingEventType, mutate func(*billing.ProviderEvent)) *billing.ProviderEvent {
	e := &billing.ProviderEvent{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_EVENT),
		Type:       eventType,
		OccurredAt: s.GetNow(),
	}
	if mutate != nil {
		mutate(e)
	}
	return e
}

func (s *BillingReconcilerTestSuite) getSubscription(id string) *subscription.Subscription {
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), id)
	s.NoError(err)
	return sub
}

func (s *BillingReconcilerTestSuite) TestPaymentSucceededActivatesTrial() {
	seeded := s.seedLinkedSubscription(types.SubscriptionStatusTrial, "sub_prov_1")
	periodEnd := s.GetNow().AddDate(0, 1, 0)

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventPaymentSucceeded, func(e *billing.ProviderEvent) {
		e.SubscriptionRef = "sub_prov_1"
		e.PeriodEnd = &periodEnd
	}))
	s.NoError(err)

	sub := s.getSubscription(seeded.ID)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.True(sub.AutoRenew)
	s.NotNil(sub.EndDate)
	s.True(sub.EndDate.Equal(periodEnd))
	s.NotNil(sub.LastBillingEventAt)
}

func (s *BillingReconcilerTestSuite) TestPaymentSucceededRecoversPastDue() {
	seeded := s.seedLinkedSubscription(types.SubscriptionStatusPastDue, "sub_prov_1")

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventPaymentSucceeded, func(e *billing.ProviderEvent) {
		e.SubscriptionRef = "sub_prov_1"
	}))
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, s.getSubscription(seeded.ID).SubscriptionStatus)
}

func (s *BillingReconcilerTestSuite) TestPaymentFailedMarksPastDue() {
	seeded := s.seedLinkedSubscription(types.SubscriptionStatusActive, "sub_prov_1")

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventPaymentFailed, func(e *billing.ProviderEvent) {
		e.SubscriptionRef = "sub_prov_1"
	}))
	s.NoError(err)

	sub := s.getSubscription(seeded.ID)
	s.Equal(types.SubscriptionStatusPastDue, sub.SubscriptionStatus)
	s.False(sub.AutoRenew)
}

func (s *BillingReconcilerTestSuite) TestRetriesExhaustedOpensGraceWindow() {
	seeded := s.seedLinkedSubscription(types.SubscriptionStatusPastDue, "sub_prov_1")
	occurredAt := s.GetNow()

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventPaymentRetriesExhausted, func(e *billing.ProviderEvent) {
		e.SubscriptionRef = "sub_prov_1"
		e.OccurredAt = occurredAt
	}))
	s.NoError(err)

	sub := s.getSubscription(seeded.ID)
	s.Equal(types.SubscriptionStatusGracePeriod, sub.SubscriptionStatus)
	s.NotNil(sub.GracePeriodEndDate)
	expected := occurredAt.UTC().AddDate(0, 0, s.GetConfig().Billing.DefaultGraceDays)
	s.True(sub.GracePeriodEndDate.Equal(expected))
}

func (s *BillingReconcilerTestSuite) TestProviderCancelMapsToGraceWindow() {
	seeded := s.seedLinkedSubscription(types.SubscriptionStatusActive, "sub_prov_1")

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventSubscriptionCancelled, func(e *billing.ProviderEvent) {
		e.SubscriptionRef = "sub_prov_1"
	}))
	s.NoError(err)

	sub := s.getSubscription(seeded.ID)
	s.Equal(types.SubscriptionStatusGracePeriod, sub.SubscriptionStatus)
	s.False(sub.AutoRenew)
}

func (s *BillingReconcilerTestSuite) TestProviderCancelAfterLocalCancelIsAcked() {
	seeded := s.seedLinkedSubscription(types.SubscriptionStatusGracePeriod, "sub_prov_1")

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventSubscriptionCancelled, func(e *billing.ProviderEvent) {
		e.SubscriptionRef = "sub_prov_1"
	}))
	s.NoError(err)
	s.Equal(types.SubscriptionStatusGracePeriod, s.getSubscription(seeded.ID).SubscriptionStatus)
}

func (s *BillingReconcilerTestSuite) TestSubscriptionUpdatedExtendsPeriodEnd() {
	seeded := s.seedLinkedSubscription(types.SubscriptionStatusActive, "sub_prov_1")
	newPeriodEnd := s.GetNow().AddDate(0, 2, 0)

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventSubscriptionUpdated, func(e *billing.ProviderEvent) {
		e.SubscriptionRef = "sub_prov_1"
		e.PeriodEnd = &newPeriodEnd
	}))
	s.NoError(err)

	sub := s.getSubscription(seeded.ID)
	s.NotNil(sub.EndDate)
	s.True(sub.EndDate.Equal(newPeriodEnd))
}

func (s *BillingReconcilerTestSuite) TestStaleEventIsDropped() {
	seeded := s.seedLinkedSubscription(types.SubscriptionStatusActive, "sub_prov_1")
	seeded.LastBillingEventAt = lo.ToPtr(s.GetNow())
	s.NoError(s.GetStores().SubscriptionRepo.UpdateWithExpectedStatus(s.GetContext(), seeded, types.SubscriptionStatusActive))

	// A payment failure that happened before the last applied event must
	// not regress the confirmed state.
	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventPaymentFailed, func(e *billing.ProviderEvent) {
		e.SubscriptionRef = "sub_prov_1"
		e.OccurredAt = s.GetNow().Add(-time.Hour)
	}))
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, s.getSubscription(seeded.ID).SubscriptionStatus)
}

func (s *BillingReconcilerTestSuite) TestUnknownSubscriptionRefIsDeferred() {
	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventPaymentSucceeded, func(e *billing.ProviderEvent) {
		e.SubscriptionRef = "sub_never_seen"
	}))
	s.Error(err)
	s.True(ierr.IsDeferred(err))
}

func (s *BillingReconcilerTestSuite) TestDuplicateDeliveryIsSkipped() {
	seeded := s.seedLinkedSubscription(types.SubscriptionStatusActive, "sub_prov_1")

	event := s.event(types.BillingEventPaymentFailed, func(e *billing.ProviderEvent) {
		e.SubscriptionRef = "sub_prov_1"
	})
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))
	s.NoError(s.service.ProcessEvent(s.GetContext(), event))

	s.Equal(types.SubscriptionStatusPastDue, s.getSubscription(seeded.ID).SubscriptionStatus)
}

func (s *BillingReconcilerTestSuite) TestEventWithoutIDRejected() {
	err := s.service.ProcessEvent(s.GetContext(), &billing.ProviderEvent{
		Type:       types.BillingEventPaymentFailed,
		OccurredAt: s.GetNow(),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *BillingReconcilerTestSuite) TestCheckoutCompletedCompletesCredit() {
	credit := s.seedPendingCredit()

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventCheckoutCompleted, func(e *billing.ProviderEvent) {
		e.AddOnID = credit.ID
		e.SessionRef = credit.ProviderSessionID
		e.PaymentRef = "pi_test_1"
	}))
	s.NoError(err)

	stored, err := s.GetStores().AddOnRepo.Get(s.GetContext(), credit.ID)
	s.NoError(err)
	s.Equal(types.AddOnStatusCompleted, stored.AddOnStatus)
	s.Equal("pi_test_1", stored.ProviderPaymentRef)
}

func (s *BillingReconcilerTestSuite) TestCheckoutCompletedFallsBackToSessionLookup() {
	credit := s.seedPendingCredit()

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventCheckoutCompleted, func(e *billing.ProviderEvent) {
		e.SessionRef = credit.ProviderSessionID
		e.PaymentRef = "pi_test_2"
	}))
	s.NoError(err)

	stored, err := s.GetStores().AddOnRepo.Get(s.GetContext(), credit.ID)
	s.NoError(err)
	s.Equal(types.AddOnStatusCompleted, stored.AddOnStatus)
}

func (s *BillingReconcilerTestSuite) TestCheckoutCompletedReplayConverges() {
	credit := s.seedPendingCredit()

	first := s.event(types.BillingEventCheckoutCompleted, func(e *billing.ProviderEvent) {
		e.AddOnID = credit.ID
		e.PaymentRef = "pi_test_1"
	})
	s.NoError(s.service.ProcessEvent(s.GetContext(), first))

	// The provider can re-deliver under a fresh event id; completing an
	// already completed credit is a no-op.
	replay := s.event(types.BillingEventCheckoutCompleted, func(e *billing.ProviderEvent) {
		e.AddOnID = credit.ID
		e.PaymentRef = "pi_test_1"
	})
	s.NoError(s.service.ProcessEvent(s.GetContext(), replay))

	stored, err := s.GetStores().AddOnRepo.Get(s.GetContext(), credit.ID)
	s.NoError(err)
	s.Equal(types.AddOnStatusCompleted, stored.AddOnStatus)
}

func (s *BillingReconcilerTestSuite) TestCheckoutCompletedUnknownCreditIsDeferred() {
	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventCheckoutCompleted, func(e *billing.ProviderEvent) {
		e.AddOnID = "addon_never_seen"
	}))
	s.Error(err)
	s.True(ierr.IsDeferred(err))
}

func (s *BillingReconcilerTestSuite) TestCheckoutExpiredFailsPendingCredit() {
	credit := s.seedPendingCredit()

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventCheckoutExpired, func(e *billing.ProviderEvent) {
		e.AddOnID = credit.ID
	}))
	s.NoError(err)

	stored, err := s.GetStores().AddOnRepo.Get(s.GetContext(), credit.ID)
	s.NoError(err)
	s.Equal(types.AddOnStatusFailed, stored.AddOnStatus)
}

func (s *BillingReconcilerTestSuite) TestCheckoutExpiredAfterCompletionKeepsCredit() {
	credit := s.seedPendingCredit()

	s.NoError(s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventCheckoutCompleted, func(e *billing.ProviderEvent) {
		e.AddOnID = credit.ID
		e.PaymentRef = "pi_test_1"
	})))

	// An out-of-order expiry must not claw back the paid credit.
	s.NoError(s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventCheckoutExpired, func(e *billing.ProviderEvent) {
		e.AddOnID = credit.ID
	})))

	stored, err := s.GetStores().AddOnRepo.Get(s.GetContext(), credit.ID)
	s.NoError(err)
	s.Equal(types.AddOnStatusCompleted, stored.AddOnStatus)
}

func (s *BillingReconcilerTestSuite) TestChargeRefundedWithdrawsCredit() {
	credit := s.seedPendingCredit()
	s.NoError(credit.Complete("pi_test_1"))
	s.NoError(s.GetStores().AddOnRepo.Update(s.GetContext(), credit))

	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventChargeRefunded, func(e *billing.ProviderEvent) {
		e.AddOnID = credit.ID
		e.PaymentRef = "pi_test_1"
	}))
	s.NoError(err)

	stored, err := s.GetStores().AddOnRepo.Get(s.GetContext(), credit.ID)
	s.NoError(err)
	s.Equal(types.AddOnStatusRefunded, stored.AddOnStatus)
	s.False(stored.IsActiveAt(s.GetNow()))
}

func (s *BillingReconcilerTestSuite) TestCheckoutCompletedLinksSubscription() {
	now := s.GetNow()
	seeded := subscription.New(types.DefaultOwnerID, types.PlanTypeGrowth, s.GetConfig().Billing.TrialDays, now, types.GetDefaultBaseModel(s.GetContext()))
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), seeded))

	periodEnd := now.AddDate(0, 1, 0)
	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventCheckoutCompleted, func(e *billing.ProviderEvent) {
		e.OwnerID = types.DefaultOwnerID
		e.SubscriptionRef = "sub_prov_new"
		e.SessionRef = "cs_sub_checkout"
		e.PeriodEnd = &periodEnd
	}))
	s.NoError(err)

	sub := s.getSubscription(seeded.ID)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.Equal("sub_prov_new", sub.ProviderSubscriptionID)
	s.Equal("cs_sub_checkout", sub.ProviderSessionID)

	// Later renewal events now resolve through the provider id.
	linked, err := s.GetStores().SubscriptionRepo.GetByProviderSubscriptionID(s.GetContext(), "sub_prov_new")
	s.NoError(err)
	s.Equal(seeded.ID, linked.ID)
}

func (s *BillingReconcilerTestSuite) TestUnhandledEventTypeIsAcked() {
	// Events with no subscription reference are acknowledged so the
	// provider does not retry forever.
	err := s.service.ProcessEvent(s.GetContext(), s.event(types.BillingEventPaymentSucceeded, nil))
	s.NoError(err)
}
