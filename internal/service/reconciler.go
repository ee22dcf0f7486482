package service

import (
	"context"
	"time"

	"github.com/omnidesk/omnidesk/internal/cache"
	"github.com/omnidesk/omnidesk/internal/domain/addon"
	"github.com/omnidesk/omnidesk/internal/domain/billing"
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/samber/lo"
)

// seenEventTTL bounds the fast-path dedupe window. Replays outside it fall
// through to the terminal-state checks, which are idempotent anyway.
const seenEventTTL = 24 * time.Hour

// BillingReconcilerService applies normalized provider events to local
// records. Events can arrive out of order, duplicated, or ahead of the
// local state they reference:
//   - duplicates converge because every write is a terminal-state write
//   - stale events lose against the subscription's LastBillingEventAt
//   - events referencing records we do not know yet return ErrDeferred so
//     the provider's own delivery retries re-fire them
type BillingReconcilerService interface {
	ProcessEvent(ctx context.Context, event *billing.ProviderEvent) error
}

type billingReconcilerService struct {
	ServiceParams
}

func NewBillingReconcilerService(params ServiceParams) BillingReconcilerService {
	return &billingReconcilerService{
		ServiceParams: params,
	}
}

func (s *billingReconcilerService) ProcessEvent(ctx context.Context, event *billing.ProviderEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	seenKey := cache.GenerateKey(cache.PrefixBillingEvent, event.ID)
	if s.Cache != nil {
		if _, found := s.Cache.Get(ctx, seenKey); found {
			s.Logger.Debugw("skipping already processed billing event", "event_id", event.ID)
			return nil
		}
	}

	s.Logger.Infow("processing billing event",
		"event_id", event.ID,
		"event_type", event.Type,
		"occurred_at", event.OccurredAt,
	)

	var err error
	switch event.Type {
	case types.BillingEventPaymentSucceeded:
		err = s.handlePaymentSucceeded(ctx, event)
	case types.BillingEventPaymentFailed:
		err = s.handlePaymentFailed(ctx, event)
	case types.BillingEventPaymentRetriesExhausted:
		err = s.handleRetriesExhausted(ctx, event)
	case types.BillingEventCheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, event)
	case types.BillingEventCheckoutExpired:
		err = s.handleCheckoutExpired(ctx, event)
	case types.BillingEventChargeRefunded:
		err = s.handleChargeRefunded(ctx, event)
	case types.BillingEventSubscriptionCancelled:
		err = s.handleProviderCancelled(ctx, event)
	case types.BillingEventSubscriptionUpdated:
		err = s.handleSubscriptionUpdated(ctx, event)
	default:
		s.Logger.Warnw("billing event type has no handler", "event_type", event.Type)
		return nil
	}

	if err != nil {
		return err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, seenKey, true, seenEventTTL)
	}
	return nil
}

func (s *billingReconcilerService) handlePaymentSucceeded(ctx context.Context, event *billing.ProviderEvent) error {
	sub, err := s.subscriptionForEvent(ctx, event)
	if err != nil || sub == nil {
		return err
	}

	if sub.SubscriptionStatus.IsTerminal() {
		s.Logger.Infow("ignoring payment for terminal subscription",
			"event_id", event.ID,
			"subscription_id", sub.ID,
			"status", sub.SubscriptionStatus,
		)
		return nil
	}

	next, err := subscription.Activate(sub, event.OccurredAt, event.PeriodEnd)
	if err != nil {
		return s.tolerateConflict(err, event, sub)
	}
	return s.applyEvent(ctx, next, sub.SubscriptionStatus, event)
}

func (s *billingReconcilerService) handlePaymentFailed(ctx context.Context, event *billing.ProviderEvent) error {
	sub, err := s.subscriptionForEvent(ctx, event)
	if err != nil || sub == nil {
		return err
	}

	if sub.SubscriptionStatus == types.SubscriptionStatusPastDue || sub.SubscriptionStatus.IsTerminal() {
		return nil
	}

	next, err := subscription.MarkPastDue(sub, event.OccurredAt)
	if err != nil {
		return s.tolerateConflict(err, event, sub)
	}
	return s.applyEvent(ctx, next, sub.SubscriptionStatus, event)
}

func (s *billingReconcilerService) handleRetriesExhausted(ctx context.Context, event *billing.ProviderEvent) error {
	sub, err := s.subscriptionForEvent(ctx, event)
	if err != nil || sub == nil {
		return err
	}

	if sub.SubscriptionStatus == types.SubscriptionStatusGracePeriod || sub.SubscriptionStatus.IsTerminal() {
		return nil
	}

	next, err := subscription.ExhaustPaymentRetries(sub, event.OccurredAt, s.Config.Billing.DefaultGraceDays)
	if err != nil {
		return s.tolerateConflict(err, event, sub)
	}
	return s.applyEvent(ctx, next, sub.SubscriptionStatus, event)
}

// handleProviderCancelled maps the provider-side cancel into the local
// grace window. Owners always get the grace period regardless of which side
// initiated the cancellation.
func (s *billingReconcilerService) handleProviderCancelled(ctx context.Context, event *billing.ProviderEvent) error {
	sub, err := s.subscriptionForEvent(ctx, event)
	if err != nil || sub == nil {
		return err
	}

	// A local cancel already opened the grace window; the provider-side
	// confirmation carries no new information.
	if sub.SubscriptionStatus == types.SubscriptionStatusGracePeriod || sub.SubscriptionStatus.IsTerminal() {
		return nil
	}

	next, err := subscription.Cancel(sub, event.OccurredAt, s.Config.Billing.DefaultGraceDays)
	if err != nil {
		return s.tolerateConflict(err, event, sub)
	}
	return s.applyEvent(ctx, next, sub.SubscriptionStatus, event)
}

func (s *billingReconcilerService) handleSubscriptionUpdated(ctx context.Context, event *billing.ProviderEvent) error {
	sub, err := s.subscriptionForEvent(ctx, event)
	if err != nil || sub == nil {
		return err
	}

	if sub.SubscriptionStatus != types.SubscriptionStatusActive || event.PeriodEnd == nil {
		return nil
	}

	next, err := subscription.Activate(sub, event.OccurredAt, event.PeriodEnd)
	if err != nil {
		return s.tolerateConflict(err, event, sub)
	}
	return s.applyEvent(ctx, next, sub.SubscriptionStatus, event)
}

func (s *billingReconcilerService) handleCheckoutCompleted(ctx context.Context, event *billing.ProviderEvent) error {
	if event.AddOnID != "" || event.SessionRef != "" {
		credit, err := s.creditForEvent(ctx, event)
		if err != nil {
			return err
		}
		if credit != nil {
			if err := credit.Complete(event.PaymentRef); err != nil {
				if ierr.IsStateConflict(err) {
					s.Logger.Warnw("checkout completed for non-pending add-on credit",
						"event_id", event.ID,
						"addon_id", credit.ID,
						"status", credit.AddOnStatus,
					)
					return nil
				}
				return err
			}
			if credit.ProviderSessionID == "" {
				credit.ProviderSessionID = event.SessionRef
			}
			if err := s.AddOnRepo.Update(ctx, credit); err != nil {
				return err
			}
			s.Logger.Infow("completed add-on purchase",
				"event_id", event.ID,
				"addon_id", credit.ID,
				"owner_id", credit.OwnerID,
			)
			return nil
		}
	}

	// Subscription checkout: attach provider refs and activate the trial.
	if event.SubscriptionRef != "" && event.OwnerID != "" {
		sub, err := s.SubRepo.GetByOwner(ctx, event.OwnerID)
		if err != nil {
			if ierr.IsNotFound(err) {
				return s.deferEvent(event, "subscription for checkout not found yet")
			}
			return err
		}
		if s.isStale(sub, event) || sub.SubscriptionStatus.IsTerminal() {
			return nil
		}

		next, err := subscription.Activate(sub, event.OccurredAt, event.PeriodEnd)
		if err != nil {
			return s.tolerateConflict(err, event, sub)
		}
		next.ProviderSubscriptionID = event.SubscriptionRef
		next.ProviderSessionID = event.SessionRef
		return s.applyEvent(ctx, next, sub.SubscriptionStatus, event)
	}

	s.Logger.Infow("checkout completion had nothing to reconcile", "event_id", event.ID)
	return nil
}

func (s *billingReconcilerService) handleCheckoutExpired(ctx context.Context, event *billing.ProviderEvent) error {
	credit, err := s.creditForEvent(ctx, event)
	if err != nil || credit == nil {
		return err
	}

	if err := credit.Fail(); err != nil {
		if ierr.IsStateConflict(err) {
			// Completion beat the expiry; keep the completed credit.
			return nil
		}
		return err
	}
	if err := s.AddOnRepo.Update(ctx, credit); err != nil {
		return err
	}

	s.Logger.Infow("failed abandoned add-on purchase",
		"event_id", event.ID,
		"addon_id", credit.ID,
	)
	return nil
}

func (s *billingReconcilerService) handleChargeRefunded(ctx context.Context, event *billing.ProviderEvent) error {
	if event.AddOnID == "" {
		s.Logger.Infow("refund does not reference an add-on credit", "event_id", event.ID)
		return nil
	}

	credit, err := s.AddOnRepo.Get(ctx, event.AddOnID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return s.deferEvent(event, "refunded add-on credit not found yet")
		}
		return err
	}

	if err := credit.Refund(); err != nil {
		if ierr.IsStateConflict(err) {
			s.Logger.Warnw("refund for add-on credit that never completed",
				"event_id", event.ID,
				"addon_id", credit.ID,
				"status", credit.AddOnStatus,
			)
			return nil
		}
		return err
	}
	if err := s.AddOnRepo.Update(ctx, credit); err != nil {
		return err
	}

	s.Logger.Infow("refunded add-on purchase",
		"event_id", event.ID,
		"addon_id", credit.ID,
	)
	return nil
}

// subscriptionForEvent resolves the local subscription an event refers to.
// A nil, nil return means the event was acknowledged without action, either
// because it is stale or because it carries no usable reference.
func (s *billingReconcilerService) subscriptionForEvent(ctx context.Context, event *billing.ProviderEvent) (*subscription.Subscription, error) {
	if event.SubscriptionRef == "" {
		s.Logger.Warnw("billing event has no subscription reference", "event_id", event.ID)
		return nil, nil
	}

	sub, err := s.SubRepo.GetByProviderSubscriptionID(ctx, event.SubscriptionRef)
	if err != nil {
		if ierr.IsNotFound(err) {
			// The checkout completion that links this provider subscription
			// has not landed yet.
			return nil, s.deferEvent(event, "subscription not linked yet")
		}
		return nil, err
	}

	if s.isStale(sub, event) {
		s.Logger.Infow("dropping stale billing event",
			"event_id", event.ID,
			"event_type", event.Type,
			"occurred_at", event.OccurredAt,
			"last_billing_event_at", sub.LastBillingEventAt,
		)
		return nil, nil
	}
	return sub, nil
}

// creditForEvent resolves the add-on credit a checkout event refers to,
// preferring the id carried in metadata over the session lookup. A nil, nil
// return means the event is not about an add-on purchase.
func (s *billingReconcilerService) creditForEvent(ctx context.Context, event *billing.ProviderEvent) (*addon.AddOnCredit, error) {
	if event.AddOnID != "" {
		credit, err := s.AddOnRepo.Get(ctx, event.AddOnID)
		if err != nil {
			if ierr.IsNotFound(err) {
				// The purchase write may not be visible yet.
				return nil, s.deferEvent(event, "add-on credit not found yet")
			}
			return nil, err
		}
		return credit, nil
	}

	if event.SessionRef != "" {
		credit, err := s.AddOnRepo.GetByProviderSessionID(ctx, event.SessionRef)
		if err != nil {
			if ierr.IsNotFound(err) {
				// Sessions without add-on metadata belong to other flows.
				return nil, nil
			}
			return nil, err
		}
		return credit, nil
	}

	return nil, nil
}

// isStale reports whether the subscription already absorbed a newer event.
func (s *billingReconcilerService) isStale(sub *subscription.Subscription, event *billing.ProviderEvent) bool {
	return sub.LastBillingEventAt != nil && !event.OccurredAt.After(*sub.LastBillingEventAt)
}

// applyEvent stamps the event timestamp and writes the transition back,
// conditioned on the status it was computed from.
func (s *billingReconcilerService) applyEvent(ctx context.Context, next *subscription.Subscription, expected types.SubscriptionStatus, event *billing.ProviderEvent) error {
	next.LastBillingEventAt = lo.ToPtr(event.OccurredAt)

	if err := s.SubRepo.UpdateWithExpectedStatus(ctx, next, expected); err != nil {
		if ierr.IsStateConflict(err) {
			// Another writer moved the record first; let the provider retry
			// against the fresh state.
			return s.deferEvent(event, "subscription changed while reconciling")
		}
		return err
	}

	s.Logger.Infow("applied billing event",
		"event_id", event.ID,
		"event_type", event.Type,
		"subscription_id", next.ID,
		"status", next.SubscriptionStatus,
	)
	return nil
}

// tolerateConflict downgrades transition conflicts to acknowledgements.
// Replayed and out-of-order events routinely target records that already
// absorbed the change; rejecting them would make the provider retry a
// delivery that can never succeed.
func (s *billingReconcilerService) tolerateConflict(err error, event *billing.ProviderEvent, sub *subscription.Subscription) error {
	if ierr.IsStateConflict(err) {
		s.Logger.Infow("billing event no longer applies",
			"event_id", event.ID,
			"event_type", event.Type,
			"subscription_id", sub.ID,
			"status", sub.SubscriptionStatus,
		)
		return nil
	}
	return err
}

func (s *billingReconcilerService) deferEvent(event *billing.ProviderEvent, reason string) error {
	return ierr.NewError("billing event deferred: " + reason).
		WithHint("The event will be retried by the provider").
		WithReportableDetails(map[string]any{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).
		Mark(ierr.ErrDeferred)
}
