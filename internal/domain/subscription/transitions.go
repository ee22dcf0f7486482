package subscription

import (
	"time"

	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/samber/lo"
)

// Transitions are pure: each takes the current record, returns a mutated
// copy or a state conflict, and leaves persistence to the caller. The
// caller writes the copy back with an optimistic status check.

func conflict(op string, from types.SubscriptionStatus) error {
	return ierr.NewError("subscription cannot be " + op + " from status " + string(from)).
		WithHint("The subscription is not in a state that allows this operation").
		WithReportableDetails(map[string]any{
			"operation": op,
			"status":    from,
		}).
		Mark(ierr.ErrStateConflict)
}

// Pause suspends an active subscription, snapshotting the period end so
// Reactivate can restore it.
func Pause(s *Subscription, now time.Time) (*Subscription, error) {
	if s.SubscriptionStatus != types.SubscriptionStatusActive {
		return nil, conflict("paused", s.SubscriptionStatus)
	}

	out := s.clone()
	out.SubscriptionStatus = types.SubscriptionStatusPaused
	out.PausedAt = lo.ToPtr(now.UTC())
	out.OriginalEndDate = copyTime(s.EndDate)
	out.EndDate = nil
	return out, nil
}

// Reactivate resumes a paused subscription. The period end is restored
// from the snapshot taken at pause time.
func Reactivate(s *Subscription, now time.Time) (*Subscription, error) {
	if s.SubscriptionStatus != types.SubscriptionStatusPaused {
		return nil, conflict("reactivated", s.SubscriptionStatus)
	}

	out := s.clone()
	out.SubscriptionStatus = types.SubscriptionStatusActive
	out.EndDate = copyTime(s.OriginalEndDate)
	out.PausedAt = nil
	out.OriginalEndDate = nil
	return out, nil
}

// Cancel moves the subscription into its grace window. Trial, active,
// paused and past_due subscriptions can be cancelled; cancelling a paused
// subscription discards the pause snapshot since there is nothing left to
// resume into.
func Cancel(s *Subscription, now time.Time, graceDays int) (*Subscription, error) {
	switch s.SubscriptionStatus {
	case types.SubscriptionStatusTrial, types.SubscriptionStatusActive,
		types.SubscriptionStatusPaused, types.SubscriptionStatusPastDue:
	default:
		return nil, conflict("cancelled", s.SubscriptionStatus)
	}

	now = now.UTC()
	out := s.clone()
	out.SubscriptionStatus = types.SubscriptionStatusGracePeriod
	out.CancelledAt = lo.ToPtr(now)
	out.GracePeriodEndDate = lo.ToPtr(now.AddDate(0, 0, graceDays))
	out.PausedAt = nil
	out.OriginalEndDate = nil
	out.AutoRenew = false
	return out, nil
}

// Activate confirms payment and starts (or renews) the paid period.
// Trial subscriptions convert in place; past_due subscriptions recover.
func Activate(s *Subscription, now time.Time, periodEnd *time.Time) (*Subscription, error) {
	switch s.SubscriptionStatus {
	case types.SubscriptionStatusTrial, types.SubscriptionStatusActive, types.SubscriptionStatusPastDue:
	default:
		return nil, conflict("activated", s.SubscriptionStatus)
	}

	out := s.clone()
	out.SubscriptionStatus = types.SubscriptionStatusActive
	if periodEnd != nil {
		out.EndDate = copyTime(periodEnd)
	}
	out.AutoRenew = true
	return out, nil
}

// MarkPastDue records a failed renewal payment. Entitlement drops to the
// fallback tier until the provider retries succeed or are exhausted.
func MarkPastDue(s *Subscription, now time.Time) (*Subscription, error) {
	switch s.SubscriptionStatus {
	case types.SubscriptionStatusActive, types.SubscriptionStatusTrial:
	default:
		return nil, conflict("marked past due", s.SubscriptionStatus)
	}

	out := s.clone()
	out.SubscriptionStatus = types.SubscriptionStatusPastDue
	out.AutoRenew = false
	return out, nil
}

// ExhaustPaymentRetries ends the past_due recovery window and opens a
// grace window so the owner can export data before losing access.
func ExhaustPaymentRetries(s *Subscription, now time.Time, graceDays int) (*Subscription, error) {
	if s.SubscriptionStatus != types.SubscriptionStatusPastDue {
		return nil, conflict("retry exhausted", s.SubscriptionStatus)
	}
	return Cancel(s, now, graceDays)
}

// CheckExpiration applies lazy time-based transitions: an elapsed trial,
// an elapsed paid period and an elapsed grace window all expire. It returns
// the (possibly unchanged) record and whether anything changed; reapplying
// it to its own output is a no-op.
func CheckExpiration(s *Subscription, now time.Time) (*Subscription, bool) {
	switch s.SubscriptionStatus {
	case types.SubscriptionStatusTrial:
		if !now.Before(s.TrialEndDate) {
			out := s.clone()
			out.SubscriptionStatus = types.SubscriptionStatusExpired
			return out, true
		}
	case types.SubscriptionStatusActive:
		if s.EndDate != nil && !now.Before(*s.EndDate) {
			out := s.clone()
			out.SubscriptionStatus = types.SubscriptionStatusExpired
			return out, true
		}
	case types.SubscriptionStatusGracePeriod:
		if s.GracePeriodEndDate != nil && !now.Before(*s.GracePeriodEndDate) {
			out := s.clone()
			out.SubscriptionStatus = types.SubscriptionStatusExpired
			out.GracePeriodEndDate = nil
			return out, true
		}
	}
	return s, false
}
