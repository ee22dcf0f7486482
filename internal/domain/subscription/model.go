package subscription

import (
	"time"

	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
)

type Subscription struct {
	// ID is the unique identifier for the subscription
	ID string `db:"id" json:"id"`

	// OwnerID is the workspace owner this subscription belongs to.
	// At most one non-terminal subscription exists per owner.
	OwnerID string `db:"owner_id" json:"owner_id"`

	// PlanType is the base plan the owner subscribed to
	PlanType types.PlanType `db:"plan_type" json:"plan_type"`

	// SubscriptionStatus is the lifecycle status of the subscription
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`

	// StartDate is the start date of the subscription
	StartDate time.Time `db:"start_date" json:"start_date"`

	// TrialEndDate is the end of the free trial window
	TrialEndDate time.Time `db:"trial_end_date" json:"trial_end_date"`

	// EndDate is the end of the current paid period, if any
	EndDate *time.Time `db:"end_date" json:"end_date"`

	// PausedAt is when the subscription was paused. Set iff paused.
	PausedAt *time.Time `db:"paused_at" json:"paused_at"`

	// CancelledAt is when the owner (or the provider) cancelled
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at"`

	// GracePeriodEndDate bounds post-cancellation access. Set iff
	// status is grace_period.
	GracePeriodEndDate *time.Time `db:"grace_period_end_date" json:"grace_period_end_date"`

	// OriginalEndDate snapshots EndDate while paused so reactivation can
	// restore it. Set iff status is paused.
	OriginalEndDate *time.Time `db:"original_end_date" json:"original_end_date"`

	// AutoRenew is whether the provider should renew at period end
	AutoRenew bool `db:"auto_renew" json:"auto_renew"`

	// ProviderSubscriptionID is the billing provider's subscription id
	ProviderSubscriptionID string `db:"provider_subscription_id" json:"provider_subscription_id"`

	// ProviderSessionID is the checkout session that created the
	// subscription on the provider side
	ProviderSessionID string `db:"provider_session_id" json:"provider_session_id"`

	// LastBillingEventAt is the provider timestamp of the newest billing
	// event applied to this record. Events older than this are stale and
	// must not regress confirmed state.
	LastBillingEventAt *time.Time `db:"last_billing_event_at" json:"last_billing_event_at"`

	types.BaseModel
}

// New creates a trial subscription starting now.
func New(ownerID string, planType types.PlanType, trialDays int, now time.Time, base types.BaseModel) *Subscription {
	now = now.UTC()
	return &Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		OwnerID:            ownerID,
		PlanType:           planType,
		SubscriptionStatus: types.SubscriptionStatusTrial,
		StartDate:          now,
		TrialEndDate:       now.AddDate(0, 0, trialDays),
		AutoRenew:          true,
		BaseModel:          base,
	}
}

func (s *Subscription) TableName() string {
	return "subscriptions"
}

// Validate checks the structural invariants of the record.
func (s *Subscription) Validate() error {
	if s.OwnerID == "" {
		return ierr.NewError("owner_id is required").
			WithHint("Subscription must belong to an owner").
			Mark(ierr.ErrValidation)
	}
	if err := s.PlanType.Validate(); err != nil {
		return err
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return err
	}
	if (s.GracePeriodEndDate != nil) != (s.SubscriptionStatus == types.SubscriptionStatusGracePeriod) {
		return ierr.NewError("grace period end date must be set exactly when status is grace_period").
			WithHint("Inconsistent grace period state").
			WithReportableDetails(map[string]any{
				"status": s.SubscriptionStatus,
			}).
			Mark(ierr.ErrValidation)
	}
	if (s.OriginalEndDate != nil) != (s.SubscriptionStatus == types.SubscriptionStatusPaused) {
		return ierr.NewError("original end date must be set exactly when status is paused").
			WithHint("Inconsistent pause state").
			WithReportableDetails(map[string]any{
				"status": s.SubscriptionStatus,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTrialActive reports whether the trial window still grants entitlement.
func (s *Subscription) IsTrialActive(now time.Time) bool {
	return s.SubscriptionStatus == types.SubscriptionStatusTrial && now.Before(s.TrialEndDate)
}

// IsActive reports whether the subscription currently grants paid
// entitlement, including a still-running grace window.
func (s *Subscription) IsActive(now time.Time) bool {
	switch s.SubscriptionStatus {
	case types.SubscriptionStatusActive:
		return s.EndDate == nil || now.Before(*s.EndDate)
	case types.SubscriptionStatusGracePeriod:
		return s.GracePeriodEndDate != nil && now.Before(*s.GracePeriodEndDate)
	default:
		return false
	}
}

// EntitlementClass is the single classification of how a subscription grants
// entitlement at a point in time. All call sites branch on this tag instead
// of ad hoc boolean helpers.
type EntitlementClass string

const (
	// ClassTrial is an unexpired trial
	ClassTrial EntitlementClass = "trial"
	// ClassActive is a paid subscription inside its period
	ClassActive EntitlementClass = "active"
	// ClassGrace is a cancelled subscription inside its grace window
	ClassGrace EntitlementClass = "grace"
	// ClassNotEntitled covers everything else: paused, past_due,
	// cancelled, expired, or elapsed windows not yet reconciled
	ClassNotEntitled EntitlementClass = "not_entitled"
)

// Entitled reports whether the class grants plan-level limits.
func (c EntitlementClass) Entitled() bool {
	return c != ClassNotEntitled
}

// Classify returns the entitlement class of the subscription at now.
func (s *Subscription) Classify(now time.Time) EntitlementClass {
	switch {
	case s.IsTrialActive(now):
		return ClassTrial
	case s.SubscriptionStatus == types.SubscriptionStatusActive && s.IsActive(now):
		return ClassActive
	case s.SubscriptionStatus == types.SubscriptionStatusGracePeriod && s.IsActive(now):
		return ClassGrace
	default:
		return ClassNotEntitled
	}
}

// clone returns a copy safe to mutate without touching the stored record.
func (s *Subscription) clone() *Subscription {
	out := *s
	out.EndDate = copyTime(s.EndDate)
	out.PausedAt = copyTime(s.PausedAt)
	out.CancelledAt = copyTime(s.CancelledAt)
	out.GracePeriodEndDate = copyTime(s.GracePeriodEndDate)
	out.OriginalEndDate = copyTime(s.OriginalEndDate)
	out.LastBillingEventAt = copyTime(s.LastBillingEventAt)
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
