package types

import (
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/samber/lo"
)

// BillingEventType is the provider-agnostic classification of an inbound
// billing event after the integration layer has normalized it.
type BillingEventType string

const (
	// BillingEventPaymentSucceeded confirms a recurring payment; activates a
	// trial subscription and recovers a past_due one.
	BillingEventPaymentSucceeded BillingEventType = "payment_succeeded"
	// BillingEventPaymentFailed marks an active subscription past_due.
	BillingEventPaymentFailed BillingEventType = "payment_failed"
	// BillingEventPaymentRetriesExhausted moves a past_due subscription into
	// its grace period once the provider gives up retrying.
	BillingEventPaymentRetriesExhausted BillingEventType = "payment_retries_exhausted"
	// BillingEventCheckoutCompleted completes a pending add-on purchase.
	BillingEventCheckoutCompleted BillingEventType = "checkout_session_completed"
	// BillingEventCheckoutExpired fails a pending add-on purchase whose
	// checkout session was abandoned.
	BillingEventCheckoutExpired BillingEventType = "checkout_session_expired"
	// BillingEventChargeRefunded refunds a completed add-on purchase.
	BillingEventChargeRefunded BillingEventType = "charge_refunded"
	// BillingEventSubscriptionCancelled is the provider-side cancel. The
	// product always grants its own grace window, so this maps to
	// grace_period locally, never directly to cancelled.
	BillingEventSubscriptionCancelled BillingEventType = "subscription_cancelled"
	// BillingEventSubscriptionUpdated carries provider-side plan/period
	// changes (e.g. renewal extending the period end).
	BillingEventSubscriptionUpdated BillingEventType = "subscription_updated"
)

var BillingEventTypeValues = []BillingEventType{
	BillingEventPaymentSucceeded,
	BillingEventPaymentFailed,
	BillingEventPaymentRetriesExhausted,
	BillingEventCheckoutCompleted,
	BillingEventCheckoutExpired,
	BillingEventChargeRefunded,
	BillingEventSubscriptionCancelled,
	BillingEventSubscriptionUpdated,
}

func (t BillingEventType) String() string {
	return string(t)
}

func (t BillingEventType) Validate() error {
	if !lo.Contains(BillingEventTypeValues, t) {
		return ierr.NewError("invalid billing event type").
			WithHint("Invalid billing event type").
			WithReportableDetails(map[string]any{
				"event_type":    t,
				"allowed_types": BillingEventTypeValues,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
