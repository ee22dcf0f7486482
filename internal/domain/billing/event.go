package billing

import (
	"time"

	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
)

// ProviderEvent is a billing webhook normalized into provider-agnostic
// terms. The reconciler consumes these; nothing past the integration layer
// sees provider payloads.
type ProviderEvent struct {
	// ID is the provider's event id, the idempotency key for delivery
	ID string `json:"id"`

	Type types.BillingEventType `json:"type"`

	// OccurredAt is the provider-side timestamp. Ordering decisions use
	// this, never the local arrival time.
	OccurredAt time.Time `json:"occurred_at"`

	// SubscriptionRef is the provider's subscription id, when the event
	// concerns a subscription
	SubscriptionRef string `json:"subscription_ref"`

	// SessionRef is the checkout session id, when the event concerns a
	// checkout flow
	SessionRef string `json:"session_ref"`

	// PaymentRef is the provider's payment or charge reference
	PaymentRef string `json:"payment_ref"`

	// OwnerID and AddOnID are recovered from checkout metadata when present
	OwnerID string `json:"owner_id"`
	AddOnID string `json:"addon_id"`

	// PeriodEnd is the new paid-period end carried by renewal events
	PeriodEnd *time.Time `json:"period_end"`
}

func (e *ProviderEvent) Validate() error {
	if e.ID == "" {
		return ierr.NewError("event id is required").
			WithHint("Billing event is missing its provider id").
			Mark(ierr.ErrValidation)
	}
	if err := e.Type.Validate(); err != nil {
		return err
	}
	return nil
}
