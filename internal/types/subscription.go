package types

import (
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionStatus is the status of an owner's subscription.
// The canonical trial spelling is "trial"; no other spelling is accepted.
type SubscriptionStatus string

const (
	SubscriptionStatusTrial       SubscriptionStatus = "trial"
	SubscriptionStatusActive      SubscriptionStatus = "active"
	SubscriptionStatusPaused      SubscriptionStatus = "paused"
	SubscriptionStatusGracePeriod SubscriptionStatus = "grace_period"
	SubscriptionStatusPastDue     SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled   SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired     SubscriptionStatus = "expired"
)

var SubscriptionStatusValues = []SubscriptionStatus{
	SubscriptionStatusTrial,
	SubscriptionStatusActive,
	SubscriptionStatusPaused,
	SubscriptionStatusGracePeriod,
	SubscriptionStatusPastDue,
	SubscriptionStatusCancelled,
	SubscriptionStatusExpired,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status carries no entitlement and admits no
// further transitions.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

func (s SubscriptionStatus) Validate() error {
	if !lo.Contains(SubscriptionStatusValues, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": SubscriptionStatusValues,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
