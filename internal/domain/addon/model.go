package addon

import (
	"time"

	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/shopspring/decimal"
)

// AddOnCredit is a purchased block of extra monthly messages. Credits are
// additive on top of the base plan's monthly ceiling and expire at the end
// of the calendar month they became effective in. Daily limits are never
// extended by credits.
type AddOnCredit struct {
	ID string `db:"id" json:"id"`

	OwnerID string `db:"owner_id" json:"owner_id"`

	// PlanTypeAtPurchase snapshots the base plan at purchase time for
	// reporting. Later plan changes do not rewrite history.
	PlanTypeAtPurchase types.PlanType `db:"plan_type_at_purchase" json:"plan_type_at_purchase"`

	// CreditsGranted is the number of extra monthly messages
	CreditsGranted int `db:"credits_granted" json:"credits_granted"`

	// AmountPaid is the charge amount in Currency
	AmountPaid decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	Currency   string          `db:"currency" json:"currency"`

	// ProviderSessionID is the checkout session awaiting completion
	ProviderSessionID string `db:"provider_session_id" json:"provider_session_id"`

	// ProviderPaymentRef is the provider's payment reference, set once the
	// purchase completes
	ProviderPaymentRef string `db:"provider_payment_ref" json:"provider_payment_ref"`

	AddOnStatus types.AddOnStatus `db:"addon_status" json:"addon_status"`

	// EffectiveDate is when the credit starts contributing
	EffectiveDate time.Time `db:"effective_date" json:"effective_date"`

	// ExpirationDate is the exclusive end of the contribution window, the
	// first instant of the month after EffectiveDate
	ExpirationDate time.Time `db:"expiration_date" json:"expiration_date"`

	// Source records where the purchase was initiated from, e.g. the
	// dashboard or a usage alert prompt
	Source types.AddOnSource `db:"source" json:"source"`

	types.BaseModel
}

// NewPending creates a credit awaiting payment. The contribution window is
// anchored at now and closes at the end of the calendar month.
func NewPending(ownerID string, planType types.PlanType, credits int, amount decimal.Decimal, currency string, source types.AddOnSource, now time.Time, base types.BaseModel) *AddOnCredit {
	now = now.UTC()
	return &AddOnCredit{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ADDON_CREDIT),
		OwnerID:            ownerID,
		PlanTypeAtPurchase: planType,
		CreditsGranted:     credits,
		AmountPaid:         amount,
		Currency:           currency,
		AddOnStatus:        types.AddOnStatusPending,
		EffectiveDate:      now,
		ExpirationDate:     types.EndOfMonth(now),
		Source:             source,
		BaseModel:          base,
	}
}

func (a *AddOnCredit) TableName() string {
	return "addon_credits"
}

func (a *AddOnCredit) Validate() error {
	if a.OwnerID == "" {
		return ierr.NewError("owner_id is required").
			WithHint("Add-on credit must belong to an owner").
			Mark(ierr.ErrValidation)
	}
	if a.CreditsGranted <= 0 {
		return ierr.NewError("credits_granted must be positive").
			WithHint("Add-on credit must grant at least one message").
			WithReportableDetails(map[string]any{
				"credits_granted": a.CreditsGranted,
			}).
			Mark(ierr.ErrValidation)
	}
	if !a.ExpirationDate.After(a.EffectiveDate) {
		return ierr.NewError("expiration_date must be after effective_date").
			WithHint("Add-on credit window is inverted").
			WithReportableDetails(map[string]any{
				"effective_date":  a.EffectiveDate,
				"expiration_date": a.ExpirationDate,
			}).
			Mark(ierr.ErrValidation)
	}
	if err := a.AddOnStatus.Validate(); err != nil {
		return err
	}
	return nil
}

// IsActiveAt reports whether the credit contributes at the given instant:
// completed and inside its half-open [effective, expiration) window.
func (a *AddOnCredit) IsActiveAt(now time.Time) bool {
	if a.AddOnStatus != types.AddOnStatusCompleted {
		return false
	}
	return !now.Before(a.EffectiveDate) && now.Before(a.ExpirationDate)
}

// Complete marks the purchase paid. Completing an already completed credit
// is a no-op so replayed billing events converge on the same state.
func (a *AddOnCredit) Complete(paymentRef string) error {
	switch a.AddOnStatus {
	case types.AddOnStatusCompleted:
		return nil
	case types.AddOnStatusPending:
		a.AddOnStatus = types.AddOnStatusCompleted
		a.ProviderPaymentRef = paymentRef
		return nil
	default:
		return ierr.NewError("add-on credit cannot complete from status " + string(a.AddOnStatus)).
			WithHint("The purchase is no longer pending").
			WithReportableDetails(map[string]any{
				"addon_id": a.ID,
				"status":   a.AddOnStatus,
			}).
			Mark(ierr.ErrStateConflict)
	}
}

// Fail marks the purchase failed, e.g. on checkout expiry. Idempotent.
func (a *AddOnCredit) Fail() error {
	switch a.AddOnStatus {
	case types.AddOnStatusFailed:
		return nil
	case types.AddOnStatusPending:
		a.AddOnStatus = types.AddOnStatusFailed
		return nil
	default:
		return ierr.NewError("add-on credit cannot fail from status " + string(a.AddOnStatus)).
			WithHint("The purchase already completed").
			WithReportableDetails(map[string]any{
				"addon_id": a.ID,
				"status":   a.AddOnStatus,
			}).
			Mark(ierr.ErrStateConflict)
	}
}

// Refund withdraws a completed credit. Idempotent.
func (a *AddOnCredit) Refund() error {
	switch a.AddOnStatus {
	case types.AddOnStatusRefunded:
		return nil
	case types.AddOnStatusCompleted:
		a.AddOnStatus = types.AddOnStatusRefunded
		return nil
	default:
		return ierr.NewError("add-on credit cannot refund from status " + string(a.AddOnStatus)).
			WithHint("Only completed purchases can be refunded").
			WithReportableDetails(map[string]any{
				"addon_id": a.ID,
				"status":   a.AddOnStatus,
			}).
			Mark(ierr.ErrStateConflict)
	}
}
