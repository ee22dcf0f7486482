package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// CheckoutSession is the provider-hosted payment page created for an
// add-on purchase.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutParams describes an add-on checkout. ReferenceID is the
// local add-on credit id, carried in metadata so the completion webhook can
// be correlated back.
type CreateCheckoutParams struct {
	OwnerID     string
	ReferenceID string
	Credits     int
	UnitAmount  decimal.Decimal
	Currency    string
	Description string
}

// Provider is the outbound port to the billing provider. Reconciliation is
// driven by webhooks; this interface only covers calls we originate.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params CreateCheckoutParams) (*CheckoutSession, error)
}
