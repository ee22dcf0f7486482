package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/omnidesk/omnidesk/internal/domain/billing"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
)

// FakeBillingProvider implements billing.Provider with deterministic
// sessions and a switchable failure mode.
type FakeBillingProvider struct {
	mu       sync.Mutex
	calls    []billing.CreateCheckoutParams
	failNext bool
}

func NewFakeBillingProvider() *FakeBillingProvider {
	return &FakeBillingProvider{}
}

func (p *FakeBillingProvider) CreateCheckoutSession(ctx context.Context, params billing.CreateCheckoutParams) (*billing.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext {
		p.failNext = false
		return nil, ierr.NewError("provider unavailable").
			WithHint("The billing provider could not create a checkout session").
			Mark(ierr.ErrUpstreamBilling)
	}

	p.calls = append(p.calls, params)
	sessionID := fmt.Sprintf("cs_test_%s", params.ReferenceID)
	return &billing.CheckoutSession{
		ID:  sessionID,
		URL: "https://checkout.test/" + sessionID,
	}, nil
}

// FailNext makes the next CreateCheckoutSession call fail once.
func (p *FakeBillingProvider) FailNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = true
}

// Calls returns the checkout parameters seen so far.
func (p *FakeBillingProvider) Calls() []billing.CreateCheckoutParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]billing.CreateCheckoutParams, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *FakeBillingProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
	p.failNext = false
}
