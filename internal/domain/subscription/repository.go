package subscription

import (
	"context"

	"github.com/omnidesk/omnidesk/internal/types"
)

// Repository is the persistence surface for subscriptions. All status
// mutations go through UpdateWithExpectedStatus so concurrent writers
// lose cleanly instead of clobbering each other.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByOwner(ctx context.Context, ownerID string) (*Subscription, error)
	GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*Subscription, error)
	GetByProviderSessionID(ctx context.Context, providerSessionID string) (*Subscription, error)
	// UpdateWithExpectedStatus persists sub only if the stored record still
	// has the given status. A lost race surfaces as ErrStateConflict.
	UpdateWithExpectedStatus(ctx context.Context, sub *Subscription, expected types.SubscriptionStatus) error
}
