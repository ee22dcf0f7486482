package addon

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, credit *AddOnCredit) error
	Get(ctx context.Context, id string) (*AddOnCredit, error)
	GetByProviderSessionID(ctx context.Context, providerSessionID string) (*AddOnCredit, error)
	Update(ctx context.Context, credit *AddOnCredit) error
	ListByOwner(ctx context.Context, ownerID string) ([]*AddOnCredit, error)
	// ListActive returns the credits contributing at the given instant:
	// completed and inside their contribution window.
	ListActive(ctx context.Context, ownerID string, at time.Time) ([]*AddOnCredit, error)
}
