package testutil

import (
	"context"
	"sync"

	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription.Subscription
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subscriptions: make(map[string]*subscription.Subscription),
	}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID]; exists {
		return ierr.NewError("subscription already exists").
			WithHint("Duplicate subscription id").
			Mark(ierr.ErrAlreadyExists)
	}

	cp := *sub
	s.subscriptions[sub.ID] = &cp
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, notFound()
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemorySubscriptionStore) GetByOwner(ctx context.Context, ownerID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *subscription.Subscription
	for _, sub := range s.subscriptions {
		if sub.OwnerID != ownerID {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, notFound()
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemorySubscriptionStore) GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscriptions {
		if sub.ProviderSubscriptionID == providerSubscriptionID && providerSubscriptionID != "" {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, notFound()
}

func (s *InMemorySubscriptionStore) GetByProviderSessionID(ctx context.Context, providerSessionID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscriptions {
		if sub.ProviderSessionID == providerSessionID && providerSessionID != "" {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, notFound()
}

func (s *InMemorySubscriptionStore) UpdateWithExpectedStatus(ctx context.Context, sub *subscription.Subscription, expected types.SubscriptionStatus) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.subscriptions[sub.ID]
	if !ok {
		return notFound()
	}
	if stored.SubscriptionStatus != expected {
		return ierr.NewError("subscription was modified concurrently").
			WithHint("The subscription changed while this operation was in flight, retry it").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"expected_status": expected,
				"actual_status":   stored.SubscriptionStatus,
			}).
			Mark(ierr.ErrStateConflict)
	}

	cp := *sub
	s.subscriptions[sub.ID] = &cp
	return nil
}

func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = make(map[string]*subscription.Subscription)
}

func notFound() error {
	return ierr.NewError("subscription not found").
		WithHint("Subscription not found").
		Mark(ierr.ErrNotFound)
}
