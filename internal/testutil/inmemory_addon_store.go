package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/omnidesk/omnidesk/internal/domain/addon"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
)

// InMemoryAddOnStore implements addon.Repository
type InMemoryAddOnStore struct {
	mu      sync.RWMutex
	credits map[string]*addon.AddOnCredit
}

func NewInMemoryAddOnStore() *InMemoryAddOnStore {
	return &InMemoryAddOnStore{
		credits: make(map[string]*addon.AddOnCredit),
	}
}

func (s *InMemoryAddOnStore) Create(ctx context.Context, credit *addon.AddOnCredit) error {
	if err := credit.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credits[credit.ID]; exists {
		return ierr.NewError("add-on credit already exists").
			WithHint("Duplicate add-on credit id").
			Mark(ierr.ErrAlreadyExists)
	}

	cp := *credit
	s.credits[credit.ID] = &cp
	return nil
}

func (s *InMemoryAddOnStore) Get(ctx context.Context, id string) (*addon.AddOnCredit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credit, ok := s.credits[id]
	if !ok {
		return nil, creditNotFound()
	}
	cp := *credit
	return &cp, nil
}

func (s *InMemoryAddOnStore) GetByProviderSessionID(ctx context.Context, providerSessionID string) (*addon.AddOnCredit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, credit := range s.credits {
		if credit.ProviderSessionID == providerSessionID && providerSessionID != "" {
			cp := *credit
			return &cp, nil
		}
	}
	return nil, creditNotFound()
}

func (s *InMemoryAddOnStore) Update(ctx context.Context, credit *addon.AddOnCredit) error {
	if err := credit.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credits[credit.ID]; !ok {
		return creditNotFound()
	}
	cp := *credit
	s.credits[credit.ID] = &cp
	return nil
}

func (s *InMemoryAddOnStore) ListByOwner(ctx context.Context, ownerID string) ([]*addon.AddOnCredit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*addon.AddOnCredit, 0)
	for _, credit := range s.credits {
		if credit.OwnerID == ownerID {
			cp := *credit
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryAddOnStore) ListActive(ctx context.Context, ownerID string, at time.Time) ([]*addon.AddOnCredit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*addon.AddOnCredit, 0)
	for _, credit := range s.credits {
		if credit.OwnerID == ownerID && credit.IsActiveAt(at) {
			cp := *credit
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EffectiveDate.Before(out[j].EffectiveDate)
	})
	return out, nil
}

func (s *InMemoryAddOnStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits = make(map[string]*addon.AddOnCredit)
}

func creditNotFound() error {
	return ierr.NewError("add-on credit not found").
		WithHint("Add-on credit not found").
		Mark(ierr.ErrNotFound)
}
