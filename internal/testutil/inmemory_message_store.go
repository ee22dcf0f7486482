package testutil

import (
	"context"
	"sync"

	"github.com/omnidesk/omnidesk/internal/domain/message"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
)

// InMemoryMessageStore implements message.Repository
type InMemoryMessageStore struct {
	mu       sync.RWMutex
	messages map[string]*message.Message
}

func NewInMemoryMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{
		messages: make(map[string]*message.Message),
	}
}

func (s *InMemoryMessageStore) InsertMessage(ctx context.Context, msg *message.Message) error {
	if msg == nil {
		return ierr.NewError("message cannot be nil").
			WithHint("Message is required").
			Mark(ierr.ErrValidation)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (s *InMemoryMessageStore) CountOutbound(ctx context.Context, ownerID string, window types.CalendarWindow) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, msg := range s.messages {
		if msg.OwnerID != ownerID || !msg.CountsTowardQuota() {
			continue
		}
		if window.Contains(msg.Timestamp) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryMessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make(map[string]*message.Message)
}
