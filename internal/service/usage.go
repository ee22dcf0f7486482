package service

import (
	"context"
	"time"

	"github.com/omnidesk/omnidesk/internal/api/dto"
	"github.com/omnidesk/omnidesk/internal/types"
)

// UsageService meters messages against the log: ingestion on the write
// side, calendar-window counts on the read side.
type UsageService interface {
	RecordMessage(ctx context.Context, event *dto.MessageEvent) error
	MonthlyUsage(ctx context.Context, ownerID string, now time.Time) (int, error)
	DailyUsage(ctx context.Context, ownerID string, now time.Time) (int, error)
}

type usageService struct {
	ServiceParams
}

func NewUsageService(params ServiceParams) UsageService {
	return &usageService{
		ServiceParams: params,
	}
}

func (s *usageService) RecordMessage(ctx context.Context, event *dto.MessageEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	msg := event.ToMessage()
	if err := s.MessageRepo.InsertMessage(ctx, msg); err != nil {
		return err
	}

	s.Logger.Debugw("recorded message",
		"message_id", msg.ID,
		"owner_id", msg.OwnerID,
		"channel", msg.Channel,
		"direction", msg.Direction,
	)
	return nil
}

func (s *usageService) MonthlyUsage(ctx context.Context, ownerID string, now time.Time) (int, error) {
	return s.MessageRepo.CountOutbound(ctx, ownerID, types.MonthWindowFor(now))
}

func (s *usageService) DailyUsage(ctx context.Context, ownerID string, now time.Time) (int, error) {
	return s.MessageRepo.CountOutbound(ctx, ownerID, types.DayWindowFor(now))
}
