package service

import (
	"context"
	"time"

	"github.com/omnidesk/omnidesk/internal/api/dto"
	"github.com/omnidesk/omnidesk/internal/domain/entitlement"
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
)

// EntitlementService computes the usage entitlement snapshot the dashboard
// and the send path gate on. Nothing is stored; every call derives from the
// subscription, the add-on ledger and the message log.
type EntitlementService interface {
	GetEntitlement(ctx context.Context) (*dto.EntitlementResponse, error)
}

type entitlementService struct {
	ServiceParams
	subscriptionSvc SubscriptionService
	usageSvc        UsageService
}

func NewEntitlementService(params ServiceParams) EntitlementService {
	return &entitlementService{
		ServiceParams:   params,
		subscriptionSvc: NewSubscriptionService(params),
		usageSvc:        NewUsageService(params),
	}
}

func (s *entitlementService) GetEntitlement(ctx context.Context) (*dto.EntitlementResponse, error) {
	if err := types.ValidateOwnerContext(ctx); err != nil {
		return nil, err
	}

	ownerID := types.GetOwnerID(ctx)
	now := time.Now().UTC()

	// Owners without a subscription still get a snapshot; they just sit on
	// the fallback tier.
	sub, err := s.subscriptionSvc.CurrentForOwner(ctx, ownerID, now)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	credits, err := s.AddOnRepo.ListActive(ctx, ownerID, now)
	if err != nil {
		return nil, err
	}

	monthlyUsed, err := s.usageSvc.MonthlyUsage(ctx, ownerID, now)
	if err != nil {
		return nil, err
	}
	dailyUsed, err := s.usageSvc.DailyUsage(ctx, ownerID, now)
	if err != nil {
		return nil, err
	}

	snap := entitlement.Compute(sub, credits, monthlyUsed, dailyUsed, now)
	if snap.OwnerID == "" {
		snap.OwnerID = ownerID
	}

	s.logAlert(sub, snap)

	return &dto.EntitlementResponse{Snapshot: snap}, nil
}

func (s *entitlementService) logAlert(sub *subscription.Subscription, snap *entitlement.Snapshot) {
	if snap.UsageStatus == types.UsageAlertStatusHealthy {
		return
	}
	fields := []interface{}{
		"owner_id", snap.OwnerID,
		"usage_status", snap.UsageStatus,
		"monthly_percentage", snap.MonthlyPercentage,
		"daily_percentage", snap.DailyPercentage,
	}
	if sub != nil {
		fields = append(fields, "subscription_id", sub.ID)
	}
	s.Logger.Warnw("owner approaching usage ceiling", fields...)
}
