package service

import (
	"context"
	"time"

	"github.com/omnidesk/omnidesk/internal/api/dto"
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
)

// SubscriptionService owns the subscription lifecycle: trial signup, the
// owner-facing transitions and lazy time-based expiration.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetCurrentSubscription(ctx context.Context) (*dto.SubscriptionResponse, error)
	PauseSubscription(ctx context.Context) (*dto.SubscriptionResponse, error)
	ReactivateSubscription(ctx context.Context) (*dto.SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error)

	// CurrentForOwner returns the owner's subscription with lazy expiration
	// applied, or nil when the owner has none. Shared with the entitlement
	// resolver.
	CurrentForOwner(ctx context.Context, ownerID string, now time.Time) (*subscription.Subscription, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
	}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ownerID := types.GetOwnerID(ctx)
	if err := types.ValidateOwnerContext(ctx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// An owner keeps a single live subscription. Terminal records do not
	// block a fresh signup.
	if existing, err := s.CurrentForOwner(ctx, ownerID, now); err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	} else if existing != nil && !existing.SubscriptionStatus.IsTerminal() {
		return nil, ierr.NewError("owner already has a subscription").
			WithHint("Cancel the existing subscription before creating a new one").
			WithReportableDetails(map[string]any{
				"subscription_id": existing.ID,
				"status":          existing.SubscriptionStatus,
			}).
			Mark(ierr.ErrStateConflict)
	}

	sub := subscription.New(ownerID, req.PlanType, s.Config.Billing.TrialDays, now, types.GetDefaultBaseModel(ctx))
	if err := s.SubRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("created trial subscription",
		"subscription_id", sub.ID,
		"owner_id", ownerID,
		"plan_type", sub.PlanType,
		"trial_end_date", sub.TrialEndDate,
	)

	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) GetCurrentSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	if err := types.ValidateOwnerContext(ctx); err != nil {
		return nil, err
	}

	sub, err := s.CurrentForOwner(ctx, types.GetOwnerID(ctx), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) PauseSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	return s.transition(ctx, func(sub *subscription.Subscription, now time.Time) (*subscription.Subscription, error) {
		return subscription.Pause(sub, now)
	}, "pause")
}

func (s *subscriptionService) ReactivateSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	return s.transition(ctx, func(sub *subscription.Subscription, now time.Time) (*subscription.Subscription, error) {
		return subscription.Reactivate(sub, now)
	}, "reactivate")
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, req *dto.CancelSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	resp, err := s.transition(ctx, func(sub *subscription.Subscription, now time.Time) (*subscription.Subscription, error) {
		return subscription.Cancel(sub, now, s.Config.Billing.DefaultGraceDays)
	}, "cancel")
	if err != nil {
		return nil, err
	}

	if req != nil && req.Reason != "" {
		s.Logger.Infow("subscription cancelled",
			"subscription_id", resp.Subscription.ID,
			"reason", req.Reason,
		)
	}
	return resp, nil
}

// transition loads the owner's subscription, applies a pure transition and
// writes the result back conditioned on the status it was computed from.
func (s *subscriptionService) transition(ctx context.Context, apply func(*subscription.Subscription, time.Time) (*subscription.Subscription, error), op string) (*dto.SubscriptionResponse, error) {
	if err := types.ValidateOwnerContext(ctx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sub, err := s.CurrentForOwner(ctx, types.GetOwnerID(ctx), now)
	if err != nil {
		return nil, err
	}

	next, err := apply(sub, now)
	if err != nil {
		return nil, err
	}

	if err := s.SubRepo.UpdateWithExpectedStatus(ctx, next, sub.SubscriptionStatus); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription transition applied",
		"subscription_id", next.ID,
		"operation", op,
		"from_status", sub.SubscriptionStatus,
		"to_status", next.SubscriptionStatus,
	)

	return &dto.SubscriptionResponse{Subscription: next}, nil
}

func (s *subscriptionService) CurrentForOwner(ctx context.Context, ownerID string, now time.Time) (*subscription.Subscription, error) {
	sub, err := s.SubRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.reconcileExpiration(ctx, sub, now)
}

// reconcileExpiration applies elapsed trial, paid-period and grace windows
// on read. The
// write is conditioned on the status the check ran against; losing that
// race means another request already reconciled, so the fresh record wins.
func (s *subscriptionService) reconcileExpiration(ctx context.Context, sub *subscription.Subscription, now time.Time) (*subscription.Subscription, error) {
	next, changed := subscription.CheckExpiration(sub, now)
	if !changed {
		return sub, nil
	}

	if err := s.SubRepo.UpdateWithExpectedStatus(ctx, next, sub.SubscriptionStatus); err != nil {
		if ierr.IsStateConflict(err) {
			return s.SubRepo.GetByOwner(ctx, sub.OwnerID)
		}
		return nil, err
	}

	s.Logger.Infow("subscription expired lazily",
		"subscription_id", next.ID,
		"from_status", sub.SubscriptionStatus,
		"to_status", next.SubscriptionStatus,
	)
	return next, nil
}
