package service

import (
	"context"
	"time"

	"github.com/omnidesk/omnidesk/internal/api/dto"
	"github.com/omnidesk/omnidesk/internal/domain/addon"
	"github.com/omnidesk/omnidesk/internal/domain/billing"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/samber/lo"
)

// AddOnService handles add-on credit purchases and the owner-facing ledger
// views. A purchase creates a pending credit plus a provider checkout
// session; the reconciler flips the credit on the completion webhook.
type AddOnService interface {
	PurchaseAddOn(ctx context.Context, req *dto.PurchaseAddOnRequest) (*dto.PurchaseAddOnResponse, error)
	ListAddOns(ctx context.Context) (*dto.ListAddOnsResponse, error)
	ListActiveAddOns(ctx context.Context) (*dto.ListAddOnsResponse, error)
}

type addOnService struct {
	ServiceParams
	subscriptionSvc SubscriptionService
}

func NewAddOnService(params ServiceParams) AddOnService {
	return &addOnService{
		ServiceParams:   params,
		subscriptionSvc: NewSubscriptionService(params),
	}
}

func (s *addOnService) PurchaseAddOn(ctx context.Context, req *dto.PurchaseAddOnRequest) (*dto.PurchaseAddOnResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := types.ValidateOwnerContext(ctx); err != nil {
		return nil, err
	}

	ownerID := types.GetOwnerID(ctx)
	now := time.Now().UTC()

	// Add-ons top up an entitled plan; the fallback tier cannot be extended.
	sub, err := s.subscriptionSvc.CurrentForOwner(ctx, ownerID, now)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.NewError("no subscription to extend").
				WithHint("An active subscription is required to purchase add-on credits").
				Mark(ierr.ErrStateConflict)
		}
		return nil, err
	}
	if !sub.Classify(now).Entitled() {
		return nil, ierr.NewError("subscription does not allow add-on purchases").
			WithHint("An active subscription is required to purchase add-on credits").
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrStateConflict)
	}

	catalog := s.Config.Billing.AddOn
	credit := addon.NewPending(ownerID, sub.PlanType, catalog.Credits, catalog.UnitAmount, catalog.Currency, req.Source, now, types.GetDefaultBaseModel(ctx))

	// The pending credit persists before the provider call so an orphaned
	// checkout session can always be traced back.
	if err := s.AddOnRepo.Create(ctx, credit); err != nil {
		return nil, err
	}

	session, err := s.BillingProvider.CreateCheckoutSession(ctx, billing.CreateCheckoutParams{
		OwnerID:     ownerID,
		ReferenceID: credit.ID,
		Credits:     credit.CreditsGranted,
		UnitAmount:  credit.AmountPaid,
		Currency:    credit.Currency,
	})
	if err != nil {
		if failErr := credit.Fail(); failErr == nil {
			if updErr := s.AddOnRepo.Update(ctx, credit); updErr != nil {
				s.Logger.Errorw("failed to mark add-on credit failed after checkout error",
					"addon_id", credit.ID,
					"error", updErr,
				)
			}
		}
		return nil, err
	}

	credit.ProviderSessionID = session.ID
	if err := s.AddOnRepo.Update(ctx, credit); err != nil {
		return nil, err
	}

	s.Logger.Infow("created add-on purchase",
		"addon_id", credit.ID,
		"owner_id", ownerID,
		"credits", credit.CreditsGranted,
		"session_id", session.ID,
		"source", credit.Source,
	)

	return &dto.PurchaseAddOnResponse{
		AddOnID:     credit.ID,
		Status:      credit.AddOnStatus,
		Credits:     credit.CreditsGranted,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

func (s *addOnService) ListAddOns(ctx context.Context) (*dto.ListAddOnsResponse, error) {
	if err := types.ValidateOwnerContext(ctx); err != nil {
		return nil, err
	}

	credits, err := s.AddOnRepo.ListByOwner(ctx, types.GetOwnerID(ctx))
	if err != nil {
		return nil, err
	}
	return toListResponse(credits), nil
}

func (s *addOnService) ListActiveAddOns(ctx context.Context) (*dto.ListAddOnsResponse, error) {
	if err := types.ValidateOwnerContext(ctx); err != nil {
		return nil, err
	}

	credits, err := s.AddOnRepo.ListActive(ctx, types.GetOwnerID(ctx), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return toListResponse(credits), nil
}

func toListResponse(credits []*addon.AddOnCredit) *dto.ListAddOnsResponse {
	items := lo.Map(credits, func(c *addon.AddOnCredit, _ int) *dto.AddOnCreditResponse {
		return &dto.AddOnCreditResponse{AddOnCredit: c}
	})
	return &dto.ListAddOnsResponse{
		Items: items,
		Total: len(items),
	}
}
