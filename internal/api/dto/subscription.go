package dto

import (
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/omnidesk/omnidesk/internal/validator"
)

type CreateSubscriptionRequest struct {
	PlanType types.PlanType `json:"plan_type" validate:"required"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.PlanType.Validate()
}

type CancelSubscriptionRequest struct {
	// Reason is free-form and only logged
	Reason string `json:"reason"`
}

type SubscriptionResponse struct {
	*subscription.Subscription
}
