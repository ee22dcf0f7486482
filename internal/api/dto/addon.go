package dto

import (
	"github.com/omnidesk/omnidesk/internal/domain/addon"
	"github.com/omnidesk/omnidesk/internal/types"
)

type PurchaseAddOnRequest struct {
	// Source records where the purchase was initiated from. Defaults to
	// the dashboard.
	Source types.AddOnSource `json:"source"`
}

func (r *PurchaseAddOnRequest) Validate() error {
	if r.Source == "" {
		r.Source = types.AddOnSourceDashboard
	}
	return nil
}

// PurchaseAddOnResponse carries the provider checkout URL the dashboard
// redirects to. The credit stays pending until the completion webhook.
type PurchaseAddOnResponse struct {
	AddOnID     string            `json:"addon_id"`
	Status      types.AddOnStatus `json:"status"`
	Credits     int               `json:"credits"`
	SessionID   string            `json:"session_id"`
	CheckoutURL string            `json:"checkout_url"`
}

type AddOnCreditResponse struct {
	*addon.AddOnCredit
}

type ListAddOnsResponse struct {
	Items []*AddOnCreditResponse `json:"items"`
	Total int                    `json:"total"`
}
