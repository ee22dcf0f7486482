package types

import (
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/samber/lo"
)

// AddOnStatus is the payment status of an add-on credit purchase.
// Only completed credits contribute to entitlement.
type AddOnStatus string

const (
	AddOnStatusPending   AddOnStatus = "pending"
	AddOnStatusCompleted AddOnStatus = "completed"
	AddOnStatusFailed    AddOnStatus = "failed"
	AddOnStatusRefunded  AddOnStatus = "refunded"
)

var AddOnStatusValues = []AddOnStatus{
	AddOnStatusPending,
	AddOnStatusCompleted,
	AddOnStatusFailed,
	AddOnStatusRefunded,
}

func (s AddOnStatus) String() string {
	return string(s)
}

func (s AddOnStatus) Validate() error {
	if !lo.Contains(AddOnStatusValues, s) {
		return ierr.NewError("invalid add-on status").
			WithHint("Invalid add-on status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": AddOnStatusValues,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// AddOnSource tags where an add-on purchase was initiated from. Kept as an
// open string so the dashboard can add placements without a schema change;
// the known placements are listed for reference.
type AddOnSource string

const (
	AddOnSourceDashboard  AddOnSource = "dashboard"
	AddOnSourceUsageAlert AddOnSource = "usage_alert"
	AddOnSourceAPI        AddOnSource = "api"
)
