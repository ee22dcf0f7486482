package types

import (
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/samber/lo"
)

// PlanType identifies the base plan an owner subscribed to.
type PlanType string

const (
	PlanTypeBasic  PlanType = "basic"
	PlanTypeGrowth PlanType = "growth"
	PlanTypeScale  PlanType = "scale"
)

var PlanTypeValues = []PlanType{
	PlanTypeBasic,
	PlanTypeGrowth,
	PlanTypeScale,
}

func (p PlanType) String() string {
	return string(p)
}

func (p PlanType) Validate() error {
	if !lo.Contains(PlanTypeValues, p) {
		return ierr.NewError("invalid plan type").
			WithHint("Invalid plan type").
			WithReportableDetails(map[string]any{
				"plan_type":     p,
				"allowed_plans": PlanTypeValues,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PlanLimits holds the message ceilings a plan grants. Add-on credits
// extend MonthlyMessages only, never DailyMessages.
type PlanLimits struct {
	MonthlyMessages int `json:"monthly_messages"`
	DailyMessages   int `json:"daily_messages"`
}

// planLimitTable is the single source of truth for base plan ceilings.
var planLimitTable = map[PlanType]PlanLimits{
	PlanTypeBasic:  {MonthlyMessages: 450, DailyMessages: 50},
	PlanTypeGrowth: {MonthlyMessages: 1500, DailyMessages: 150},
	PlanTypeScale:  {MonthlyMessages: 5000, DailyMessages: 500},
}

// FallbackLimits is the minimal tier applied to owners without an entitled
// subscription (expired, cancelled, paused past grace, unknown plan).
var FallbackLimits = PlanLimits{MonthlyMessages: 50, DailyMessages: 10}

// LimitsFor returns the base limits for a plan, or the fallback tier when
// the plan is unknown.
func LimitsFor(p PlanType) PlanLimits {
	if limits, ok := planLimitTable[p]; ok {
		return limits
	}
	return FallbackLimits
}
