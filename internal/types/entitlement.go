package types

// UsageAlertStatus classifies how close an owner is to their ceilings.
type UsageAlertStatus string

const (
	UsageAlertStatusHealthy  UsageAlertStatus = "healthy"
	UsageAlertStatusWarning  UsageAlertStatus = "warning"
	UsageAlertStatusCritical UsageAlertStatus = "critical"
)

// Alert thresholds in percent of the applicable limit.
const (
	UsageWarningThreshold  = 70
	UsageCriticalThreshold = 90
)

func (s UsageAlertStatus) String() string {
	return string(s)
}
