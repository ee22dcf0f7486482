package dto

import (
	"github.com/omnidesk/omnidesk/internal/domain/entitlement"
)

type EntitlementResponse struct {
	*entitlement.Snapshot
}
