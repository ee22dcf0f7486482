package message

import (
	"context"

	"github.com/omnidesk/omnidesk/internal/types"
)

// Repository is the message-log surface. Counts are computed from the log
// at read time over half-open calendar windows.
type Repository interface {
	InsertMessage(ctx context.Context, msg *Message) error
	// CountOutbound counts quota-consuming messages for the owner inside
	// the window.
	CountOutbound(ctx context.Context, ownerID string, window types.CalendarWindow) (int, error)
}
