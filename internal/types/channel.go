package types

import (
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/samber/lo"
)

// ChannelType is a connected messaging network.
type ChannelType string

const (
	ChannelWhatsApp  ChannelType = "whatsapp"
	ChannelInstagram ChannelType = "instagram"
	ChannelTelegram  ChannelType = "telegram"
	ChannelMessenger ChannelType = "messenger"
)

// BillableChannels are the channels whose outbound messages count against
// the plan ceilings.
var BillableChannels = []ChannelType{
	ChannelWhatsApp,
	ChannelInstagram,
	ChannelTelegram,
	ChannelMessenger,
}

func (c ChannelType) String() string {
	return string(c)
}

// IsBillable reports whether outbound messages on this channel consume quota.
func (c ChannelType) IsBillable() bool {
	return lo.Contains(BillableChannels, c)
}

func (c ChannelType) Validate() error {
	allowed := []ChannelType{
		ChannelWhatsApp,
		ChannelInstagram,
		ChannelTelegram,
		ChannelMessenger,
	}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid channel type").
			WithHint("Channel must be one of the connected messaging networks").
			WithReportableDetails(map[string]any{
				"channel": c,
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// MessageDirection distinguishes sends from receives in the message log.
type MessageDirection string

const (
	MessageDirectionOutbound MessageDirection = "outbound"
	MessageDirectionInbound  MessageDirection = "inbound"
)

func (d MessageDirection) Validate() error {
	allowed := []MessageDirection{MessageDirectionOutbound, MessageDirectionInbound}
	if !lo.Contains(allowed, d) {
		return ierr.NewError("invalid message direction").
			WithHint("Direction must be outbound or inbound").
			WithReportableDetails(map[string]any{
				"direction": d,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
