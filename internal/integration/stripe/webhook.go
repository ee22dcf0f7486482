package stripe

import (
	"encoding/json"
	"time"

	"github.com/omnidesk/omnidesk/internal/domain/billing"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// centsPerUnit converts major currency units to the minor units Stripe bills in.
var centsPerUnit = decimal.NewFromInt(100)

// Metadata keys attached to checkout sessions so webhooks can be correlated
// back to local records.
const (
	MetadataOwnerID = "omnidesk_owner_id"
	MetadataAddOnID = "omnidesk_addon_id"
)

// ParseWebhookEvent verifies the webhook signature and decodes the event.
func (c *Client) ParseWebhookEvent(payload []byte, signature string) (*stripeapi.Event, error) {
	options := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.Stripe.WebhookSecret, options)
	if err != nil {
		c.logger.Errorw("Stripe webhook verification failed", "error", err)
		return nil, ierr.NewError("failed to verify webhook signature").
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

// NormalizeEvent translates a verified Stripe event into provider-agnostic
// terms. Unhandled event types return nil so callers can acknowledge them
// without acting.
func (c *Client) NormalizeEvent(event *stripeapi.Event) (*billing.ProviderEvent, error) {
	out := &billing.ProviderEvent{
		ID:         event.ID,
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}

	switch event.Type {
	case "invoice.payment_succeeded":
		inv, err := parseInvoice(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		out.Type = types.BillingEventPaymentSucceeded
		out.SubscriptionRef = inv.subscriptionRef()
		out.PaymentRef = inv.PaymentIntent
		out.PeriodEnd = inv.periodEnd()

	case "invoice.payment_failed":
		inv, err := parseInvoice(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		// A failed invoice with no retry scheduled means the provider gave up.
		if inv.NextPaymentAttempt == 0 && inv.AttemptCount > 1 {
			out.Type = types.BillingEventPaymentRetriesExhausted
		} else {
			out.Type = types.BillingEventPaymentFailed
		}
		out.SubscriptionRef = inv.subscriptionRef()
		out.PaymentRef = inv.PaymentIntent

	case "checkout.session.completed", "checkout.session.expired":
		var session stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, parseError(err, event)
		}
		if event.Type == "checkout.session.completed" {
			out.Type = types.BillingEventCheckoutCompleted
		} else {
			out.Type = types.BillingEventCheckoutExpired
		}
		out.SessionRef = session.ID
		out.OwnerID = session.Metadata[MetadataOwnerID]
		out.AddOnID = session.Metadata[MetadataAddOnID]
		if session.PaymentIntent != nil {
			out.PaymentRef = session.PaymentIntent.ID
		}
		if session.Subscription != nil {
			out.SubscriptionRef = session.Subscription.ID
		}

	case "charge.refunded":
		var charge stripeapi.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, parseError(err, event)
		}
		out.Type = types.BillingEventChargeRefunded
		if charge.PaymentIntent != nil {
			out.PaymentRef = charge.PaymentIntent.ID
		} else {
			out.PaymentRef = charge.ID
		}
		out.OwnerID = charge.Metadata[MetadataOwnerID]
		out.AddOnID = charge.Metadata[MetadataAddOnID]

	case "customer.subscription.deleted":
		sub, err := parseSubscription(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		out.Type = types.BillingEventSubscriptionCancelled
		out.SubscriptionRef = sub.ID

	case "customer.subscription.updated":
		sub, err := parseSubscription(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		out.Type = types.BillingEventSubscriptionUpdated
		out.SubscriptionRef = sub.ID
		out.PeriodEnd = sub.periodEnd()

	default:
		c.logger.Infow("unhandled Stripe webhook event type", "type", event.Type)
		return nil, nil
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// invoicePayload reads the fields we need straight from the raw JSON.
// Newer API versions moved the subscription ref under parent, so both
// shapes are tolerated.
type invoicePayload struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
	PaymentIntent      string `json:"payment_intent"`
	NextPaymentAttempt int64  `json:"next_payment_attempt"`
	AttemptCount       int64  `json:"attempt_count"`
	Lines              struct {
		Data []struct {
			Period struct {
				End int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

func parseInvoice(raw json.RawMessage) (*invoicePayload, error) {
	var inv invoicePayload
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid invoice data in webhook").
			Mark(ierr.ErrValidation)
	}
	return &inv, nil
}

func (i *invoicePayload) subscriptionRef() string {
	if i.Subscription != "" {
		return i.Subscription
	}
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil {
		return i.Parent.SubscriptionDetails.Subscription
	}
	return ""
}

func (i *invoicePayload) periodEnd() *time.Time {
	var end int64
	for _, line := range i.Lines.Data {
		if line.Period.End > end {
			end = line.Period.End
		}
	}
	if end == 0 {
		return nil
	}
	t := time.Unix(end, 0).UTC()
	return &t
}

type subscriptionPayload struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

func parseSubscription(raw json.RawMessage) (*subscriptionPayload, error) {
	var sub subscriptionPayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}
	return &sub, nil
}

func (s *subscriptionPayload) periodEnd() *time.Time {
	end := s.CurrentPeriodEnd
	for _, item := range s.Items.Data {
		if item.CurrentPeriodEnd > end {
			end = item.CurrentPeriodEnd
		}
	}
	if end == 0 {
		return nil
	}
	t := time.Unix(end, 0).UTC()
	return &t
}

func parseError(err error, event *stripeapi.Event) error {
	return ierr.WithError(err).
		WithHint("Invalid payload in webhook event").
		WithReportableDetails(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).
		Mark(ierr.ErrValidation)
}
