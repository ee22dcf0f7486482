package stripe

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/omnidesk/omnidesk/internal/config"
	"github.com/omnidesk/omnidesk/internal/domain/billing"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/logger"
	stripeapi "github.com/stripe/stripe-go/v82"
)

// Client wraps the Stripe SDK behind the billing.Provider port.
type Client struct {
	stripeClient *stripeapi.Client
	cfg          *config.Configuration
	logger       *logger.Logger
}

// NewClient creates a new Stripe client
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		stripeClient: stripeapi.NewClient(cfg.Stripe.SecretKey, nil),
		cfg:          cfg,
		logger:       logger,
	}
}

var _ billing.Provider = (*Client)(nil)

// CreateCheckoutSession creates a hosted payment page for an add-on
// purchase. The local credit id rides in metadata and as the idempotency
// key, so a retried create converges on the same session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params billing.CreateCheckoutParams) (*billing.CheckoutSession, error) {
	amountCents := params.UnitAmount.Mul(centsPerUnit).IntPart()

	metadata := map[string]string{
		MetadataOwnerID: params.OwnerID,
		MetadataAddOnID: params.ReferenceID,
	}

	description := params.Description
	if description == "" {
		description = fmt.Sprintf("%d extra messages for the current month", params.Credits)
	}

	sessionParams := &stripeapi.CheckoutSessionCreateParams{
		LineItems: []*stripeapi.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripeapi.String(params.Currency),
					ProductData: &stripeapi.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name:        stripeapi.String("Message add-on pack"),
						Description: stripeapi.String(description),
					},
					UnitAmount: stripeapi.Int64(amountCents),
				},
				Quantity: stripeapi.Int64(1),
			},
		},
		Mode:       stripeapi.String("payment"),
		SuccessURL: stripeapi.String(c.cfg.Stripe.SuccessURL),
		CancelURL:  stripeapi.String(c.cfg.Stripe.CancelURL),
		Metadata:   metadata,
		PaymentIntentData: &stripeapi.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	sessionParams.IdempotencyKey = stripeapi.String(params.ReferenceID)

	var session *stripeapi.CheckoutSession
	operation := func() error {
		var err error
		session, err = c.stripeClient.V1CheckoutSessions.Create(ctx, sessionParams)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.logger.Errorw("failed to create Stripe checkout session",
			"error", err,
			"owner_id", params.OwnerID,
			"addon_id", params.ReferenceID,
		)
		return nil, ierr.WithError(err).
			WithHint("The billing provider could not create a checkout session").
			WithReportableDetails(map[string]interface{}{
				"owner_id": params.OwnerID,
				"addon_id": params.ReferenceID,
			}).
			Mark(ierr.ErrUpstreamBilling)
	}

	c.logger.Infow("created Stripe checkout session",
		"session_id", session.ID,
		"owner_id", params.OwnerID,
		"addon_id", params.ReferenceID,
	)

	return &billing.CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}
