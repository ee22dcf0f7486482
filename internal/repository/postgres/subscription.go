package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/omnidesk/omnidesk/internal/domain/subscription"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/postgres"
	"github.com/omnidesk/omnidesk/internal/types"
)

type SubscriptionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &SubscriptionRepository{
		client: client,
		logger: logger,
	}
}

const subscriptionColumns = `
	id, owner_id, plan_type, subscription_status, start_date, trial_end_date,
	end_date, paused_at, cancelled_at, grace_period_end_date, original_end_date,
	auto_renew, provider_subscription_id, provider_session_id, last_billing_event_at,
	status, created_at, updated_at, created_by, updated_by
`

func (r *SubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	span := StartRepositorySpan(ctx, "subscription", "create", map[string]interface{}{
		"subscription_id": sub.ID,
		"owner_id":        sub.OwnerID,
	})
	defer FinishSpan(span)

	if err := sub.Validate(); err != nil {
		SetSpanError(span, err)
		return err
	}

	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES (
			:id, :owner_id, :plan_type, :subscription_status, :start_date, :trial_end_date,
			:end_date, :paused_at, :cancelled_at, :grace_period_end_date, :original_end_date,
			:auto_renew, :provider_subscription_id, :provider_session_id, :last_billing_event_at,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)
	`

	if _, err := sqlx.NamedExecContext(ctx, r.client.Conn(ctx), query, sub); err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
				"owner_id":        sub.OwnerID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *SubscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get", map[string]interface{}{
		"subscription_id": id,
	})
	defer FinishSpan(span)

	sub, err := r.getOne(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}
	SetSpanSuccess(span)
	return sub, nil
}

func (r *SubscriptionRepository) GetByOwner(ctx context.Context, ownerID string) (*subscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get_by_owner", map[string]interface{}{
		"owner_id": ownerID,
	})
	defer FinishSpan(span)

	// Owners keep a single subscription row per lifecycle; the newest row
	// is the authoritative one. This read feeds every entitlement answer
	// and is never cached, so webhooks applied on other instances are
	// visible immediately.
	sub, err := r.getOne(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE owner_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		ownerID, types.StatusPublished)
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}

	SetSpanSuccess(span)
	return sub, nil
}

func (r *SubscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*subscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get_by_provider_subscription", map[string]interface{}{
		"provider_subscription_id": providerSubscriptionID,
	})
	defer FinishSpan(span)

	sub, err := r.getOne(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE provider_subscription_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		providerSubscriptionID)
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}
	SetSpanSuccess(span)
	return sub, nil
}

func (r *SubscriptionRepository) GetByProviderSessionID(ctx context.Context, providerSessionID string) (*subscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get_by_provider_session", map[string]interface{}{
		"provider_session_id": providerSessionID,
	})
	defer FinishSpan(span)

	sub, err := r.getOne(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE provider_session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		providerSessionID)
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}
	SetSpanSuccess(span)
	return sub, nil
}

func (r *SubscriptionRepository) UpdateWithExpectedStatus(ctx context.Context, sub *subscription.Subscription, expected types.SubscriptionStatus) error {
	span := StartRepositorySpan(ctx, "subscription", "update_with_expected_status", map[string]interface{}{
		"subscription_id": sub.ID,
		"expected_status": expected,
		"next_status":     sub.SubscriptionStatus,
	})
	defer FinishSpan(span)

	if err := sub.Validate(); err != nil {
		SetSpanError(span, err)
		return err
	}

	sub.UpdatedAt = time.Now().UTC()
	sub.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE subscriptions SET
			plan_type = :plan_type,
			subscription_status = :subscription_status,
			start_date = :start_date,
			trial_end_date = :trial_end_date,
			end_date = :end_date,
			paused_at = :paused_at,
			cancelled_at = :cancelled_at,
			grace_period_end_date = :grace_period_end_date,
			original_end_date = :original_end_date,
			auto_renew = :auto_renew,
			provider_subscription_id = :provider_subscription_id,
			provider_session_id = :provider_session_id,
			last_billing_event_at = :last_billing_event_at,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND subscription_status = :expected_status
	`

	arg := struct {
		*subscription.Subscription
		ExpectedStatus types.SubscriptionStatus `db:"expected_status"`
	}{sub, expected}

	res, err := sqlx.NamedExecContext(ctx, r.client.Conn(ctx), query, arg)
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
			}).
			Mark(ierr.ErrDatabase)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to read update result").
			Mark(ierr.ErrDatabase)
	}

	if rows == 0 {
		// Distinguish a lost race from a missing row.
		if _, getErr := r.Get(ctx, sub.ID); getErr != nil {
			SetSpanError(span, getErr)
			return getErr
		}
		err := ierr.NewError("subscription was modified concurrently").
			WithHint("The subscription changed while this operation was in flight, retry it").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
				"expected_status": expected,
			}).
			Mark(ierr.ErrStateConflict)
		SetSpanError(span, err)
		return err
	}

	SetSpanSuccess(span)
	return nil
}

func (r *SubscriptionRepository) getOne(ctx context.Context, query string, args ...interface{}) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	if err := sqlx.GetContext(ctx, r.client.Conn(ctx), &sub, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHint("Subscription not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}
