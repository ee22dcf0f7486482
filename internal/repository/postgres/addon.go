package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/omnidesk/omnidesk/internal/domain/addon"
	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/logger"
	"github.com/omnidesk/omnidesk/internal/postgres"
	"github.com/omnidesk/omnidesk/internal/types"
)

type AddOnRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewAddOnRepository(client postgres.IClient, logger *logger.Logger) addon.Repository {
	return &AddOnRepository{
		client: client,
		logger: logger,
	}
}

const addOnColumns = `
	id, owner_id, plan_type_at_purchase, credits_granted, amount_paid, currency,
	provider_session_id, provider_payment_ref, addon_status, effective_date,
	expiration_date, source, status, created_at, updated_at, created_by, updated_by
`

func (r *AddOnRepository) Create(ctx context.Context, credit *addon.AddOnCredit) error {
	span := StartRepositorySpan(ctx, "addon", "create", map[string]interface{}{
		"addon_id": credit.ID,
		"owner_id": credit.OwnerID,
	})
	defer FinishSpan(span)

	if err := credit.Validate(); err != nil {
		SetSpanError(span, err)
		return err
	}

	query := `
		INSERT INTO addon_credits (` + addOnColumns + `)
		VALUES (
			:id, :owner_id, :plan_type_at_purchase, :credits_granted, :amount_paid, :currency,
			:provider_session_id, :provider_payment_ref, :addon_status, :effective_date,
			:expiration_date, :source, :status, :created_at, :updated_at, :created_by, :updated_by
		)
	`

	if _, err := sqlx.NamedExecContext(ctx, r.client.Conn(ctx), query, credit); err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to create add-on credit").
			WithReportableDetails(map[string]interface{}{
				"addon_id": credit.ID,
				"owner_id": credit.OwnerID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

func (r *AddOnRepository) Get(ctx context.Context, id string) (*addon.AddOnCredit, error) {
	span := StartRepositorySpan(ctx, "addon", "get", map[string]interface{}{
		"addon_id": id,
	})
	defer FinishSpan(span)

	credit, err := r.getOne(ctx, `SELECT `+addOnColumns+` FROM addon_credits WHERE id = $1`, id)
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}
	SetSpanSuccess(span)
	return credit, nil
}

func (r *AddOnRepository) GetByProviderSessionID(ctx context.Context, providerSessionID string) (*addon.AddOnCredit, error) {
	span := StartRepositorySpan(ctx, "addon", "get_by_provider_session", map[string]interface{}{
		"provider_session_id": providerSessionID,
	})
	defer FinishSpan(span)

	credit, err := r.getOne(ctx, `
		SELECT `+addOnColumns+`
		FROM addon_credits
		WHERE provider_session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		providerSessionID)
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}
	SetSpanSuccess(span)
	return credit, nil
}

func (r *AddOnRepository) Update(ctx context.Context, credit *addon.AddOnCredit) error {
	span := StartRepositorySpan(ctx, "addon", "update", map[string]interface{}{
		"addon_id":     credit.ID,
		"addon_status": credit.AddOnStatus,
	})
	defer FinishSpan(span)

	if err := credit.Validate(); err != nil {
		SetSpanError(span, err)
		return err
	}

	credit.UpdatedAt = time.Now().UTC()
	credit.UpdatedBy = types.GetUserID(ctx)

	query := `
		UPDATE addon_credits SET
			provider_session_id = :provider_session_id,
			provider_payment_ref = :provider_payment_ref,
			addon_status = :addon_status,
			effective_date = :effective_date,
			expiration_date = :expiration_date,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	res, err := sqlx.NamedExecContext(ctx, r.client.Conn(ctx), query, credit)
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to update add-on credit").
			WithReportableDetails(map[string]interface{}{
				"addon_id": credit.ID,
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
		err := ierr.NewError("add-on credit not found").
			WithHint("Add-on credit not found").
			WithReportableDetails(map[string]interface{}{
				"addon_id": credit.ID,
			}).
			Mark(ierr.ErrNotFound)
		SetSpanError(span, err)
		return err
	}

	SetSpanSuccess(span)
	return nil
}

func (r *AddOnRepository) ListByOwner(ctx context.Context, ownerID string) ([]*addon.AddOnCredit, error) {
	span := StartRepositorySpan(ctx, "addon", "list_by_owner", map[string]interface{}{
		"owner_id": ownerID,
	})
	defer FinishSpan(span)

	credits, err := r.list(ctx, `
		SELECT `+addOnColumns+`
		FROM addon_credits
		WHERE owner_id = $1 AND status = $2
		ORDER BY created_at DESC`,
		ownerID, types.StatusPublished)
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}
	SetSpanSuccess(span)
	return credits, nil
}

func (r *AddOnRepository) ListActive(ctx context.Context, ownerID string, at time.Time) ([]*addon.AddOnCredit, error) {
	span := StartRepositorySpan(ctx, "addon", "list_active", map[string]interface{}{
		"owner_id": ownerID,
	})
	defer FinishSpan(span)

	credits, err := r.list(ctx, `
		SELECT `+addOnColumns+`
		FROM addon_credits
		WHERE owner_id = $1
		  AND status = $2
		  AND addon_status = $3
		  AND effective_date <= $4
		  AND expiration_date > $4
		ORDER BY effective_date ASC`,
		ownerID, types.StatusPublished, types.AddOnStatusCompleted, at.UTC())
	if err != nil {
		SetSpanError(span, err)
		return nil, err
	}
	SetSpanSuccess(span)
	return credits, nil
}

func (r *AddOnRepository) getOne(ctx context.Context, query string, args ...interface{}) (*addon.AddOnCredit, error) {
	var credit addon.AddOnCredit
	if err := sqlx.GetContext(ctx, r.client.Conn(ctx), &credit, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.WithError(err).
				WithHint("Add-on credit not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to fetch add-on credit").
			Mark(ierr.ErrDatabase)
	}
	return &credit, nil
}

func (r *AddOnRepository) list(ctx context.Context, query string, args ...interface{}) ([]*addon.AddOnCredit, error) {
	credits := make([]*addon.AddOnCredit, 0)
	if err := sqlx.SelectContext(ctx, r.client.Conn(ctx), &credits, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list add-on credits").
			Mark(ierr.ErrDatabase)
	}
	return credits, nil
}
