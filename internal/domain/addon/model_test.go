package addon

import (
	"testing"
	"time"

	ierr "github.com/omnidesk/omnidesk/internal/errors"
	"github.com/omnidesk/omnidesk/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCredit(now time.Time) *AddOnCredit {
	return NewPending("owner_1", types.PlanTypeBasic, 500, decimal.NewFromInt(10), "usd", types.AddOnSourceDashboard, now, types.BaseModel{Status: types.StatusPublished})
}

func TestNewPendingWindowEndsAtMonthBoundary(t *testing.T) {
	now := time.Date(2025, time.March, 12, 15, 4, 5, 0, time.UTC)
	credit := newTestCredit(now)

	assert.Equal(t, types.AddOnStatusPending, credit.AddOnStatus)
	assert.True(t, credit.EffectiveDate.Equal(now))
	assert.True(t, credit.ExpirationDate.Equal(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, credit.Validate())
}

func TestIsActiveAtWindowIsHalfOpen(t *testing.T) {
	now := time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)
	credit := newTestCredit(now)
	require.NoError(t, credit.Complete("pi_1"))

	assert.True(t, credit.IsActiveAt(credit.EffectiveDate))
	assert.True(t, credit.IsActiveAt(credit.ExpirationDate.Add(-time.Nanosecond)))
	assert.False(t, credit.IsActiveAt(credit.ExpirationDate))
	assert.False(t, credit.IsActiveAt(credit.EffectiveDate.Add(-time.Nanosecond)))
}

func TestPendingCreditIsNeverActive(t *testing.T) {
	now := time.Now().UTC()
	credit := newTestCredit(now)
	assert.False(t, credit.IsActiveAt(now))
}

func TestCompleteIsIdempotent(t *testing.T) {
	credit := newTestCredit(time.Now().UTC())

	require.NoError(t, credit.Complete("pi_1"))
	assert.Equal(t, types.AddOnStatusCompleted, credit.AddOnStatus)
	assert.Equal(t, "pi_1", credit.ProviderPaymentRef)

	// A replayed completion keeps the original payment reference.
	require.NoError(t, credit.Complete("pi_other"))
	assert.Equal(t, "pi_1", credit.ProviderPaymentRef)
}

func TestCompleteAfterFailureConflicts(t *testing.T) {
	credit := newTestCredit(time.Now().UTC())
	require.NoError(t, credit.Fail())

	err := credit.Complete("pi_1")
	require.Error(t, err)
	assert.True(t, ierr.IsStateConflict(err))
	assert.Equal(t, types.AddOnStatusFailed, credit.AddOnStatus)
}

func TestFailAfterCompletionConflicts(t *testing.T) {
	credit := newTestCredit(time.Now().UTC())
	require.NoError(t, credit.Complete("pi_1"))

	err := credit.Fail()
	require.Error(t, err)
	assert.True(t, ierr.IsStateConflict(err))
	assert.Equal(t, types.AddOnStatusCompleted, credit.AddOnStatus)
}

func TestRefundRequiresCompletion(t *testing.T) {
	credit := newTestCredit(time.Now().UTC())

	err := credit.Refund()
	require.Error(t, err)
	assert.True(t, ierr.IsStateConflict(err))

	require.NoError(t, credit.Complete("pi_1"))
	require.NoError(t, credit.Refund())
	assert.Equal(t, types.AddOnStatusRefunded, credit.AddOnStatus)

	// Replays converge.
	require.NoError(t, credit.Refund())
}

func TestValidateRejectsNonPositiveCredits(t *testing.T) {
	credit := newTestCredit(time.Now().UTC())
	credit.CreditsGranted = 0

	err := credit.Validate()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}
