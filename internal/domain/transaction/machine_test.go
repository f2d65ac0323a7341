package transaction_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/user"
	"github.com/quickbills/billpay-api/internal/pkg/database"
)

func setup(t *testing.T) (*sqlx.DB, *transaction.Machine, uuid.UUID) {
	t.Helper()
	db := database.NewTestDB(t)
	u := &user.User{Email: "ledger@example.com", Balance: decimal.NewFromInt(1000)}
	require.NoError(t, user.NewRepository(db).Create(context.Background(), u))
	return db, transaction.NewMachine(db), u.ID
}

func airtimeDraft(userID uuid.UUID) transaction.Draft {
	return transaction.Draft{
		UserID:      userID,
		ProductType: transaction.ProductAirtime,
		Direction:   transaction.DirectionDebit,
		Amount:      decimal.NewFromInt(200),
		Provider:    "MTN",
		Phone:       "08031234567",
	}
}

func TestCreateStartsPending(t *testing.T) {
	db, m, userID := setup(t)
	ctx := context.Background()

	txn, err := m.Create(ctx, db, airtimeDraft(userID))
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusPending, txn.Status)
	assert.True(t, strings.HasPrefix(txn.Reference, "AIR-"))
	assert.True(t, txn.Total.Equal(txn.Amount))

	stored, err := m.GetByReference(ctx, db, txn.Reference)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, stored.ID)
	assert.Equal(t, "08031234567", stored.Phone.String)
	assert.False(t, stored.BalanceApplied)
}

func TestCreateDuplicateReference(t *testing.T) {
	db, m, userID := setup(t)
	ctx := context.Background()

	d := airtimeDraft(userID)
	d.Reference = "AIR-fixed"
	_, err := m.Create(ctx, db, d)
	require.NoError(t, err)

	_, err = m.Create(ctx, db, d)
	assert.ErrorIs(t, err, ledger.ErrDuplicateReference)
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	db, m, userID := setup(t)
	d := airtimeDraft(userID)
	d.Amount = decimal.Zero

	_, err := m.Create(context.Background(), db, d)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestFinalizeIsIdempotentAndRejectsConflicts(t *testing.T) {
	db, m, userID := setup(t)
	ctx := context.Background()

	txn, err := m.Create(ctx, db, airtimeDraft(userID))
	require.NoError(t, err)

	changed, err := m.Finalize(ctx, db, txn.ID, transaction.Outcome{
		Status:          transaction.StatusCompleted,
		Message:         "delivered",
		ProviderPayload: json.RawMessage(`{"Status":"successful"}`),
	})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = m.Finalize(ctx, db, txn.ID, transaction.Outcome{Status: transaction.StatusCompleted})
	require.NoError(t, err)
	assert.False(t, changed, "same outcome twice must be a no-op")

	_, err = m.Finalize(ctx, db, txn.ID, transaction.Outcome{Status: transaction.StatusFailed})
	assert.ErrorIs(t, err, ledger.ErrInconsistency)

	stored, err := m.Get(ctx, db, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, stored.Status)
	assert.Equal(t, "delivered", stored.Message.String)
	assert.JSONEq(t, `{"Status":"successful"}`, string(stored.ProviderPayload))
}

func TestFinalizeRejectsPendingTarget(t *testing.T) {
	db, m, userID := setup(t)
	txn, err := m.Create(context.Background(), db, airtimeDraft(userID))
	require.NoError(t, err)

	_, err = m.Finalize(context.Background(), db, txn.ID, transaction.Outcome{Status: transaction.StatusPending})
	assert.Error(t, err)
}

func TestFinalizeUnknownTransaction(t *testing.T) {
	db, m, _ := setup(t)
	_, err := m.Finalize(context.Background(), db, uuid.New(), transaction.Outcome{Status: transaction.StatusFailed})
	assert.True(t, errors.Is(err, transaction.ErrTransactionNotFound))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestMarkAppliedOnlyOnce(t *testing.T) {
	db, m, userID := setup(t)
	ctx := context.Background()

	txn, err := m.Create(ctx, db, airtimeDraft(userID))
	require.NoError(t, err)

	require.NoError(t, m.MarkApplied(ctx, db, txn.ID))
	assert.ErrorIs(t, m.MarkApplied(ctx, db, txn.ID), ledger.ErrInconsistency)
	require.NoError(t, m.ClearApplied(ctx, db, txn.ID))
}

func TestListByUserFiltersAndPages(t *testing.T) {
	db, m, userID := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.Create(ctx, db, airtimeDraft(userID))
		require.NoError(t, err)
	}
	data := airtimeDraft(userID)
	data.ProductType = transaction.ProductData
	data.Plan = "1GB"
	_, err := m.Create(ctx, db, data)
	require.NoError(t, err)

	items, total, err := m.ListByUser(ctx, userID, transaction.Filter{ProductType: transaction.ProductAirtime, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 2)

	items, total, err = m.ListByUser(ctx, userID, transaction.Filter{ProductType: transaction.ProductData})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "1GB", items[0].Plan.String)
}

func TestListStalePendingSkipsFunding(t *testing.T) {
	db, m, userID := setup(t)
	ctx := context.Background()

	_, err := m.Create(ctx, db, airtimeDraft(userID))
	require.NoError(t, err)
	_, err = m.Create(ctx, db, transaction.Draft{
		UserID:      userID,
		ProductType: transaction.ProductWalletFunding,
		Direction:   transaction.DirectionCredit,
		Amount:      decimal.NewFromInt(5000),
		Provider:    "paystack",
	})
	require.NoError(t, err)

	stale, err := m.ListStalePending(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, transaction.ProductAirtime, stale[0].ProductType)

	none, err := m.ListStalePending(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
