package purchase_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/domain/purchase"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
)

func (f *fixture) claimedFunding(t *testing.T, amount int64) *transaction.Transaction {
	t.Helper()
	txn, err := f.machine.Create(context.Background(), f.db, transaction.Draft{
		UserID:      f.user.ID,
		ProductType: transaction.ProductWalletFunding,
		Direction:   transaction.DirectionCredit,
		Amount:      decimal.NewFromInt(amount),
		Provider:    "paystack",
		Status:      transaction.StatusCompleted,
	})
	require.NoError(t, err)
	return txn
}

func directOrder(funding *transaction.Transaction, details string) purchase.DirectOrder {
	return purchase.DirectOrder{
		ProductType:      transaction.ProductAirtime,
		Details:          json.RawMessage(details),
		PaidAmount:       funding.Amount,
		FundingID:        funding.ID,
		FundingReference: funding.Reference,
	}
}

const airtimeDetails = `{"phone":"08031234567","provider":"mtn","amount":"300"}`

func TestDirectPurchaseSkipsWalletAndCreditsSurplus(t *testing.T) {
	f := newFixture(t, 100, delivered)
	funding := f.claimedFunding(t, 500)

	res, err := f.svc.PurchaseDirect(context.Background(), f.user.ID, directOrder(funding, airtimeDetails))
	require.NoError(t, err)

	txn := f.byReference(t, res.Reference)
	assert.Equal(t, transaction.StatusCompleted, txn.Status)
	assert.False(t, txn.BalanceApplied)
	assert.Equal(t, funding.ID, txn.OriginalTransactionID.UUID)

	assertMoney(t, 300, f.balance(t))
	assert.True(t, f.byReference(t, funding.Reference).BalanceApplied)
}

func TestDirectPurchaseFailureCreditsPayment(t *testing.T) {
	f := newFixture(t, 0, rejected)
	funding := f.claimedFunding(t, 300)

	_, err := f.svc.PurchaseDirect(context.Background(), f.user.ID, directOrder(funding, airtimeDetails))
	require.ErrorIs(t, err, ledger.ErrUpstreamFailure)

	assertMoney(t, 300, f.balance(t))
	assert.True(t, f.byReference(t, funding.Reference).BalanceApplied)
}

func TestDirectPurchaseWithBadDetailsCreditsPayment(t *testing.T) {
	f := newFixture(t, 0, delivered)
	funding := f.claimedFunding(t, 300)

	_, err := f.svc.PurchaseDirect(context.Background(), f.user.ID, directOrder(funding, `{"phone":"x"}`))
	require.ErrorIs(t, err, ledger.ErrValidation)

	assert.Zero(t, f.adapter.calls)
	assertMoney(t, 300, f.balance(t))
}

func TestDirectPurchaseUnderpaidCreditsPayment(t *testing.T) {
	f := newFixture(t, 0, delivered)
	funding := f.claimedFunding(t, 200)

	_, err := f.svc.PurchaseDirect(context.Background(), f.user.ID, directOrder(funding, airtimeDetails))
	require.ErrorIs(t, err, ledger.ErrValidation)

	assertMoney(t, 200, f.balance(t))
}

func TestCompensatorFailIsIdempotent(t *testing.T) {
	f := newFixture(t, 1000, delivered)
	db := f.db
	ctx := context.Background()

	txn, err := f.machine.Create(ctx, db, transaction.Draft{
		UserID:      f.user.ID,
		ProductType: transaction.ProductData,
		Direction:   transaction.DirectionDebit,
		Amount:      decimal.NewFromInt(400),
	})
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE users SET balance = balance - 400 WHERE id = ?`, f.user.ID)
	require.NoError(t, err)
	require.NoError(t, f.machine.MarkApplied(ctx, db, txn.ID))

	compensator := newCompensator(f)
	reversed, err := compensator.Fail(ctx, txn, "timeout", nil)
	require.NoError(t, err)
	assert.True(t, reversed)
	assertMoney(t, 1000, f.balance(t))

	reversed, err = compensator.Fail(ctx, txn, "timeout", nil)
	require.NoError(t, err)
	assert.False(t, reversed)
	assertMoney(t, 1000, f.balance(t))
}

func TestCompensatorRefusesCompleted(t *testing.T) {
	f := newFixture(t, 1000, delivered)

	res, err := f.svc.PurchaseAirtime(context.Background(), f.user.ID, airtimeReq(100))
	require.NoError(t, err)

	_, err = newCompensator(f).Fail(context.Background(), f.byReference(t, res.Reference), "late", nil)
	assert.ErrorIs(t, err, ledger.ErrInconsistency)
	assertMoney(t, 900, f.balance(t))
}
