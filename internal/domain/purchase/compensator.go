package purchase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/wallet"
	"github.com/quickbills/billpay-api/internal/pkg/database"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/metrics"
)

// Compensator is the single path that fails a pending purchase. The record is
// re-read inside the DB transaction, an applied debit is reversed, and the row
// is finalized failed, all in one commit.
type Compensator struct {
	db      *sqlx.DB
	machine *transaction.Machine
	guard   *wallet.Guard
}

func NewCompensator(db *sqlx.DB, machine *transaction.Machine, guard *wallet.Guard) *Compensator {
	return &Compensator{db: db, machine: machine, guard: guard}
}

// Fail finalizes txn as failed. It reports whether a balance effect was reversed.
// Failing an already failed transaction is a no-op.
func (c *Compensator) Fail(ctx context.Context, txn *transaction.Transaction, message string, payload json.RawMessage) (bool, error) {
	reversed := false
	err := database.WithTx(ctx, c.db, func(q database.Querier) error {
		reversed = false
		current, err := c.machine.Get(ctx, q, txn.ID)
		if err != nil {
			return err
		}
		switch current.Status {
		case transaction.StatusFailed:
			return nil
		case transaction.StatusCompleted:
			return fmt.Errorf("%w: transaction %s already completed", ledger.ErrInconsistency, current.Reference)
		}

		if current.BalanceApplied {
			if err := c.guard.Rollback(ctx, q, current.UserID, current.Total, current.Direction); err != nil {
				return fmt.Errorf("rollback %s: %w", current.Reference, err)
			}
			if err := c.machine.ClearApplied(ctx, q, current.ID); err != nil {
				return err
			}
			reversed = true
		}

		// A failed direct purchase returns the gateway payment to the wallet.
		if current.OriginalTransactionID.Valid {
			credited, err := settleDirectFunding(ctx, q, c.machine, c.guard, current, decimal.Zero)
			if err != nil {
				return err
			}
			reversed = reversed || credited
		}

		_, err = c.machine.Finalize(ctx, q, current.ID, transaction.Outcome{
			Status:          transaction.StatusFailed,
			Message:         message,
			ProviderPayload: payload,
		})
		return err
	})
	if err != nil {
		metrics.RollbacksTotal.WithLabelValues("error").Inc()
		logger.Critical(ctx, err).
			Str("reference", txn.Reference).
			Str("user_id", txn.UserID.String()).
			Str("total", txn.Total.String()).
			Msg("compensation failed, transaction left pending for reconciliation")
		return false, err
	}

	if reversed {
		metrics.RollbacksTotal.WithLabelValues("ok").Inc()
		logger.FromContext(ctx).Info().
			Str("reference", txn.Reference).
			Str("total", txn.Total.String()).
			Msg("purchase rolled back")
	}
	return reversed, nil
}

// settleDirectFunding credits the unspent part of a direct gateway payment to the
// wallet. spent is what the purchase consumed; zero returns the whole payment.
// The funding row's balance_applied flag guards against a second credit.
func settleDirectFunding(ctx context.Context, q database.Querier, machine *transaction.Machine, guard *wallet.Guard,
	purchase *transaction.Transaction, spent decimal.Decimal) (bool, error) {
	funding, err := machine.Get(ctx, q, purchase.OriginalTransactionID.UUID)
	if err != nil {
		return false, err
	}
	if funding.ProductType != transaction.ProductWalletFunding {
		return false, nil
	}

	remainder := funding.Amount.Sub(spent)
	if !remainder.IsPositive() {
		return false, nil
	}

	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE transactions SET balance_applied = ?, updated_at = ?
		WHERE id = ? AND status = 'completed' AND balance_applied = ?
	`), true, time.Now().UTC(), funding.ID, false)
	if err != nil {
		return false, fmt.Errorf("settle direct funding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("settle direct funding: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	entry := &wallet.FundingEntry{PaymentMethod: "paystack_direct", Reference: funding.Reference}
	if err := guard.Apply(ctx, q, funding.UserID, remainder, transaction.DirectionCredit, entry); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseFunding credits a claimed direct payment that never reached a purchase.
func (c *Compensator) ReleaseFunding(ctx context.Context, funding *transaction.Transaction) (bool, error) {
	stub := &transaction.Transaction{
		UserID:                funding.UserID,
		OriginalTransactionID: uuid.NullUUID{UUID: funding.ID, Valid: true},
	}
	credited := false
	err := database.WithTx(ctx, c.db, func(q database.Querier) error {
		var err error
		credited, err = settleDirectFunding(ctx, q, c.machine, c.guard, stub, decimal.Zero)
		return err
	})
	if err != nil {
		logger.Critical(ctx, err).Str("reference", funding.Reference).Msg("could not release direct payment")
		return false, err
	}
	return credited, nil
}
