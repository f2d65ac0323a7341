package funding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/domain/purchase"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/user"
	"github.com/quickbills/billpay-api/internal/domain/wallet"
	"github.com/quickbills/billpay-api/internal/pkg/database"
	"github.com/quickbills/billpay-api/internal/pkg/locker"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/metrics"
	"github.com/quickbills/billpay-api/internal/pkg/paystack"
)

const lockTTL = 30 * time.Second

// DirectPurchaser fulfils a product paid for at the gateway.
type DirectPurchaser interface {
	PurchaseDirect(ctx context.Context, userID uuid.UUID, order purchase.DirectOrder) (*purchase.Result, error)
}

// Event is one "payment succeeded" notice, from a webhook or a verify call.
type Event struct {
	Reference string
	// Amount is in naira.
	Amount   decimal.Decimal
	Channel  string
	Email    string
	Metadata json.RawMessage
	// UserID is used when the metadata carries none.
	UserID uuid.UUID
	Source string
}

type ApplyResult struct {
	Applied   bool
	Direct    bool
	Reference string
	Purchase  *purchase.Result
}

// Reconciler is the one place gateway payments become ledger entries. Webhooks
// and client verification both land here and converge on the same conditional
// upsert, so a payment is applied at most once however often it is reported.
type Reconciler struct {
	db        *sqlx.DB
	machine   *transaction.Machine
	guard     *wallet.Guard
	purchases DirectPurchaser
	locks     locker.Locker
}

func NewReconciler(db *sqlx.DB, machine *transaction.Machine, guard *wallet.Guard, purchases DirectPurchaser, locks locker.Locker) *Reconciler {
	if locks == nil {
		locks = locker.Noop{}
	}
	return &Reconciler{db: db, machine: machine, guard: guard, purchases: purchases, locks: locks}
}

// HandleEvent dispatches a webhook delivery.
func (r *Reconciler) HandleEvent(ctx context.Context, e paystack.Event) error {
	log := logger.FromContext(ctx)

	switch e.Event {
	case paystack.EventChargeSuccess:
		charge, err := e.Charge()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedMetadata, err)
		}
		_, err = r.ApplyFunding(ctx, Event{
			Reference: charge.Reference,
			Amount:    charge.Naira(),
			Channel:   charge.Channel,
			Email:     charge.Customer.Email,
			Metadata:  charge.Metadata,
			Source:    "webhook",
		})
		return err

	case paystack.EventChargeFailed:
		charge, err := e.Charge()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedMetadata, err)
		}
		return r.MarkFailed(ctx, charge.Reference, charge.GatewayResponse)

	case paystack.EventTransferSuccess:
		log.Info().RawJSON("data", e.Data).Msg("transfer succeeded")
		return nil

	default:
		log.Debug().Str("event", e.Event).Msg("ignoring gateway event")
		return nil
	}
}

// ApplyFunding records a successful payment exactly once. A wallet top-up is
// credited in the same DB transaction that completes the record. A direct
// payment is claimed the same way and then handed to the purchase flow.
func (r *Reconciler) ApplyFunding(ctx context.Context, ev Event) (*ApplyResult, error) {
	log := logger.FromContext(ctx).With().
		Str("reference", ev.Reference).
		Str("source", ev.Source).
		Logger()
	ctx = logger.WithContext(ctx, &log)

	result, err := r.applyFunding(ctx, ev)
	switch {
	case err != nil && IsPermanent(err):
		metrics.FundingTotal.WithLabelValues(ev.Source, "dropped").Inc()
	case err != nil:
		metrics.FundingTotal.WithLabelValues(ev.Source, "failed").Inc()
	case result.Applied:
		metrics.FundingTotal.WithLabelValues(ev.Source, "applied").Inc()
	default:
		metrics.FundingTotal.WithLabelValues(ev.Source, "duplicate").Inc()
	}
	return result, err
}

func (r *Reconciler) applyFunding(ctx context.Context, ev Event) (*ApplyResult, error) {
	log := logger.FromContext(ctx)

	if ev.Reference == "" {
		return nil, ledger.NewValidationError("reference", "required")
	}
	if !ev.Amount.IsPositive() {
		return nil, ledger.NewValidationError("amount", "must be positive")
	}

	meta, err := ParseMetadata(ev.Metadata)
	if err != nil {
		return nil, err
	}
	userID := meta.User()
	if userID == uuid.Nil {
		userID = ev.UserID
	}
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing userId", ErrMalformedMetadata)
	}

	release, err := r.locks.Acquire(ctx, "funding:"+ev.Reference, lockTTL)
	switch {
	case errors.Is(err, locker.ErrLocked):
		return nil, ErrInProgress
	case err != nil:
		log.Warn().Err(err).Msg("lock unavailable, relying on conditional upsert")
	default:
		defer release()
	}

	direct := meta.IsDirect()
	result := &ApplyResult{Reference: ev.Reference, Direct: direct}
	var funding *transaction.Transaction
	var conflict error

	// The whole decision runs on ledger state; a client disconnect must not
	// abort it halfway.
	dbCtx := context.WithoutCancel(ctx)

	err = database.WithTx(dbCtx, r.db, func(q database.Querier) error {
		result.Applied, conflict = false, nil

		if _, err := user.Get(dbCtx, q, userID); err != nil {
			return err
		}

		metadata, err := json.Marshal(map[string]any{
			"email":          ev.Email,
			"payment_method": ev.Channel,
			"payment_type":   meta.PaymentType,
			"product_type":   meta.ProductType,
		})
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}

		claimed, err := r.claim(dbCtx, q, userID, ev, !direct, metadata)
		if err != nil {
			return err
		}

		if !claimed {
			existing, err := r.machine.GetByReference(dbCtx, q, ev.Reference)
			if err != nil {
				return err
			}
			if existing.Status == transaction.StatusCompleted &&
				existing.ProductType == transaction.ProductWalletFunding && existing.UserID == userID {
				return nil
			}

			conflict = fmt.Errorf("%w: payment %s reported successful but record is %s %s",
				ledger.ErrInconsistency, ev.Reference, existing.ProductType, existing.Status)
			if existing.ReviewReason.Valid {
				return nil
			}
			return r.machine.FlagForReview(dbCtx, q, existing.ID, "gateway reported success: "+conflict.Error())
		}

		result.Applied = true
		if direct {
			funding, err = r.machine.GetByReference(dbCtx, q, ev.Reference)
			return err
		}

		method := ev.Channel
		if method == "" {
			method = "paystack"
		}
		return r.guard.Apply(dbCtx, q, userID, ev.Amount, transaction.DirectionCredit, &wallet.FundingEntry{
			PaymentMethod: method,
			Reference:     ev.Reference,
		})
	})
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		metrics.InconsistenciesTotal.WithLabelValues("funding").Inc()
		logger.Inconsistency(ctx, conflict).Msg("payment conflicts with ledger record")
		return result, conflict
	}
	if !result.Applied {
		log.Info().Msg("payment already applied")
		return result, nil
	}

	if !direct {
		log.Info().Str("amount", ev.Amount.String()).Str("user_id", userID.String()).Msg("wallet funded")
		return result, nil
	}

	res, err := r.purchases.PurchaseDirect(dbCtx, userID, purchase.DirectOrder{
		ProductType:      transaction.ProductType(meta.ProductType),
		Details:          meta.ServiceDetails,
		PaidAmount:       ev.Amount,
		FundingID:        funding.ID,
		FundingReference: funding.Reference,
	})
	if err != nil {
		// The purchase flow returns the payment to the wallet on failure.
		log.Warn().Err(err).Msg("direct purchase failed, payment credited to wallet")
		return result, nil
	}
	result.Purchase = res
	log.Info().Str("purchase_reference", res.Reference).Msg("direct purchase completed")
	return result, nil
}

// claim completes the funding record for this reference in one statement:
// insert it, or flip an existing pending wallet_funding row of the same user.
// Any other existing row is left alone and claim reports false.
func (r *Reconciler) claim(ctx context.Context, q database.Querier, userID uuid.UUID, ev Event, applied bool, metadata []byte) (bool, error) {
	now := time.Now().UTC()
	res, err := q.ExecContext(ctx, q.Rebind(`
		INSERT INTO transactions (
			id, user_id, product_type, direction, amount, total, provider, reference, status,
			balance_applied, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, 'paystack', ?, 'completed', ?, ?, ?, ?)
		ON CONFLICT (reference) DO UPDATE SET
			status = 'completed',
			amount = excluded.amount,
			total = excluded.total,
			balance_applied = excluded.balance_applied,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
		WHERE transactions.status = 'pending'
			AND transactions.product_type = excluded.product_type
			AND transactions.user_id = excluded.user_id
	`), uuid.New(), userID, transaction.ProductWalletFunding, transaction.DirectionCredit,
		ev.Amount, ev.Amount, ev.Reference, applied, transaction.JSONRawMessage(metadata), now, now)
	if err != nil {
		return false, fmt.Errorf("claim payment %s: %w", ev.Reference, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim payment %s: %w", ev.Reference, err)
	}
	return n == 1, nil
}

// MarkFailed records a failed charge on its pending funding record.
// Unknown references are ignored; a charge.failed for a completed record is an inconsistency.
func (r *Reconciler) MarkFailed(ctx context.Context, reference, gatewayResponse string) error {
	log := logger.FromContext(ctx).With().Str("reference", reference).Logger()

	txn, err := r.machine.GetByReference(ctx, r.db, reference)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			log.Info().Msg("failed charge for unknown reference")
			return nil
		}
		return err
	}
	if txn.ProductType != transaction.ProductWalletFunding {
		return fmt.Errorf("%w: failed charge for %s transaction %s", ledger.ErrInconsistency, txn.ProductType, reference)
	}

	message := gatewayResponse
	if message == "" {
		message = "payment failed"
	}
	changed, err := r.machine.Finalize(context.WithoutCancel(ctx), r.db, txn.ID, transaction.Outcome{
		Status:  transaction.StatusFailed,
		Message: message,
	})
	if err != nil {
		metrics.InconsistenciesTotal.WithLabelValues("funding").Inc()
		return err
	}
	if changed {
		metrics.FundingTotal.WithLabelValues("webhook", "failed").Inc()
		log.Info().Str("gateway_response", gatewayResponse).Msg("payment marked failed")
	}
	return nil
}
