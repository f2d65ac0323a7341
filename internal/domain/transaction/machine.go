package transaction

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/pkg/database"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
)

const transactionColumns = `id, user_id, product_type, direction, amount, total, provider, reference, status,
	balance_applied, phone, meter_number, meter_type, smart_card_number, plan, message, provider_payload,
	metadata, original_transaction_id, review_reason, created_at, updated_at`

// Machine owns every status transition of a transaction.
// Mutating methods take a Querier so they can share a DB transaction with the balance change.
type Machine struct {
	db *sqlx.DB
}

func NewMachine(db *sqlx.DB) *Machine {
	return &Machine{db: db}
}

// DB exposes the underlying handle for callers composing their own transactions.
func (m *Machine) DB() *sqlx.DB {
	return m.db
}

// Create records a new transaction. References are unique; a collision returns
// ledger.ErrDuplicateReference and writes nothing.
func (m *Machine) Create(ctx context.Context, q database.Querier, d Draft) (*Transaction, error) {
	if !d.ProductType.IsValid() {
		return nil, ledger.NewValidationError("product_type", "unknown product type")
	}
	if d.Direction != DirectionCredit && d.Direction != DirectionDebit {
		return nil, ledger.NewValidationError("direction", "must be credit or debit")
	}
	if !d.Amount.IsPositive() {
		return nil, ledger.NewValidationError("amount", "must be positive")
	}
	if d.Total.IsZero() {
		d.Total = d.Amount
	}
	if d.Reference == "" {
		d.Reference = NewReference(d.ProductType)
	}
	if d.Status == "" {
		d.Status = StatusPending
	}

	var metadata JSONRawMessage
	if len(d.Metadata) > 0 {
		raw, err := json.Marshal(d.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = raw
	}

	now := time.Now().UTC()
	t := &Transaction{
		ID:                    uuid.New(),
		UserID:                d.UserID,
		ProductType:           d.ProductType,
		Direction:             d.Direction,
		Amount:                d.Amount,
		Total:                 d.Total,
		Provider:              d.Provider,
		Reference:             d.Reference,
		Status:                d.Status,
		BalanceApplied:        d.BalanceApplied,
		Phone:                 nullString(d.Phone),
		MeterNumber:           nullString(d.MeterNumber),
		MeterType:             nullString(d.MeterType),
		SmartCardNumber:       nullString(d.SmartCardNumber),
		Plan:                  nullString(d.Plan),
		Message:               nullString(d.Message),
		Metadata:              metadata,
		OriginalTransactionID: d.OriginalTransactionID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	query := q.Rebind(`
		INSERT INTO transactions (
			id, user_id, product_type, direction, amount, total, provider, reference, status,
			balance_applied, phone, meter_number, meter_type, smart_card_number, plan, message,
			metadata, original_transaction_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (reference) DO NOTHING
	`)

	res, err := q.ExecContext(ctx, query,
		t.ID, t.UserID, t.ProductType, t.Direction, t.Amount, t.Total, t.Provider, t.Reference, t.Status,
		t.BalanceApplied, t.Phone, t.MeterNumber, t.MeterType, t.SmartCardNumber, t.Plan, t.Message,
		t.Metadata, t.OriginalTransactionID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("%w: %s", ledger.ErrDuplicateReference, t.Reference)
	}

	return t, nil
}

// MarkApplied records that the balance effect of a pending transaction is committed.
func (m *Machine) MarkApplied(ctx context.Context, q database.Querier, id uuid.UUID) error {
	return m.setApplied(ctx, q, id, true)
}

// ClearApplied records that a previously applied balance effect was reversed.
func (m *Machine) ClearApplied(ctx context.Context, q database.Querier, id uuid.UUID) error {
	return m.setApplied(ctx, q, id, false)
}

func (m *Machine) setApplied(ctx context.Context, q database.Querier, id uuid.UUID, applied bool) error {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE transactions SET balance_applied = ?, updated_at = ?
		WHERE id = ? AND status = 'pending' AND balance_applied = ?
	`), applied, time.Now().UTC(), id, !applied)
	if err != nil {
		return fmt.Errorf("set balance_applied: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set balance_applied: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: transaction %s is not pending with balance_applied=%t", ledger.ErrInconsistency, id, !applied)
	}
	return nil
}

// Finalize moves a pending transaction to completed or failed.
// Repeating the same outcome is a no-op (changed=false). A conflicting outcome
// returns ledger.ErrInconsistency and leaves the record untouched.
func (m *Machine) Finalize(ctx context.Context, q database.Querier, id uuid.UUID, out Outcome) (bool, error) {
	if !out.Status.IsTerminal() {
		return false, fmt.Errorf("finalize: %q is not a terminal status", out.Status)
	}

	var payload JSONRawMessage
	if len(out.ProviderPayload) > 0 && json.Valid(out.ProviderPayload) {
		payload = JSONRawMessage(out.ProviderPayload)
	}

	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE transactions
		SET status = ?, message = COALESCE(?, message), provider_payload = COALESCE(?, provider_payload), updated_at = ?
		WHERE id = ? AND status = 'pending'
	`), out.Status, nullString(out.Message), payload, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("finalize transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finalize transaction: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	current, err := get(ctx, q, `id = ?`, id)
	if err != nil {
		return false, err
	}
	if current.Status == out.Status {
		return false, nil
	}

	logger.Inconsistency(ctx, ledger.ErrInconsistency).
		Str("reference", current.Reference).
		Str("current_status", string(current.Status)).
		Str("requested_status", string(out.Status)).
		Msg("conflicting finalize rejected")
	return false, fmt.Errorf("%w: transaction %s is %s, refusing %s", ledger.ErrInconsistency, current.Reference, current.Status, out.Status)
}

// FlagForReview marks a pending transaction that needs manual attention.
// The reconciliation sweep reports flagged rows instead of expiring them.
func (m *Machine) FlagForReview(ctx context.Context, q database.Querier, id uuid.UUID, reason string) error {
	_, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE transactions SET review_reason = ?, updated_at = ? WHERE id = ?
	`), reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("flag transaction for review: %w", err)
	}
	return nil
}

// Get returns a transaction by ID.
func (m *Machine) Get(ctx context.Context, q database.Querier, id uuid.UUID) (*Transaction, error) {
	return get(ctx, q, `id = ?`, id)
}

// GetByReference returns a transaction by its unique reference.
func (m *Machine) GetByReference(ctx context.Context, q database.Querier, reference string) (*Transaction, error) {
	return get(ctx, q, `reference = ?`, reference)
}

func get(ctx context.Context, q database.Querier, where string, arg any) (*Transaction, error) {
	var t Transaction
	err := q.GetContext(ctx, &t, q.Rebind(`SELECT `+transactionColumns+` FROM transactions WHERE `+where), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

// ListByUser returns a page of the user's history, newest first, and the total match count.
func (m *Machine) ListByUser(ctx context.Context, userID uuid.UUID, f Filter) ([]Transaction, int, error) {
	f.normalize()

	where := `user_id = ?`
	args := []any{userID}
	if f.ProductType != "" {
		where += ` AND product_type = ?`
		args = append(args, f.ProductType)
	}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}

	var total int
	if err := m.db.GetContext(ctx, &total, m.db.Rebind(`SELECT COUNT(*) FROM transactions WHERE `+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	items := []Transaction{}
	query := m.db.Rebind(`SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	if err := m.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return items, total, nil
}

// ListStalePending returns purchase transactions still pending since before the cutoff.
func (m *Machine) ListStalePending(ctx context.Context, before time.Time, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	items := []Transaction{}
	query := m.db.Rebind(`SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = 'pending' AND product_type IN (?, ?, ?, ?) AND created_at < ?
		ORDER BY created_at
		LIMIT ?`)
	err := m.db.SelectContext(ctx, &items, query,
		ProductAirtime, ProductData, ProductElectricity, ProductTV, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale transactions: %w", err)
	}
	return items, nil
}

// ListUnsettledFunding returns completed direct-payment funding rows whose money
// reached neither a wallet nor a live purchase, typically after a crash between
// claiming the payment and starting the purchase.
func (m *Machine) ListUnsettledFunding(ctx context.Context, before time.Time, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	items := []Transaction{}
	query := m.db.Rebind(`SELECT ` + transactionColumns + ` FROM transactions f
		WHERE product_type = ? AND status = 'completed' AND balance_applied = ? AND updated_at < ?
		AND NOT EXISTS (
			SELECT 1 FROM transactions p
			WHERE p.original_transaction_id = f.id AND p.status IN ('pending', 'completed')
		)
		ORDER BY updated_at
		LIMIT ?`)
	err := m.db.SelectContext(ctx, &items, query, ProductWalletFunding, false, before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list unsettled funding: %w", err)
	}
	return items, nil
}
