package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/pkg/database"
)

// Guard is the only code path that changes a wallet balance.
// Every operation is a single conditional statement, so concurrent callers can
// never drive a balance below zero or lose an update.
//
// Results are rounded to kobo in SQL. SQLite keeps NUMERIC columns as REAL, and
// without the rounding repeated credits accumulate binary error.
type Guard struct{}

func NewGuard() *Guard {
	return &Guard{}
}

// Reserve atomically subtracts amount if the balance covers it.
// On failure nothing is written.
func (g *Guard) Reserve(ctx context.Context, q database.Querier, userID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE users SET balance = ROUND(balance - ?, 2), updated_at = ?
		WHERE id = ? AND balance >= ?
	`), amount, time.Now().UTC(), userID, amount)
	if err != nil {
		return fmt.Errorf("reserve balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve balance: %w", err)
	}
	if n == 1 {
		return nil
	}

	exists, err := userExists(ctx, q, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return ErrInsufficientFunds
}

// Apply commits a balance change in the given direction. Debits go through Reserve.
// A credit carrying a FundingEntry also appends funding history and stamps last_funded_at.
func (g *Guard) Apply(ctx context.Context, q database.Querier, userID uuid.UUID, amount decimal.Decimal, dir transaction.Direction, funding *FundingEntry) error {
	switch dir {
	case transaction.DirectionDebit:
		return g.Reserve(ctx, q, userID, amount)
	case transaction.DirectionCredit:
		return g.credit(ctx, q, userID, amount, funding)
	default:
		return ErrInvalidDirection
	}
}

// Rollback reverses a prior Apply of the same amount and direction.
// The caller decides whether the original Apply happened.
func (g *Guard) Rollback(ctx context.Context, q database.Querier, userID uuid.UUID, amount decimal.Decimal, dir transaction.Direction) error {
	if dir != transaction.DirectionCredit && dir != transaction.DirectionDebit {
		return ErrInvalidDirection
	}
	return g.Apply(ctx, q, userID, amount, dir.Opposite(), nil)
}

func (g *Guard) credit(ctx context.Context, q database.Querier, userID uuid.UUID, amount decimal.Decimal, funding *FundingEntry) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	now := time.Now().UTC()
	query := `UPDATE users SET balance = ROUND(balance + ?, 2), updated_at = ? WHERE id = ?`
	args := []any{amount, now, userID}
	if funding != nil {
		query = `UPDATE users SET balance = ROUND(balance + ?, 2), updated_at = ?, last_funded_at = ? WHERE id = ?`
		args = []any{amount, now, now, userID}
	}

	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}

	if funding == nil {
		return nil
	}

	_, err = q.ExecContext(ctx, q.Rebind(`
		INSERT INTO funding_history (id, user_id, amount, payment_method, reference, status, created_at)
		VALUES (?, ?, ?, ?, ?, 'successful', ?)
	`), uuid.New(), userID, amount, funding.PaymentMethod, funding.Reference, now)
	if err != nil {
		return fmt.Errorf("append funding history: %w", err)
	}
	return nil
}

func userExists(ctx context.Context, q database.Querier, userID uuid.UUID) (bool, error) {
	var count int
	if err := q.GetContext(ctx, &count, q.Rebind(`SELECT COUNT(*) FROM users WHERE id = ?`), userID); err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return count > 0, nil
}
