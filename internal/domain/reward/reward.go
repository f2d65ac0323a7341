// Package reward credits loyalty points for purchases and converts them to wallet balance.
package reward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/config"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
	"github.com/quickbills/billpay-api/internal/domain/user"
	"github.com/quickbills/billpay-api/internal/domain/wallet"
	"github.com/quickbills/billpay-api/internal/pkg/database"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
)

var ErrNotEnoughPoints = errors.New("not enough points to convert")

// Conversion is the result of turning points into wallet balance.
type Conversion struct {
	ConvertedPoints int             `json:"converted_points"`
	AmountAdded     decimal.Decimal `json:"amount_added"`
	RemainingPoints int             `json:"remaining_points"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	Reference       string          `json:"reference"`
}

type Service struct {
	db      *sqlx.DB
	tariff  config.Tariff
	guard   *wallet.Guard
	machine *transaction.Machine
}

func NewService(db *sqlx.DB, tariff config.Tariff, guard *wallet.Guard, machine *transaction.Machine) *Service {
	return &Service{db: db, tariff: tariff, guard: guard, machine: machine}
}

// Award adds the product's point weight. It runs on the caller's querier so the
// points land in the same DB transaction that completes the purchase.
func (s *Service) Award(ctx context.Context, q database.Querier, userID uuid.UUID, product transaction.ProductType) (int, error) {
	points := s.tariff.PointsFor(string(product))
	if points <= 0 {
		return 0, nil
	}

	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE users SET points = points + ?, updated_at = ? WHERE id = ?`),
		points, time.Now().UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("award points: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, fmt.Errorf("award points: %w", err)
	} else if n == 0 {
		return 0, user.ErrUserNotFound
	}
	return points, nil
}

// Convert turns every whole block of points into balance at the tariff rate.
// The point deduction, the credit and its ledger record commit together.
func (s *Service) Convert(ctx context.Context, userID uuid.UUID) (*Conversion, error) {
	block := s.tariff.PointsBlock
	if block <= 0 {
		block = 100
	}

	var result Conversion
	err := database.WithTx(ctx, s.db, func(q database.Querier) error {
		u, err := user.Get(ctx, q, userID)
		if err != nil {
			return err
		}

		blocks := u.Points / block
		if blocks == 0 {
			return ErrNotEnoughPoints
		}
		spent := blocks * block
		amount := s.tariff.PointsBlockValue.Mul(decimal.NewFromInt(int64(blocks)))

		// guarded by points >= spent so a concurrent conversion cannot double-spend
		res, err := q.ExecContext(ctx, q.Rebind(`
			UPDATE users SET points = points - ?, updated_at = ? WHERE id = ? AND points >= ?
		`), spent, time.Now().UTC(), userID, spent)
		if err != nil {
			return fmt.Errorf("deduct points: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("deduct points: %w", err)
		} else if n == 0 {
			return ErrNotEnoughPoints
		}

		if err := s.guard.Apply(ctx, q, userID, amount, transaction.DirectionCredit, nil); err != nil {
			return err
		}

		txn, err := s.machine.Create(ctx, q, transaction.Draft{
			UserID:         userID,
			ProductType:    transaction.ProductPointsConversion,
			Direction:      transaction.DirectionCredit,
			Amount:         amount,
			Provider:       "rewards",
			Message:        fmt.Sprintf("converted %d points", spent),
			Metadata:       map[string]any{"points": spent},
			Status:         transaction.StatusCompleted,
			BalanceApplied: true,
		})
		if err != nil {
			return err
		}

		after, err := user.Get(ctx, q, userID)
		if err != nil {
			return err
		}

		result = Conversion{
			ConvertedPoints: spent,
			AmountAdded:     amount,
			RemainingPoints: after.Points,
			NewBalance:      after.Balance,
			Reference:       txn.Reference,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Int("points", result.ConvertedPoints).
		Str("amount", result.AmountAdded.String()).
		Str("reference", result.Reference).
		Msg("points converted")
	return &result, nil
}
