package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/domain/user"
)

type Service struct {
	users user.Repository
}

func NewService(users user.Repository) *Service {
	return &Service{users: users}
}

// Balance returns the wallet summary, including the naira/kobo split.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*BalanceView, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &BalanceView{
		Balance:   u.Balance,
		Naira:     u.Balance.Truncate(0).IntPart(),
		Kobo:      u.Balance.Sub(u.Balance.Truncate(0)).Shift(2).Round(0).IntPart(),
		Formatted: FormatNaira(u.Balance),
		Points:    u.Points,
	}
	if u.LastFundedAt.Valid {
		t := u.LastFundedAt.Time
		view.LastFundedAt = &t
	}
	return view, nil
}

// FundingHistory lists the user's deposits, newest first.
func (s *Service) FundingHistory(ctx context.Context, userID uuid.UUID, limit int) ([]user.FundingRecord, error) {
	return s.users.ListFundingHistory(ctx, userID, limit)
}

// FormatNaira renders an amount as ₦1,234.50.
func FormatNaira(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	fixed := amount.StringFixed(2)
	whole, frac := fixed[:len(fixed)-3], fixed[len(fixed)-2:]

	var grouped []byte
	for i, c := range []byte(whole) {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, c)
	}
	return fmt.Sprintf("%s₦%s.%s", sign, grouped, frac)
}
