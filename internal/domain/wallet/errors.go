package wallet

import (
	"errors"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/domain/user"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidDirection  = errors.New("direction must be credit or debit")
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	ErrUserNotFound      = user.ErrUserNotFound
)
