package user

import (
	"errors"
	"fmt"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", ledger.ErrNotFound)
	ErrEmailAlreadyExists = errors.New("email already exists")
)
