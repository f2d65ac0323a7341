package transaction

import (
	"fmt"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
)

var (
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ledger.ErrNotFound)
	ErrNotRefundable       = fmt.Errorf("%w: only completed debit purchases can be refunded", ledger.ErrValidation)
	ErrAlreadyRefunded     = fmt.Errorf("%w: transaction already refunded", ledger.ErrDuplicateReference)
)
