package funding

import (
	"errors"
	"fmt"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
)

var (
	ErrMalformedMetadata = fmt.Errorf("%w: malformed payment metadata", ledger.ErrValidation)
	ErrInProgress        = errors.New("payment is being processed")
)

// IsPermanent reports errors that a redelivery of the same event cannot fix.
// They are logged and acknowledged; everything else asks the gateway to retry.
func IsPermanent(err error) bool {
	return errors.Is(err, ledger.ErrValidation) ||
		errors.Is(err, ledger.ErrNotFound) ||
		errors.Is(err, ledger.ErrInconsistency)
}
