package purchase

import (
	"errors"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
)

var ErrUnknownProduct = errors.New("unknown product type")

// Failure is returned for a purchase that got as far as creating its transaction.
type Failure = ledger.ReferenceError

func fail(reference string, err error) error {
	return ledger.WithReference(reference, err)
}
