package errorhandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/quickbills/billpay-api/internal/domain/ledger"
	"github.com/quickbills/billpay-api/internal/pkg/logger"
	"github.com/quickbills/billpay-api/internal/pkg/response"
)

// referenced is implemented by errors that know which transaction they belong to.
type referenced interface {
	TransactionReference() string
}

// HandleError maps a ledger error to the HTTP envelope and logs it.
// Internal detail is logged only; the client sees a stable code, a short message and
// the transaction reference when one exists.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, reference, operation string) {
	var ref referenced
	if reference == "" && errors.As(err, &ref) {
		reference = ref.TransactionReference()
	}

	status, code, message := classify(err)

	reqLog := logger.FromContext(ctx)
	event := reqLog.Warn()
	if status >= http.StatusInternalServerError {
		event = reqLog.Error()
	}
	event.
		Err(err).
		Str("operation", operation).
		Str("reference", reference).
		Str("error_code", code).
		Int("status_code", status).
		Msg("Request error")

	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		response.ValidationError(w, verr.Fields)
		return
	}

	response.ErrorWithReference(w, status, code, message, reference)
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusConflict, "INSUFFICIENT_FUNDS", "Insufficient wallet balance"
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Resource not found"
	case errors.Is(err, ledger.ErrUpstreamFailure):
		return http.StatusBadGateway, "UPSTREAM_FAILURE", "The provider could not complete this request"
	case errors.Is(err, ledger.ErrSignatureInvalid):
		return http.StatusUnauthorized, "INVALID_SIGNATURE", "Invalid signature"
	case errors.Is(err, ledger.ErrUnderReview):
		return http.StatusConflict, "UNDER_REVIEW", "Transaction is under review"
	case errors.Is(err, ledger.ErrDuplicateReference):
		return http.StatusConflict, "DUPLICATE_REFERENCE", "Reference already used"
	case errors.Is(err, ledger.ErrInconsistency):
		return http.StatusConflict, "INCONSISTENT_STATE", "Transaction state conflict"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "Request timed out"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"
	}
}
