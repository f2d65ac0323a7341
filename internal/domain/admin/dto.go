package admin

import (
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/domain/transaction"
)

type RefundRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// RequestMeta carries the caller details recorded in the audit log.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type RefundResponse struct {
	Refund     transaction.Response `json:"refund"`
	Original   string               `json:"original_reference"`
	NewBalance decimal.Decimal      `json:"new_balance"`
}

type ResellerBalanceResponse struct {
	Username      string          `json:"username,omitempty"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
}

// TransactionDetail is the operator view of a ledger row.
type TransactionDetail struct {
	transaction.Response
	UserID         string                     `json:"user_id"`
	BalanceApplied bool                       `json:"balance_applied"`
	ReviewReason   string                     `json:"review_reason,omitempty"`
	Metadata       transaction.JSONRawMessage `json:"metadata,omitempty"`
}

func detailFromEntity(t *transaction.Transaction) TransactionDetail {
	return TransactionDetail{
		Response:       transaction.ResponseFromEntity(t),
		UserID:         t.UserID.String(),
		BalanceApplied: t.BalanceApplied,
		ReviewReason:   t.ReviewReason.String,
		Metadata:       t.Metadata,
	}
}
