package funding

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/domain/purchase"
	"github.com/quickbills/billpay-api/internal/domain/transaction"
)

type InitializeRequest struct {
	Amount         decimal.Decimal `json:"amount" validate:"money"`
	PaymentType    string          `json:"paymentType" validate:"payment_type"`
	ProductType    string          `json:"productType" validate:"required_if=PaymentType direct,omitempty,oneof=airtime data electricity tv"`
	ServiceDetails json.RawMessage `json:"serviceDetails,omitempty"`
}

type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type VerifyResponse struct {
	Reference string             `json:"reference"`
	Status    transaction.Status `json:"status"`
	Amount    decimal.Decimal    `json:"amount"`
	Applied   bool               `json:"applied"`
	Balance   decimal.Decimal    `json:"balance"`
	Purchase  *purchase.Result   `json:"purchase,omitempty"`
}
