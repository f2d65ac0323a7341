package purchase

import (
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/domain/transaction"
)

type AirtimeRequest struct {
	Phone    string          `json:"phone" validate:"required,phone"`
	Provider string          `json:"provider" validate:"required,max=20"`
	Amount   decimal.Decimal `json:"amount" validate:"money"`
}

type DataRequest struct {
	Phone    string          `json:"phone" validate:"required,phone"`
	Provider string          `json:"provider" validate:"required,max=20"`
	Plan     string          `json:"plan" validate:"required,max=100"`
	Amount   decimal.Decimal `json:"amount" validate:"money"`
}

type ElectricityRequest struct {
	MeterNumber string          `json:"meterNumber" validate:"required,numeric,min=6,max=20"`
	MeterType   string          `json:"meterType" validate:"meter_type"`
	Provider    string          `json:"provider" validate:"required,max=50"`
	Amount      decimal.Decimal `json:"amount" validate:"money"`
}

type TVRequest struct {
	SmartCardNumber string          `json:"smartCardNumber" validate:"required,numeric,min=6,max=20"`
	Provider        string          `json:"provider" validate:"required,max=20"`
	Plan            string          `json:"plan" validate:"required,max=100"`
	Amount          decimal.Decimal `json:"amount" validate:"money"`
}

// Result is returned for a completed purchase.
type Result struct {
	Reference       string                     `json:"reference"`
	Status          transaction.Status         `json:"status"`
	ProductType     transaction.ProductType    `json:"product_type"`
	Amount          decimal.Decimal            `json:"amount"`
	Total           decimal.Decimal            `json:"total"`
	Balance         decimal.Decimal            `json:"balance"`
	PointsEarned    int                        `json:"points_earned"`
	Message         string                     `json:"message,omitempty"`
	ProviderPayload transaction.JSONRawMessage `json:"provider_payload,omitempty"`
}
