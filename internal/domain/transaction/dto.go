package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Response is the client view of a transaction
type Response struct {
	ID                    uuid.UUID       `json:"id"`
	ProductType           ProductType     `json:"product_type"`
	Direction             Direction       `json:"direction"`
	Amount                decimal.Decimal `json:"amount"`
	Total                 decimal.Decimal `json:"total"`
	Provider              string          `json:"provider"`
	Reference             string          `json:"reference"`
	Status                Status          `json:"status"`
	Phone                 string          `json:"phone,omitempty"`
	MeterNumber           string          `json:"meter_number,omitempty"`
	MeterType             string          `json:"meter_type,omitempty"`
	SmartCardNumber       string          `json:"smart_card_number,omitempty"`
	Plan                  string          `json:"plan,omitempty"`
	Message               string          `json:"message,omitempty"`
	ProviderPayload       JSONRawMessage  `json:"provider_payload,omitempty"`
	OriginalTransactionID *uuid.UUID      `json:"original_transaction_id,omitempty"`
	UnderReview           bool            `json:"under_review,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// ResponseFromEntity converts a ledger row to its client view.
func ResponseFromEntity(t *Transaction) Response {
	r := Response{
		ID:              t.ID,
		ProductType:     t.ProductType,
		Direction:       t.Direction,
		Amount:          t.Amount,
		Total:           t.Total,
		Provider:        t.Provider,
		Reference:       t.Reference,
		Status:          t.Status,
		Phone:           t.Phone.String,
		MeterNumber:     t.MeterNumber.String,
		MeterType:       t.MeterType.String,
		SmartCardNumber: t.SmartCardNumber.String,
		Plan:            t.Plan.String,
		Message:         t.Message.String,
		ProviderPayload: t.ProviderPayload,
		UnderReview:     t.ReviewReason.Valid,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.OriginalTransactionID.Valid {
		id := t.OriginalTransactionID.UUID
		r.OriginalTransactionID = &id
	}
	return r
}
