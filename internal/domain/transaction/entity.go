package transaction

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a transaction.
// pending is the only non-terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ProductType identifies what a transaction bought or funded.
type ProductType string

const (
	ProductAirtime          ProductType = "airtime"
	ProductData             ProductType = "data"
	ProductElectricity      ProductType = "electricity"
	ProductTV               ProductType = "tv"
	ProductWalletFunding    ProductType = "wallet_funding"
	ProductRefund           ProductType = "refund"
	ProductPointsConversion ProductType = "points_conversion"
)

// IsPurchase reports whether the product is fulfilled by the reseller.
func (p ProductType) IsPurchase() bool {
	switch p {
	case ProductAirtime, ProductData, ProductElectricity, ProductTV:
		return true
	}
	return false
}

func (p ProductType) IsValid() bool {
	switch p {
	case ProductWalletFunding, ProductRefund, ProductPointsConversion:
		return true
	}
	return p.IsPurchase()
}

// Direction of the balance effect.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Opposite returns the direction that reverses d.
func (d Direction) Opposite() Direction {
	if d == DirectionCredit {
		return DirectionDebit
	}
	return DirectionCredit
}

// JSONRawMessage handles NULL json fields from DB
type JSONRawMessage []byte

func (j *JSONRawMessage) Scan(src any) error {
	if src == nil {
		*j = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = []byte(v)
	default:
		return fmt.Errorf("unsupported type: %T", src)
	}
	return nil
}

func (j JSONRawMessage) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j JSONRawMessage) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// Transaction is one ledger entry.
// BalanceApplied records whether the paired balance effect is committed.
type Transaction struct {
	ID                    uuid.UUID       `db:"id"`
	UserID                uuid.UUID       `db:"user_id"`
	ProductType           ProductType     `db:"product_type"`
	Direction             Direction       `db:"direction"`
	Amount                decimal.Decimal `db:"amount"`
	Total                 decimal.Decimal `db:"total"`
	Provider              string          `db:"provider"`
	Reference             string          `db:"reference"`
	Status                Status          `db:"status"`
	BalanceApplied        bool            `db:"balance_applied"`
	Phone                 sql.NullString  `db:"phone"`
	MeterNumber           sql.NullString  `db:"meter_number"`
	MeterType             sql.NullString  `db:"meter_type"`
	SmartCardNumber       sql.NullString  `db:"smart_card_number"`
	Plan                  sql.NullString  `db:"plan"`
	Message               sql.NullString  `db:"message"`
	ProviderPayload       JSONRawMessage  `db:"provider_payload"`
	Metadata              JSONRawMessage  `db:"metadata"`
	OriginalTransactionID uuid.NullUUID   `db:"original_transaction_id"`
	ReviewReason          sql.NullString  `db:"review_reason"`
	CreatedAt             time.Time       `db:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at"`
}

// Draft describes a transaction to be created.
type Draft struct {
	UserID          uuid.UUID
	ProductType     ProductType
	Direction       Direction
	Amount          decimal.Decimal
	Total           decimal.Decimal
	Provider        string
	Reference       string
	Phone           string
	MeterNumber     string
	MeterType       string
	SmartCardNumber string
	Plan            string
	Message         string
	Metadata        map[string]any

	OriginalTransactionID uuid.NullUUID

	// Status defaults to pending. Records whose balance effect is written in the
	// same DB transaction (refunds, conversions) are created completed.
	Status         Status
	BalanceApplied bool
}

// Outcome is the terminal result recorded by Finalize.
type Outcome struct {
	Status          Status
	Message         string
	ProviderPayload json.RawMessage
}

// Filter narrows a history listing.
type Filter struct {
	ProductType ProductType
	Status      Status
	Page        int
	Limit       int
}

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
