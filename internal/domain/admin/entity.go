package admin

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickbills/billpay-api/internal/domain/transaction"
)

// AuditLog represents an admin action record
type AuditLog struct {
	ID         uuid.UUID                  `db:"id" json:"id"`
	AdminID    uuid.NullUUID              `db:"admin_id" json:"admin_id,omitempty"`
	Action     string                     `db:"action" json:"action"`
	EntityType string                     `db:"entity_type" json:"entity_type"`
	EntityID   uuid.NullUUID              `db:"entity_id" json:"entity_id,omitempty"`
	OldValue   transaction.JSONRawMessage `db:"old_value" json:"old_value,omitempty"`
	NewValue   transaction.JSONRawMessage `db:"new_value" json:"new_value,omitempty"`
	Reason     sql.NullString             `db:"reason" json:"reason,omitempty"`
	IPAddress  sql.NullString             `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  sql.NullString             `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt  time.Time                  `db:"created_at" json:"created_at"`
}

// Audit actions
const (
	ActionRefund = "transaction.refund"
)

// DashboardStats is the ledger overview for operators
type DashboardStats struct {
	Users struct {
		Total    int `json:"total"`
		NewToday int `json:"new_today"`
	} `json:"users"`

	Wallets struct {
		TotalBalance decimal.Decimal `json:"total_balance"`
		TotalPoints  int             `json:"total_points"`
	} `json:"wallets"`

	Transactions struct {
		Pending     int `json:"pending"`
		Completed   int `json:"completed"`
		Failed      int `json:"failed"`
		UnderReview int `json:"under_review"`
	} `json:"transactions"`

	Volume struct {
		Purchases decimal.Decimal `json:"purchases"`
		Funding   decimal.Decimal `json:"funding"`
		Refunds   decimal.Decimal `json:"refunds"`
	} `json:"volume"`
}
