package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role represents user role in the system
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a wallet holder
type User struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	Fullname     string          `db:"fullname" json:"fullname"`
	Email        string          `db:"email" json:"email"`
	Phone        sql.NullString  `db:"phone" json:"-"`
	Role         Role            `db:"role" json:"role"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	Points       int             `db:"points" json:"points"`
	LastFundedAt sql.NullTime    `db:"last_funded_at" json:"-"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// IsAdmin returns true if user is an admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// FundingRecord is one entry of a user's append-only funding history.
type FundingRecord struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Reference     sql.NullString  `db:"reference" json:"-"`
	Status        string          `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
