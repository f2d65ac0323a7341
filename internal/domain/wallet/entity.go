package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundingEntry is appended to funding_history when a credit comes from a deposit.
type FundingEntry struct {
	PaymentMethod string
	Reference     string
}

// BalanceView is the wallet summary returned to the account holder.
type BalanceView struct {
	Balance      decimal.Decimal `json:"balance"`
	Naira        int64           `json:"naira"`
	Kobo         int64           `json:"kobo"`
	Formatted    string          `json:"formatted"`
	Points       int             `json:"points"`
	LastFundedAt *time.Time      `json:"last_funded_at,omitempty"`
}
