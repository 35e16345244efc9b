package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Loan is one disbursed loan. Serial is the business identity, assigned
// monotonically by the ledger; ID is the storage row id. DisbursedOn may be
// nil for malformed historical rows and must be tolerated everywhere.
type Loan struct {
	ID                 int64           `json:"id"`
	Serial             int             `json:"serial"`
	ClientName         string          `json:"client_name"`
	DisbursedOn        *time.Time      `json:"disbursed_on,omitempty"`
	Principal          decimal.Decimal `json:"principal"`
	MonthlyRatePercent decimal.Decimal `json:"monthly_rate_percent"` // interest accrues per contractual month, not elapsed time
	DurationMonths     int             `json:"duration_months"`
	AdminFee           decimal.Decimal `json:"admin_fee"`
	AmountRemitted     decimal.Decimal `json:"amount_remitted"` // cumulative, entered by staff

	// Derived fields, recomputed by the ledger on every create/edit.
	Interest       decimal.Decimal `json:"interest"`
	PenaltyCharged decimal.Decimal `json:"penalty_charged"`
	TotalAddOns    decimal.Decimal `json:"total_add_ons"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Balance        decimal.Decimal `json:"balance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expense is a flat operating-expense row. Amount may be negative for
// corrections. The Owner's Equity Contribution category is stored here too
// and split out by the reporting layer.
type Expense struct {
	ID          int64           `json:"id"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	IncurredOn  time.Time       `json:"incurred_on"`
	Description string          `json:"description,omitempty"`
}

// OtherIncome is a flat non-loan revenue row.
type OtherIncome struct {
	ID          int64           `json:"id"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	ReceivedOn  time.Time       `json:"received_on"`
	Description string          `json:"description,omitempty"`
}

// User is a staff account. PasswordHash is a bcrypt hash and never leaves
// the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
