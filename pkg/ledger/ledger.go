package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trustedfriends/loanbook/pkg/accrual"
	"github.com/trustedfriends/loanbook/pkg/models"
	"github.com/trustedfriends/loanbook/pkg/store"
)

// Input carries the staff-entered loan terms. Derived fields are never part
// of the input; the ledger recomputes them through the accrual engine.
type Input struct {
	ClientName         string
	DisbursedOn        *time.Time
	Principal          decimal.Decimal
	MonthlyRatePercent decimal.Decimal
	DurationMonths     int
	AdminFee           decimal.Decimal
	AmountRemitted     decimal.Decimal
}

// Ledger is the record-management layer: it validates business rules,
// assigns serial numbers, invokes the accrual engine on every create and
// edit, and owns the read-through loan cache.
type Ledger struct {
	storage store.Storage
	cache   *loanCache
	now     func() time.Time // injectable reference clock for accrual
	mu      sync.Mutex       // serializes serial assignment across writers
}

// NewLedger creates a new Ledger with a given Storage implementation.
// cacheTTL bounds how stale the cached loan list may get between writes;
// zero disables caching.
func NewLedger(s store.Storage, cacheTTL time.Duration) *Ledger {
	return &Ledger{
		storage: s,
		cache:   newLoanCache(cacheTTL),
		now:     time.Now,
	}
}

// SetClock replaces the wall clock used as the accrual reference instant.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

func validate(in Input) error {
	if strings.TrimSpace(in.ClientName) == "" {
		return fmt.Errorf("client name is required")
	}
	if !in.Principal.IsPositive() {
		return fmt.Errorf("principal must be positive")
	}
	if in.DurationMonths < 1 {
		return fmt.Errorf("duration must be at least one month")
	}
	return nil
}

// CreateLoan validates the input, assigns the next serial number and
// persists the loan with freshly computed derived fields.
func (l *Ledger) CreateLoan(in Input) (*models.Loan, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	serial, err := l.storage.NextSerial()
	if err != nil {
		return nil, fmt.Errorf("failed to assign serial: %w", err)
	}

	now := l.now()
	f := accrual.Calculate(in.Principal, in.MonthlyRatePercent, in.DurationMonths, in.AdminFee, in.AmountRemitted, in.DisbursedOn, now)

	loan := &models.Loan{
		Serial:             serial,
		ClientName:         strings.TrimSpace(in.ClientName),
		DisbursedOn:        in.DisbursedOn,
		Principal:          in.Principal,
		MonthlyRatePercent: in.MonthlyRatePercent,
		DurationMonths:     in.DurationMonths,
		AdminFee:           in.AdminFee,
		AmountRemitted:     in.AmountRemitted,
		Interest:           f.Interest,
		PenaltyCharged:     f.Penalty,
		TotalAddOns:        f.TotalAddOns,
		GrandTotal:         f.GrandTotal,
		Balance:            f.Balance,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := l.storage.CreateLoan(loan); err != nil {
		return nil, fmt.Errorf("failed to store loan: %w", err)
	}
	l.cache.invalidate()

	return loan, nil
}

// EditLoan replaces a loan's terms and recomputes its derived fields. A
// strictly positive penaltyOverride switches to the manual path: the entered
// penalty is stored verbatim and the balance is forced to zero. Otherwise
// the automatic accrual rules apply.
func (l *Ledger) EditLoan(serial int, in Input, penaltyOverride decimal.Decimal) (*models.Loan, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	loan, err := l.storage.GetLoanBySerial(serial)
	if err != nil {
		return nil, err
	}

	var f accrual.Figures
	if penaltyOverride.IsPositive() {
		f = accrual.CalculateWithOverride(in.Principal, in.MonthlyRatePercent, in.DurationMonths, in.AdminFee, penaltyOverride)
	} else {
		f = accrual.Calculate(in.Principal, in.MonthlyRatePercent, in.DurationMonths, in.AdminFee, in.AmountRemitted, in.DisbursedOn, l.now())
	}

	loan.ClientName = strings.TrimSpace(in.ClientName)
	loan.DisbursedOn = in.DisbursedOn
	loan.Principal = in.Principal
	loan.MonthlyRatePercent = in.MonthlyRatePercent
	loan.DurationMonths = in.DurationMonths
	loan.AdminFee = in.AdminFee
	loan.AmountRemitted = in.AmountRemitted
	loan.Interest = f.Interest
	loan.PenaltyCharged = f.Penalty
	loan.TotalAddOns = f.TotalAddOns
	loan.GrandTotal = f.GrandTotal
	loan.Balance = f.Balance
	loan.UpdatedAt = l.now()

	if err := l.storage.UpdateLoan(loan); err != nil {
		return nil, err
	}
	l.cache.invalidate()

	return loan, nil
}

// GetLoan retrieves a loan by its serial number.
func (l *Ledger) GetLoan(serial int) (*models.Loan, error) {
	return l.storage.GetLoanBySerial(serial)
}

// AllLoans retrieves all loans through the read-through cache. Callers must
// treat the returned records as read-only.
func (l *Ledger) AllLoans() ([]*models.Loan, error) {
	return l.cache.get(l.storage.GetAllLoans, l.now())
}

// DeleteLoan deletes a loan by serial. No cascading effects.
func (l *Ledger) DeleteLoan(serial int) error {
	if err := l.storage.DeleteLoan(serial); err != nil {
		return err
	}
	l.cache.invalidate()
	return nil
}

// ResetLoans wipes every loan record. Explicit admin action only.
func (l *Ledger) ResetLoans() error {
	if err := l.storage.DeleteAllLoans(); err != nil {
		return err
	}
	l.cache.invalidate()
	return nil
}

// RecordExpense stores a flat expense row. Negative amounts are allowed for
// corrections and equity adjustments.
func (l *Ledger) RecordExpense(category string, amount decimal.Decimal, incurredOn time.Time, description string) (*models.Expense, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("category is required")
	}

	e := &models.Expense{
		Category:    category,
		Amount:      amount,
		IncurredOn:  incurredOn,
		Description: description,
	}
	if err := l.storage.CreateExpense(e); err != nil {
		return nil, err
	}
	return e, nil
}

// RecordOtherIncome stores a flat non-loan income row.
func (l *Ledger) RecordOtherIncome(category string, amount decimal.Decimal, receivedOn time.Time, description string) (*models.OtherIncome, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("category is required")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}

	o := &models.OtherIncome{
		Category:    category,
		Amount:      amount,
		ReceivedOn:  receivedOn,
		Description: description,
	}
	if err := l.storage.CreateOtherIncome(o); err != nil {
		return nil, err
	}
	return o, nil
}
