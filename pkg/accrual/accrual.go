// Package accrual derives a loan's interest, penalty, totals and outstanding
// balance from its terms and repayment state. Everything here is a pure
// function of its inputs; callers inject the reference time.
package accrual

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used for disbursement dates.
const DateLayout = "2006-01-02"

// avgDaysPerMonth approximates the average month length when projecting the
// due date. Deliberately not calendar-month arithmetic.
const avgDaysPerMonth = 30.437

// overdueBlockDays is the length of one overdue "month". Note the mismatch
// with avgDaysPerMonth: the due date is offset in 30.437-day months but
// overdue time is counted in 30-day blocks. That is the observed production
// behavior and is kept as-is pending confirmation from the product owners.
const overdueBlockDays = 30

var (
	oneHundred         = decimal.NewFromInt(100)
	monthlyPenaltyRate = decimal.NewFromFloat(0.10) // of principal, per overdue month
)

// Figures holds the five derived loan values, each rounded to 2 decimal
// places.
type Figures struct {
	Interest    decimal.Decimal
	Penalty     decimal.Decimal
	TotalAddOns decimal.Decimal
	GrandTotal  decimal.Decimal
	Balance     decimal.Decimal
}

// ParseDate parses a disbursement date. Any failure yields nil rather than
// an error: an unparseable or absent date means the loan is simply treated
// as not overdue (the fail-safe-to-no-penalty policy), so there is nothing
// for the caller to handle.
func ParseDate(s string) *time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// MonthsOverdue returns the number of whole 30-day blocks elapsed between
// the loan's projected due date and asOf. The due date is the disbursement
// date plus round(durationMonths * 30.437) days. A nil disbursement date or
// an asOf at or before the due date yields 0.
func MonthsOverdue(disbursedOn *time.Time, durationMonths int, asOf time.Time) int {
	if disbursedOn == nil {
		return 0
	}
	termDays := int(math.Round(float64(durationMonths) * avgDaysPerMonth))
	due := disbursedOn.AddDate(0, 0, termDays)
	if !asOf.After(due) {
		return 0
	}
	elapsedDays := int(asOf.Sub(due).Hours() / 24)
	return elapsedDays / overdueBlockDays
}

// Calculate computes the derived fields for a loan under the automatic
// penalty rules:
//
//	interest = principal * rate/100 * durationMonths (flat, non-compounding)
//	penalty  = principal * 0.10 * overdue months (linear, uncapped)
//
// If principal + adminFee + interest - amountRemitted <= 0 the loan is
// already effectively satisfied and the penalty is forced to zero; the test
// deliberately excludes any prior penalty to avoid a circular dependency.
// Balance is grand total minus amount remitted, floored at zero.
//
// Calculate is total over its numeric domain. Business-rule validation
// (non-empty name, positive principal) is the caller's job.
func Calculate(principal, ratePercent decimal.Decimal, durationMonths int, adminFee, amountRemitted decimal.Decimal, disbursedOn *time.Time, asOf time.Time) Figures {
	interest := principal.Mul(ratePercent).Div(oneHundred).Mul(decimal.NewFromInt(int64(durationMonths)))

	overdue := MonthsOverdue(disbursedOn, durationMonths, asOf)
	penalty := principal.Mul(monthlyPenaltyRate).Mul(decimal.NewFromInt(int64(overdue)))

	provisional := principal.Add(adminFee).Add(interest).Sub(amountRemitted)
	if provisional.LessThanOrEqual(decimal.Zero) {
		penalty = decimal.Zero
	}

	totalAddOns := adminFee.Add(interest).Add(penalty)
	grandTotal := principal.Add(totalAddOns)
	balance := grandTotal.Sub(amountRemitted)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	return Figures{
		Interest:    interest.Round(2),
		Penalty:     penalty.Round(2),
		TotalAddOns: totalAddOns.Round(2),
		GrandTotal:  grandTotal.Round(2),
		Balance:     balance.Round(2),
	}
}

// CalculateWithOverride computes the derived fields when staff supply a
// manual penalty on the edit path. The automatic penalty rules and the
// satisfied-loan zero trigger are bypassed: the penalty is taken verbatim
// and the balance is forced to exactly zero regardless of the amount
// remitted.
func CalculateWithOverride(principal, ratePercent decimal.Decimal, durationMonths int, adminFee, manualPenalty decimal.Decimal) Figures {
	interest := principal.Mul(ratePercent).Div(oneHundred).Mul(decimal.NewFromInt(int64(durationMonths)))
	totalAddOns := adminFee.Add(interest).Add(manualPenalty)
	grandTotal := principal.Add(totalAddOns)

	return Figures{
		Interest:    interest.Round(2),
		Penalty:     manualPenalty.Round(2),
		TotalAddOns: totalAddOns.Round(2),
		GrandTotal:  grandTotal.Round(2),
		Balance:     decimal.Zero,
	}
}
