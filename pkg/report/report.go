// Package report aggregates persisted loan figures and transactional rows
// into financial summaries. It never re-invokes the accrual engine; derived
// fields are read back exactly as the ledger stored them.
package report

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trustedfriends/loanbook/pkg/store"
)

// EquityCategory is the expense category that records owner capital
// contributions. It is excluded from operating expenses and reported on its
// own line.
const EquityCategory = "Owner's Equity Contribution"

// Generator produces financial reports from a Storage implementation.
type Generator struct {
	storage store.Storage
}

// NewGenerator creates a report Generator over the given storage.
func NewGenerator(s store.Storage) *Generator {
	return &Generator{storage: s}
}

// ProfitLoss is a profit-and-loss statement for a reporting period.
type ProfitLoss struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`

	InterestIncome decimal.Decimal `json:"interest_income"`
	AdminFeeIncome decimal.Decimal `json:"admin_fee_income"`
	PenaltyIncome  decimal.Decimal `json:"penalty_income"`

	OtherIncome      map[string]decimal.Decimal `json:"other_income"`
	TotalOtherIncome decimal.Decimal            `json:"total_other_income"`
	TotalRevenue     decimal.Decimal            `json:"total_revenue"`

	Expenses      map[string]decimal.Decimal `json:"expenses"`
	TotalExpenses decimal.Decimal            `json:"total_expenses"`

	EquityContribution decimal.Decimal `json:"equity_contribution"`
	NetOperatingProfit decimal.Decimal `json:"net_operating_profit"`
	FinalNetPosition   decimal.Decimal `json:"final_net_position"`
}

// ProfitLoss builds a P&L statement for the period. Nil bounds are open, so
// ProfitLoss(nil, nil) covers all time. Loan revenue is filtered on the
// disbursement date; loans without one only contribute to the all-time view.
func (g *Generator) ProfitLoss(from, to *time.Time) (*ProfitLoss, error) {
	loans, err := g.storage.GetLoansBetween(from, to)
	if err != nil {
		return nil, err
	}
	expenses, err := g.storage.GetExpensesBetween(from, to)
	if err != nil {
		return nil, err
	}
	incomes, err := g.storage.GetOtherIncomeBetween(from, to)
	if err != nil {
		return nil, err
	}

	pl := &ProfitLoss{
		From:        from,
		To:          to,
		OtherIncome: make(map[string]decimal.Decimal),
		Expenses:    make(map[string]decimal.Decimal),
	}

	for _, loan := range loans {
		pl.InterestIncome = pl.InterestIncome.Add(loan.Interest)
		pl.AdminFeeIncome = pl.AdminFeeIncome.Add(loan.AdminFee)
		pl.PenaltyIncome = pl.PenaltyIncome.Add(loan.PenaltyCharged)
	}

	for _, o := range incomes {
		pl.OtherIncome[o.Category] = pl.OtherIncome[o.Category].Add(o.Amount)
		pl.TotalOtherIncome = pl.TotalOtherIncome.Add(o.Amount)
	}

	for _, e := range expenses {
		if e.Category == EquityCategory {
			pl.EquityContribution = pl.EquityContribution.Add(e.Amount)
			continue
		}
		pl.Expenses[e.Category] = pl.Expenses[e.Category].Add(e.Amount)
		pl.TotalExpenses = pl.TotalExpenses.Add(e.Amount)
	}

	pl.TotalRevenue = pl.InterestIncome.Add(pl.AdminFeeIncome).Add(pl.PenaltyIncome).Add(pl.TotalOtherIncome)
	pl.NetOperatingProfit = pl.TotalRevenue.Sub(pl.TotalExpenses)
	pl.FinalNetPosition = pl.NetOperatingProfit.Add(pl.EquityContribution)

	return pl, nil
}

// PortfolioSummary holds the dashboard KPI totals across all loans.
type PortfolioSummary struct {
	LoanCount        int             `json:"loan_count"`
	TotalPrincipal   decimal.Decimal `json:"total_principal"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TotalInterest    decimal.Decimal `json:"total_interest"`
	TotalRemitted    decimal.Decimal `json:"total_remitted"`
}

// PortfolioSummary sums the persisted figures over the whole ledger.
func (g *Generator) PortfolioSummary() (*PortfolioSummary, error) {
	loans, err := g.storage.GetAllLoans()
	if err != nil {
		return nil, err
	}

	s := &PortfolioSummary{LoanCount: len(loans)}
	for _, loan := range loans {
		s.TotalPrincipal = s.TotalPrincipal.Add(loan.Principal)
		s.TotalOutstanding = s.TotalOutstanding.Add(loan.Balance)
		s.TotalInterest = s.TotalInterest.Add(loan.Interest)
		s.TotalRemitted = s.TotalRemitted.Add(loan.AmountRemitted)
	}
	return s, nil
}
