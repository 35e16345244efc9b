package store

import (
	"time"

	"github.com/trustedfriends/loanbook/pkg/models"
)

// Storage defines the database operations for loan records, transactional
// rows and staff users. Loans are addressed by their business serial number.
type Storage interface {
	CreateLoan(loan *models.Loan) error
	GetLoanBySerial(serial int) (*models.Loan, error)
	UpdateLoan(loan *models.Loan) error
	DeleteLoan(serial int) error
	GetAllLoans() ([]*models.Loan, error)
	// GetLoansBetween filters on the disbursement date. Nil bounds are open;
	// rows without a date are excluded whenever a bound is set.
	GetLoansBetween(from, to *time.Time) ([]*models.Loan, error)
	// NextSerial returns max existing serial + 1.
	NextSerial() (int, error)
	DeleteAllLoans() error

	CreateExpense(e *models.Expense) error
	GetExpensesBetween(from, to *time.Time) ([]*models.Expense, error)
	CreateOtherIncome(o *models.OtherIncome) error
	GetOtherIncomeBetween(from, to *time.Time) ([]*models.OtherIncome, error)

	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetAllUsers() ([]*models.User, error)
	DeleteUser(id int64) error

	Close() error
}
