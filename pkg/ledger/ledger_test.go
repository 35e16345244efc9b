package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trustedfriends/loanbook/pkg/models"
)

// MockStore is a simple in-memory implementation of the Storage interface
// for testing.
type MockStore struct {
	loans       map[int]*models.Loan
	expenses    []*models.Expense
	incomes     []*models.OtherIncome
	users       map[string]*models.User
	loanFetches int // number of GetAllLoans calls, to observe caching
}

func NewMockStore() *MockStore {
	return &MockStore{
		loans: make(map[int]*models.Loan),
		users: make(map[string]*models.User),
	}
}

func (m *MockStore) CreateLoan(loan *models.Loan) error {
	loan.ID = int64(len(m.loans) + 1)
	m.loans[loan.Serial] = loan
	return nil
}

func (m *MockStore) GetLoanBySerial(serial int) (*models.Loan, error) {
	loan, ok := m.loans[serial]
	if !ok {
		return nil, fmt.Errorf("loan not found")
	}
	return loan, nil
}

func (m *MockStore) UpdateLoan(loan *models.Loan) error {
	if _, ok := m.loans[loan.Serial]; !ok {
		return fmt.Errorf("loan not found")
	}
	m.loans[loan.Serial] = loan
	return nil
}

func (m *MockStore) DeleteLoan(serial int) error {
	if _, ok := m.loans[serial]; !ok {
		return fmt.Errorf("loan not found")
	}
	delete(m.loans, serial)
	return nil
}

func (m *MockStore) GetAllLoans() ([]*models.Loan, error) {
	m.loanFetches++
	loans := []*models.Loan{}
	for _, l := range m.loans {
		loans = append(loans, l)
	}
	return loans, nil
}

func (m *MockStore) GetLoansBetween(from, to *time.Time) ([]*models.Loan, error) {
	loans := []*models.Loan{}
	for _, l := range m.loans {
		if from == nil && to == nil {
			loans = append(loans, l)
			continue
		}
		if l.DisbursedOn == nil {
			continue
		}
		if from != nil && l.DisbursedOn.Before(*from) {
			continue
		}
		if to != nil && l.DisbursedOn.After(*to) {
			continue
		}
		loans = append(loans, l)
	}
	return loans, nil
}

func (m *MockStore) NextSerial() (int, error) {
	max := 0
	for serial := range m.loans {
		if serial > max {
			max = serial
		}
	}
	return max + 1, nil
}

func (m *MockStore) DeleteAllLoans() error {
	m.loans = make(map[int]*models.Loan)
	return nil
}

func (m *MockStore) CreateExpense(e *models.Expense) error {
	e.ID = int64(len(m.expenses) + 1)
	m.expenses = append(m.expenses, e)
	return nil
}

func (m *MockStore) GetExpensesBetween(from, to *time.Time) ([]*models.Expense, error) {
	return m.expenses, nil
}

func (m *MockStore) CreateOtherIncome(o *models.OtherIncome) error {
	o.ID = int64(len(m.incomes) + 1)
	m.incomes = append(m.incomes, o)
	return nil
}

func (m *MockStore) GetOtherIncomeBetween(from, to *time.Time) ([]*models.OtherIncome, error) {
	return m.incomes, nil
}

func (m *MockStore) CreateUser(user *models.User) error {
	if _, ok := m.users[user.Username]; ok {
		return fmt.Errorf("failed to create user: username taken")
	}
	user.ID = int64(len(m.users) + 1)
	m.users[user.Username] = user
	return nil
}

func (m *MockStore) GetUserByUsername(username string) (*models.User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}

func (m *MockStore) GetAllUsers() ([]*models.User, error) {
	users := []*models.User{}
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, nil
}

func (m *MockStore) DeleteUser(id int64) error {
	for name, u := range m.users {
		if u.ID == id {
			delete(m.users, name)
			return nil
		}
	}
	return fmt.Errorf("user not found")
}

func (m *MockStore) Close() error {
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func standardInput(disbursedOn *time.Time) Input {
	return Input{
		ClientName:         "Ada Obi",
		DisbursedOn:        disbursedOn,
		Principal:          dec("100000"),
		MonthlyRatePercent: dec("5"),
		DurationMonths:     3,
		AdminFee:           dec("2000"),
		AmountRemitted:     dec("0"),
	}
}

func TestCreateLoan_AssignsSerialsAndComputesFields(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, 0)

	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(now))
	disbursed := now.AddDate(0, 0, -90)

	loan, err := l.CreateLoan(standardInput(&disbursed))
	if err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	if loan.Serial != 1 {
		t.Errorf("Expected serial 1, got %d", loan.Serial)
	}
	if !loan.Interest.Equal(dec("15000")) {
		t.Errorf("Expected interest 15000, got %s", loan.Interest)
	}
	if !loan.PenaltyCharged.IsZero() {
		t.Errorf("Expected no penalty 90 days into a ~91-day term, got %s", loan.PenaltyCharged)
	}
	if !loan.GrandTotal.Equal(dec("117000")) {
		t.Errorf("Expected grand total 117000, got %s", loan.GrandTotal)
	}
	if !loan.Balance.Equal(dec("117000")) {
		t.Errorf("Expected balance 117000, got %s", loan.Balance)
	}

	second, err := l.CreateLoan(Input{
		ClientName:         "Bola Ade",
		Principal:          dec("50000"),
		MonthlyRatePercent: dec("4"),
		DurationMonths:     2,
		AdminFee:           dec("1000"),
		AmountRemitted:     dec("0"),
	})
	if err != nil {
		t.Fatalf("Failed to create second loan: %v", err)
	}
	if second.Serial != 2 {
		t.Errorf("Expected serial 2, got %d", second.Serial)
	}
}

func TestCreateLoan_RejectsInvalidInput(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, 0)

	tests := []struct {
		name  string
		input Input
	}{
		{"empty client name", Input{ClientName: "  ", Principal: dec("1000"), DurationMonths: 3}},
		{"zero principal", Input{ClientName: "Ada", Principal: dec("0"), DurationMonths: 3}},
		{"negative principal", Input{ClientName: "Ada", Principal: dec("-5"), DurationMonths: 3}},
		{"zero duration", Input{ClientName: "Ada", Principal: dec("1000"), DurationMonths: 0}},
	}
	for _, tt := range tests {
		if _, err := l.CreateLoan(tt.input); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
	if len(store.loans) != 0 {
		t.Errorf("Expected no loans stored after rejected input, got %d", len(store.loans))
	}
}

func TestEditLoan_RecomputesWithCurrentClock(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, 0)

	disbursed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(disbursed.AddDate(0, 0, 30)))

	loan, err := l.CreateLoan(standardInput(&disbursed))
	if err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}
	if !loan.PenaltyCharged.IsZero() {
		t.Fatalf("Expected no penalty at creation, got %s", loan.PenaltyCharged)
	}

	// 150 days after disbursement the loan is one 30-day block past its
	// 91-day due date, so an edit picks up one month of penalty.
	l.SetClock(fixedClock(disbursed.AddDate(0, 0, 150)))

	edited, err := l.EditLoan(loan.Serial, standardInput(&disbursed), decimal.Zero)
	if err != nil {
		t.Fatalf("Failed to edit loan: %v", err)
	}
	if !edited.PenaltyCharged.Equal(dec("10000")) {
		t.Errorf("Expected penalty 10000 after one overdue month, got %s", edited.PenaltyCharged)
	}
	if !edited.GrandTotal.Equal(dec("127000")) {
		t.Errorf("Expected grand total 127000, got %s", edited.GrandTotal)
	}
}

func TestEditLoan_ManualPenaltyOverride(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, 0)

	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(now))
	disbursed := now.AddDate(0, 0, -90)

	loan, err := l.CreateLoan(standardInput(&disbursed))
	if err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	in := standardInput(&disbursed)
	in.AmountRemitted = dec("30000")

	edited, err := l.EditLoan(loan.Serial, in, dec("5000"))
	if err != nil {
		t.Fatalf("Failed to edit loan: %v", err)
	}

	if !edited.PenaltyCharged.Equal(dec("5000")) {
		t.Errorf("Expected manual penalty 5000, got %s", edited.PenaltyCharged)
	}
	if !edited.TotalAddOns.Equal(dec("22000")) {
		t.Errorf("Expected total add-ons 22000, got %s", edited.TotalAddOns)
	}
	if !edited.GrandTotal.Equal(dec("122000")) {
		t.Errorf("Expected grand total 122000, got %s", edited.GrandTotal)
	}
	// Balance is forced to zero regardless of the remitted amount.
	if !edited.Balance.IsZero() {
		t.Errorf("Expected balance forced to 0, got %s", edited.Balance)
	}
	if !edited.AmountRemitted.Equal(dec("30000")) {
		t.Errorf("Expected remitted amount preserved, got %s", edited.AmountRemitted)
	}
}

func TestAllLoans_ReadThroughCache(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, time.Minute)

	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	l.SetClock(fixedClock(now))

	if _, err := l.CreateLoan(standardInput(nil)); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}

	l.AllLoans()
	l.AllLoans()
	if store.loanFetches != 1 {
		t.Errorf("Expected 1 storage fetch for repeated reads inside TTL, got %d", store.loanFetches)
	}

	// A write invalidates synchronously.
	if _, err := l.CreateLoan(standardInput(nil)); err != nil {
		t.Fatalf("Failed to create loan: %v", err)
	}
	loans, err := l.AllLoans()
	if err != nil {
		t.Fatalf("Failed to list loans: %v", err)
	}
	if store.loanFetches != 2 {
		t.Errorf("Expected a fresh fetch after a write, got %d fetches", store.loanFetches)
	}
	if len(loans) != 2 {
		t.Errorf("Expected 2 loans, got %d", len(loans))
	}

	// TTL expiry forces a refetch even without writes.
	l.SetClock(fixedClock(now.Add(2 * time.Minute)))
	l.AllLoans()
	if store.loanFetches != 3 {
		t.Errorf("Expected a fresh fetch after TTL expiry, got %d fetches", store.loanFetches)
	}
}

func TestDeleteAndResetLoans(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, 0)

	first, _ := l.CreateLoan(standardInput(nil))
	l.CreateLoan(standardInput(nil))

	if err := l.DeleteLoan(first.Serial); err != nil {
		t.Fatalf("Failed to delete loan: %v", err)
	}
	if _, err := l.GetLoan(first.Serial); err == nil {
		t.Error("Expected deleted loan to be gone")
	}
	if err := l.DeleteLoan(first.Serial); err == nil {
		t.Error("Expected error deleting a missing loan")
	}

	if err := l.ResetLoans(); err != nil {
		t.Fatalf("Failed to reset loans: %v", err)
	}
	loans, _ := l.AllLoans()
	if len(loans) != 0 {
		t.Errorf("Expected empty ledger after reset, got %d loans", len(loans))
	}
}

func TestRecordExpenseAndOtherIncome(t *testing.T) {
	store := NewMockStore()
	l := NewLedger(store, 0)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if _, err := l.RecordExpense("", dec("100"), day, ""); err == nil {
		t.Error("Expected error for empty expense category")
	}
	// Negative expense amounts are allowed (corrections).
	if _, err := l.RecordExpense("Allowances", dec("-500"), day, "reversal"); err != nil {
		t.Errorf("Expected negative expense to be accepted: %v", err)
	}

	if _, err := l.RecordOtherIncome("Consultancy Income", dec("0"), day, ""); err == nil {
		t.Error("Expected error for non-positive income amount")
	}
	o, err := l.RecordOtherIncome("Consultancy Income", dec("2500"), day, "")
	if err != nil {
		t.Fatalf("Failed to record income: %v", err)
	}
	if o.ID == 0 {
		t.Error("Expected income row to receive an id")
	}
}
