package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/trustedfriends/loanbook/pkg/models"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const dateLayout = "2006-01-02"

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	_, err = db.Exec("PRAGMA journal_mode = WAL;")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.Println("Database connection established and schema initialized.")
	return s, nil
}

// initSchema creates the tables if they don't already exist and seeds the
// default admin account. Monetary columns are TEXT so no precision is lost;
// disbursed_on is a nullable YYYY-MM-DD string to tolerate malformed
// historical rows.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS loans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		serial INTEGER NOT NULL UNIQUE,
		client_name TEXT NOT NULL,
		disbursed_on TEXT,
		principal TEXT NOT NULL,
		monthly_rate_percent TEXT NOT NULL,
		duration_months INTEGER NOT NULL,
		admin_fee TEXT NOT NULL,
		amount_remitted TEXT NOT NULL,
		interest TEXT NOT NULL,
		penalty_charged TEXT NOT NULL,
		total_add_ons TEXT NOT NULL,
		grand_total TEXT NOT NULL,
		balance TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS expenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		incurred_on TEXT NOT NULL,
		description TEXT
	);
	CREATE TABLE IF NOT EXISTS other_income (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		received_on TEXT NOT NULL,
		description TEXT
	);
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return err
	}

	return s.seedAdminUser()
}

// seedAdminUser inserts the default admin/password account if no admin
// exists yet, mirroring first-run behavior of the legacy system.
func (s *SQLiteStore) seedAdminUser() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE username = 'admin'`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		"admin", string(hash), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	return nil
}

func disbursedOnValue(loan *models.Loan) interface{} {
	if loan.DisbursedOn == nil {
		return nil
	}
	return loan.DisbursedOn.Format(dateLayout)
}

// CreateLoan inserts a new loan and fills in its row id.
func (s *SQLiteStore) CreateLoan(loan *models.Loan) error {
	result, err := s.db.Exec(
		`INSERT INTO loans (serial, client_name, disbursed_on, principal, monthly_rate_percent, duration_months, admin_fee, amount_remitted, interest, penalty_charged, total_add_ons, grand_total, balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.Serial, loan.ClientName, disbursedOnValue(loan), loan.Principal, loan.MonthlyRatePercent, loan.DurationMonths, loan.AdminFee, loan.AmountRemitted, loan.Interest, loan.PenaltyCharged, loan.TotalAddOns, loan.GrandTotal, loan.Balance, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create loan: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new loan id: %w", err)
	}
	loan.ID = id
	return nil
}

const loanColumns = `id, serial, client_name, disbursed_on, principal, monthly_rate_percent, duration_months, admin_fee, amount_remitted, interest, penalty_charged, total_add_ons, grand_total, balance, created_at, updated_at`

// GetLoanBySerial retrieves a loan by its serial number.
func (s *SQLiteStore) GetLoanBySerial(serial int) (*models.Loan, error) {
	row := s.db.QueryRow(`SELECT `+loanColumns+` FROM loans WHERE serial = ?`, serial)
	loan, err := scanLoan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("loan not found")
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// UpdateLoan updates an existing loan, matched by serial.
func (s *SQLiteStore) UpdateLoan(loan *models.Loan) error {
	result, err := s.db.Exec(
		`UPDATE loans SET client_name = ?, disbursed_on = ?, principal = ?, monthly_rate_percent = ?, duration_months = ?, admin_fee = ?, amount_remitted = ?, interest = ?, penalty_charged = ?, total_add_ons = ?, grand_total = ?, balance = ?, updated_at = ? WHERE serial = ?`,
		loan.ClientName, disbursedOnValue(loan), loan.Principal, loan.MonthlyRatePercent, loan.DurationMonths, loan.AdminFee, loan.AmountRemitted, loan.Interest, loan.PenaltyCharged, loan.TotalAddOns, loan.GrandTotal, loan.Balance, loan.UpdatedAt, loan.Serial,
	)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("loan not found")
	}
	return nil
}

// DeleteLoan removes a loan. Deletion has no cascading effects on other
// records.
func (s *SQLiteStore) DeleteLoan(serial int) error {
	result, err := s.db.Exec(`DELETE FROM loans WHERE serial = ?`, serial)
	if err != nil {
		return fmt.Errorf("failed to delete loan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("loan not found")
	}
	return nil
}

// GetAllLoans retrieves all loans ordered by serial.
func (s *SQLiteStore) GetAllLoans() ([]*models.Loan, error) {
	rows, err := s.db.Query(`SELECT ` + loanColumns + ` FROM loans ORDER BY serial ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all loans: %w", err)
	}
	defer rows.Close()

	return scanLoans(rows)
}

// GetLoansBetween retrieves loans whose disbursement date falls inside the
// given bounds. Undated rows only appear when both bounds are nil.
func (s *SQLiteStore) GetLoansBetween(from, to *time.Time) ([]*models.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans`
	where, args := dateRange("disbursed_on", from, to)
	if where != "" {
		query += ` WHERE disbursed_on IS NOT NULL AND ` + where
	}
	query += ` ORDER BY serial ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get loans in range: %w", err)
	}
	defer rows.Close()

	return scanLoans(rows)
}

// NextSerial returns the next serial number: max existing serial + 1.
func (s *SQLiteStore) NextSerial() (int, error) {
	var next int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(serial), 0) + 1 FROM loans`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute next serial: %w", err)
	}
	return next, nil
}

// DeleteAllLoans wipes the loan table. Used by the admin reset operation.
func (s *SQLiteStore) DeleteAllLoans() error {
	if _, err := s.db.Exec(`DELETE FROM loans`); err != nil {
		return fmt.Errorf("failed to delete all loans: %w", err)
	}
	return nil
}

// dateRange builds a comparison clause for YYYY-MM-DD TEXT columns. String
// comparison is safe because the format sorts lexicographically.
func dateRange(col string, from, to *time.Time) (string, []interface{}) {
	var clause string
	var args []interface{}
	if from != nil {
		clause = col + " >= ?"
		args = append(args, from.Format(dateLayout))
	}
	if to != nil {
		if clause != "" {
			clause += " AND "
		}
		clause += col + " <= ?"
		args = append(args, to.Format(dateLayout))
	}
	return clause, args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (*models.Loan, error) {
	var loan models.Loan
	var disbursed sql.NullString
	var created, updated time.Time
	err := row.Scan(&loan.ID, &loan.Serial, &loan.ClientName, &disbursed, &loan.Principal, &loan.MonthlyRatePercent, &loan.DurationMonths, &loan.AdminFee, &loan.AmountRemitted, &loan.Interest, &loan.PenaltyCharged, &loan.TotalAddOns, &loan.GrandTotal, &loan.Balance, &created, &updated)
	if err != nil {
		return nil, err
	}
	loan.CreatedAt = created
	loan.UpdatedAt = updated
	if disbursed.Valid {
		// A row that fails to parse keeps a nil date rather than erroring;
		// downstream accrual treats it as not overdue.
		if t, perr := time.Parse(dateLayout, disbursed.String); perr == nil {
			loan.DisbursedOn = &t
		}
	}
	return &loan, nil
}

func scanLoans(rows *sql.Rows) ([]*models.Loan, error) {
	var loans []*models.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan loan row: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return loans, nil
}

// CreateExpense inserts a new expense row and fills in its id.
func (s *SQLiteStore) CreateExpense(e *models.Expense) error {
	result, err := s.db.Exec(
		`INSERT INTO expenses (category, amount, incurred_on, description) VALUES (?, ?, ?, ?)`,
		e.Category, e.Amount, e.IncurredOn.Format(dateLayout), e.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new expense id: %w", err)
	}
	e.ID = id
	return nil
}

// GetExpensesBetween retrieves expenses in the date range, newest first.
func (s *SQLiteStore) GetExpensesBetween(from, to *time.Time) ([]*models.Expense, error) {
	query := `SELECT id, category, amount, incurred_on, description FROM expenses`
	where, args := dateRange("incurred_on", from, to)
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY incurred_on DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		var e models.Expense
		var on string
		var desc sql.NullString
		if err := rows.Scan(&e.ID, &e.Category, &e.Amount, &on, &desc); err != nil {
			return nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		t, err := time.Parse(dateLayout, on)
		if err != nil {
			return nil, fmt.Errorf("failed to parse expense date %q: %w", on, err)
		}
		e.IncurredOn = t
		e.Description = desc.String
		expenses = append(expenses, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return expenses, nil
}

// CreateOtherIncome inserts a new non-loan income row and fills in its id.
func (s *SQLiteStore) CreateOtherIncome(o *models.OtherIncome) error {
	result, err := s.db.Exec(
		`INSERT INTO other_income (category, amount, received_on, description) VALUES (?, ?, ?, ?)`,
		o.Category, o.Amount, o.ReceivedOn.Format(dateLayout), o.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to create other income: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new income id: %w", err)
	}
	o.ID = id
	return nil
}

// GetOtherIncomeBetween retrieves other income in the date range, newest first.
func (s *SQLiteStore) GetOtherIncomeBetween(from, to *time.Time) ([]*models.OtherIncome, error) {
	query := `SELECT id, category, amount, received_on, description FROM other_income`
	where, args := dateRange("received_on", from, to)
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY received_on DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get other income: %w", err)
	}
	defer rows.Close()

	var incomes []*models.OtherIncome
	for rows.Next() {
		var o models.OtherIncome
		var on string
		var desc sql.NullString
		if err := rows.Scan(&o.ID, &o.Category, &o.Amount, &on, &desc); err != nil {
			return nil, fmt.Errorf("failed to scan income row: %w", err)
		}
		t, err := time.Parse(dateLayout, on)
		if err != nil {
			return nil, fmt.Errorf("failed to parse income date %q: %w", on, err)
		}
		o.ReceivedOn = t
		o.Description = desc.String
		incomes = append(incomes, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return incomes, nil
}

// CreateUser inserts a new user and fills in its id.
func (s *SQLiteStore) CreateUser(user *models.User) error {
	result, err := s.db.Exec(
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		user.Username, string(user.PasswordHash), user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	var hash string
	row := s.db.QueryRow(`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
	if err := row.Scan(&user.ID, &user.Username, &hash, &user.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.PasswordHash = []byte(hash)
	return &user, nil
}

// GetAllUsers retrieves all users, newest first.
func (s *SQLiteStore) GetAllUsers() ([]*models.User, error) {
	rows, err := s.db.Query(`SELECT id, username, password_hash, created_at FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		var hash string
		if err := rows.Scan(&user.ID, &user.Username, &hash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		user.PasswordHash = []byte(hash)
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return users, nil
}

// DeleteUser removes a user by id.
func (s *SQLiteStore) DeleteUser(id int64) error {
	result, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
