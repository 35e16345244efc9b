package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/trustedfriends/loanbook/pkg/accrual"
	"github.com/trustedfriends/loanbook/pkg/ledger"
)

// loanRequest carries the staff-entered terms for create and edit. The
// disbursement date is a YYYY-MM-DD string; a blank or unparseable value is
// stored as no date, never rejected. PenaltyOverride is honored on edits
// only, matching the legacy edit form.
type loanRequest struct {
	ClientName         string          `json:"client_name"`
	DisbursedOn        string          `json:"disbursed_on"`
	Principal          decimal.Decimal `json:"principal"`
	MonthlyRatePercent decimal.Decimal `json:"monthly_rate_percent"`
	DurationMonths     int             `json:"duration_months"`
	AdminFee           decimal.Decimal `json:"admin_fee"`
	AmountRemitted     decimal.Decimal `json:"amount_remitted"`
	PenaltyOverride    decimal.Decimal `json:"penalty_override"`
}

func (req loanRequest) input() ledger.Input {
	return ledger.Input{
		ClientName:         req.ClientName,
		DisbursedOn:        accrual.ParseDate(req.DisbursedOn),
		Principal:          req.Principal,
		MonthlyRatePercent: req.MonthlyRatePercent,
		DurationMonths:     req.DurationMonths,
		AdminFee:           req.AdminFee,
		AmountRemitted:     req.AmountRemitted,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := s.ledger.CreateLoan(req.input())
	if err != nil {
		s.errorLog.Printf("Error creating loan: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, loan)
}

func serialFromRequest(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["serial"])
}

func (s *Server) getLoanHandler(w http.ResponseWriter, r *http.Request) {
	serial, err := serialFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid loan serial", http.StatusBadRequest)
		return
	}

	loan, err := s.ledger.GetLoan(serial)
	if err != nil {
		if err.Error() == "loan not found" {
			http.Error(w, "Loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) listLoansHandler(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.AllLoans()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) updateLoanHandler(w http.ResponseWriter, r *http.Request) {
	serial, err := serialFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid loan serial", http.StatusBadRequest)
		return
	}

	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loan, err := s.ledger.EditLoan(serial, req.input(), req.PenaltyOverride)
	if err != nil {
		if err.Error() == "loan not found" {
			http.Error(w, "Loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	serial, err := serialFromRequest(r)
	if err != nil {
		http.Error(w, "Invalid loan serial", http.StatusBadRequest)
		return
	}

	if err := s.ledger.DeleteLoan(serial); err != nil {
		if err.Error() == "loan not found" {
			http.Error(w, "Loan not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetLoansHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ResetLoans(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.infoLog.Printf("Loan ledger reset by %s", currentUser(r))
	w.WriteHeader(http.StatusNoContent)
}

type transactionRequest struct {
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
}

func (req transactionRequest) day() (time.Time, bool) {
	t := accrual.ParseDate(req.Date)
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

func (s *Server) createExpenseHandler(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	day, ok := req.day()
	if !ok {
		http.Error(w, "A valid date is required", http.StatusBadRequest)
		return
	}

	expense, err := s.ledger.RecordExpense(req.Category, req.Amount, day, req.Description)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) createIncomeHandler(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	day, ok := req.day()
	if !ok {
		http.Error(w, "A valid date is required", http.StatusBadRequest)
		return
	}

	income, err := s.ledger.RecordOtherIncome(req.Category, req.Amount, day, req.Description)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, income)
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.reports.PortfolioSummary()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) profitLossHandler(w http.ResponseWriter, r *http.Request) {
	// Absent or malformed bounds fall back to the all-time statement.
	from := accrual.ParseDate(r.URL.Query().Get("from"))
	to := accrual.ParseDate(r.URL.Query().Get("to"))

	pl, err := s.reports.ProfitLoss(from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, pl)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) authenticateHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"username": req.Username,
		"token":    token,
	})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if len(token) > 7 {
		s.auth.Logout(token[7:]) // strip "Bearer "
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.auth.Users()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := s.auth.CreateUser(req.Username, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := s.auth.DeleteUser(id, currentUser(r)); err != nil {
		if err.Error() == "user not found" {
			http.Error(w, "User not found", http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusForbidden)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
