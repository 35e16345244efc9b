package main

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
)

func (s *Server) routes() http.Handler {
	standardMiddleware := alice.New(s.recoverPanic, s.logRequest, secureHeaders)

	r := mux.NewRouter()

	r.HandleFunc("/authenticate", s.authenticateHandler).Methods("POST")
	r.Handle("/logout", s.requireSession(http.HandlerFunc(s.logoutHandler))).Methods("POST")

	// Read-only views stay open, mirroring the public sections of the
	// legacy UI; everything that mutates requires a session.
	r.HandleFunc("/loans", s.listLoansHandler).Methods("GET")
	r.Handle("/loans", s.requireSession(http.HandlerFunc(s.createLoanHandler))).Methods("POST")
	r.Handle("/loans/reset", s.requireSession(http.HandlerFunc(s.resetLoansHandler))).Methods("POST")
	r.HandleFunc("/loans/{serial}", s.getLoanHandler).Methods("GET")
	r.Handle("/loans/{serial}", s.requireSession(http.HandlerFunc(s.updateLoanHandler))).Methods("PUT")
	r.Handle("/loans/{serial}", s.requireSession(http.HandlerFunc(s.deleteLoanHandler))).Methods("DELETE")

	r.Handle("/expenses", s.requireSession(http.HandlerFunc(s.createExpenseHandler))).Methods("POST")
	r.Handle("/income", s.requireSession(http.HandlerFunc(s.createIncomeHandler))).Methods("POST")

	r.HandleFunc("/reports/summary", s.summaryHandler).Methods("GET")
	r.Handle("/reports/profit-loss", s.requireSession(http.HandlerFunc(s.profitLossHandler))).Methods("GET")

	r.Handle("/users", s.requireSession(http.HandlerFunc(s.listUsersHandler))).Methods("GET")
	r.Handle("/users", s.requireSession(http.HandlerFunc(s.createUserHandler))).Methods("POST")
	r.Handle("/users/{id}", s.requireSession(http.HandlerFunc(s.deleteUserHandler))).Methods("DELETE")

	return standardMiddleware.Then(handlers.CORS(
		handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"}),
		handlers.AllowedOrigins([]string{"*"}),
	)(r))
}
