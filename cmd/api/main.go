package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/trustedfriends/loanbook/pkg/auth"
	"github.com/trustedfriends/loanbook/pkg/ledger"
	"github.com/trustedfriends/loanbook/pkg/report"
	"github.com/trustedfriends/loanbook/pkg/store"
)

// Server wires the ledger, reporting and auth services behind the HTTP API.
type Server struct {
	ledger  *ledger.Ledger
	reports *report.Generator
	auth    *auth.Service
	storage store.Storage // kept to close it on shutdown

	infoLog  *log.Logger
	errorLog *log.Logger
}

func NewServer(s store.Storage, cacheTTL, sessionTTL time.Duration, infoLog, errorLog *log.Logger) *Server {
	return &Server{
		ledger:   ledger.NewLedger(s, cacheTTL),
		reports:  report.NewGenerator(s),
		auth:     auth.NewService(s, sessionTTL),
		storage:  s,
		infoLog:  infoLog,
		errorLog: errorLog,
	}
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP network address")
	dsn := flag.String("dsn", "loanbook.db", "SQLite data source name")
	cacheTTL := flag.Duration("cache-ttl", 10*time.Second, "Loan list cache expiry")
	sessionTTL := flag.Duration("session-ttl", 3*time.Hour, "Login session lifetime")
	flag.Parse()

	infoLog := log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	errorLog := log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)

	sqliteStore, err := store.NewSQLiteStore(*dsn)
	if err != nil {
		errorLog.Fatalf("Failed to initialize SQLite store: %v", err)
	}
	defer sqliteStore.Close()

	server := NewServer(sqliteStore, *cacheTTL, *sessionTTL, infoLog, errorLog)

	srv := &http.Server{
		Addr:     *addr,
		ErrorLog: errorLog,
		Handler:  server.routes(),
	}

	infoLog.Printf("Server starting on %s", *addr)
	errorLog.Fatal(srv.ListenAndServe())
}
