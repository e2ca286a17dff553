// Package storage defines the Storage interface, the contract any
// database backend must satisfy to serve the library, together with the
// errors the backends report for anticipated failures.
//
// Handlers never see SQL. They depend on this interface and translate the
// sentinel errors below into user-facing messages with errors.Is.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/biblioteca/internal/types"
)

// Not-found errors.
var (
	ErrBookNotFound = errors.New("book not found")
	ErrUserNotFound = errors.New("user not found")
	ErrLoanNotFound = errors.New("loan not found")
)

// State-conflict errors.
var (
	ErrBookUnavailable     = errors.New("book not available")
	ErrLoanAlreadyReturned = errors.New("loan already returned")
	ErrUserExists          = errors.New("user already exists")
)

// Storage is the database contract.
type Storage interface {
	// ListBooks returns every book ordered by title.
	ListBooks(ctx context.Context) ([]types.Book, error)

	// SearchBooks returns books whose title or author contains query,
	// ordered by title. A blank query lists everything.
	SearchBooks(ctx context.Context, query string) ([]types.Book, error)

	// AddBook inserts an available book and returns its id.
	AddBook(ctx context.Context, title, author string, year *int, genre string) (int64, error)

	// GetBookByID returns ErrBookNotFound when absent.
	GetBookByID(ctx context.Context, id int64) (types.Book, error)

	// AddUser hashes password and inserts the user. A duplicate username
	// or email yields ErrUserExists.
	AddUser(ctx context.Context, username, surname, password string, email *string) (int64, error)

	// GetUserByID and GetUserByUsername return ErrUserNotFound when absent.
	GetUserByID(ctx context.Context, id int64) (types.User, error)
	GetUserByUsername(ctx context.Context, username string) (types.User, error)

	// ListUsers returns every user ordered by username.
	ListUsers(ctx context.Context) ([]types.User, error)

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int, error)

	// CreateLoan lends bookID to userID atomically. It fails with
	// ErrBookNotFound, ErrUserNotFound or ErrBookUnavailable and then
	// changes nothing.
	CreateLoan(ctx context.Context, bookID, userID int64, loanDate string) (int64, error)

	// ReturnLoan closes the loan and makes its book available again. It
	// fails with ErrLoanNotFound or ErrLoanAlreadyReturned and then
	// changes nothing.
	ReturnLoan(ctx context.Context, loanID int64, returnDate string) error

	// GetLoanByID returns ErrLoanNotFound when absent.
	GetLoanByID(ctx context.Context, id int64) (types.Loan, error)

	// ListActiveLoans returns outstanding loans ordered by loan date.
	ListActiveLoans(ctx context.Context) ([]types.ActiveLoan, error)

	// ReconcileAvailability re-derives every availability flag from the
	// outstanding loans and returns how many books were corrected.
	ReconcileAvailability(ctx context.Context) (int64, error)

	Close() error
}
