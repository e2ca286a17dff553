package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/aanand-mishra/biblioteca/internal/storage"
	"github.com/aanand-mishra/biblioteca/internal/types"
)

const (
	selectAvailability = `SELECT available FROM books WHERE id = ?`
	countUser          = `SELECT COUNT(*) FROM users WHERE id = ?`
	countLoan          = `SELECT COUNT(*) FROM loans WHERE id = ?`

	// takeBook only flips a book that is still available; zero affected
	// rows means another loan got there first.
	takeBook    = `UPDATE books SET available = ? WHERE id = ? AND available = ?`
	releaseBook = `UPDATE books SET available = ? WHERE id = ?`

	insertLoan = `INSERT INTO loans (book_id, user_id, loan_date, return_date)
		VALUES (?, ?, ?, NULL) RETURNING id`

	// closeLoan sets the return date only once.
	closeLoan = `UPDATE loans SET return_date = ?
		WHERE id = ? AND return_date IS NULL RETURNING book_id`

	// reconcileBooks flips every flag that disagrees with the loans table:
	// a book is available exactly when no loan for it is outstanding.
	reconcileBooks = `UPDATE books
		SET available = NOT EXISTS (
			SELECT 1 FROM loans l WHERE l.book_id = books.id AND l.return_date IS NULL)
		WHERE available = EXISTS (
			SELECT 1 FROM loans l WHERE l.book_id = books.id AND l.return_date IS NULL)`
)

// CreateLoan records a loan of bookID to userID dated loanDate.
//
// The whole check-then-act sequence runs in one transaction:
//  1. the book must exist             (storage.ErrBookNotFound)
//  2. the book must be available      (storage.ErrBookUnavailable)
//  3. the user must exist             (storage.ErrUserNotFound)
//  4. the book is flipped with a conditional update and the loan inserted
//
// Any failure rolls back, leaving books and loans untouched.
func (s *Store) CreateLoan(ctx context.Context, bookID, userID int64, loanDate string) (int64, error) {
	var loanID int64

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var available bool
		if err := tx.GetContext(ctx, &available, tx.Rebind(selectAvailability), bookID); err != nil {
			return notFound(err, storage.ErrBookNotFound)
		}

		if !available {
			return storage.ErrBookUnavailable
		}

		var users int
		if err := tx.GetContext(ctx, &users, tx.Rebind(countUser), userID); err != nil {
			return err
		}
		if users == 0 {
			return storage.ErrUserNotFound
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(takeBook), false, bookID, true)
		if err != nil {
			return err
		}
		taken, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if taken == 0 {
			return storage.ErrBookUnavailable
		}

		return tx.QueryRowxContext(ctx, tx.Rebind(insertLoan), bookID, userID, loanDate).Scan(&loanID)
	})
	if err != nil {
		return 0, wrapUnlessSentinel("CreateLoan", err)
	}

	return loanID, nil
}

// ReturnLoan closes loanID with returnDate and makes its book available.
// Returning an already returned loan is reported as
// storage.ErrLoanAlreadyReturned and alters nothing.
func (s *Store) ReturnLoan(ctx context.Context, loanID int64, returnDate string) error {
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var bookID int64
		err := tx.GetContext(ctx, &bookID, tx.Rebind(closeLoan), returnDate, loanID)
		if errors.Is(err, sql.ErrNoRows) {
			var loans int
			if err := tx.GetContext(ctx, &loans, tx.Rebind(countLoan), loanID); err != nil {
				return err
			}
			if loans == 0 {
				return storage.ErrLoanNotFound
			}
			return storage.ErrLoanAlreadyReturned
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(releaseBook), true, bookID)
		return err
	})

	return wrapUnlessSentinel("ReturnLoan", err)
}

func (s *Store) GetLoanByID(ctx context.Context, id int64) (types.Loan, error) {
	ds := s.qb.From("loans").
		Select("id", "book_id", "user_id", "loan_date", "return_date").
		Where(goqu.C("id").Eq(id))

	var loan types.Loan
	if err := s.selectOne(ctx, &loan, ds); err != nil {
		return types.Loan{}, notFound(err, storage.ErrLoanNotFound)
	}
	return loan, nil
}

// ListActiveLoans joins every outstanding loan with its book and borrower.
// Loans on the same date keep insertion order.
func (s *Store) ListActiveLoans(ctx context.Context) ([]types.ActiveLoan, error) {
	ds := s.qb.From(goqu.T("loans").As("l")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("l.book_id").Eq(goqu.I("b.id")))).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("l.user_id").Eq(goqu.I("u.id")))).
		Select(
			goqu.I("l.id").As("loan_id"),
			goqu.I("l.book_id").As("book_id"),
			goqu.I("l.user_id").As("user_id"),
			goqu.I("l.loan_date").As("loan_date"),
			goqu.I("b.title").As("book_title"),
			goqu.I("b.author").As("book_author"),
			goqu.I("u.username").As("username"),
			goqu.I("u.surname").As("surname"),
		).
		Where(goqu.I("l.return_date").IsNull()).
		Order(goqu.I("l.loan_date").Asc(), goqu.I("l.id").Asc())

	loans := make([]types.ActiveLoan, 0)
	if err := s.selectAll(ctx, &loans, ds); err != nil {
		return nil, fmt.Errorf("ListActiveLoans: %w", err)
	}
	return loans, nil
}

// ReconcileAvailability repairs availability flags that drifted from the
// loans table, e.g. after rows were edited by hand.
func (s *Store) ReconcileAvailability(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, reconcileBooks)
	if err != nil {
		return 0, fmt.Errorf("ReconcileAvailability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ReconcileAvailability: rows affected: %w", err)
	}
	return n, nil
}

var sentinels = []error{
	storage.ErrBookNotFound,
	storage.ErrUserNotFound,
	storage.ErrLoanNotFound,
	storage.ErrBookUnavailable,
	storage.ErrLoanAlreadyReturned,
}

func wrapUnlessSentinel(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
