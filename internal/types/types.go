// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers and storage import types without depending on each other.
//
// Struct tags:
//
//	json:"..."      how the field appears in the JSON API
//	db:"..."        the column sqlx scans into the field
//	validate:"..."  rules checked by go-playground/validator
package types

// Book is a catalog entry. Available is false while an outstanding loan
// references the book.
type Book struct {
	ID        int64  `json:"id"        db:"id"`
	Title     string `json:"title"     db:"title"`
	Author    string `json:"author"    db:"author"`
	Year      *int   `json:"year"      db:"year"`
	Genre     string `json:"genre"     db:"genre"`
	Available bool   `json:"available" db:"available"`
}

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           int64   `json:"id"       db:"id"`
	Username     string  `json:"username" db:"username"`
	Surname      string  `json:"surname"  db:"surname"`
	PasswordHash string  `json:"-"        db:"password_hash"`
	Email        *string `json:"email"    db:"email"`
}

// Loan links one book to one user. ReturnDate is nil while the loan is
// outstanding and is set exactly once.
type Loan struct {
	ID         int64   `json:"id"          db:"id"`
	BookID     int64   `json:"book_id"     db:"book_id"`
	UserID     int64   `json:"user_id"     db:"user_id"`
	LoanDate   string  `json:"loan_date"   db:"loan_date"`
	ReturnDate *string `json:"return_date" db:"return_date"`
}

// Returned reports whether the loan has been closed.
func (l Loan) Returned() bool { return l.ReturnDate != nil }

// ActiveLoan is an outstanding loan joined with the book and borrower it
// refers to, as listed on the catalog page.
type ActiveLoan struct {
	LoanID     int64  `json:"loan_id"     db:"loan_id"`
	BookID     int64  `json:"book_id"     db:"book_id"`
	UserID     int64  `json:"user_id"     db:"user_id"`
	LoanDate   string `json:"loan_date"   db:"loan_date"`
	BookTitle  string `json:"book_title"  db:"book_title"`
	BookAuthor string `json:"book_author" db:"book_author"`
	Username   string `json:"username"    db:"username"`
	Surname    string `json:"surname"     db:"surname"`
}

// BookForm is the payload of POST /add_book.
type BookForm struct {
	Title  string `validate:"required,max=255"`
	Author string `validate:"required,max=255"`
	Year   *int   `validate:"omitempty,gte=0,lte=9999"`
	Genre  string `validate:"required,max=100"`
}

// RegisterForm is the payload of POST /register. Email is optional.
type RegisterForm struct {
	Username string `validate:"required,max=64"`
	Surname  string `validate:"required,max=100"`
	Password string `validate:"required,password"`
	Email    string `validate:"omitempty,email"`
}

// LoginForm is the payload of POST /login.
type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// LoanForm is the payload of POST /create_loan.
type LoanForm struct {
	BookID int64 `validate:"required,gt=0"`
	UserID int64 `validate:"required,gt=0"`
}

// ReturnForm is the payload of POST /return_loan.
type ReturnForm struct {
	LoanID int64 `validate:"required,gt=0"`
}
