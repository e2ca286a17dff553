// Package catalog serves the book list and the forms that change it:
// adding books, lending them and taking them back.
//
// Every anticipated failure (bad input, missing record, state conflict)
// becomes a flash message and a redirect to /libros. Only unexpected
// store errors produce a 500.
package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/biblioteca/internal/http/flash"
	"github.com/aanand-mishra/biblioteca/internal/http/render"
	"github.com/aanand-mishra/biblioteca/internal/session"
	"github.com/aanand-mishra/biblioteca/internal/storage"
	"github.com/aanand-mishra/biblioteca/internal/types"
	"github.com/aanand-mishra/biblioteca/internal/utils/response"
)

const catalogPath = "/libros"

// Deps groups what the catalog handlers need. Today defaults to the
// current local date in ISO form.
type Deps struct {
	Storage  storage.Storage
	Render   *render.Renderer
	Validate *validator.Validate
	Today    func() string
}

// Today returns the current date as YYYY-MM-DD.
func Today() string { return time.Now().Format(time.DateOnly) }

func (d Deps) today() string {
	if d.Today != nil {
		return d.Today()
	}
	return Today()
}

func (d Deps) validate() *validator.Validate {
	if d.Validate != nil {
		return d.Validate
	}
	return validator.New()
}

// PageData is what libros.html renders. Lendable feeds the loan form and
// ignores the search, so a query never hides a book that can be lent.
type PageData struct {
	Query    string
	Books    []types.Book
	Lendable []types.Book
	Loans    []types.ActiveLoan
	Users    []types.User
}

// List handles GET /libros?q=. Books are filtered by q when it is set;
// active loans, the user list and the loan form are always complete.
func List(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := strings.TrimSpace(r.URL.Query().Get("q"))

		books, err := d.Storage.SearchBooks(ctx, q)
		if err != nil {
			serverError(w, "listing books", err)
			return
		}

		lendable := books
		if q != "" {
			if lendable, err = d.Storage.SearchBooks(ctx, ""); err != nil {
				serverError(w, "listing books", err)
				return
			}
		}

		loans, err := d.Storage.ListActiveLoans(ctx)
		if err != nil {
			serverError(w, "listing active loans", err)
			return
		}

		users, err := d.Storage.ListUsers(ctx)
		if err != nil {
			serverError(w, "listing users", err)
			return
		}

		s, _ := session.FromContext(ctx)
		d.Render.HTML(w, http.StatusOK, "libros.html", render.Page{
			Title:   "Books",
			User:    s.Username,
			Flashes: flash.Pop(w, r),
			Data: PageData{
				Query:    q,
				Books:    books,
				Lendable: available(lendable),
				Loans:    loans,
				Users:    users,
			},
		})
	}
}

// AddBook handles POST /add_book. Year is optional.
func AddBook(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := types.BookForm{
			Title:  strings.TrimSpace(r.PostFormValue("title")),
			Author: strings.TrimSpace(r.PostFormValue("author")),
			Genre:  strings.TrimSpace(r.PostFormValue("genre")),
		}

		if raw := strings.TrimSpace(r.PostFormValue("year")); raw != "" {
			year, err := strconv.Atoi(raw)
			if err != nil {
				back(w, r, flash.Danger, "year must be an integer")
				return
			}
			form.Year = &year
		}

		if err := d.validate().Struct(form); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				back(w, r, flash.Danger, response.ValidationMessage(verrs))
				return
			}
			serverError(w, "validating book", err)
			return
		}

		id, err := d.Storage.AddBook(r.Context(), form.Title, form.Author, form.Year, form.Genre)
		if err != nil {
			serverError(w, "adding book", err)
			return
		}

		slog.Info("book added", slog.Int64("id", id))
		back(w, r, flash.Success, "book added")
	}
}

// CreateLoan handles POST /create_loan. The loan is dated today.
func CreateLoan(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookID, errBook := parseID(r.PostFormValue("book_id"))
		userID, errUser := parseID(r.PostFormValue("user_id"))
		form := types.LoanForm{BookID: bookID, UserID: userID}
		if errBook != nil || errUser != nil || d.validate().Struct(form) != nil {
			back(w, r, flash.Danger, "invalid ids")
			return
		}

		id, err := d.Storage.CreateLoan(r.Context(), form.BookID, form.UserID, d.today())
		switch {
		case err == nil:
			slog.Info("loan created",
				slog.Int64("loan_id", id),
				slog.Int64("book_id", form.BookID),
				slog.Int64("user_id", form.UserID))
			back(w, r, flash.Success, "loan created")
		case errors.Is(err, storage.ErrBookNotFound),
			errors.Is(err, storage.ErrUserNotFound),
			errors.Is(err, storage.ErrBookUnavailable):
			back(w, r, flash.Danger, err.Error())
		default:
			serverError(w, "creating loan", err)
		}
	}
}

// ReturnLoan handles POST /return_loan. The return is dated today.
func ReturnLoan(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loanID, err := parseID(r.PostFormValue("loan_id"))
		form := types.ReturnForm{LoanID: loanID}
		if err != nil || d.validate().Struct(form) != nil {
			back(w, r, flash.Danger, "invalid loan id")
			return
		}

		err = d.Storage.ReturnLoan(r.Context(), form.LoanID, d.today())
		switch {
		case err == nil:
			slog.Info("loan returned", slog.Int64("loan_id", form.LoanID))
			back(w, r, flash.Success, "return recorded")
		case errors.Is(err, storage.ErrLoanNotFound):
			back(w, r, flash.Danger, err.Error())
		case errors.Is(err, storage.ErrLoanAlreadyReturned):
			back(w, r, flash.Info, err.Error())
		default:
			serverError(w, "returning loan", err)
		}
	}
}

func available(books []types.Book) []types.Book {
	out := make([]types.Book, 0, len(books))
	for _, b := range books {
		if b.Available {
			out = append(out, b)
		}
	}
	return out
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

// back flashes text and sends the browser to the catalog page.
func back(w http.ResponseWriter, r *http.Request, category, text string) {
	flash.Add(w, r, category, text)
	http.Redirect(w, r, catalogPath, http.StatusSeeOther)
}

func serverError(w http.ResponseWriter, op string, err error) {
	slog.Error(op, slog.String("error", err.Error()))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
