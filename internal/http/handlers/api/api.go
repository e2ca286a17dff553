// Package api contains the read-only JSON endpoints over the catalog.
//
// Each exported function is a factory: it is called once at startup with
// the storage and returns the handler the router calls per request.
//
//	router.Handle("GET /api/books/{id}", gate.API(api.GetBook(store)))
//
// Errors use the response envelope:
//
//	{ "status": "error", "error": "book not found" }
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/biblioteca/internal/storage"
	"github.com/aanand-mishra/biblioteca/internal/utils/response"
)

var errInvalidID = errors.New("invalid id: must be an integer")

// ListBooks handles GET /api/books?q=
// Returns every book, or the ones whose title or author contains q.
// An empty catalog is [] rather than null.
func ListBooks(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		slog.Info("listing books", slog.String("q", q))

		books, err := store.SearchBooks(r.Context(), q)
		if err != nil {
			internalError(w, "error listing books", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, books)
	}
}

// GetBook handles GET /api/books/{id}
//
//	400 Bad Request  id is not an integer
//	404 Not Found    no such book
func GetBook(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		book, err := store.GetBookByID(r.Context(), id)
		if errors.Is(err, storage.ErrBookNotFound) {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(err))
			return
		}
		if err != nil {
			internalError(w, "error getting book", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, book)
	}
}

// ListUsers handles GET /api/users
// The password hash is never serialized.
func ListUsers(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("listing users")

		users, err := store.ListUsers(r.Context())
		if err != nil {
			internalError(w, "error listing users", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, users)
	}
}

// GetUser handles GET /api/users/{id}
func GetUser(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		user, err := store.GetUserByID(r.Context(), id)
		if errors.Is(err, storage.ErrUserNotFound) {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(err))
			return
		}
		if err != nil {
			internalError(w, "error getting user", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, user)
	}
}

// ActiveLoans handles GET /api/loans/active
// Outstanding loans joined with book and borrower, oldest first.
func ActiveLoans(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("listing active loans")

		loans, err := store.ListActiveLoans(r.Context())
		if err != nil {
			internalError(w, "error listing active loans", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, loans)
	}
}

// pathID parses the {id} segment. On failure it has already written the
// 400 response.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Info("rejecting id", slog.String("id", raw))
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errInvalidID))
		return 0, false
	}
	return id, true
}

func internalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError,
		response.GeneralError(errors.New("internal error")))
}
