package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aanand-mishra/biblioteca/internal/http/handlers/api"
	"github.com/aanand-mishra/biblioteca/internal/password"
	"github.com/aanand-mishra/biblioteca/internal/storage/sqldb"
	"github.com/aanand-mishra/biblioteca/internal/storage/sqlite"
	"github.com/aanand-mishra/biblioteca/internal/types"
)

func TestMain(m *testing.M) {
	password.Cost = bcrypt.MinCost
	os.Exit(m.Run())
}

func newRouter(t *testing.T) (*http.ServeMux, *sqldb.Store) {
	t.Helper()

	st, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	router := http.NewServeMux()
	router.HandleFunc("GET /api/books", api.ListBooks(st))
	router.HandleFunc("GET /api/books/{id}", api.GetBook(st))
	router.HandleFunc("GET /api/users", api.ListUsers(st))
	router.HandleFunc("GET /api/users/{id}", api.GetUser(st))
	router.HandleFunc("GET /api/loans/active", api.ActiveLoans(st))
	return router, st
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListBooks(t *testing.T) {
	router, st := newRouter(t)
	ctx := context.Background()

	rec := get(router, "/api/books")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	year := 1963
	_, err := st.AddBook(ctx, "Rayuela", "Julio Cortazar", &year, "Novela")
	require.NoError(t, err)
	_, err = st.AddBook(ctx, "Ficciones", "Jorge Luis Borges", nil, "Cuento")
	require.NoError(t, err)

	var books []types.Book
	rec = get(router, "/api/books?q=Cortazar")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Rayuela", books[0].Title)
}

func TestGetBook(t *testing.T) {
	router, st := newRouter(t)

	id, err := st.AddBook(context.Background(), "Rayuela", "Julio Cortazar", nil, "Novela")
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		rec := get(router, "/api/books/"+strconv.FormatInt(id, 10))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`{"id":1,"title":"Rayuela","author":"Julio Cortazar","year":null,"genre":"Novela","available":true}`,
			rec.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		rec := get(router, "/api/books/999")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"status":"error","error":"book not found"}`, rec.Body.String())
	})

	t.Run("bad id", func(t *testing.T) {
		rec := get(router, "/api/books/abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUsers_HideHash(t *testing.T) {
	router, st := newRouter(t)

	email := "ciro@gmail.com"
	id, err := st.AddUser(context.Background(), "ciro", "Chialvo", "abcd", &email)
	require.NoError(t, err)

	rec := get(router, "/api/users")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, rec.Body.String(), `"ciro@gmail.com"`)

	rec = get(router, "/api/users/"+strconv.FormatInt(id, 10))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = get(router, "/api/users/42")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActiveLoans(t *testing.T) {
	router, st := newRouter(t)
	ctx := context.Background()

	bookID, err := st.AddBook(ctx, "Rayuela", "Julio Cortazar", nil, "Novela")
	require.NoError(t, err)
	userID, err := st.AddUser(ctx, "juan", "Massagli", "qwerty", nil)
	require.NoError(t, err)
	loanID, err := st.CreateLoan(ctx, bookID, userID, "2025-01-01")
	require.NoError(t, err)

	var loans []types.ActiveLoan
	rec := get(router, "/api/loans/active")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &loans))
	require.Len(t, loans, 1)
	assert.Equal(t, loanID, loans[0].LoanID)
	assert.Equal(t, "Rayuela", loans[0].BookTitle)
	assert.Equal(t, "juan", loans[0].Username)
}
