package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/biblioteca/internal/session"
)

func whoami(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return
	}
	w.Write([]byte(s.Username))
}

func newGate(t *testing.T) (Gate, session.Session) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	s, err := store.Create(3, "ciro")
	require.NoError(t, err)
	return Gate{Sessions: store, Cookies: session.Cookies{Name: "sid"}}, s
}

func TestLogger_SetsRequestID(t *testing.T) {
	var seen string
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/libros", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestGatePage(t *testing.T) {
	gate, s := newGate(t)
	h := gate.Page(http.HandlerFunc(whoami))

	t.Run("anonymous is redirected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/libros", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("unknown token is redirected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/libros", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "forged"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("session reaches handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/libros", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: s.Token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ciro", rec.Body.String())
	})
}

func TestGateAPI(t *testing.T) {
	gate, s := newGate(t)
	h := gate.API(http.HandlerFunc(whoami))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":"error","error":"login required"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: s.Token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
