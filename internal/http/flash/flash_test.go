package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// carry copies the cookies set on rec onto a fresh request, the way a
// browser would when following a redirect.
func carry(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/libros", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

func TestAddThenPop(t *testing.T) {
	rec := httptest.NewRecorder()
	Add(rec, httptest.NewRequest(http.MethodPost, "/create_loan", nil), Success, "loan created")

	req := carry(t, rec)
	popRec := httptest.NewRecorder()
	msgs := Pop(popRec, req)

	require.Len(t, msgs, 1)
	assert.Equal(t, Message{Category: Success, Text: "loan created"}, msgs[0])

	cleared := popRec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, CookieName, cleared[0].Name)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestAdd_KeepsPending(t *testing.T) {
	first := httptest.NewRecorder()
	Add(first, httptest.NewRequest(http.MethodGet, "/", nil), Info, "logged out")

	second := httptest.NewRecorder()
	Add(second, carry(t, first), Danger, "invalid username or password")

	msgs := Pop(httptest.NewRecorder(), carry(t, second))
	require.Len(t, msgs, 2)
	assert.Equal(t, "logged out", msgs[0].Text)
	assert.Equal(t, "invalid username or password", msgs[1].Text)
}

func TestPop_NothingPending(t *testing.T) {
	rec := httptest.NewRecorder()
	msgs := Pop(rec, httptest.NewRequest(http.MethodGet, "/libros", nil))

	assert.Empty(t, msgs)
	assert.Empty(t, rec.Result().Cookies())
}

func TestPop_GarbageIsDropped(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/libros", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "%%%not-base64"})

	assert.Empty(t, Pop(httptest.NewRecorder(), req))
}
