package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_CreateGetDelete(t *testing.T) {
	st := NewMemoryStore(time.Hour)

	s, err := st.Create(7, "agustin")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)

	got, err := st.Get(s.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, "agustin", got.Username)

	require.NoError(t, st.Delete(s.Token))
	_, err = st.Get(s.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_TokensAreUnique(t *testing.T) {
	st := NewMemoryStore(time.Hour)

	a, err := st.Create(1, "a")
	require.NoError(t, err)
	b, err := st.Create(1, "a")
	require.NoError(t, err)

	assert.NotEqual(t, a.Token, b.Token)
}

func TestMemoryStore_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0).UTC()}
	st := NewMemoryStore(time.Minute).WithClock(clock.Now)

	s, err := st.Create(1, "ciro")
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = st.Get(s.Token)
	assert.NoError(t, err)

	clock.Advance(time.Second)
	_, err = st.Get(s.Token)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, st.Len())
	assert.Equal(t, 1, st.Purge())
	assert.Equal(t, 0, st.Len())
}

func TestMemoryStore_RunStopsWithContext(t *testing.T) {
	st := NewMemoryStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCookies_RoundTrip(t *testing.T) {
	c := Cookies{Name: "sid"}
	s := Session{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}

	rec := httptest.NewRecorder()
	c.Set(rec, s)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, "abc", c.Token(req))

	assert.Empty(t, c.Token(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestCookies_Clear(t *testing.T) {
	rec := httptest.NewRecorder()
	Cookies{Name: "sid"}.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := NewContext(context.Background(), Session{Username: "juan"})
	s, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "juan", s.Username)
}
