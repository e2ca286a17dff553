// Package middleware holds the http.Handler wrappers shared by every
// route: request logging and the login gate.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/biblioteca/internal/session"
	"github.com/aanand-mishra/biblioteca/internal/utils/response"
)

// RequestIDHeader echoes the id assigned to each request.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID returns the id Logger attached to ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logger assigns a request id and logs one line per completed request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := uuid.NewString()
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		slog.Info("request",
			slog.String("request_id", id),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// Gate looks up the session cookie and rejects requests without a live
// session. Wrap pages with Page and the JSON API with API.
type Gate struct {
	Sessions session.Store
	Cookies  session.Cookies
}

// Page redirects anonymous visitors to /login.
func (g Gate) Page(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := g.lookup(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
	})
}

// API answers anonymous callers with 401.
func (g Gate) API(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := g.lookup(r)
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized,
				response.GeneralError(errors.New("login required")))
			return
		}
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
	})
}

func (g Gate) lookup(r *http.Request) (session.Session, bool) {
	token := g.Cookies.Token(r)
	if token == "" {
		return session.Session{}, false
	}

	s, err := g.Sessions.Get(token)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("session lookup failed",
				slog.String("request_id", RequestID(r.Context())),
				slog.String("error", err.Error()))
		}
		return session.Session{}, false
	}
	return s, true
}
