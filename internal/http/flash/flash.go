// Package flash carries one-shot messages across a redirect.
//
// A handler calls Add before redirecting; the page that renders next calls
// Pop, which returns the messages and expires the cookie so they are shown
// once. The payload is JSON, base64url-encoded to stay cookie-safe.
package flash

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CookieName is the cookie holding pending messages.
const CookieName = "biblioteca_flash"

// Message categories. They double as CSS classes in the templates.
const (
	Success = "success"
	Danger  = "danger"
	Info    = "info"
)

// Message is one line of feedback for the user.
type Message struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Add queues a message for the next rendered page. Messages already
// pending on r are kept.
func Add(w http.ResponseWriter, r *http.Request, category, text string) {
	msgs := append(read(r), Message{Category: category, Text: text})

	raw, err := json.Marshal(msgs)
	if err != nil {
		slog.Error("encoding flash", slog.String("error", err.Error()))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending messages and clears them.
func Pop(w http.ResponseWriter, r *http.Request) []Message {
	msgs := read(r)
	if _, err := r.Cookie(CookieName); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return msgs
}

// read decodes the cookie on r. A tampered or stale payload is dropped.
func read(r *http.Request) []Message {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}

	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}
