// Package response provides helpers for writing consistent JSON HTTP
// responses from the read API.
//
// Success responses may return any JSON shape (a book, a list, ...).
// Error responses always look like:
//
//	{ "status": "error", "error": "book not found" }
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response is the standard envelope returned for error cases.
type Response struct {
	Status string `json:"status"` // always "error"
	Error  string `json:"error"`  // human-readable error detail
}

// StatusError is the only status the envelope carries; successful reads
// return their payload bare.
const StatusError = "error"

// WriteJSON writes data JSON-encoded with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into the standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationMessage converts validator field errors into one sentence per
// field, joined with ", ", for flash messages and CLI errors:
//
//	field Title is required, field Year is invalid
func ValidationMessage(errs validator.ValidationErrors) string {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "max", "password":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is too long", e.Field()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return strings.Join(errMessages, ", ")
}
