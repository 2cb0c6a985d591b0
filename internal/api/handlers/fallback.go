package handlers

import (
	"io"
	"net/http"
)

// Fallback answers every request with a fixed status and literal body.
func Fallback(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, body) //nolint:errcheck
	})
}
