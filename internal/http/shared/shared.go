// Package shared holds the JSON response helpers used by every handler so
// error envelopes stay consistent across the API.
package shared

import (
	"encoding/json"
	"net/http"

	derrors "virasat/pkg/domainerrors"
)

// WriteJSON encodes v with the given status. Encoding failures are ignored;
// by that point the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the standard error envelope.
// Non-domain errors collapse to a generic internal error so internal strings
// never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := derrors.CodeOf(err)
	WriteJSON(w, derrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": derrors.MessageOf(err),
	})
}
