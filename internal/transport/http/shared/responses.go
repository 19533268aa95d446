// Package shared holds the response helpers every handler uses, so error
// envelopes stay uniform across the transport surface.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "veristage/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope. Fields names the offending
// field keys or document slots when the failure is requirement-specific.
type ErrorResponse struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	Fields           []string `json:"fields,omitempty"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps a domain error to its HTTP status and writes the envelope.
// Non-domain errors become opaque 500s; their detail stays in the logs.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:            string(dErrors.CodeInternal),
			ErrorDescription: "internal server error",
		})
		return
	}
	WriteJSON(w, dErrors.HTTPStatus(de.Code), ErrorResponse{
		Error:            string(de.Code),
		ErrorDescription: de.Message,
		Fields:           de.Fields,
	})
}
