// Package httputil holds the small JSON plumbing shared by every handler:
// response writing, error translation, and request decoding.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "rangerwatch/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the wire shape of every non-2xx response.
type ErrorResponse struct {
	Error              string `json:"error"`
	Code               string `json:"code"`
	ExistingSightingID string `json:"existing_sighting_id,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// WriteError maps a domain error to its HTTP status and wire shape.
// Internal errors never leak their message to the client.
func WriteError(w http.ResponseWriter, err error) {
	derr := dErrors.From(err)
	if derr == nil {
		derr = dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
	}

	resp := ErrorResponse{
		Error: derr.Message,
		Code:  string(derr.Code),
	}
	if derr.Code == dErrors.CodeInternal {
		resp.Error = "internal error"
	}
	if existing, ok := derr.Meta[dErrors.MetaExistingSightingID]; ok {
		resp.ExistingSightingID = existing
	}

	WriteJSON(w, dErrors.ToHTTPStatus(derr.Code), resp)
}

// Decode reads the request body into dst, writing a coded error response on
// failure. Returns false when the caller should stop.
func Decode[T any](w http.ResponseWriter, r *http.Request, dst *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return false
	}
	return true
}
