// Package httpx carries the HTTP plumbing shared by the services and the
// gateway: JSON envelopes, error mapping and middleware.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/inventory-tracker/internal/storage"
)

// errorBody is the service error envelope with the stable "error" field.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the {success:false, error} envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorBody{Success: false, Error: message})
}

// StatusFor maps storage sentinels to status codes for read paths. 4xx means
// the request must change before a retry; 503 means the caller may retry as-is
// because the storage unit either fully committed or fully rolled back.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Health returns the health handler every service and the gateway expose.
func Health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": service})
	}
}
