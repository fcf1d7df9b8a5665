package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/core"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/sheets"
)

// errorBody is the JSON error envelope for every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorBody{Error: message})
}

// writeStoreError maps ledger/store failures to HTTP status codes:
// validation problems are the client's fault, spreadsheet application
// errors are relayed as bad gateway with the script's message verbatim,
// everything else is a plain 500.
func writeStoreError(w http.ResponseWriter, err error) {
	var storeErr *sheets.StoreError
	switch {
	case errors.As(err, &storeErr):
		writeError(w, http.StatusBadGateway, storeErr.Message)
	case errors.Is(err, sheets.ErrMutationUnsupported):
		writeError(w, http.StatusNotImplemented, "this backend is read-only")
	case errors.Is(err, core.ErrNotPersisted):
		writeError(w, http.StatusNotFound, "record is not persisted")
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyItem,
		core.ErrInvalidPayer,
		core.ErrInvalidAmount,
		core.ErrBothCurrencies,
		core.ErrSplitMismatch,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// methodNotAllowed writes a 405 with the Allow header set.
func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
