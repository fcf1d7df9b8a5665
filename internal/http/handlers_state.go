package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/storage"
	"github.com/Miyu0603/winter-fuji-hakone-2026-2.0/internal/trip"
)

// maxStateBytes bounds a stored state document; the lists are tiny.
const maxStateBytes = 64 * 1024

// handleState serves GET and PUT on /api/state/{name}.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.states == nil {
		writeError(w, http.StatusNotImplemented, "local state storage is not configured")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/state/")
	if !trip.KnownState(name) {
		writeError(w, http.StatusNotFound, "unknown state name")
		return
	}

	switch r.Method {
	case http.MethodGet:
		value, err := s.states.GetState(r.Context(), name)
		if errors.Is(err, storage.ErrStateNotFound) {
			// Never-written state reads as its empty document
			value = emptyStateDocument(name)
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(value))

	case http.MethodPut:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxStateBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		if len(body) > maxStateBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "state document too large")
			return
		}
		if err := validateStateDocument(name, body); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "malformed state document")
			return
		}
		if err := s.states.PutState(r.Context(), name, string(body)); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})

	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

// validateStateDocument checks the payload parses as the document shape the
// state name requires before persisting it.
func validateStateDocument(name string, body []byte) error {
	switch name {
	case trip.StateCheckedItems:
		_, err := trip.ParseCheckedSet(body)
		return err
	default:
		_, err := trip.ParseList(body)
		return err
	}
}

func emptyStateDocument(name string) string {
	if name == trip.StateCheckedItems {
		return "{}"
	}
	return "[]"
}
