package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gastos/internal/core"
	"gastos/internal/storage"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondStoreError maps storage and validation failures to stable HTTP
// statuses without leaking internals for unexpected errors.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "no encontrado")
	case errors.Is(err, storage.ErrConstraint):
		respondError(w, http.StatusConflict, "operación en conflicto con datos existentes")
	case isValidationError(err):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "error interno")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidKind,
		core.ErrInvalidAmount,
		core.ErrInvalidDayOfMonth,
		core.ErrInvalidCategory,
		core.ErrInvalidColor,
		core.ErrEmptyDescription,
		core.ErrDescriptionTooLong,
		core.ErrEmptyName,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// parseDateRange reads the optional fechaInicio/fechaFin query parameters.
func parseDateRange(r *http.Request) (from, to core.Date, err error) {
	if v := strings.TrimSpace(r.URL.Query().Get("fechaInicio")); v != "" {
		if from, err = core.ParseDate(v); err != nil {
			return core.Date{}, core.Date{}, fmt.Errorf("fechaInicio: %w", err)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("fechaFin")); v != "" {
		if to, err = core.ParseDate(v); err != nil {
			return core.Date{}, core.Date{}, fmt.Errorf("fechaFin: %w", err)
		}
	}
	return from, to, nil
}

// clientIP extracts the caller's address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
