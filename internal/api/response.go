package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/appointment"
	"github.com/hackgods/vet-scheduling/internal/auth"
	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/calendar"
	"github.com/hackgods/vet-scheduling/internal/credit"
	"github.com/hackgods/vet-scheduling/internal/logger"
	"github.com/hackgods/vet-scheduling/internal/verification"
)

var errForbidden = errors.New("not authorized")

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string, details any) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleError maps domain errors to status codes. Anything unknown is logged and hidden.
func handleError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var verrs ValidationErrors
	var missing *verification.MissingDocumentsError

	switch {
	case errors.As(err, &verrs):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verrs)
	case errors.As(err, &missing):
		writeError(w, http.StatusUnprocessableEntity, "MISSING_DOCUMENTS", map[string]any{"missing_documents": missing.Missing})

	case errors.Is(err, appointment.ErrInvalidRequest),
		errors.Is(err, availability.ErrInvalidDuration),
		errors.Is(err, availability.ErrInvalidLocation),
		errors.Is(err, calendar.ErrInvalidMonths),
		errors.Is(err, credit.ErrInvalidAmount),
		errors.Is(err, verification.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())

	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "SLOT_UNAVAILABLE", err.Error())
	case errors.Is(err, appointment.ErrNoCredits):
		writeError(w, http.StatusConflict, "NO_CREDITS", "the professional has no booking credits left")
	case errors.Is(err, appointment.ErrProfessionalInactive):
		writeError(w, http.StatusConflict, "PROFESSIONAL_INACTIVE", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, verification.ErrStatusChanged):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, appointment.ErrAgendaBusy):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "AGENDA_BUSY", err.Error())

	case errors.Is(err, errForbidden),
		errors.Is(err, appointment.ErrNotAuthorized),
		errors.Is(err, verification.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "NOT_AUTHORIZED", err.Error())

	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "APPOINTMENT_NOT_FOUND", err.Error())
	case errors.Is(err, appointment.ErrProfessionalNotFound):
		writeError(w, http.StatusNotFound, "PROFESSIONAL_NOT_FOUND", err.Error())
	case errors.Is(err, verification.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "PROFILE_NOT_FOUND", err.Error())

	default:
		log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", GetRequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, ValidationErrors{{Field: name, Message: "must be a valid UUID"}}
	}
	return id, nil
}

func parseDate(field, raw string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, ValidationErrors{{Field: field, Message: "must be a date formatted 2006-01-02"}}
	}
	return d, nil
}

func actorFrom(r *http.Request) (auth.Actor, error) {
	a, err := auth.FromContext(r.Context())
	if err != nil {
		return auth.Actor{}, errForbidden
	}
	return a, nil
}

// selfOrAdmin guards the per-professional reads.
func selfOrAdmin(r *http.Request, professionalID uuid.UUID) (auth.Actor, error) {
	a, err := actorFrom(r)
	if err != nil {
		return a, err
	}
	if a.ID != professionalID && !a.IsAdmin() {
		return a, errForbidden
	}
	return a, nil
}
