package api

import (
	"net/http"

	"github.com/hackgods/vet-scheduling/internal/logger"
	"github.com/hackgods/vet-scheduling/internal/verification"
)

func getVerificationHandler(svc VerificationService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		if _, err := selfOrAdmin(r, id); err != nil {
			handleError(w, r, log, err)
			return
		}

		state, err := svc.GetState(r.Context(), id)
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		elig, err := svc.CanVerify(r.Context(), id)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, VerificationResponse{State: state, Eligibility: elig})
	}
}

func getEligibilityHandler(svc VerificationService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		if _, err := selfOrAdmin(r, id); err != nil {
			handleError(w, r, log, err)
			return
		}

		elig, err := svc.CanVerify(r.Context(), id)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, elig)
	}
}

// changeVerificationHandler leaves the admin check to the service so refusals are uniform.
func changeVerificationHandler(svc VerificationService, v *RequestValidator, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		var req ChangeVerificationRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := v.Validate(req); err != nil {
			handleError(w, r, log, err)
			return
		}

		if _, err := svc.ChangeStatus(r.Context(), id, verification.Status(req.Status), actor, req.Notes); err != nil {
			handleError(w, r, log, err)
			return
		}

		state, err := svc.GetState(r.Context(), id)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, state)
	}
}
