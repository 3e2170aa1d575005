package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/appointment"
	"github.com/hackgods/vet-scheduling/internal/auth"
	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/logger"
)

func createAppointmentHandler(svc AppointmentService, v *RequestValidator, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		var req CreateAppointmentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := v.Validate(req); err != nil {
			handleError(w, r, log, err)
			return
		}

		create, err := toCreateRequest(actor, req)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		appt, err := svc.Create(r.Context(), create)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

// toCreateRequest books for the calling tutor. Admins book on behalf of tutor_id.
func toCreateRequest(actor auth.Actor, req CreateAppointmentRequest) (appointment.CreateRequest, error) {
	var tutorID uuid.UUID
	switch actor.Role {
	case auth.RoleTutor:
		tutorID = actor.ID
	case auth.RoleAdmin:
		if req.TutorID == "" {
			return appointment.CreateRequest{}, ValidationErrors{{Field: "tutor_id", Message: "is required when booking as admin"}}
		}
		tutorID = uuid.MustParse(req.TutorID)
	default:
		return appointment.CreateRequest{}, errForbidden
	}

	date, err := parseDate("date", req.Date)
	if err != nil {
		return appointment.CreateRequest{}, err
	}

	// already validated by the clock and uuid tags
	start, _ := availability.ParseTimeOfDay(req.StartTime)
	end, _ := availability.ParseTimeOfDay(req.EndTime)

	out := appointment.CreateRequest{
		TutorID:         tutorID,
		ProfessionalID:  uuid.MustParse(req.ProfessionalID),
		PetID:           uuid.MustParse(req.PetID),
		Date:            date,
		StartTime:       start,
		EndTime:         end,
		LocationType:    availability.LocationType(req.LocationType),
		LocationAddress: req.LocationAddress,
		Notes:           req.Notes,
		Price:           req.Price,
	}
	if req.ServiceID != nil {
		id := uuid.MustParse(*req.ServiceID)
		out.ServiceID = &id
	}
	return out, nil
}

func getAppointmentHandler(svc AppointmentService, log *logger.Logger) http.HandlerFunc {
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

		appt, err := svc.GetAppointment(r.Context(), id, actor)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func changeAppointmentStatusHandler(svc AppointmentService, v *RequestValidator, log *logger.Logger) http.HandlerFunc {
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

		var req ChangeAppointmentStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := v.Validate(req); err != nil {
			handleError(w, r, log, err)
			return
		}

		appt, err := svc.ChangeStatus(r.Context(), id, appointment.Status(req.Status), actor, req.Notes)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}
