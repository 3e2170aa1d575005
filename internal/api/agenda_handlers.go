package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/calendar"
	"github.com/hackgods/vet-scheduling/internal/logger"
)

// GET /professionals/{id}/slots?date=2026-10-19&duration=30&location=clinic
func getSlotsHandler(svc SlotService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		q := r.URL.Query()
		date, err := parseDate("date", q.Get("date"))
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		duration := 0
		if raw := q.Get("duration"); raw != "" {
			duration, err = strconv.Atoi(raw)
			if err != nil {
				handleError(w, r, log, ValidationErrors{{Field: "duration", Message: "must be a number of minutes"}})
				return
			}
		}

		slots, err := svc.GetAvailableSlots(r.Context(), availability.SlotRequest{
			ProfessionalID:  id,
			Date:            date,
			DurationMinutes: duration,
			Location:        availability.LocationType(q.Get("location")),
		})
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotsResponse{
			ProfessionalID: id,
			Date:           date.Format(time.DateOnly),
			Slots:          slots,
		})
	}
}

// GET /professionals/{id}/calendar?start=2026-10-01&months=2
func getCalendarHandler(svc CalendarService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		q := r.URL.Query()
		start := time.Now().UTC()
		if raw := q.Get("start"); raw != "" {
			start, err = parseDate("start", raw)
			if err != nil {
				handleError(w, r, log, err)
				return
			}
		}

		months := 0
		if raw := q.Get("months"); raw != "" {
			months, err = strconv.Atoi(raw)
			if err != nil {
				handleError(w, r, log, ValidationErrors{{Field: "months", Message: "must be a number"}})
				return
			}
		}

		days, err := svc.GetCalendarAvailability(r.Context(), id, start, months)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, CalendarResponse{ProfessionalID: id, Days: formatDays(days)})
	}
}

func formatDays(days map[time.Time]calendar.Day) map[string]calendar.Day {
	out := make(map[string]calendar.Day, len(days))
	for d, v := range days {
		out[d.Format(time.DateOnly)] = v
	}
	return out
}
