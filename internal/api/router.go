package api

import (
	"context"
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

type SlotService interface {
	GetAvailableSlots(ctx context.Context, req availability.SlotRequest) ([]availability.Slot, error)
}

type CalendarService interface {
	GetCalendarAvailability(ctx context.Context, professionalID uuid.UUID, startDate time.Time, monthsAhead int) (map[time.Time]calendar.Day, error)
}

type AppointmentService interface {
	Create(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, to appointment.Status, actor auth.Actor, notes *string) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID, actor auth.Actor) (*appointment.Appointment, error)
}

type CreditService interface {
	CheckCredits(ctx context.Context, professionalID uuid.UUID) (credit.Balance, error)
	AddCredits(ctx context.Context, professionalID uuid.UUID, amount int) (bool, error)
	ListCreditTransactions(ctx context.Context, professionalID uuid.UUID, limit int) ([]credit.Transaction, error)
}

type VerificationService interface {
	GetState(ctx context.Context, profileID uuid.UUID) (*verification.State, error)
	CanVerify(ctx context.Context, profileID uuid.UUID) (verification.Eligibility, error)
	ChangeStatus(ctx context.Context, profileID uuid.UUID, to verification.Status, actor auth.Actor, notes *string) (bool, error)
}

type TokenParser interface {
	Parse(raw string) (auth.Actor, error)
}

type RouterConfig struct {
	Slots        SlotService
	Calendar     CalendarService
	Appointments AppointmentService
	Credits      CreditService
	Verification VerificationService
	Tokens       TokenParser
	Health       *HealthHandler
	Log          *logger.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	v := NewRequestValidator(cfg.Log)

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(RecoverMiddleware(cfg.Log))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Log))

		r.Route("/professionals/{id}", func(r chi.Router) {
			r.Get("/slots", getSlotsHandler(cfg.Slots, cfg.Log))
			r.Get("/calendar", getCalendarHandler(cfg.Calendar, cfg.Log))

			r.Get("/credits", getCreditsHandler(cfg.Credits, cfg.Log))
			r.Post("/credits", addCreditsHandler(cfg.Credits, v, cfg.Log))
			r.Get("/credits/transactions", listCreditTransactionsHandler(cfg.Credits, cfg.Log))

			r.Get("/verification", getVerificationHandler(cfg.Verification, cfg.Log))
			r.Get("/verification/eligibility", getEligibilityHandler(cfg.Verification, cfg.Log))
			r.Put("/verification", changeVerificationHandler(cfg.Verification, v, cfg.Log))
		})

		r.Post("/appointments", createAppointmentHandler(cfg.Appointments, v, cfg.Log))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments, cfg.Log))
		r.Patch("/appointments/{id}/status", changeAppointmentStatusHandler(cfg.Appointments, v, cfg.Log))
	})

	return r
}
