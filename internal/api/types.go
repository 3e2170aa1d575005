package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/appointment"
	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/calendar"
	"github.com/hackgods/vet-scheduling/internal/credit"
	"github.com/hackgods/vet-scheduling/internal/verification"
)

type CreateAppointmentRequest struct {
	TutorID         string   `json:"tutor_id" validate:"omitempty,uuid"`
	ProfessionalID  string   `json:"professional_id" validate:"required,uuid"`
	ServiceID       *string  `json:"service_id" validate:"omitempty,uuid"`
	PetID           string   `json:"pet_id" validate:"required,uuid"`
	Date            string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string   `json:"start_time" validate:"required,clock"`
	EndTime         string   `json:"end_time" validate:"required,clock"`
	LocationType    string   `json:"location_type" validate:"required,oneof=clinic home_visit"`
	LocationAddress *string  `json:"location_address" validate:"omitempty,max=500"`
	Notes           *string  `json:"notes" validate:"omitempty,max=2000"`
	Price           *float64 `json:"price" validate:"omitempty,gte=0"`
}

type ChangeAppointmentStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending confirmed cancelled completed no_show"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

type AddCreditsRequest struct {
	Amount int `json:"amount" validate:"required,gt=0,lte=100000"`
}

type ChangeVerificationRequest struct {
	Status string  `json:"status" validate:"required,oneof=not_verified under_review verified rejected"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	TutorID            uuid.UUID                 `json:"tutor_id"`
	ProfessionalID     uuid.UUID                 `json:"professional_id"`
	ServiceID          *uuid.UUID                `json:"service_id,omitempty"`
	PetID              uuid.UUID                 `json:"pet_id"`
	Date               string                    `json:"date"`
	StartTime          availability.TimeOfDay    `json:"start_time"`
	EndTime            availability.TimeOfDay    `json:"end_time"`
	LocationType       availability.LocationType `json:"location_type"`
	LocationAddress    *string                   `json:"location_address,omitempty"`
	Status             string                    `json:"status"`
	TutorNotes         *string                   `json:"tutor_notes,omitempty"`
	ProfessionalNotes  *string                   `json:"professional_notes,omitempty"`
	Price              *float64                  `json:"price,omitempty"`
	ConfirmedAt        *time.Time                `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time                `json:"cancelled_at,omitempty"`
	CancellationReason *string                   `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                 a.ID,
		TutorID:            a.TutorID,
		ProfessionalID:     a.ProfessionalID,
		ServiceID:          a.ServiceID,
		PetID:              a.PetID,
		Date:               a.Date.Format(time.DateOnly),
		StartTime:          a.StartTime,
		EndTime:            a.EndTime,
		LocationType:       a.LocationType,
		LocationAddress:    a.LocationAddress,
		Status:             string(a.Status),
		TutorNotes:         a.TutorNotes,
		ProfessionalNotes:  a.ProfessionalNotes,
		Price:              a.Price,
		ConfirmedAt:        a.ConfirmedAt,
		CancelledAt:        a.CancelledAt,
		CancellationReason: a.CancellationReason,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}

type SlotsResponse struct {
	ProfessionalID uuid.UUID           `json:"professional_id"`
	Date           string              `json:"date"`
	Slots          []availability.Slot `json:"slots"`
}

type CalendarResponse struct {
	ProfessionalID uuid.UUID               `json:"professional_id"`
	Days           map[string]calendar.Day `json:"days"`
}

type CreditTransactionsResponse struct {
	ProfessionalID uuid.UUID            `json:"professional_id"`
	Transactions   []credit.Transaction `json:"transactions"`
}

type VerificationResponse struct {
	State       *verification.State      `json:"state"`
	Eligibility verification.Eligibility `json:"eligibility"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}
