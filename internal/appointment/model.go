package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/availability"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Active statuses hold their interval and count against availability.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed:
		return true
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return false
	}
	return false
}

// CanTransition is the lifecycle guard table.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled || to == StatusNoShow
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return false
	}
	return false
}

type Appointment struct {
	ID                 uuid.UUID
	TutorID            uuid.UUID
	ProfessionalID     uuid.UUID
	ServiceID          *uuid.UUID
	PetID              uuid.UUID
	Date               time.Time
	StartTime          availability.TimeOfDay
	EndTime            availability.TimeOfDay
	LocationType       availability.LocationType
	LocationAddress    *string
	Status             Status
	TutorNotes         *string
	ProfessionalNotes  *string
	Price              *float64
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason *string
	ReminderSentAt     *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// StartsAt is the appointment's start instant in the agenda zone loc.
func (a Appointment) StartsAt(loc *time.Location) time.Time {
	y, m, d := a.Date.Date()
	return a.StartTime.On(time.Date(y, m, d, 0, 0, 0, 0, loc))
}

type LostReason string

const (
	LostNoCredits            LostReason = "NO_CREDITS_AVAILABLE"
	LostProfessionalInactive LostReason = "PROFESSIONAL_INACTIVE"
)

// LostAppointment records a booking refused for capacity reasons.
type LostAppointment struct {
	ID             uuid.UUID
	TutorID        uuid.UUID
	ProfessionalID uuid.UUID
	ServiceID      *uuid.UUID
	AttemptedDate  time.Time
	Reason         LostReason
	CreatedAt      time.Time
}

// StatusEvent is one row of the appointment's transition history. OldStatus is empty for
// the creation event.
type StatusEvent struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	OldStatus     Status
	NewStatus     Status
	ActorID       uuid.UUID
	ActorRole     string
	Notes         *string
	CreatedAt     time.Time
}
