package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAppointmentCreated   EventType = "appointment_created"
	EventAppointmentConfirmed EventType = "appointment_confirmed"
	EventAppointmentCancelled EventType = "appointment_cancelled"
	EventAppointmentCompleted EventType = "appointment_completed"
	EventAppointmentNoShow    EventType = "appointment_no_show"
	EventAppointmentReminder  EventType = "appointment_reminder"
	EventVerificationChanged  EventType = "verification_status_changed"
)

// Event says "tell RecipientID that Type happened". Formatting and delivery belong to the sender.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	RecipientID uuid.UUID      `json:"recipient_id"`
	Type        EventType      `json:"type"`
	Payload     map[string]any `json:"payload,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

type Sender interface {
	Send(ctx context.Context, ev Event) error
}

// Notifier is what the domain services depend on.
type Notifier interface {
	Notify(ev Event)
}
