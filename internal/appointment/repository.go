package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/availability"
)

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrProfessionalNotFound = errors.New("professional not found")

	// ErrStatusChanged is returned by a guarded update that lost a race with another transition.
	ErrStatusChanged = errors.New("appointment status changed concurrently")
)

// Tx is the view of the store inside one atomic unit. Everything done through it commits
// or rolls back together.
type Tx interface {
	ProfessionalActive(ctx context.Context, professionalID uuid.UUID) (bool, error)

	IsBlocked(ctx context.Context, professionalID uuid.UUID, date time.Time) (bool, error)
	ListWindows(ctx context.Context, professionalID uuid.UUID) ([]availability.Window, error)
	ListActiveIntervals(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]availability.Interval, error)

	// ConsumeCredit reports false, writing nothing, when the professional has no credit left.
	ConsumeCredit(ctx context.Context, professionalID uuid.UUID, description string) (bool, error)

	Insert(ctx context.Context, a *Appointment) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus persists a's status and lifecycle timestamps only if the row is still in from.
	UpdateStatus(ctx context.Context, a *Appointment, from Status) error

	InsertEvent(ctx context.Context, ev StatusEvent) error
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// InDayTx runs fn in a transaction serialised with every other InDayTx for the same
	// professional and date.
	InDayTx(ctx context.Context, professionalID uuid.UUID, date time.Time, fn func(tx Tx) error) error
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	InsertLost(ctx context.Context, l LostAppointment) error

	// Sweeps
	ListStalePending(ctx context.Context, createdBefore, startsBefore time.Time, limit int) ([]Appointment, error)
	ListDueReminders(ctx context.Context, from, to time.Time, limit int) ([]Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}
