package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the read side the compiler and the booking path need.
type Repository interface {
	ListWindows(ctx context.Context, professionalID uuid.UUID) ([]Window, error)
	IsBlocked(ctx context.Context, professionalID uuid.UUID, date time.Time) (bool, error)
	ListBlockedDates(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]BlockedDate, error)
	ListActiveIntervals(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]Interval, error)
}
