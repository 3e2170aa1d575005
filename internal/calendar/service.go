package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/logger"
)

var ErrInvalidMonths = errors.New("monthsAhead must not be negative")

type Service struct {
	repo      Repository
	log       *logger.Logger
	maxMonths int
}

func NewService(repo Repository, log *logger.Logger, maxMonths int) *Service {
	return &Service{repo: repo, log: log, maxMonths: maxMonths}
}

// GetCalendarAvailability returns per-day occupancy from the first of startDate's month to the
// end of the month monthsAhead later. It takes no locks; counts may trail concurrent bookings.
//
// Store failures degrade to an empty calendar and are logged, not returned.
func (s *Service) GetCalendarAvailability(ctx context.Context, professionalID uuid.UUID, startDate time.Time, monthsAhead int) (map[time.Time]Day, error) {
	if monthsAhead < 0 {
		return nil, ErrInvalidMonths
	}
	if s.maxMonths > 0 && monthsAhead > s.maxMonths {
		monthsAhead = s.maxMonths
	}

	from, to := Range(startDate, monthsAhead)
	empty := map[time.Time]Day{}

	windows, err := s.repo.ListWindows(ctx, professionalID)
	if err != nil {
		s.log.Error("calendar: load windows failed", "professional_id", professionalID, "error", err)
		return empty, nil
	}

	blockedDates, err := s.repo.ListBlockedDates(ctx, professionalID, from, to)
	if err != nil {
		s.log.Error("calendar: load blocked dates failed", "professional_id", professionalID, "error", err)
		return empty, nil
	}

	booked, err := s.repo.CountActiveByDate(ctx, professionalID, from, to)
	if err != nil {
		s.log.Error("calendar: count appointments failed", "professional_id", professionalID, "error", err)
		return empty, nil
	}

	blocked := make(map[time.Time]bool, len(blockedDates))
	for _, b := range blockedDates {
		blocked[availability.DateOnly(b.Date)] = true
	}

	return Aggregate(Input{
		From:    from,
		To:      to,
		Windows: windows,
		Blocked: blocked,
		Booked:  booked,
	}), nil
}
