package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/logger"
)

var (
	ErrInvalidDuration = errors.New("duration must not be negative")
	ErrInvalidLocation = errors.New("unknown location type")
)

type SlotRequest struct {
	ProfessionalID  uuid.UUID
	Date            time.Time
	DurationMinutes int
	Location        LocationType // optional filter
}

type Service struct {
	repo Repository
	log  *logger.Logger
	loc  *time.Location
	now  func() time.Time
}

// NewService builds the slot read path. loc is the agenda's wall-clock zone, used to decide
// which slots of "today" already started.
func NewService(repo Repository, log *logger.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, log: log, loc: loc, now: time.Now}
}

// GetAvailableSlots recomputes the free slots of one date on every call.
func (s *Service) GetAvailableSlots(ctx context.Context, req SlotRequest) ([]Slot, error) {
	if req.DurationMinutes < 0 {
		return nil, ErrInvalidDuration
	}
	if req.Location != "" && !req.Location.Valid() {
		return nil, ErrInvalidLocation
	}

	date := DateOnly(req.Date)

	blocked, err := s.repo.IsBlocked(ctx, req.ProfessionalID, date)
	if err != nil {
		return nil, fmt.Errorf("load blocked dates: %w", err)
	}
	if blocked {
		return []Slot{}, nil
	}

	windows, err := s.repo.ListWindows(ctx, req.ProfessionalID)
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}

	booked, err := s.repo.ListActiveIntervals(ctx, req.ProfessionalID, date)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	slots := CompileSlots(Query{
		Date:            date,
		Windows:         windows,
		Booked:          booked,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		NotBefore:       s.notBefore(date),
	})

	s.log.Debug("slots compiled",
		"professional_id", req.ProfessionalID,
		"date", date.Format(time.DateOnly),
		"windows", len(windows),
		"booked", len(booked),
		"slots", len(slots),
	)

	return slots, nil
}

// notBefore hides already-started slots when date is today in the agenda's zone.
func (s *Service) notBefore(date time.Time) TimeOfDay {
	now := s.now().In(s.loc)
	today := DateOnly(now)
	switch {
	case date.Equal(today):
		return ClockOf(now)
	case date.Before(today):
		return endOfDay
	}
	return 0
}
