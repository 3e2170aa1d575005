package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/vet-scheduling/internal/availability"
	"github.com/hackgods/vet-scheduling/internal/logger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func window(dow time.Weekday, start, end string, slot int) availability.Window {
	s, _ := availability.ParseTimeOfDay(start)
	e, _ := availability.ParseTimeOfDay(end)
	return availability.Window{
		ID:                  uuid.New(),
		DayOfWeek:           dow,
		Start:               s,
		End:                 e,
		LocationType:        availability.LocationClinic,
		SlotDurationMinutes: slot,
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		months   int
		from, to time.Time
	}{
		{"same month", day(2026, 10, 19), 0, day(2026, 10, 1), day(2026, 10, 31)},
		{"two ahead", day(2026, 10, 19), 2, day(2026, 10, 1), day(2026, 12, 31)},
		{"crosses year", day(2026, 12, 5), 2, day(2026, 12, 1), day(2027, 2, 28)},
		{"leap february", day(2028, 2, 10), 0, day(2028, 2, 1), day(2028, 2, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := Range(tt.start, tt.months)
			if !from.Equal(tt.from) || !to.Equal(tt.to) {
				t.Fatalf("got [%s, %s], want [%s, %s]", from, to, tt.from, tt.to)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	// 2026-10-19 is a Monday; 8 slots of 60 minutes.
	monday := day(2026, 10, 19)
	in := Input{
		From:    day(2026, 10, 1),
		To:      day(2026, 10, 31),
		Windows: []availability.Window{window(time.Monday, "08:00", "16:00", 60)},
		Blocked: map[time.Time]bool{day(2026, 10, 26): true},
		Booked: map[time.Time]int{
			monday:           3,
			day(2026, 10, 5): 8,
			day(2026, 10, 6): 2, // tuesday, no windows
		},
	}

	days := Aggregate(in)
	if len(days) != 31 {
		t.Fatalf("expected 31 days, got %d", len(days))
	}

	tests := []struct {
		date      time.Time
		status    DayStatus
		remaining int
	}{
		{monday, StatusPartial, 5},
		{day(2026, 10, 12), StatusAvailable, 8},
		{day(2026, 10, 26), StatusBlocked, 0},
		{day(2026, 10, 5), StatusUnavailable, 0},
		{day(2026, 10, 6), StatusUnavailable, 0},
		{day(2026, 10, 20), StatusUnavailable, 0},
	}

	for _, tt := range tests {
		got := days[tt.date]
		if got.Status != tt.status || got.RemainingSlots != tt.remaining {
			t.Errorf("%s: got %+v, want %s/%d", tt.date.Format(time.DateOnly), got, tt.status, tt.remaining)
		}
	}
}

func TestAggregateSumsWindowsOfTheSameWeekday(t *testing.T) {
	monday := day(2026, 10, 19)
	days := Aggregate(Input{
		From: monday,
		To:   monday,
		Windows: []availability.Window{
			window(time.Monday, "08:00", "12:00", 60),
			window(time.Monday, "14:00", "15:45", 30), // 3 slots, remainder dropped
		},
	})

	if got := days[monday]; got.Status != StatusAvailable || got.RemainingSlots != 7 {
		t.Fatalf("got %+v", got)
	}
}

type stubRepo struct {
	windows []availability.Window
	blocked []availability.BlockedDate
	counts  map[time.Time]int
	err     error

	from, to time.Time
}

func (r *stubRepo) ListWindows(context.Context, uuid.UUID) ([]availability.Window, error) {
	return r.windows, nil
}

func (r *stubRepo) ListBlockedDates(_ context.Context, _ uuid.UUID, from, to time.Time) ([]availability.BlockedDate, error) {
	r.from, r.to = from, to
	return r.blocked, nil
}

func (r *stubRepo) CountActiveByDate(context.Context, uuid.UUID, time.Time, time.Time) (map[time.Time]int, error) {
	return r.counts, r.err
}

func TestGetCalendarAvailability(t *testing.T) {
	repo := &stubRepo{
		windows: []availability.Window{window(time.Monday, "08:00", "10:00", 60)},
		blocked: []availability.BlockedDate{{Date: day(2026, 11, 2)}},
		counts:  map[time.Time]int{day(2026, 10, 19): 1},
	}
	svc := NewService(repo, logger.Nop(), 12)

	days, err := svc.GetCalendarAvailability(context.Background(), uuid.New(), day(2026, 10, 19), 1)
	if err != nil {
		t.Fatalf("GetCalendarAvailability: %v", err)
	}

	if len(days) != 31+30 {
		t.Fatalf("expected 61 days, got %d", len(days))
	}
	if got := days[day(2026, 10, 19)]; got.Status != StatusPartial || got.RemainingSlots != 1 {
		t.Fatalf("unexpected 19th: %+v", got)
	}
	if got := days[day(2026, 11, 2)]; got.Status != StatusBlocked {
		t.Fatalf("unexpected Nov 2nd: %+v", got)
	}
	if !repo.to.Equal(day(2026, 11, 30)) {
		t.Fatalf("unexpected range end %s", repo.to)
	}
}

func TestGetCalendarAvailabilityCapsMonths(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, logger.Nop(), 2)

	if _, err := svc.GetCalendarAvailability(context.Background(), uuid.New(), day(2026, 10, 19), 24); err != nil {
		t.Fatalf("GetCalendarAvailability: %v", err)
	}
	if !repo.to.Equal(day(2026, 12, 31)) {
		t.Fatalf("expected range capped at December, got %s", repo.to)
	}

	if _, err := svc.GetCalendarAvailability(context.Background(), uuid.New(), day(2026, 10, 19), -1); !errors.Is(err, ErrInvalidMonths) {
		t.Fatalf("expected ErrInvalidMonths, got %v", err)
	}
}

func TestGetCalendarAvailabilityDegradesOnStoreError(t *testing.T) {
	repo := &stubRepo{err: errors.New("connection reset")}
	svc := NewService(repo, logger.Nop(), 12)

	days, err := svc.GetCalendarAvailability(context.Background(), uuid.New(), day(2026, 10, 19), 0)
	if err != nil {
		t.Fatalf("expected degraded result, got error %v", err)
	}
	if len(days) != 0 {
		t.Fatalf("expected empty calendar, got %d days", len(days))
	}
}
