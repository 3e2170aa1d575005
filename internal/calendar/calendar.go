package calendar

import (
	"time"

	"github.com/hackgods/vet-scheduling/internal/availability"
)

type DayStatus string

const (
	StatusAvailable   DayStatus = "available"
	StatusPartial     DayStatus = "partial"
	StatusUnavailable DayStatus = "unavailable"
	StatusBlocked     DayStatus = "blocked"
)

type Day struct {
	Status         DayStatus `json:"status"`
	RemainingSlots int       `json:"remaining_slots"`
}

// Range returns [first day of start's month, last day of the month monthsAhead later].
func Range(start time.Time, monthsAhead int) (time.Time, time.Time) {
	y, m, _ := start.Date()
	from := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, monthsAhead+1, -1)
	return from, to
}

// Input is everything Aggregate needs, preloaded for the whole range.
type Input struct {
	From, To time.Time
	Windows  []availability.Window
	Blocked  map[time.Time]bool // keyed by availability.DateOnly
	Booked   map[time.Time]int  // active appointments per date
}

// Aggregate classifies every day in [From, To].
func Aggregate(in Input) map[time.Time]Day {
	perWeekday := make(map[time.Weekday]int, 7)
	for _, w := range in.Windows {
		perWeekday[w.DayOfWeek] += w.SlotCount()
	}

	days := make(map[time.Time]Day)
	for d := availability.DateOnly(in.From); !d.After(in.To); d = d.AddDate(0, 0, 1) {
		if in.Blocked[d] {
			days[d] = Day{Status: StatusBlocked, RemainingSlots: 0}
			continue
		}
		days[d] = classify(perWeekday[d.Weekday()], in.Booked[d])
	}
	return days
}

func classify(total, booked int) Day {
	remaining := total - booked
	if remaining < 0 {
		remaining = 0
	}

	switch {
	case total == 0:
		return Day{Status: StatusUnavailable, RemainingSlots: 0}
	case remaining == 0:
		return Day{Status: StatusUnavailable, RemainingSlots: 0}
	case booked > 0:
		return Day{Status: StatusPartial, RemainingSlots: remaining}
	default:
		return Day{Status: StatusAvailable, RemainingSlots: remaining}
	}
}
