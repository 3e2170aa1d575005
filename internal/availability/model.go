package availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type LocationType string

const (
	LocationClinic    LocationType = "clinic"
	LocationHomeVisit LocationType = "home_visit"
	LocationBoth      LocationType = "both"
)

func (l LocationType) Valid() bool {
	switch l {
	case LocationClinic, LocationHomeVisit, LocationBoth:
		return true
	}
	return false
}

// Serves reports whether a window offered at l can host a booking requested at want.
// An empty want means no filter.
func (l LocationType) Serves(want LocationType) bool {
	if want == "" || want == LocationBoth || l == LocationBoth {
		return true
	}
	return l == want
}

var ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM between 00:00 and 24:00")

// TimeOfDay is a wall-clock instant within a day, in minutes since midnight. 1440 (24:00) is
// allowed as an exclusive end.
type TimeOfDay int

const endOfDay TimeOfDay = 24 * 60

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) == 8 { // HH:MM:SS as returned by postgres TIME
		s = s[:5]
	}
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidTimeOfDay
	}
	h, errH := strconv.Atoi(s[:2])
	m, errM := strconv.Atoi(s[3:])
	if errH != nil || errM != nil {
		return 0, ErrInvalidTimeOfDay
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, ErrInvalidTimeOfDay
	}
	return NewTimeOfDay(h, m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// On returns the absolute instant of t on date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(t) * time.Minute)
}

// ClockOf returns the TimeOfDay of an instant, truncated to the minute.
func ClockOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// DateOnly normalises t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overlaps is the half-open interval test: [aStart,aEnd) and [bStart,bEnd) share a minute.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}

// Window is a recurring weekly block of availability.
type Window struct {
	ID                  uuid.UUID
	ProfessionalID      uuid.UUID
	DayOfWeek           time.Weekday // 0=Sunday
	Start               TimeOfDay
	End                 TimeOfDay
	LocationType        LocationType
	SlotDurationMinutes int
}

// SlotCount is floor((end-start)/slotDuration).
func (w Window) SlotCount() int {
	if w.SlotDurationMinutes <= 0 || w.End <= w.Start {
		return 0
	}
	return int(w.End-w.Start) / w.SlotDurationMinutes
}

type BlockedDate struct {
	ID             uuid.UUID
	ProfessionalID uuid.UUID
	Date           time.Time
	Reason         *string
}

// Interval is an occupied span on one date (an active appointment).
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

type Slot struct {
	Start        TimeOfDay    `json:"slot_start"`
	End          TimeOfDay    `json:"slot_end"`
	LocationType LocationType `json:"location_type"`
}
