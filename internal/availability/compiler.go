package availability

import (
	"sort"
	"time"
)

// Query describes one GetAvailableSlots call after the caller's data has been loaded.
type Query struct {
	Date            time.Time
	Windows         []Window   // every window of the professional; filtered by weekday here
	Blocked         bool       // date is a BlockedDate
	Booked          []Interval // active (pending/confirmed) appointments on Date
	DurationMinutes int        // 0 means use each window's slot duration
	Location        LocationType
	NotBefore       TimeOfDay // slots starting earlier are dropped; 0 keeps everything
}

// CompileSlots turns recurring windows into the free slots of a single date.
//
// Each matching window is cut into consecutive slots of DurationMinutes (or the window's own
// SlotDurationMinutes when no duration is requested) starting at the window start; a trailing
// remainder shorter than one slot is discarded. Slots overlapping a booked interval are
// removed. The result is ordered by start time and free of duplicates.
func CompileSlots(q Query) []Slot {
	if q.Blocked {
		return []Slot{}
	}

	weekday := q.Date.Weekday()
	seen := make(map[Interval]bool)
	slots := make([]Slot, 0)

	for _, w := range q.Windows {
		if w.DayOfWeek != weekday || !w.LocationType.Serves(q.Location) {
			continue
		}

		step := w.SlotDurationMinutes
		if q.DurationMinutes > 0 {
			step = q.DurationMinutes
		}
		if step <= 0 {
			continue
		}

		for start := w.Start; start.Add(step) <= w.End; start = start.Add(step) {
			end := start.Add(step)
			if start < q.NotBefore {
				continue
			}
			if overlapsAny(start, end, q.Booked) {
				continue
			}
			key := Interval{Start: start, End: end}
			if seen[key] {
				continue
			}
			seen[key] = true
			slots = append(slots, Slot{Start: start, End: end, LocationType: w.LocationType})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].End < slots[j].End
	})

	return slots
}

// Covers reports whether [start,end) on date lies entirely inside one window of that weekday
// serving location.
func Covers(windows []Window, date time.Time, start, end TimeOfDay, location LocationType) bool {
	weekday := date.Weekday()
	for _, w := range windows {
		if w.DayOfWeek != weekday || !w.LocationType.Serves(location) {
			continue
		}
		if w.Start <= start && end <= w.End {
			return true
		}
	}
	return false
}

func overlapsAny(start, end TimeOfDay, booked []Interval) bool {
	for _, b := range booked {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}
