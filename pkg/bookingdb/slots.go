package bookingdb

import (
	"sort"
	"time"
)

const (
	clockLayout = "15:04"
	slotStep    = 30 * time.Minute
)

// interval is a half-open busy window [start, end).
type interval struct {
	start time.Time
	end   time.Time
}

func (iv interval) overlaps(start, end time.Time) bool {
	return start.Before(iv.end) && iv.start.Before(end)
}

// freeSlots returns the start times between open and close where an
// appointment of the given duration fits without touching a busy window.
// Candidates advance on a fixed grid from the opening time.
func freeSlots(open, close time.Time, duration time.Duration, busy []interval) []time.Time {
	if duration <= 0 || !open.Before(close) {
		return nil
	}

	var out []time.Time
	for start := open; !start.Add(duration).After(close); start = start.Add(slotStep) {
		end := start.Add(duration)
		blocked := false
		for _, iv := range busy {
			if iv.overlaps(start, end) {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, start)
		}
	}
	return out
}

// mergeSlotTimes unions per-specialist availability into one sorted,
// de-duplicated clock-time list.
func mergeSlotTimes(perSpecialist [][]time.Time) []string {
	seen := make(map[string]struct{})
	for _, slots := range perSpecialist {
		for _, slot := range slots {
			seen[slot.Format(clockLayout)] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// dayWindow anchors the business "15:04" open/close clock times onto a date.
func dayWindow(date time.Time, openClock, closeClock string) (time.Time, time.Time, error) {
	open, err := time.Parse(clockLayout, openClock)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	close, err := time.Parse(clockLayout, closeClock)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	at := func(clock time.Time) time.Time {
		return time.Date(date.Year(), date.Month(), date.Day(),
			clock.Hour(), clock.Minute(), 0, 0, date.Location())
	}
	return at(open), at(close), nil
}
