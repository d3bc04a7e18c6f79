package bookingdb

import (
	"reflect"
	"testing"
	"time"
)

func mustClock(t *testing.T, day, clock string) time.Time {
	t.Helper()
	ts, err := time.Parse(startLayout, day+" "+clock)
	if err != nil {
		t.Fatalf("parse %s %s: %v", day, clock, err)
	}
	return ts
}

func TestFreeSlotsOpenDay(t *testing.T) {
	t.Parallel()

	open := mustClock(t, "2026-03-11", "09:00")
	close := mustClock(t, "2026-03-11", "11:00")

	got := freeSlots(open, close, 30*time.Minute, nil)
	want := []string{"09:00", "09:30", "10:00", "10:30"}
	if !reflect.DeepEqual(clockStrings(got), want) {
		t.Errorf("slots = %v, want %v", clockStrings(got), want)
	}
}

func TestFreeSlotsExcludesBusyWindows(t *testing.T) {
	t.Parallel()

	open := mustClock(t, "2026-03-11", "09:00")
	close := mustClock(t, "2026-03-11", "12:00")
	busy := []interval{
		{start: mustClock(t, "2026-03-11", "09:30"), end: mustClock(t, "2026-03-11", "10:00")},
		{start: mustClock(t, "2026-03-11", "11:00"), end: mustClock(t, "2026-03-11", "11:30")},
	}

	got := clockStrings(freeSlots(open, close, 30*time.Minute, busy))
	want := []string{"09:00", "10:00", "10:30", "11:30"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("slots = %v, want %v", got, want)
	}
}

func TestFreeSlotsLongServiceRespectsClosing(t *testing.T) {
	t.Parallel()

	open := mustClock(t, "2026-03-11", "17:00")
	close := mustClock(t, "2026-03-11", "19:00")

	// A 90-minute service fits at 17:00 and 17:30 only.
	got := clockStrings(freeSlots(open, close, 90*time.Minute, nil))
	want := []string{"17:00", "17:30"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("slots = %v, want %v", got, want)
	}
}

func TestFreeSlotsOverlapIsHalfOpen(t *testing.T) {
	t.Parallel()

	open := mustClock(t, "2026-03-11", "09:00")
	close := mustClock(t, "2026-03-11", "10:30")
	// Busy ends exactly at 09:30; a slot starting 09:30 is fine.
	busy := []interval{{start: mustClock(t, "2026-03-11", "09:00"), end: mustClock(t, "2026-03-11", "09:30")}}

	got := clockStrings(freeSlots(open, close, 30*time.Minute, busy))
	want := []string{"09:30", "10:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("slots = %v, want %v", got, want)
	}
}

func TestFreeSlotsDegenerateInputs(t *testing.T) {
	t.Parallel()

	open := mustClock(t, "2026-03-11", "09:00")
	if got := freeSlots(open, open, 30*time.Minute, nil); got != nil {
		t.Errorf("zero-width day produced slots: %v", got)
	}
	if got := freeSlots(open, open.Add(time.Hour), 0, nil); got != nil {
		t.Errorf("zero duration produced slots: %v", got)
	}
}

func TestMergeSlotTimesUnionsAndSorts(t *testing.T) {
	t.Parallel()

	a := []time.Time{mustClock(t, "2026-03-11", "10:00"), mustClock(t, "2026-03-11", "09:00")}
	b := []time.Time{mustClock(t, "2026-03-11", "10:00"), mustClock(t, "2026-03-11", "11:00")}

	got := mergeSlotTimes([][]time.Time{a, b})
	want := []string{"09:00", "10:00", "11:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merged = %v, want %v", got, want)
	}
}

func TestDayWindow(t *testing.T) {
	t.Parallel()

	day, _ := time.Parse(dateLayout, "2026-03-11")
	open, close, err := dayWindow(day, "09:00", "19:00")
	if err != nil {
		t.Fatalf("day window: %v", err)
	}
	if open.Format(startLayout) != "2026-03-11 09:00" || close.Format(startLayout) != "2026-03-11 19:00" {
		t.Errorf("window = %s .. %s", open.Format(startLayout), close.Format(startLayout))
	}

	if _, _, err := dayWindow(day, "9am", "19:00"); err == nil {
		t.Error("malformed open time accepted")
	}
}

func TestParseStartLayouts(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"2026-03-11 15:30", "2026-03-11T15:30", "2026-03-11T15:30:00Z"} {
		ts, err := parseStart(raw)
		if err != nil {
			t.Errorf("parseStart(%q): %v", raw, err)
			continue
		}
		if ts.Hour() != 15 || ts.Minute() != 30 {
			t.Errorf("parseStart(%q) = %v", raw, ts)
		}
	}
	if _, err := parseStart("mañana a las tres"); err == nil {
		t.Error("free-text timestamp accepted")
	}
}

func clockStrings(slots []time.Time) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Format(clockLayout))
	}
	return out
}
