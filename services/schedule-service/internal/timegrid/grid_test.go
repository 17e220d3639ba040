package timegrid

import (
	"errors"
	"testing"
	"time"
)

func TestSlotTimeRoundTrip(t *testing.T) {
	g := Default()
	for i := 0; i < g.SlotCount(); i++ {
		start := g.TimeAt(i)
		back, err := g.SlotIndexAt(start)
		if err != nil {
			t.Fatalf("slot %d (%s): %v", i, start, err)
		}
		if back != i {
			t.Fatalf("slot %d round-tripped to %d", i, back)
		}
		if g.TimeAt(back) != start {
			t.Fatalf("slot %d: time %s != %s", i, g.TimeAt(back), start)
		}
	}
}

func TestSlotIndexAtExactMatchOnly(t *testing.T) {
	g := Default()
	if _, err := g.SlotIndexAt(NewTimeOfDay(9, 15)); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound for 09:15, got %v", err)
	}
	if _, err := g.SlotIndexAt(NewTimeOfDay(8, 30)); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound before opening, got %v", err)
	}
	if _, err := g.SlotIndexAt(NewTimeOfDay(19, 0)); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound at day end, got %v", err)
	}
}

func TestEndOfSlotRollsHour(t *testing.T) {
	g := Default()
	idx, err := g.SlotIndexAt(NewTimeOfDay(9, 30))
	if err != nil {
		t.Fatalf("slot at 09:30: %v", err)
	}
	if got := g.EndOfSlot(idx); got != NewTimeOfDay(10, 0) {
		t.Fatalf("end of 09:30 slot = %s, want 10:00", got)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("18:30")
	if err != nil {
		t.Fatalf("parse 18:30: %v", err)
	}
	if got != NewTimeOfDay(18, 30) {
		t.Fatalf("parsed %d, want %d", got, NewTimeOfDay(18, 30))
	}
	for _, bad := range []string{"1830", "25:00", "09:5", "09:61", ""} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestIsInteractable(t *testing.T) {
	g := Default()
	week := DefaultWeek()

	mustIndex := func(hour, minute int) int {
		t.Helper()
		idx, err := g.SlotIndexAt(NewTimeOfDay(hour, minute))
		if err != nil {
			t.Fatalf("slot at %02d:%02d: %v", hour, minute, err)
		}
		return idx
	}

	if !g.IsInteractable(week, time.Tuesday, mustIndex(10, 0)) {
		t.Fatal("10:00 Tuesday should be interactable")
	}
	if g.IsInteractable(week, time.Tuesday, mustIndex(13, 0)) {
		t.Fatal("13:00 falls in the break and must be inert")
	}
	if g.IsInteractable(week, time.Tuesday, mustIndex(13, 30)) {
		t.Fatal("13:30 falls in the break and must be inert")
	}
	if !g.IsInteractable(week, time.Tuesday, mustIndex(14, 0)) {
		t.Fatal("14:00 is the end of the break and should be interactable")
	}
	if g.IsInteractable(week, time.Sunday, mustIndex(10, 0)) {
		t.Fatal("closed day must be inert")
	}
}

func TestLastReceptionCutoff(t *testing.T) {
	g := Default()
	week := DefaultWeek()
	week[time.Monday].LastReception = NewTimeOfDay(17, 0)

	at17, _ := g.SlotIndexAt(NewTimeOfDay(17, 0))
	at1730, _ := g.SlotIndexAt(NewTimeOfDay(17, 30))
	if !g.IsInteractable(week, time.Monday, at17) {
		t.Fatal("slot at the cutoff itself should be interactable")
	}
	if g.IsInteractable(week, time.Monday, at1730) {
		t.Fatal("slot past the cutoff must be inert")
	}
}

func TestExtendedSlotsAreInert(t *testing.T) {
	g := Default()
	week := DefaultWeek()
	base := g.SlotCount()

	g.Extend(2)
	if g.SlotCount() != base+2 {
		t.Fatalf("slot count = %d, want %d", g.SlotCount(), base+2)
	}
	if !g.IsExtended(base) {
		t.Fatal("first appended slot should be extended")
	}
	if g.TimeAt(base) != NewTimeOfDay(19, 0) {
		t.Fatalf("extended slot starts at %s, want 19:00", g.TimeAt(base))
	}
	// Extended slots stay visible but reject interaction on every weekday.
	for day := time.Sunday; day <= time.Saturday; day++ {
		if g.IsInteractable(week, day, base) {
			t.Fatalf("extended slot interactable on %s", day)
		}
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(NewTimeOfDay(9, 0), NewTimeOfDay(9, 0), 30); err == nil {
		t.Fatal("expected error for empty day")
	}
	if _, err := New(NewTimeOfDay(9, 0), NewTimeOfDay(19, 15), 30); err == nil {
		t.Fatal("expected error for non-whole slot span")
	}
	if _, err := New(NewTimeOfDay(9, 0), NewTimeOfDay(19, 0), 0); err == nil {
		t.Fatal("expected error for zero slot duration")
	}
}
