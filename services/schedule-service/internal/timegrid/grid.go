package timegrid

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultSlotMinutes is the grid granularity.
	DefaultSlotMinutes = 30
	// DefaultDayStart and DefaultDayEnd bound the standard reception grid.
	DefaultDayStart = TimeOfDay(9 * 60)  // 09:00
	DefaultDayEnd   = TimeOfDay(19 * 60) // 19:00
)

var ErrSlotNotFound = errors.New("timegrid: no slot at that time")

// Grid enumerates the fixed-duration time slots of one scheduling column.
// Slots are identified by index; index 0 starts at the configured day start.
// Extended slots (appended past the configured end) exist for display padding
// only and are never interactable.
type Grid struct {
	start       TimeOfDay
	end         TimeOfDay
	slotMinutes int
	baseSlots   int
	extraSlots  int
}

func New(start, end TimeOfDay, slotMinutes int) (*Grid, error) {
	if slotMinutes <= 0 {
		return nil, fmt.Errorf("timegrid: slot duration must be positive, got %d", slotMinutes)
	}
	if end <= start {
		return nil, fmt.Errorf("timegrid: day end %s must be after day start %s", end, start)
	}
	span := int(end - start)
	if span%slotMinutes != 0 {
		return nil, fmt.Errorf("timegrid: %s-%s is not a whole number of %d-minute slots", start, end, slotMinutes)
	}
	return &Grid{
		start:       start,
		end:         end,
		slotMinutes: slotMinutes,
		baseSlots:   span / slotMinutes,
	}, nil
}

func Default() *Grid {
	g, err := New(DefaultDayStart, DefaultDayEnd, DefaultSlotMinutes)
	if err != nil {
		panic(err) // defaults are statically valid
	}
	return g
}

func (g *Grid) SlotMinutes() int { return g.slotMinutes }

// SlotCount includes extended display slots.
func (g *Grid) SlotCount() int { return g.baseSlots + g.extraSlots }

func (g *Grid) BaseSlotCount() int { return g.baseSlots }

// Extend appends n display-only slots past the configured day end.
func (g *Grid) Extend(n int) {
	if n > 0 {
		g.extraSlots += n
	}
}

// IsExtended reports whether index falls in the display-only padding.
func (g *Grid) IsExtended(index int) bool {
	return index >= g.baseSlots && index < g.SlotCount()
}

// SlotIndexAt returns the slot starting exactly at t. There is no
// nearest-neighbor rounding: a time between slot boundaries is not found.
func (g *Grid) SlotIndexAt(t TimeOfDay) (int, error) {
	offset := int(t - g.start)
	if offset < 0 || offset%g.slotMinutes != 0 {
		return 0, ErrSlotNotFound
	}
	index := offset / g.slotMinutes
	if index >= g.SlotCount() {
		return 0, ErrSlotNotFound
	}
	return index, nil
}

// TimeAt returns the start time of the slot at index.
func (g *Grid) TimeAt(index int) TimeOfDay {
	return g.start + TimeOfDay(index*g.slotMinutes)
}

// EndOfSlot returns the end time of the slot at index (start + granularity;
// minute overflow rolls into the hour by construction of TimeOfDay).
func (g *Grid) EndOfSlot(index int) TimeOfDay {
	return g.TimeAt(index + 1)
}

// Contains reports whether index identifies any slot, extended included.
func (g *Grid) Contains(index int) bool {
	return index >= 0 && index < g.SlotCount()
}

// IsInteractable reports whether the slot at index accepts clicks and drags
// for the given weekday: closed days, break intervals, slots past the
// last-reception cutoff, and extended display slots are all inert.
func (g *Grid) IsInteractable(week WeekSchedule, weekday time.Weekday, index int) bool {
	if !g.Contains(index) || g.IsExtended(index) {
		return false
	}
	hours := week.For(weekday)
	if hours.Closed {
		return false
	}
	start := g.TimeAt(index)
	if start < hours.Open || start >= hours.Close {
		return false
	}
	if hours.Break != nil && start >= hours.Break.Start && start < hours.Break.End {
		return false
	}
	if hours.LastReception > 0 && start > hours.LastReception {
		return false
	}
	return true
}
