// Package selection resolves a pointer-down/move/up sequence into either a
// single-cell click or a multi-cell drag. The machine is pure: every event
// carries its own timestamp and the click-vs-drag race is decided by comparing
// timestamps against the arm delay, so callers (and tests) control time.
package selection

import "time"

// DefaultArmDelay is how long a press must be held before it arms a drag.
// A release before the delay, without crossing a cell boundary, is a click.
const DefaultArmDelay = 200 * time.Millisecond

// Cell identifies one grid cell. DateIndex and StaffIndex address a column,
// TimeIndex a row. Hit-testing from screen coordinates to a Cell is the
// caller's concern.
type Cell struct {
	DateIndex  int `json:"date_index"`
	StaffIndex int `json:"staff_index"`
	TimeIndex  int `json:"time_index"`
}

// Selection is the resolved outcome of one pointer sequence. StartTimeIndex
// and EndTimeIndex are inclusive, with Start <= End; a click yields
// Start == End.
type Selection struct {
	DateIndex      int `json:"date_index"`
	StaffIndex     int `json:"staff_index"`
	StartTimeIndex int `json:"start_time_index"`
	EndTimeIndex   int `json:"end_time_index"`
}

// SlotCount returns the number of slots the selection spans.
func (s Selection) SlotCount() int { return s.EndTimeIndex - s.StartTimeIndex + 1 }

type State int

const (
	// Idle: no press in progress.
	Idle State = iota
	// PendingCommit: pressed, racing the arm delay against pointer-up.
	PendingCommit
	// Dragging: the arm delay elapsed (or a cell boundary was crossed)
	// with the button still held; moves extend the range.
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingCommit:
		return "pending"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// InteractableFunc reports whether a cell can host a selection. Break slots,
// closed days, slots past the reception cutoff and extended rows all report
// false; pointer events on them are silently ignored.
type InteractableFunc func(Cell) bool

// Machine tracks one pointer sequence at a time. Not safe for concurrent
// use; the owning session serializes events.
type Machine struct {
	armDelay     time.Duration
	interactable InteractableFunc

	state     State
	anchor    Cell
	last      Cell
	pressedAt time.Time
}

// NewMachine builds a machine with the given arm delay (DefaultArmDelay if
// non-positive). interactable must not be nil.
func NewMachine(armDelay time.Duration, interactable InteractableFunc) *Machine {
	if armDelay <= 0 {
		armDelay = DefaultArmDelay
	}
	return &Machine{armDelay: armDelay, interactable: interactable}
}

// State reports the machine's state as of the last delivered event.
func (m *Machine) State() State { return m.state }

// Anchor returns the pressed cell. Only meaningful outside Idle.
func (m *Machine) Anchor() Cell { return m.anchor }

// PointerDown starts a sequence at c. A press on a non-interactable cell is
// ignored. A press while a sequence is already in progress discards the old
// sequence and starts over.
func (m *Machine) PointerDown(c Cell, at time.Time) {
	if !m.interactable(c) {
		m.reset()
		return
	}
	m.state = PendingCommit
	m.anchor = c
	m.last = c
	m.pressedAt = at
}

// PointerMove delivers a hover over c with the button held. While pending, a
// move that crosses a cell boundary (or arrives after the arm delay) promotes
// the machine to Dragging. While dragging, a move is accepted only when it
// stays in the anchor's date and staff column, targets an interactable cell,
// and does not run backward in time; anything else leaves the range as is.
func (m *Machine) PointerMove(c Cell, at time.Time) {
	switch m.state {
	case PendingCommit:
		if c == m.anchor && at.Sub(m.pressedAt) < m.armDelay {
			return
		}
		m.state = Dragging
		m.extend(c)
	case Dragging:
		m.extend(c)
	}
}

func (m *Machine) extend(c Cell) {
	if c.DateIndex != m.anchor.DateIndex || c.StaffIndex != m.anchor.StaffIndex {
		return
	}
	if !m.interactable(c) {
		return
	}
	if c.TimeIndex < m.anchor.TimeIndex {
		c.TimeIndex = m.anchor.TimeIndex
	}
	m.last = c
}

// PointerUp ends the sequence and reports the resolved Selection. The second
// return is false when nothing resolves (no press in progress). A release
// before the arm delay with no boundary crossing is a click on the anchor; a
// release afterward resolves the dragged range.
func (m *Machine) PointerUp(at time.Time) (Selection, bool) {
	defer m.reset()

	switch m.state {
	case PendingCommit:
		// Either a quick click, or the delay elapsed with no move event
		// (a drag that never left the anchor). Both resolve to the
		// anchor cell.
		return m.resolve(), true
	case Dragging:
		return m.resolve(), true
	default:
		return Selection{}, false
	}
}

// PointerLeave handles the pointer exiting the grid with the button held. An
// armed drag resolves at its current range; an unarmed press is discarded
// (leaving the grid mid-click is not a click).
func (m *Machine) PointerLeave(at time.Time) (Selection, bool) {
	defer m.reset()

	if m.state == Dragging {
		return m.resolve(), true
	}
	if m.state == PendingCommit && at.Sub(m.pressedAt) >= m.armDelay {
		return m.resolve(), true
	}
	return Selection{}, false
}

// Cancel discards any sequence in progress without resolving.
func (m *Machine) Cancel() { m.reset() }

func (m *Machine) resolve() Selection {
	start, end := m.anchor.TimeIndex, m.last.TimeIndex
	if end < start {
		start, end = end, start
	}
	return Selection{
		DateIndex:      m.anchor.DateIndex,
		StaffIndex:     m.anchor.StaffIndex,
		StartTimeIndex: start,
		EndTimeIndex:   end,
	}
}

func (m *Machine) reset() {
	m.state = Idle
	m.anchor = Cell{}
	m.last = Cell{}
	m.pressedAt = time.Time{}
}
