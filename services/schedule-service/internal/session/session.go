// Package session owns the server-side state of one open schedule view: the
// date window, the staff columns read at open time, the slot grid, the
// pointer selection machine and the appointment store. A session is the unit
// the HTTP surface addresses; all mutations for a view flow through it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/schedule"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/selection"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"
)

var ErrInvalidSelection = errors.New("session: selection indexes out of range")

type PointerAction string

const (
	ActionDown   PointerAction = "down"
	ActionMove   PointerAction = "move"
	ActionUp     PointerAction = "up"
	ActionCancel PointerAction = "cancel"
	ActionLeave  PointerAction = "leave"
)

// PointerEvent is one pointer sample routed to the session's selection
// machine. At defaults to the server clock when zero.
type PointerEvent struct {
	Action PointerAction
	Cell   selection.Cell
	At     time.Time
}

// ResolvedSelection is an emitted selection with its grid indexes mapped to
// concrete schedule coordinates.
type ResolvedSelection struct {
	Selection selection.Selection `json:"selection"`
	Date      model.Date          `json:"date"`
	StaffID   string              `json:"staff_id"`
	Start     timegrid.TimeOfDay  `json:"-"`
	End       timegrid.TimeOfDay  `json:"-"`
}

// PointerResult reports the machine state after an event and, when the event
// resolved the sequence, the selection it produced.
type PointerResult struct {
	State    selection.State
	Resolved *ResolvedSelection
}

type Session struct {
	id string

	mu       sync.Mutex
	lastSeen time.Time

	dates []model.Date
	staff []model.StaffMember
	week  timegrid.WeekSchedule
	grid  *timegrid.Grid

	machine *selection.Machine
	store   *schedule.Store
	now     func() time.Time
}

func (s *Session) ID() string { return s.id }

// Dates returns the window's dates in column order.
func (s *Session) Dates() []model.Date { return s.dates }

// Staff returns the roster read at open time. Immutable for the session's
// lifetime; roster changes require reopening the view.
func (s *Session) Staff() []model.StaffMember { return s.staff }

func (s *Session) Grid() *timegrid.Grid { return s.grid }

func (s *Session) Week() timegrid.WeekSchedule { return s.week }

// interactable is the hit-test the selection machine consults: the cell must
// address a real column and an open, in-hours, pre-cutoff slot.
func (s *Session) interactable(c selection.Cell) bool {
	if c.DateIndex < 0 || c.DateIndex >= len(s.dates) {
		return false
	}
	if c.StaffIndex < 0 || c.StaffIndex >= len(s.staff) {
		return false
	}
	return s.grid.IsInteractable(s.week, s.dates[c.DateIndex].Weekday(), c.TimeIndex)
}

// Pointer routes one pointer event through the selection machine.
func (s *Session) Pointer(ev PointerEvent) (PointerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := ev.At
	if at.IsZero() {
		at = s.now()
	}
	s.lastSeen = s.now()

	var (
		sel selection.Selection
		ok  bool
	)
	switch ev.Action {
	case ActionDown:
		s.machine.PointerDown(ev.Cell, at)
	case ActionMove:
		s.machine.PointerMove(ev.Cell, at)
	case ActionUp:
		sel, ok = s.machine.PointerUp(at)
	case ActionLeave:
		sel, ok = s.machine.PointerLeave(at)
	case ActionCancel:
		s.machine.Cancel()
	default:
		return PointerResult{}, fmt.Errorf("session: unknown pointer action %q", ev.Action)
	}

	res := PointerResult{State: s.machine.State()}
	if ok {
		resolved, err := s.resolve(sel)
		if err != nil {
			return PointerResult{}, err
		}
		res.Resolved = &resolved
	}
	return res, nil
}

func (s *Session) resolve(sel selection.Selection) (ResolvedSelection, error) {
	if sel.DateIndex < 0 || sel.DateIndex >= len(s.dates) ||
		sel.StaffIndex < 0 || sel.StaffIndex >= len(s.staff) ||
		!s.grid.Contains(sel.StartTimeIndex) || !s.grid.Contains(sel.EndTimeIndex) {
		return ResolvedSelection{}, ErrInvalidSelection
	}
	return ResolvedSelection{
		Selection: sel,
		Date:      s.dates[sel.DateIndex],
		StaffID:   s.staff[sel.StaffIndex].ID,
		Start:     s.grid.TimeAt(sel.StartTimeIndex),
		End:       s.grid.EndOfSlot(sel.EndTimeIndex),
	}, nil
}

// CommitInput carries the form fields entered after a selection resolved.
type CommitInput struct {
	Selection selection.Selection
	Title     string
	Notes     string
	Type      model.AppointmentType
}

// CommitSelection turns a resolved selection plus form fields into a stored
// appointment. The staff display name and color are denormalized from the
// session's roster snapshot.
func (s *Session) CommitSelection(ctx context.Context, in CommitInput) (model.Appointment, error) {
	s.mu.Lock()
	resolved, err := s.resolve(in.Selection)
	if err != nil {
		s.mu.Unlock()
		return model.Appointment{}, err
	}
	staff := s.staff[in.Selection.StaffIndex]
	s.lastSeen = s.now()
	s.mu.Unlock()

	return s.store.Create(ctx, schedule.CreateInput{
		Date:       resolved.Date,
		StaffID:    staff.ID,
		StaffName:  staff.Name,
		StaffColor: staff.Color,
		Start:      resolved.Start,
		End:        resolved.End,
		Title:      in.Title,
		Notes:      in.Notes,
		Type:       in.Type,
	})
}

// Appointments returns the window's live appointments.
func (s *Session) Appointments() []model.Appointment {
	from, to := s.store.Range()
	return s.store.ListForRange(from, to)
}

func (s *Session) UpdateAppointment(ctx context.Context, id string, patch model.AppointmentPatch) (model.Appointment, error) {
	s.touch()
	return s.store.Update(ctx, id, patch)
}

func (s *Session) DeleteAppointment(ctx context.Context, id string) error {
	s.touch()
	return s.store.SoftDelete(ctx, id)
}

func (s *Session) Undo(ctx context.Context) error {
	s.touch()
	return s.store.Undo(ctx)
}

func (s *Session) UndoDepth() int { return s.store.UndoDepth() }

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *Session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// extendGridFor grows the grid with after-hours rows so appointments ending
// past the configured day end still land on visible slots.
func (s *Session) extendGridFor(appts []model.Appointment) {
	for _, a := range appts {
		for s.grid.SlotCount() > 0 && a.End > s.grid.EndOfSlot(s.grid.SlotCount()-1) {
			s.grid.Extend(1)
		}
	}
}
