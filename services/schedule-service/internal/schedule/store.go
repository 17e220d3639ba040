// Package schedule holds the in-memory appointment window for one console
// view and enforces placement rules. Every mutation is gated on the document
// store: nothing commits locally until the external write succeeds, and a
// full-range re-fetch reconciles the window after each write.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/persist"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/undo"
)

var (
	// ErrPlacementConflict: an overlapping live appointment exists for the
	// same staff member on the same date.
	ErrPlacementConflict = errors.New("schedule: placement conflicts with an existing appointment")
	// ErrNotFound: the id is not in the current window.
	ErrNotFound = errors.New("schedule: appointment not found in window")
	// ErrNothingToUndo: the undo stack is empty.
	ErrNothingToUndo = errors.New("schedule: nothing to undo")
	// ErrInvalidInput: the appointment's own fields fail validation.
	ErrInvalidInput = errors.New("schedule: invalid appointment")
)

// Store owns the appointment set for one visible date window. All methods are
// safe for concurrent use; mutations block until the document-store write
// round-trip completes.
type Store struct {
	mu     sync.Mutex
	syncer *persist.Syncer
	stack  *undo.Stack
	logger *slog.Logger

	from, to model.Date
	window   map[string]model.Appointment
	// Soft-deleted records stay queryable for undo and repeat-delete
	// idempotence even though fetches no longer return them.
	tombstones map[string]model.Appointment
}

func NewStore(syncer *persist.Syncer, stack *undo.Stack, logger *slog.Logger, from, to model.Date) *Store {
	return &Store{
		syncer:     syncer,
		stack:      stack,
		logger:     logger,
		from:       from,
		to:         to,
		window:     map[string]model.Appointment{},
		tombstones: map[string]model.Appointment{},
	}
}

func (s *Store) Range() (model.Date, model.Date) { return s.from, s.to }

// Hydrate replaces the window with the document store's current contents.
// Full overwrite, not a merge: stale reads are resolved by re-fetching.
func (s *Store) Hydrate(ctx context.Context) error {
	appts, err := s.syncer.FetchRange(ctx, s.from, s.to)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceWindow(appts)
	return nil
}

func (s *Store) replaceWindow(appts []model.Appointment) {
	s.window = make(map[string]model.Appointment, len(appts))
	for _, a := range appts {
		s.window[a.ID] = a
		// A fetched id that we hold a tombstone for was recreated; the
		// tombstone is obsolete.
		delete(s.tombstones, a.ID)
	}
}

// ListForRange returns the non-deleted appointments whose date falls in the
// inclusive [from, to] range, ordered by date, start time, then staff.
func (s *Store) ListForRange(from, to model.Date) []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Appointment
	for _, a := range s.window {
		if a.Date.In(from, to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].StaffID < out[j].StaffID
	})
	return out
}

// Get returns the appointment with id from the window, or its tombstone.
func (s *Store) Get(id string) (model.Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.window[id]; ok {
		return a, true
	}
	a, ok := s.tombstones[id]
	return a, ok
}

// ValidatePlacement checks candidate against every other live appointment in
// the window. Overlap test on half-open intervals:
// candidate.start < existing.end && candidate.end > existing.start.
func (s *Store) ValidatePlacement(candidate model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validatePlacementLocked(candidate)
}

func (s *Store) validatePlacementLocked(candidate model.Appointment) error {
	for _, existing := range s.window {
		if existing.ID == candidate.ID {
			continue
		}
		if candidate.Overlaps(existing) {
			return fmt.Errorf("%w: %s %s-%s (staff %s)",
				ErrPlacementConflict, existing.Date, existing.Start, existing.End, existing.StaffID)
		}
	}
	return nil
}

// CreateInput is a selection commit. Any client-supplied id is ignored; the
// store assigns a fresh one via the document store.
type CreateInput struct {
	Date       model.Date
	StaffID    string
	StaffName  string
	StaffColor string
	Start      timegrid.TimeOfDay
	End        timegrid.TimeOfDay
	Title      string
	Notes      string
	Type       model.AppointmentType
}

func (s *Store) Create(ctx context.Context, in CreateInput) (model.Appointment, error) {
	candidate := model.Appointment{
		Date:       in.Date,
		StaffID:    in.StaffID,
		StaffName:  in.StaffName,
		StaffColor: in.StaffColor,
		Start:      in.Start,
		End:        in.End,
		Title:      in.Title,
		Notes:      in.Notes,
		Type:       in.Type,
	}
	if candidate.Type == "" {
		candidate.Type = model.TypeGeneral
	}
	if err := validateFields(candidate); err != nil {
		return model.Appointment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !candidate.Date.In(s.from, s.to) {
		return model.Appointment{}, fmt.Errorf("%w: date %s outside window %s..%s", ErrInvalidInput, candidate.Date, s.from, s.to)
	}
	if err := s.validatePlacementLocked(candidate); err != nil {
		return model.Appointment{}, err
	}

	id, err := s.syncer.WriteCreate(ctx, candidate)
	if err != nil {
		return model.Appointment{}, err
	}
	candidate.ID = id
	s.window[id] = candidate
	s.stack.Push(undo.Entry{Kind: undo.KindCreate, Appointment: candidate})
	s.refreshLocked(ctx)
	return candidate, nil
}

func (s *Store) Update(ctx context.Context, id string, patch model.AppointmentPatch) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.window[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	after := patch.Apply(before)
	if err := validateFields(after); err != nil {
		return model.Appointment{}, err
	}
	if err := s.validatePlacementLocked(after); err != nil {
		return model.Appointment{}, err
	}

	if err := s.syncer.WriteUpdate(ctx, id, patch); err != nil {
		return model.Appointment{}, err
	}
	s.window[id] = after
	s.stack.Push(undo.Entry{Kind: undo.KindUpdate, Before: before, After: after})
	s.refreshLocked(ctx)
	return after, nil
}

// SoftDelete tombstones the appointment. Deleting an already-tombstoned id is
// a no-op, not an error.
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.tombstones[id]; done {
		return nil
	}
	appt, ok := s.window[id]
	if !ok {
		return ErrNotFound
	}

	if err := s.syncer.WriteDelete(ctx, id); err != nil {
		return err
	}
	appt.Deleted = true
	s.tombstones[id] = appt
	delete(s.window, id)
	s.stack.Push(undo.Entry{Kind: undo.KindDelete, Appointment: appt})
	s.refreshLocked(ctx)
	return nil
}

// Undo reverses the most recent mutation through the same persistence path.
// Inverse operations do not push new undo entries; repeated calls keep
// popping further back. On a failed write the entry is pushed back so the
// user can retry.
func (s *Store) Undo(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.stack.Pop()
	if !ok {
		return ErrNothingToUndo
	}

	var err error
	switch entry.Kind {
	case undo.KindCreate:
		err = s.syncer.WriteDelete(ctx, entry.Appointment.ID)
		if err == nil {
			appt := entry.Appointment
			appt.Deleted = true
			s.tombstones[appt.ID] = appt
			delete(s.window, appt.ID)
		}
	case undo.KindUpdate:
		patch := model.PatchFrom(entry.After, entry.Before)
		err = s.syncer.WriteUpdate(ctx, entry.Before.ID, patch)
		if err == nil {
			s.window[entry.Before.ID] = entry.Before
		}
	case undo.KindDelete:
		snapshot := entry.Appointment
		snapshot.Deleted = false
		var id string
		id, err = s.syncer.WriteCreate(ctx, snapshot)
		if err == nil {
			snapshot.ID = id
			delete(s.tombstones, entry.Appointment.ID)
			s.window[id] = snapshot
		}
	default:
		return fmt.Errorf("schedule: unknown undo entry kind %v", entry.Kind)
	}
	if err != nil {
		s.stack.Push(entry)
		return err
	}
	s.refreshLocked(ctx)
	return nil
}

func (s *Store) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stack.Len()
}

// refreshLocked re-fetches the window after a successful write. The write has
// already committed, so a failed reconcile only logs; the next fetch heals it.
func (s *Store) refreshLocked(ctx context.Context) {
	appts, err := s.syncer.FetchRange(ctx, s.from, s.to)
	if err != nil {
		s.logger.Warn("post-write refresh failed; window may be stale", "err", err)
		return
	}
	s.replaceWindow(appts)
}

func validateFields(a model.Appointment) error {
	if a.StaffID == "" {
		return fmt.Errorf("%w: staff id required", ErrInvalidInput)
	}
	if a.End <= a.Start {
		return fmt.Errorf("%w: end %s must be after start %s", ErrInvalidInput, a.End, a.Start)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidInput, a.Type)
	}
	return nil
}
