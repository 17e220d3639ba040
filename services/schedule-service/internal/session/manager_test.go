package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/docstore"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/persist"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/roster"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/selection"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"
)

// 2026-03-10 is a Tuesday.
const testDate = model.Date("2026-03-10")

var testStaff = []model.StaffMember{
	{ID: "s1", Name: "Dr. Aoki", Color: "#80c0ff", Active: true},
	{ID: "s2", Name: "Dr. Ito", Color: "#ffc080", Active: true},
}

func newTestManager(t *testing.T) (*Manager, *docstore.Memory) {
	t.Helper()
	mem := docstore.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(
		persist.NewSyncer(mem, logger),
		roster.NewStaticProvider(testStaff),
		logger,
		Config{Week: timegrid.DefaultWeek()},
	)
	return m, mem
}

func openTestSession(t *testing.T, m *Manager, days int) *Session {
	t.Helper()
	s, err := m.Open(context.Background(), OpenInput{StartDate: testDate, Days: days})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestOpenBuildsWindow(t *testing.T) {
	m, _ := newTestManager(t)
	s := openTestSession(t, m, 3)

	if len(s.Dates()) != 3 {
		t.Fatalf("dates = %v, want 3 days", s.Dates())
	}
	if s.Dates()[0] != testDate || s.Dates()[2] != testDate.AddDays(2) {
		t.Fatalf("unexpected dates %v", s.Dates())
	}
	if len(s.Staff()) != 2 {
		t.Fatalf("staff = %d, want 2", len(s.Staff()))
	}
	// 09:00-19:00 at 30 minutes is 20 slots.
	if got := s.Grid().SlotCount(); got != 20 {
		t.Fatalf("slot count = %d, want 20", got)
	}
	if m.Len() != 1 {
		t.Fatalf("manager tracks %d sessions, want 1", m.Len())
	}
}

func TestOpenRejectsOversizedWindow(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Open(context.Background(), OpenInput{StartDate: testDate, Days: 14}); err == nil {
		t.Fatal("expected error for oversized window")
	}
}

func TestOpenRejectsBadDate(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Open(context.Background(), OpenInput{StartDate: "10-03-2026", Days: 1}); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestClickDragCommitFlow(t *testing.T) {
	m, _ := newTestManager(t)
	s := openTestSession(t, m, 1)
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Hold slot 2 (10:00) and drag to slot 4 (11:00-11:30).
	cell := selection.Cell{DateIndex: 0, StaffIndex: 0, TimeIndex: 2}
	if _, err := s.Pointer(PointerEvent{Action: ActionDown, Cell: cell, At: t0}); err != nil {
		t.Fatalf("down: %v", err)
	}
	cell.TimeIndex = 4
	if _, err := s.Pointer(PointerEvent{Action: ActionMove, Cell: cell, At: t0.Add(250 * time.Millisecond)}); err != nil {
		t.Fatalf("move: %v", err)
	}
	res, err := s.Pointer(PointerEvent{Action: ActionUp, At: t0.Add(400 * time.Millisecond)})
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if res.Resolved == nil {
		t.Fatal("drag did not resolve a selection")
	}
	if res.Resolved.Date != testDate || res.Resolved.StaffID != "s1" {
		t.Fatalf("resolved to %s/%s", res.Resolved.Date, res.Resolved.StaffID)
	}
	if res.Resolved.Start != timegrid.NewTimeOfDay(10, 0) || res.Resolved.End != timegrid.NewTimeOfDay(11, 30) {
		t.Fatalf("resolved times %s-%s", res.Resolved.Start, res.Resolved.End)
	}

	appt, err := s.CommitSelection(context.Background(), CommitInput{
		Selection: res.Resolved.Selection,
		Title:     "Checkup",
		Type:      model.TypeReservation,
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if appt.StaffName != "Dr. Aoki" || appt.StaffColor != "#80c0ff" {
		t.Fatalf("staff fields not denormalized: %+v", appt)
	}

	appts := s.Appointments()
	if len(appts) != 1 || appts[0].Start != timegrid.NewTimeOfDay(10, 0) {
		t.Fatalf("window after commit: %+v", appts)
	}
}

func TestClickOnBreakSlotResolvesNothing(t *testing.T) {
	m, _ := newTestManager(t)
	s := openTestSession(t, m, 1)
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Slot 8 starts at 13:00, inside the default break.
	cell := selection.Cell{DateIndex: 0, StaffIndex: 0, TimeIndex: 8}
	if _, err := s.Pointer(PointerEvent{Action: ActionDown, Cell: cell, At: t0}); err != nil {
		t.Fatalf("down: %v", err)
	}
	res, err := s.Pointer(PointerEvent{Action: ActionUp, At: t0.Add(50 * time.Millisecond)})
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if res.Resolved != nil {
		t.Fatalf("break slot resolved %+v, want silent no-op", res.Resolved)
	}
}

func TestCommitRejectsOutOfRangeSelection(t *testing.T) {
	m, _ := newTestManager(t)
	s := openTestSession(t, m, 1)

	_, err := s.CommitSelection(context.Background(), CommitInput{
		Selection: selection.Selection{DateIndex: 5, StartTimeIndex: 0, EndTimeIndex: 0},
		Title:     "bad",
	})
	if !errors.Is(err, ErrInvalidSelection) {
		t.Fatalf("expected ErrInvalidSelection, got %v", err)
	}
}

func TestUndoThroughSession(t *testing.T) {
	m, _ := newTestManager(t)
	s := openTestSession(t, m, 1)

	_, err := s.CommitSelection(context.Background(), CommitInput{
		Selection: selection.Selection{DateIndex: 0, StaffIndex: 0, StartTimeIndex: 2, EndTimeIndex: 2},
		Title:     "Checkup",
		Type:      model.TypeGeneral,
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := s.Undo(context.Background()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := len(s.Appointments()); got != 0 {
		t.Fatalf("window has %d records after undo", got)
	}
}

func TestGridExtendsForAfterHoursAppointments(t *testing.T) {
	mem := docstore.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := persist.NewSyncer(mem, logger)

	// Pre-seed a record running past the 19:00 day end.
	_, err := mem.Insert(context.Background(), docstore.Record{
		Date: testDate.String(), StaffID: "s1", StaffName: "Dr. Aoki",
		StartTime: "19:00", EndTime: "20:00", Type: "general",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	m := NewManager(syncer, roster.NewStaticProvider(testStaff), logger, Config{Week: timegrid.DefaultWeek()})
	s := openTestSession(t, m, 1)

	// Two extended 30-minute rows cover 19:00-20:00.
	if got := s.Grid().SlotCount(); got != 22 {
		t.Fatalf("slot count = %d, want 22 after extension", got)
	}
	if s.Grid().IsInteractable(s.Week(), testDate.Weekday(), 20) {
		t.Fatal("extended slots must stay inert")
	}
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	m, _ := newTestManager(t)

	clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return clock })

	idle := openTestSession(t, m, 1)
	openTestSession(t, m, 1)

	// Advance past the TTL; only a session opened afterward stays fresh.
	clock = clock.Add(31 * time.Minute)
	live := openTestSession(t, m, 1)

	if n := m.sweep(); n != 2 {
		t.Fatalf("sweep expired %d sessions, want 2", n)
	}
	if _, ok := m.Get(idle.ID()); ok {
		t.Fatal("idle session survived sweep")
	}
	if _, ok := m.Get(live.ID()); !ok {
		t.Fatal("fresh session was swept")
	}
}

func TestCloseSession(t *testing.T) {
	m, _ := newTestManager(t)
	s := openTestSession(t, m, 1)

	if !m.Close(s.ID()) {
		t.Fatal("close reported unknown session")
	}
	if m.Close(s.ID()) {
		t.Fatal("second close should report false")
	}
	if _, ok := m.Get(s.ID()); ok {
		t.Fatal("closed session still reachable")
	}
}
