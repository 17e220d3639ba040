package persist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/docstore"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"
)

func newTestSyncer(t *testing.T) (*Syncer, *docstore.Memory) {
	t.Helper()
	mem := docstore.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSyncer(mem, logger), mem
}

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%s): %v", s, err)
	}
	return d
}

func TestWriteCreateRoundTrip(t *testing.T) {
	s, _ := newTestSyncer(t)
	ctx := context.Background()

	appt := model.Appointment{
		Date:       mustDate(t, "2026-03-10"),
		StaffID:    "staff-1",
		StaffName:  "Dr. Aoki",
		StaffColor: "#80c0ff",
		Start:      timegrid.NewTimeOfDay(10, 0),
		End:        timegrid.NewTimeOfDay(11, 30),
		Title:      "checkup",
		Type:       model.TypeGeneral,
	}
	id, err := s.WriteCreate(ctx, appt)
	if err != nil {
		t.Fatalf("WriteCreate: %v", err)
	}
	if id == "" {
		t.Fatal("WriteCreate returned empty id")
	}

	got, err := s.FetchRange(ctx, appt.Date, appt.Date)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("FetchRange returned %d appointments, want 1", len(got))
	}
	g := got[0]
	if g.ID != id || g.StaffName != "Dr. Aoki" || g.StaffColor != "#80c0ff" {
		t.Fatalf("round trip mismatch: %+v", g)
	}
	if g.Start.String() != "10:00" || g.End.String() != "11:30" {
		t.Fatalf("time round trip mismatch: %s-%s", g.Start, g.End)
	}
	if g.Type != model.TypeGeneral {
		t.Fatalf("type = %s, want general", g.Type)
	}
}

func TestWriteCreateKeepsSuppliedID(t *testing.T) {
	s, mem := newTestSyncer(t)
	ctx := context.Background()

	appt := model.Appointment{
		ID:      "appt-restored",
		Date:    mustDate(t, "2026-03-10"),
		StaffID: "staff-1",
		Start:   timegrid.NewTimeOfDay(9, 0),
		End:     timegrid.NewTimeOfDay(9, 30),
		Type:    model.TypeGeneral,
	}
	id, err := s.WriteCreate(ctx, appt)
	if err != nil {
		t.Fatalf("WriteCreate: %v", err)
	}
	if id != "appt-restored" {
		t.Fatalf("id = %s, want appt-restored", id)
	}
	if _, ok := mem.Get("appt-restored"); !ok {
		t.Fatal("record not stored under supplied id")
	}
}

func TestWriteUpdateAndDelete(t *testing.T) {
	s, mem := newTestSyncer(t)
	ctx := context.Background()

	id, err := s.WriteCreate(ctx, model.Appointment{
		Date:    mustDate(t, "2026-03-10"),
		StaffID: "staff-1",
		Start:   timegrid.NewTimeOfDay(14, 0),
		End:     timegrid.NewTimeOfDay(14, 30),
		Title:   "before",
		Type:    model.TypeGeneral,
	})
	if err != nil {
		t.Fatalf("WriteCreate: %v", err)
	}

	title := "after"
	end := timegrid.NewTimeOfDay(15, 0)
	if err := s.WriteUpdate(ctx, id, model.AppointmentPatch{Title: &title, End: &end}); err != nil {
		t.Fatalf("WriteUpdate: %v", err)
	}
	rec, ok := mem.Get(id)
	if !ok {
		t.Fatal("record missing after update")
	}
	if rec.Title != "after" || rec.EndTime != "15:00" {
		t.Fatalf("update not applied: %+v", rec)
	}
	// Unpatched fields survive the merge.
	if rec.StartTime != "14:00" || rec.StaffID != "staff-1" {
		t.Fatalf("merge clobbered untouched fields: %+v", rec)
	}

	if err := s.WriteDelete(ctx, id); err != nil {
		t.Fatalf("WriteDelete: %v", err)
	}
	rec, _ = mem.Get(id)
	if !rec.Deleted {
		t.Fatal("record not tombstoned")
	}
	got, err := s.FetchRange(ctx, mustDate(t, "2026-03-10"), mustDate(t, "2026-03-10"))
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("tombstoned record still fetched: %d", len(got))
	}
}

func TestWriteUpdateMissingID(t *testing.T) {
	s, _ := newTestSyncer(t)
	title := "x"
	err := s.WriteUpdate(context.Background(), "no-such-id", model.AppointmentPatch{Title: &title})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFetchRangeSkipsMalformedRecords(t *testing.T) {
	s, mem := newTestSyncer(t)
	ctx := context.Background()

	if _, err := mem.Insert(ctx, docstore.Record{
		Date:      "2026-03-10",
		StaffID:   "staff-1",
		StartTime: "10:00",
		EndTime:   "10:30",
		Type:      "general",
	}); err != nil {
		t.Fatalf("Insert good: %v", err)
	}
	// Corrupt documents: garbage time, inverted interval, unknown type.
	for _, rec := range []docstore.Record{
		{Date: "2026-03-10", StaffID: "staff-1", StartTime: "not-a-time", EndTime: "11:00", Type: "general"},
		{Date: "2026-03-10", StaffID: "staff-1", StartTime: "12:00", EndTime: "11:00", Type: "general"},
		{Date: "2026-03-10", StaffID: "staff-1", StartTime: "12:00", EndTime: "12:30", Type: "banquet"},
	} {
		if _, err := mem.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert corrupt: %v", err)
		}
	}

	got, err := s.FetchRange(ctx, mustDate(t, "2026-03-10"), mustDate(t, "2026-03-10"))
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("FetchRange returned %d appointments, want the 1 parseable record", len(got))
	}
}

func TestFetchRangeBounds(t *testing.T) {
	s, _ := newTestSyncer(t)
	ctx := context.Background()

	for _, date := range []string{"2026-03-09", "2026-03-10", "2026-03-12", "2026-03-13"} {
		if _, err := s.WriteCreate(ctx, model.Appointment{
			Date:    mustDate(t, date),
			StaffID: "staff-1",
			Start:   timegrid.NewTimeOfDay(10, 0),
			End:     timegrid.NewTimeOfDay(10, 30),
			Type:    model.TypeGeneral,
		}); err != nil {
			t.Fatalf("WriteCreate %s: %v", date, err)
		}
	}

	got, err := s.FetchRange(ctx, mustDate(t, "2026-03-10"), mustDate(t, "2026-03-12"))
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("FetchRange returned %d appointments, want 2 inside the inclusive range", len(got))
	}
	for _, a := range got {
		if d := a.Date.String(); d != "2026-03-10" && d != "2026-03-12" {
			t.Fatalf("unexpected date %s", d)
		}
	}
}
