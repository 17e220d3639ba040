package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestMemoryQueryRangeFiltersDatesAndTombstones(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetClock(fixedClock())

	ids := map[string]string{}
	for _, rec := range []Record{
		{Date: "2026-03-09", StartTime: "10:00", EndTime: "10:30", StaffID: "s1", Title: "before range"},
		{Date: "2026-03-10", StartTime: "10:00", EndTime: "10:30", StaffID: "s1", Title: "in range"},
		{Date: "2026-03-11", StartTime: "09:00", EndTime: "09:30", StaffID: "s2", Title: "also in range"},
		{Date: "2026-03-12", StartTime: "10:00", EndTime: "10:30", StaffID: "s1", Title: "after range"},
	} {
		id, err := m.Insert(ctx, rec)
		if err != nil {
			t.Fatalf("insert %q: %v", rec.Title, err)
		}
		ids[rec.Title] = id
	}
	if err := m.MarkDeleted(ctx, ids["also in range"]); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	got, err := m.QueryRange(ctx, "2026-03-10", "2026-03-11")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Title != "in range" {
		t.Fatalf("expected only the live in-range record, got %+v", got)
	}
}

func TestMemoryMergeUpdateTouchesOnlyProvidedFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetClock(fixedClock())

	id, err := m.Insert(ctx, Record{
		Date: "2026-03-10", StartTime: "10:00", EndTime: "10:30",
		StaffID: "s1", StaffName: "Dr. Aoki", Title: "Checkup", Notes: "fasting",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	title := "Follow-up"
	if err := m.MergeUpdate(ctx, id, Patch{Title: &title}); err != nil {
		t.Fatalf("merge update: %v", err)
	}

	rec, _ := m.Get(id)
	if rec.Title != "Follow-up" {
		t.Fatalf("title = %q", rec.Title)
	}
	if rec.Notes != "fasting" || rec.StartTime != "10:00" {
		t.Fatalf("untouched fields changed: %+v", rec)
	}
}

func TestMemoryMergeUpdateMissing(t *testing.T) {
	m := NewMemory()
	title := "x"
	if err := m.MergeUpdate(context.Background(), "nope", Patch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryMarkDeletedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.SetClock(fixedClock())

	id, err := m.Insert(ctx, Record{Date: "2026-03-10", StartTime: "10:00", EndTime: "10:30", StaffID: "s1"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := m.MarkDeleted(ctx, id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := m.MarkDeleted(ctx, id); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
	rec, ok := m.Get(id)
	if !ok || !rec.Deleted || rec.DeletedAt == nil {
		t.Fatalf("tombstone not retained: %+v", rec)
	}
}

func TestMemoryInsertHonorsSuppliedIDForRestore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Insert(ctx, Record{Date: "2026-03-10", StartTime: "10:00", EndTime: "10:30", StaffID: "s1", Title: "original"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := m.Insert(ctx, Record{ID: id, Date: "2026-03-10", StartTime: "10:00", EndTime: "10:30", StaffID: "s1"}); err == nil {
		t.Fatal("expected duplicate id error while record is live")
	}

	if err := m.MarkDeleted(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	restored, err := m.Insert(ctx, Record{ID: id, Date: "2026-03-10", StartTime: "10:00", EndTime: "10:30", StaffID: "s1", Title: "original"})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored != id {
		t.Fatalf("restore changed id: %s != %s", restored, id)
	}
	rec, _ := m.Get(id)
	if rec.Deleted {
		t.Fatal("restored record still tombstoned")
	}
}
