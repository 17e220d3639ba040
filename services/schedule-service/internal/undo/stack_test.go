package undo

import (
	"fmt"
	"testing"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
)

func TestStackPopsInReverseOrder(t *testing.T) {
	s := NewStack(10)
	s.Push(Entry{Kind: KindCreate, Appointment: model.Appointment{ID: "a"}})
	s.Push(Entry{Kind: KindDelete, Appointment: model.Appointment{ID: "b"}})

	e, ok := s.Pop()
	if !ok || e.Kind != KindDelete || e.Appointment.ID != "b" {
		t.Fatalf("first pop = %+v, ok=%v", e, ok)
	}
	e, ok = s.Pop()
	if !ok || e.Kind != KindCreate || e.Appointment.ID != "a" {
		t.Fatalf("second pop = %+v, ok=%v", e, ok)
	}
	if _, ok := s.Pop(); ok {
		t.Fatal("empty stack should report not ok")
	}
}

func TestStackEvictsOldestAtCap(t *testing.T) {
	s := NewStack(3)
	for i := 0; i < 5; i++ {
		s.Push(Entry{Kind: KindCreate, Appointment: model.Appointment{ID: fmt.Sprintf("a%d", i)}})
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	// a0 and a1 were evicted; the newest three remain in LIFO order.
	for _, want := range []string{"a4", "a3", "a2"} {
		e, ok := s.Pop()
		if !ok || e.Appointment.ID != want {
			t.Fatalf("pop = %+v, want id %s", e, want)
		}
	}
}

func TestStackDefaultDepth(t *testing.T) {
	s := NewStack(0)
	for i := 0; i < DefaultDepth+10; i++ {
		s.Push(Entry{Kind: KindCreate})
	}
	if s.Len() != DefaultDepth {
		t.Fatalf("len = %d, want %d", s.Len(), DefaultDepth)
	}
}
