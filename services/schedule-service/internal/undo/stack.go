// Package undo records appointment mutations for one-step-at-a-time reversal.
package undo

import "github.com/mkondo/clinicdesk/services/schedule-service/internal/model"

type Kind int

const (
	KindCreate Kind = iota
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	}
	return "unknown"
}

// Entry is one recorded mutation. Appointment holds the created or deleted
// snapshot; Before/After bracket an update.
type Entry struct {
	Kind        Kind
	Appointment model.Appointment
	Before      model.Appointment
	After       model.Appointment
}

// DefaultDepth caps the stack; the oldest entry is evicted past it.
const DefaultDepth = 50

// Stack is a bounded LIFO of undo entries. Not safe for concurrent use; the
// owning session serializes access.
type Stack struct {
	max     int
	entries []Entry
}

func NewStack(max int) *Stack {
	if max <= 0 {
		max = DefaultDepth
	}
	return &Stack{max: max}
}

func (s *Stack) Push(e Entry) {
	if len(s.entries) >= s.max {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, e)
}

func (s *Stack) Pop() (Entry, bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return e, true
}

func (s *Stack) Len() int { return len(s.entries) }

func (s *Stack) Clear() { s.entries = s.entries[:0] }
