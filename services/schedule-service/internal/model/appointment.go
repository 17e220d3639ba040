package model

import (
	"time"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"
)

type AppointmentType string

const (
	TypeReservation AppointmentType = "reservation"
	TypeGeneral     AppointmentType = "general"
	TypeLeave       AppointmentType = "leave"
)

func (t AppointmentType) Valid() bool {
	switch t {
	case TypeReservation, TypeGeneral, TypeLeave:
		return true
	}
	return false
}

// Appointment is one booked interval on the grid. Staff name and color are
// denormalized from the roster so the grid renders without a join.
type Appointment struct {
	ID         string
	Date       Date
	StaffID    string
	StaffName  string
	StaffColor string
	Start      timegrid.TimeOfDay
	End        timegrid.TimeOfDay
	Title      string
	Notes      string
	Type       AppointmentType
	Deleted    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Overlaps reports whether two appointments compete for the same staff column
// time: same date, same staff, and [Start, End) intervals intersecting.
func (a Appointment) Overlaps(b Appointment) bool {
	if a.Date != b.Date || a.StaffID != b.StaffID {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

// StaffMember is one grid column, loaded from the roster once per session.
type StaffMember struct {
	ID        string
	Name      string
	Color     string
	Category  string
	SortOrder int
	Active    bool
}
