package model

import "github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"

// AppointmentPatch carries the fields of an edit commit; nil fields are left
// as they are. Staff name/color travel with StaffID so the persisted document
// keeps its denormalized display fields in step.
type AppointmentPatch struct {
	Date       *Date
	StaffID    *string
	StaffName  *string
	StaffColor *string
	Start      *timegrid.TimeOfDay
	End        *timegrid.TimeOfDay
	Title      *string
	Notes      *string
	Type       *AppointmentType
}

// Apply returns a copy of a with the patch laid over it.
func (p AppointmentPatch) Apply(a Appointment) Appointment {
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.StaffID != nil {
		a.StaffID = *p.StaffID
	}
	if p.StaffName != nil {
		a.StaffName = *p.StaffName
	}
	if p.StaffColor != nil {
		a.StaffColor = *p.StaffColor
	}
	if p.Start != nil {
		a.Start = *p.Start
	}
	if p.End != nil {
		a.End = *p.End
	}
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	return a
}

// PatchFrom diffs two appointments into the minimal patch that turns prev
// into next. Undo uses it to restore a pre-update snapshot.
func PatchFrom(prev, next Appointment) AppointmentPatch {
	var p AppointmentPatch
	if prev.Date != next.Date {
		p.Date = &next.Date
	}
	if prev.StaffID != next.StaffID {
		p.StaffID = &next.StaffID
		p.StaffName = &next.StaffName
		p.StaffColor = &next.StaffColor
	}
	if prev.Start != next.Start {
		p.Start = &next.Start
	}
	if prev.End != next.End {
		p.End = &next.End
	}
	if prev.Title != next.Title {
		p.Title = &next.Title
	}
	if prev.Notes != next.Notes {
		p.Notes = &next.Notes
	}
	if prev.Type != next.Type {
		p.Type = &next.Type
	}
	return p
}
