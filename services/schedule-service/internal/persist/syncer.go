// Package persist translates appointment-store operations into document-store
// calls and hydrates fetched ranges back into engine types.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/docstore"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"
)

type Syncer struct {
	store  docstore.Store
	logger *slog.Logger
}

func NewSyncer(store docstore.Store, logger *slog.Logger) *Syncer {
	return &Syncer{store: store, logger: logger}
}

// FetchRange loads every non-deleted appointment in the inclusive date range.
// Records that fail to parse are logged and skipped rather than failing the
// whole window; one corrupt document must not blank the grid.
func (s *Syncer) FetchRange(ctx context.Context, from, to model.Date) ([]model.Appointment, error) {
	records, err := s.store.QueryRange(ctx, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("fetch range %s..%s: %w", from, to, err)
	}
	appts := make([]model.Appointment, 0, len(records))
	for _, rec := range records {
		appt, err := appointmentFromRecord(rec)
		if err != nil {
			s.logger.Warn("skipping malformed appointment record", "id", rec.ID, "err", err)
			continue
		}
		appts = append(appts, appt)
	}
	return appts, nil
}

// WriteCreate persists a new appointment document and returns its id. An id
// already present on the appointment is kept (undo restoring a tombstone).
func (s *Syncer) WriteCreate(ctx context.Context, appt model.Appointment) (string, error) {
	id, err := s.store.Insert(ctx, recordFromAppointment(appt))
	if err != nil {
		return "", fmt.Errorf("write create: %w", err)
	}
	return id, nil
}

// WriteUpdate merge-updates the document with the patched fields.
func (s *Syncer) WriteUpdate(ctx context.Context, id string, p model.AppointmentPatch) error {
	if err := s.store.MergeUpdate(ctx, id, docPatch(p)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		return fmt.Errorf("write update %s: %w", id, err)
	}
	return nil
}

// WriteDelete tombstones the document.
func (s *Syncer) WriteDelete(ctx context.Context, id string) error {
	if err := s.store.MarkDeleted(ctx, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		return fmt.Errorf("write delete %s: %w", id, err)
	}
	return nil
}

func recordFromAppointment(a model.Appointment) docstore.Record {
	return docstore.Record{
		ID:         a.ID,
		Date:       a.Date.String(),
		StartTime:  a.Start.String(),
		EndTime:    a.End.String(),
		StaffID:    a.StaffID,
		StaffName:  a.StaffName,
		StaffColor: a.StaffColor,
		Title:      a.Title,
		Notes:      a.Notes,
		Type:       string(a.Type),
		Deleted:    a.Deleted,
	}
}

func appointmentFromRecord(rec docstore.Record) (model.Appointment, error) {
	date, err := model.ParseDate(rec.Date)
	if err != nil {
		return model.Appointment{}, err
	}
	start, err := timegrid.ParseTimeOfDay(rec.StartTime)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("start time: %w", err)
	}
	end, err := timegrid.ParseTimeOfDay(rec.EndTime)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("end time: %w", err)
	}
	if end <= start {
		return model.Appointment{}, fmt.Errorf("end %s not after start %s", rec.EndTime, rec.StartTime)
	}
	typ := model.AppointmentType(rec.Type)
	if !typ.Valid() {
		return model.Appointment{}, fmt.Errorf("unknown appointment type %q", rec.Type)
	}
	return model.Appointment{
		ID:         rec.ID,
		Date:       date,
		StaffID:    rec.StaffID,
		StaffName:  rec.StaffName,
		StaffColor: rec.StaffColor,
		Start:      start,
		End:        end,
		Title:      rec.Title,
		Notes:      rec.Notes,
		Type:       typ,
		Deleted:    rec.Deleted,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

func docPatch(p model.AppointmentPatch) docstore.Patch {
	var d docstore.Patch
	if p.Date != nil {
		v := p.Date.String()
		d.Date = &v
	}
	if p.Start != nil {
		v := p.Start.String()
		d.StartTime = &v
	}
	if p.End != nil {
		v := p.End.String()
		d.EndTime = &v
	}
	d.StaffID = p.StaffID
	d.StaffName = p.StaffName
	d.StaffColor = p.StaffColor
	d.Title = p.Title
	d.Notes = p.Notes
	if p.Type != nil {
		v := string(*p.Type)
		d.Type = &v
	}
	return d
}
