package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mkondo/clinicdesk/libs/db"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/outbox"
)

// Postgres stores appointment documents in the appointments table. Every
// mutation also writes a domain event to the outbox inside the same
// transaction, so the Kafka stream can never disagree with the table.
type Postgres struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

// NewPostgres wires the store. outboxRepo may be nil (no event emission, used
// by tooling that writes without publishing).
func NewPostgres(pool *db.Pool, outboxRepo *outbox.Repository) *Postgres {
	return &Postgres{pool: pool, outbox: outboxRepo}
}

const recordColumns = `
	id::text, date::text, start_time, end_time,
	staff_id, staff_name, staff_color,
	title, COALESCE(notes, ''), type,
	deleted, created_at, updated_at, deleted_at`

func (s *Postgres) QueryRange(ctx context.Context, dateFrom, dateTo string) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM appointments
		WHERE date >= $1 AND date <= $2 AND deleted = false
		ORDER BY date, start_time, id
	`, dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (s *Postgres) Insert(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// An id collision can only be an undo restoring a tombstoned record;
	// revive it in place so history keeps a single identity.
	_, err = tx.Exec(ctx, `
		INSERT INTO appointments
			(id, date, start_time, end_time, staff_id, staff_name, staff_color, title, notes, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET date = EXCLUDED.date,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			staff_id = EXCLUDED.staff_id,
			staff_name = EXCLUDED.staff_name,
			staff_color = EXCLUDED.staff_color,
			title = EXCLUDED.title,
			notes = EXCLUDED.notes,
			type = EXCLUDED.type,
			deleted = false,
			deleted_at = NULL,
			updated_at = now()
		WHERE appointments.deleted = true
	`, rec.ID, rec.Date, rec.StartTime, rec.EndTime, rec.StaffID, rec.StaffName, rec.StaffColor, rec.Title, rec.Notes, rec.Type)
	if err != nil {
		return "", err
	}

	if err := s.emit(ctx, tx, outbox.EventAppointmentCreated, rec.ID); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *Postgres) MergeUpdate(ctx context.Context, id string, p Patch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET date = COALESCE($2, date),
			start_time = COALESCE($3, start_time),
			end_time = COALESCE($4, end_time),
			staff_id = COALESCE($5, staff_id),
			staff_name = COALESCE($6, staff_name),
			staff_color = COALESCE($7, staff_color),
			title = COALESCE($8, title),
			notes = COALESCE($9, notes),
			type = COALESCE($10, type),
			updated_at = now()
		WHERE id = $1 AND deleted = false
	`, id, p.Date, p.StartTime, p.EndTime, p.StaffID, p.StaffName, p.StaffColor, p.Title, p.Notes, p.Type)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := s.emit(ctx, tx, outbox.EventAppointmentUpdated, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) MarkDeleted(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existed, alreadyDeleted bool
	err = tx.QueryRow(ctx, `
		SELECT true, deleted FROM appointments WHERE id = $1
	`, id).Scan(&existed, &alreadyDeleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if alreadyDeleted {
		return tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET deleted = true,
			deleted_at = now(),
			updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}

	if err := s.emit(ctx, tx, outbox.EventAppointmentDeleted, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) emit(ctx context.Context, tx pgx.Tx, eventType, id string) error {
	if s.outbox == nil {
		return nil
	}
	rec, err := s.getForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{
		"appointment_id": rec.ID,
		"date":           rec.Date,
		"start_time":     rec.StartTime,
		"end_time":       rec.EndTime,
		"staff_id":       rec.StaffID,
		"staff_name":     rec.StaffName,
		"type":           rec.Type,
		"deleted":        rec.Deleted,
		"updated_at":     rec.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   rec.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

func (s *Postgres) getForUpdate(ctx context.Context, tx pgx.Tx, id string) (Record, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanRecord(row)
}

func ReadyCheck(pool *db.Pool) func(context.Context) error {
	return db.ReadyCheck(pool)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var deletedAt *time.Time
	err := row.Scan(
		&rec.ID,
		&rec.Date,
		&rec.StartTime,
		&rec.EndTime,
		&rec.StaffID,
		&rec.StaffName,
		&rec.StaffColor,
		&rec.Title,
		&rec.Notes,
		&rec.Type,
		&rec.Deleted,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&deletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec.DeletedAt = deletedAt
	return rec, nil
}

var _ Store = (*Postgres)(nil)
