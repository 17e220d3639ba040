package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mkondo/clinicdesk/libs/db"
)

var ErrNotFound = errors.New("storage: staff member not found")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// StaffMember is one bookable column on the scheduling grid. Color is the
// display color denormalized into appointment documents by consumers.
type StaffMember struct {
	ID        string
	Name      string
	Color     string
	Category  string
	SortOrder int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Repository) List(ctx context.Context, category string, includeInactive bool) ([]StaffMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, color, category, sort_order, active, created_at, updated_at
		FROM staff
		WHERE ($1 = '' OR category = $1)
		  AND (active OR $2)
		ORDER BY sort_order, name
	`, category, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaffMember
	for rows.Next() {
		var s StaffMember
		if err := rows.Scan(&s.ID, &s.Name, &s.Color, &s.Category, &s.SortOrder, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string) (StaffMember, error) {
	var s StaffMember
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, color, category, sort_order, active, created_at, updated_at
		FROM staff
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Color, &s.Category, &s.SortOrder, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StaffMember{}, ErrNotFound
	}
	return s, err
}

func (r *Repository) Create(ctx context.Context, tx pgx.Tx, s StaffMember) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO staff (id, name, color, category, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, s.Name, s.Color, s.Category, s.SortOrder, s.Active)
	if err != nil {
		return "", err
	}
	return id, nil
}

// StaffPatch carries a partial staff edit; nil fields stay untouched.
type StaffPatch struct {
	Name      *string
	Color     *string
	Category  *string
	SortOrder *int
	Active    *bool
}

func (r *Repository) Update(ctx context.Context, tx pgx.Tx, id string, p StaffPatch) (StaffMember, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE staff SET
			name       = COALESCE($2, name),
			color      = COALESCE($3, color),
			category   = COALESCE($4, category),
			sort_order = COALESCE($5, sort_order),
			active     = COALESCE($6, active),
			updated_at = now()
		WHERE id = $1
	`, id, p.Name, p.Color, p.Category, p.SortOrder, p.Active)
	if err != nil {
		return StaffMember{}, err
	}
	if tag.RowsAffected() == 0 {
		return StaffMember{}, ErrNotFound
	}

	var s StaffMember
	err = tx.QueryRow(ctx, `
		SELECT id::text, name, color, category, sort_order, active, created_at, updated_at
		FROM staff
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Color, &s.Category, &s.SortOrder, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
