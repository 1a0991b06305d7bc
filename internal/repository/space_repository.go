package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

// SpaceRepo provides data access to the spaces and space_hours tables.
// A space's weekly operating windows live in space_hours and are loaded
// with every lookup since the availability validator always needs them.
type SpaceRepo struct {
	db *sql.DB
}

// NewSpaceRepo returns a SpaceRepo bound to the given database.
func NewSpaceRepo(db *sql.DB) *SpaceRepo { return &SpaceRepo{db: db} }

const spaceColumns = `id, name, description, capacity, max_duration_mins, requires_approval,
	is_active, deleted_at, created_at, updated_at`

func scanSpace(row interface{ Scan(...any) error }) (*model.Space, error) {
	var (
		s           model.Space
		description sql.NullString
		maxDuration sql.NullInt64
		deletedAt   sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Name, &description, &s.Capacity, &maxDuration, &s.RequiresApproval,
		&s.IsActive, &deletedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		s.Description = description.String
	}
	if maxDuration.Valid {
		m := int(maxDuration.Int64)
		s.MaxDurationMins = &m
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		s.DeletedAt = &t
	}
	return &s, nil
}

// ByID fetches a non-deleted space with its operating windows. Returns
// model.ErrSpaceNotFound for absent or soft-deleted rows.
func (r *SpaceRepo) ByID(ctx context.Context, id uint64) (*model.Space, error) {
	const q = `SELECT ` + spaceColumns + ` FROM spaces WHERE id = ? AND deleted_at IS NULL`
	s, err := scanSpace(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSpaceNotFound
		}
		return nil, err
	}
	if s.Windows, err = r.windows(ctx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns all non-deleted spaces (windows included), name order.
func (r *SpaceRepo) List(ctx context.Context) ([]*model.Space, error) {
	const q = `SELECT ` + spaceColumns + ` FROM spaces WHERE deleted_at IS NULL ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*model.Space
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, s := range result {
		if s.Windows, err = r.windows(ctx, s.ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Create inserts a space and its operating windows in one transaction.
func (r *SpaceRepo) Create(ctx context.Context, s *model.Space) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()
	var maxDuration any
	if s.MaxDurationMins != nil {
		maxDuration = *s.MaxDurationMins
	}
	var out sql.Result
	out, err = tx.ExecContext(ctx,
		`INSERT INTO spaces (name, description, capacity, max_duration_mins, requires_approval, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.Name, s.Description, s.Capacity, maxDuration, s.RequiresApproval, s.IsActive)
	if err != nil {
		return err
	}
	var id int64
	if id, err = out.LastInsertId(); err != nil {
		return err
	}
	s.ID = uint64(id)
	err = insertWindowsTx(ctx, tx, s.ID, s.Windows)
	return err
}

// Update rewrites the space's own columns; operating windows are
// replaced separately via ReplaceWindows.
func (r *SpaceRepo) Update(ctx context.Context, s *model.Space) error {
	var maxDuration any
	if s.MaxDurationMins != nil {
		maxDuration = *s.MaxDurationMins
	}
	const q = `UPDATE spaces SET name = ?, description = ?, capacity = ?, max_duration_mins = ?,
		requires_approval = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`
	out, err := r.db.ExecContext(ctx, q, s.Name, s.Description, s.Capacity, maxDuration,
		s.RequiresApproval, s.IsActive, s.ID)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM spaces WHERE id = ? AND deleted_at IS NULL LIMIT 1`, s.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrSpaceNotFound
		}
		return err
	}
	return nil
}

// ReplaceWindows swaps the space's full set of operating windows in one
// transaction.
func (r *SpaceRepo) ReplaceWindows(ctx context.Context, spaceID uint64, windows []model.OperatingWindow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM space_hours WHERE space_id = ?`, spaceID); err != nil {
		return err
	}
	err = insertWindowsTx(ctx, tx, spaceID, windows)
	return err
}

// SetActive flips the active flag under an explicit status-change
// operation; the engine itself never mutates spaces.
func (r *SpaceRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE spaces SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`
	out, err := r.db.ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM spaces WHERE id = ? AND deleted_at IS NULL LIMIT 1`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrSpaceNotFound
		}
		return err
	}
	return nil
}

// SoftDelete marks the space deleted without removing it.
func (r *SpaceRepo) SoftDelete(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE spaces SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	out, err := r.db.ExecContext(ctx, q, at.UTC(), at.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return model.ErrSpaceNotFound
	}
	return nil
}

func (r *SpaceRepo) windows(ctx context.Context, spaceID uint64) ([]model.OperatingWindow, error) {
	const q = `SELECT id, space_id, weekday, opens_at, closes_at FROM space_hours
		WHERE space_id = ? ORDER BY weekday ASC, opens_at ASC`
	rows, err := r.db.QueryContext(ctx, q, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var windows []model.OperatingWindow
	for rows.Next() {
		var (
			w       model.OperatingWindow
			weekday int
		)
		if err := rows.Scan(&w.ID, &w.SpaceID, &weekday, &w.OpensAt, &w.ClosesAt); err != nil {
			return nil, err
		}
		w.Weekday = time.Weekday(weekday)
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func insertWindowsTx(ctx context.Context, tx *sql.Tx, spaceID uint64, windows []model.OperatingWindow) error {
	if len(windows) == 0 {
		return nil
	}
	query := `INSERT INTO space_hours (space_id, weekday, opens_at, closes_at) VALUES `
	args := make([]any, 0, len(windows)*4)
	for i, w := range windows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, spaceID, int(w.Weekday), w.OpensAt, w.ClosesAt)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
