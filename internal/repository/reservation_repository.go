package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/space-reservation/internal/model"
)

// ReservationRepo provides data access to the reservations and
// reservation_attendees tables. All timestamps are stored as DATETIME
// in UTC. Soft-deleted rows (deleted_at set) are invisible to every
// read; callers that need them gone for good use HardDelete.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for callers that need to open
// transactions spanning multiple repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, user_id, space_id, starts_at, ends_at, status, qr_code,
	approver_id, cancel_reason, canceled_at, checked_in_at, expected_attendees, notes,
	deleted_at, created_at, updated_at`

// scanReservation reads one row into a model.Reservation, unwrapping
// the nullable columns.
func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var (
		res          model.Reservation
		startsAt     sql.NullTime
		endsAt       sql.NullTime
		approverID   sql.NullInt64
		cancelReason sql.NullString
		canceledAt   sql.NullTime
		checkedInAt  sql.NullTime
		notes        sql.NullString
		deletedAt    sql.NullTime
	)
	err := row.Scan(
		&res.ID, &res.UserID, &res.SpaceID, &startsAt, &endsAt, &res.Status, &res.QRCode,
		&approverID, &cancelReason, &canceledAt, &checkedInAt, &res.ExpectedAttendees, &notes,
		&deletedAt, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startsAt.Valid {
		res.StartsAt = startsAt.Time
	}
	if endsAt.Valid {
		res.EndsAt = endsAt.Time
	}
	if approverID.Valid {
		id := uint64(approverID.Int64)
		res.ApproverID = &id
	}
	if cancelReason.Valid {
		v := cancelReason.String
		res.CancelReason = &v
	}
	if canceledAt.Valid {
		t := canceledAt.Time
		res.CanceledAt = &t
	}
	if checkedInAt.Valid {
		t := checkedInAt.Time
		res.CheckedInAt = &t
	}
	if notes.Valid {
		res.Notes = notes.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		res.DeletedAt = &t
	}
	return &res, nil
}

// nullTime converts a zero time.Time into a SQL NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// ByID fetches a non-deleted reservation with its attendees loaded.
// Returns model.ErrReservationNotFound when the row is absent or
// soft-deleted.
func (r *ReservationRepo) ByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? AND deleted_at IS NULL`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrReservationNotFound
		}
		return nil, err
	}
	if err := r.loadAttendees(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Create inserts a reservation and assigns the generated ID.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(user_id, space_id, starts_at, ends_at, status, qr_code, approver_id, expected_attendees, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	out, err := r.db.ExecContext(ctx, q,
		res.UserID, res.SpaceID, nullTime(res.StartsAt), nullTime(res.EndsAt),
		res.Status, res.QRCode, res.ApproverID, res.ExpectedAttendees, res.Notes,
		res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
	)
	if err != nil {
		if isDuplicate(err) {
			return model.ErrQRCodeExists
		}
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// Update writes every mutable column of the reservation back to the
// row. The caller stamps UpdatedAt; the repository does not touch it.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations
		SET user_id = ?, space_id = ?, starts_at = ?, ends_at = ?, status = ?, qr_code = ?,
		    approver_id = ?, cancel_reason = ?, canceled_at = ?, checked_in_at = ?,
		    expected_attendees = ?, notes = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`
	var canceledAt, checkedInAt any
	if res.CanceledAt != nil {
		canceledAt = res.CanceledAt.UTC()
	}
	if res.CheckedInAt != nil {
		checkedInAt = res.CheckedInAt.UTC()
	}
	out, err := r.db.ExecContext(ctx, q,
		res.UserID, res.SpaceID, nullTime(res.StartsAt), nullTime(res.EndsAt),
		res.Status, res.QRCode, res.ApproverID, res.CancelReason, canceledAt, checkedInAt,
		res.ExpectedAttendees, res.Notes, res.UpdatedAt.UTC(), res.ID,
	)
	if err != nil {
		if isDuplicate(err) {
			return model.ErrQRCodeExists
		}
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		// Row may exist with identical values; verify before reporting
		// a missing reservation.
		var one int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM reservations WHERE id = ? AND deleted_at IS NULL LIMIT 1`, res.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrReservationNotFound
		}
		return err
	}
	return nil
}

// ListBlockingBySpace returns non-deleted reservations on the space
// whose status still occupies their slot.
func (r *ReservationRepo) ListBlockingBySpace(ctx context.Context, spaceID uint64) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE space_id = ? AND deleted_at IS NULL AND status NOT IN (?, ?)`
	return r.list(ctx, q, spaceID, model.StatusCanceled, model.StatusNoShow)
}

// ListUnresolvedBefore returns non-deleted PENDING/CONFIRMED
// reservations starting before the cutoff, oldest first.
func (r *ReservationRepo) ListUnresolvedBefore(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE deleted_at IS NULL AND status IN (?, ?) AND starts_at IS NOT NULL AND starts_at < ?
		ORDER BY starts_at ASC`
	return r.list(ctx, q, model.StatusPending, model.StatusConfirmed, cutoff.UTC())
}

// ListByUser returns the user's non-deleted reservations, newest start first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE user_id = ? AND deleted_at IS NULL ORDER BY starts_at DESC`
	return r.list(ctx, q, userID)
}

// ListAll returns every non-deleted reservation, newest start first.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE deleted_at IS NULL ORDER BY starts_at DESC`
	return r.list(ctx, q)
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]*model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []*model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// QRCodeInUse reports whether another non-deleted reservation already
// carries the given code. excludeID is ignored when zero.
func (r *ReservationRepo) QRCodeInUse(ctx context.Context, code string, excludeID uint64) (bool, error) {
	const q = `SELECT 1 FROM reservations WHERE qr_code = ? AND deleted_at IS NULL AND id <> ? LIMIT 1`
	var one int
	err := r.db.QueryRowContext(ctx, q, code, excludeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddAttendee inserts one attendee row. The unique key on
// (reservation_id, external_id) backs the per-reservation uniqueness
// rule; a duplicate maps to model.ErrAttendeeExists.
func (r *ReservationRepo) AddAttendee(ctx context.Context, a *model.Attendee) error {
	const q = `INSERT INTO reservation_attendees
		(reservation_id, external_id, first_name, last_name, checked_in_at) VALUES (?, ?, ?, ?, ?)`
	out, err := r.db.ExecContext(ctx, q, a.ReservationID, a.ExternalID, a.FirstName, a.LastName, a.CheckedInAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return model.ErrAttendeeExists
		}
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// SoftDelete marks the row deleted without removing it.
func (r *ReservationRepo) SoftDelete(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE reservations SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	out, err := r.db.ExecContext(ctx, q, at.UTC(), at.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return model.ErrReservationNotFound
	}
	return nil
}

// HardDelete removes the reservation and its attendees inside one
// transaction so no orphaned attendee rows remain.
func (r *ReservationRepo) HardDelete(ctx context.Context, id uint64) error {
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
	if _, err = tx.ExecContext(ctx, `DELETE FROM reservation_attendees WHERE reservation_id = ?`, id); err != nil {
		return err
	}
	var out sql.Result
	if out, err = tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id); err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		err = model.ErrReservationNotFound
	}
	return err
}

// loadAttendees attaches the reservation's attendee records, ordered by
// check-in time.
func (r *ReservationRepo) loadAttendees(ctx context.Context, res *model.Reservation) error {
	const q = `SELECT id, reservation_id, external_id, first_name, last_name, checked_in_at
		FROM reservation_attendees WHERE reservation_id = ? ORDER BY checked_in_at ASC`
	rows, err := r.db.QueryContext(ctx, q, res.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.Attendee
		if err := rows.Scan(&a.ID, &a.ReservationID, &a.ExternalID, &a.FirstName, &a.LastName, &a.CheckedInAt); err != nil {
			return err
		}
		res.Attendees = append(res.Attendees, a)
	}
	return rows.Err()
}

// isDuplicate detects a MySQL 1062 duplicate-key failure.
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
