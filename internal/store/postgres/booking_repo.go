package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"agendafacil/backend/internal/domain"
	"agendafacil/backend/internal/store"
)

const activeSlotConstraint = "bookings_active_slot_uniq"

type BookingRepo struct {
	db bun.IDB
}

func NewBookingRepo(db bun.IDB) *BookingRepo {
	return &BookingRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *BookingRepo) ListActiveBookings(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("owner_id = ?", ownerID).
		Where("date >= ?", from).
		Where("date <= ?", to).
		Where("status IN (?)", bun.In(domain.OccupyingStatuses)).
		OrderExpr("date ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListBookings(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("owner_id = ?", ownerID).
		Where("date >= ?", from).
		Where("date <= ?", to).
		OrderExpr("date ASC, start_minute ASC, created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) InOwnerTransaction(ctx context.Context, ownerID string, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockOwnerBookings(ctx, tx, ownerID); err != nil {
			return err
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

func lockOwnerBookings(ctx context.Context, tx bun.Tx, ownerID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "bookings:"+ownerID).Exec(ctx)
	return err
}

func (r bookingTx) FindActiveBooking(ctx context.Context, ownerID string, date domain.Date, start domain.TimeOfDay) (domain.Booking, bool, error) {
	var b domain.Booking
	err := r.tx.NewSelect().
		Model(&b).
		Where("owner_id = ?", ownerID).
		Where("date = ?", date).
		Where("start_minute = ?", start).
		Where("status IN (?)", bun.In(domain.OccupyingStatuses)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, false, nil
	}
	if err != nil {
		return domain.Booking{}, false, err
	}
	return b, true, nil
}

func (r bookingTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		if isActiveSlotViolation(err) {
			return domain.Booking{}, store.ErrConflict
		}
		return domain.Booking{}, err
	}
	return m, nil
}

func (r bookingTx) GetBooking(ctx context.Context, ownerID string, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.tx.NewSelect().
		Model(&b).
		Where("owner_id = ?", ownerID).
		Where("id = ?", id).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r bookingTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("status", "checked_in_at", "no_show", "updated_at").
		Where("owner_id = ?", m.OwnerID).
		Where("id = ?", m.ID).
		Exec(ctx)
	if err != nil {
		if isActiveSlotViolation(err) {
			return domain.Booking{}, store.ErrConflict
		}
		return domain.Booking{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		return domain.Booking{}, store.ErrNotFound
	}
	return m, nil
}

func isActiveSlotViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == activeSlotConstraint
}
