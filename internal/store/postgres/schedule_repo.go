package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"agendafacil/backend/internal/domain"
	"agendafacil/backend/internal/store"
)

type ScheduleRepo struct {
	db bun.IDB
}

func NewScheduleRepo(db bun.IDB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) GetScheduleConfig(ctx context.Context, ownerID string) (domain.ScheduleConfig, error) {
	var cfg domain.ScheduleConfig
	err := r.db.NewSelect().
		Model(&cfg).
		Where("owner_id = ?", ownerID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ScheduleConfig{}, store.ErrNotFound
	}
	if err != nil {
		return domain.ScheduleConfig{}, err
	}
	return cfg, nil
}

func (r *ScheduleRepo) UpsertScheduleConfig(ctx context.Context, cfg domain.ScheduleConfig) (domain.ScheduleConfig, error) {
	m := cfg
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (owner_id) DO UPDATE").
		Set("opens_at = EXCLUDED.opens_at").
		Set("closes_at = EXCLUDED.closes_at").
		Set("slot_minutes = EXCLUDED.slot_minutes").
		Set("buffer_minutes = EXCLUDED.buffer_minutes").
		Set("lead_days = EXCLUDED.lead_days").
		Set("horizon_days = EXCLUDED.horizon_days").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("created_at, updated_at").
		Exec(ctx)
	if err != nil {
		return domain.ScheduleConfig{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) ListWeeklyOverrides(ctx context.Context, ownerID string) ([]domain.WeeklyOverride, error) {
	var rows []domain.WeeklyOverride
	err := r.db.NewSelect().
		Model(&rows).
		Where("owner_id = ?", ownerID).
		OrderExpr("weekday ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) UpsertWeeklyOverride(ctx context.Context, o domain.WeeklyOverride) (domain.WeeklyOverride, error) {
	m := o
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (owner_id, weekday) DO UPDATE").
		Set("active = EXCLUDED.active").
		Set("starts_at = EXCLUDED.starts_at").
		Set("ends_at = EXCLUDED.ends_at").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("created_at, updated_at").
		Exec(ctx)
	if err != nil {
		return domain.WeeklyOverride{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) ListRecurringBlocks(ctx context.Context, ownerID string) ([]domain.RecurringBlock, error) {
	var rows []domain.RecurringBlock
	err := r.db.NewSelect().
		Model(&rows).
		Where("owner_id = ?", ownerID).
		OrderExpr("weekday ASC, starts_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) ListDateRangeBlocks(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.DateRangeBlock, error) {
	var rows []domain.DateRangeBlock
	err := r.db.NewSelect().
		Model(&rows).
		Where("owner_id = ?", ownerID).
		Where("start_date <= ?", to).
		Where("end_date >= ?", from).
		OrderExpr("start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) CreateRecurringBlock(ctx context.Context, b domain.RecurringBlock) (domain.RecurringBlock, error) {
	m := b
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.RecurringBlock{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) CreateDateRangeBlock(ctx context.Context, b domain.DateRangeBlock) (domain.DateRangeBlock, error) {
	m := b
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.DateRangeBlock{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) DeleteBlock(ctx context.Context, ownerID string, kind domain.BlockKind, id uuid.UUID) error {
	q := r.db.NewDelete()
	switch kind {
	case domain.BlockKindRecurring:
		q = q.Model((*domain.RecurringBlock)(nil))
	case domain.BlockKindDateRange:
		q = q.Model((*domain.DateRangeBlock)(nil))
	default:
		return store.ErrNotFound
	}

	res, err := q.
		Where("owner_id = ?", ownerID).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
