package store

import (
	"context"

	"github.com/google/uuid"

	"agendafacil/backend/internal/domain"
)

type ConfigStore interface {
	// GetScheduleConfig returns ErrNotFound when the owner never configured a schedule.
	GetScheduleConfig(ctx context.Context, ownerID string) (domain.ScheduleConfig, error)
	UpsertScheduleConfig(ctx context.Context, cfg domain.ScheduleConfig) (domain.ScheduleConfig, error)
}

type OverrideStore interface {
	ListWeeklyOverrides(ctx context.Context, ownerID string) ([]domain.WeeklyOverride, error)
	UpsertWeeklyOverride(ctx context.Context, o domain.WeeklyOverride) (domain.WeeklyOverride, error)
}

type BlockStore interface {
	ListRecurringBlocks(ctx context.Context, ownerID string) ([]domain.RecurringBlock, error)
	// ListDateRangeBlocks returns blocks intersecting [from, to].
	ListDateRangeBlocks(ctx context.Context, ownerID string, from, to domain.Date) ([]domain.DateRangeBlock, error)
	CreateRecurringBlock(ctx context.Context, b domain.RecurringBlock) (domain.RecurringBlock, error)
	CreateDateRangeBlock(ctx context.Context, b domain.DateRangeBlock) (domain.DateRangeBlock, error)
	// DeleteBlock returns ErrNotFound when no block of that kind and id belongs to the owner.
	DeleteBlock(ctx context.Context, ownerID string, kind domain.BlockKind, id uuid.UUID) error
}
