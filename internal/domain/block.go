package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BlockKind string

const (
	BlockKindRecurring BlockKind = "recurring"
	BlockKindDateRange BlockKind = "date_range"
)

// RecurringBlock closes a time span on every occurrence of a weekday (Sunday=0).
type RecurringBlock struct {
	bun.BaseModel `bun:"table:recurring_blocks"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	OwnerID   string    `bun:"owner_id,notnull"`
	Weekday   int16     `bun:"weekday,notnull"`
	StartsAt  TimeOfDay `bun:"starts_at,notnull"`
	EndsAt    TimeOfDay `bun:"ends_at,notnull"`
	Reason    string    `bun:"reason"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (b *RecurringBlock) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if err := assignID(query, &b.ID); err != nil {
		return err
	}
	stampTimes(query, &b.CreatedAt, &b.UpdatedAt)
	return nil
}

// WellFormed reports whether the block spans a positive interval. Malformed
// rows are ignored rather than treated as closing the whole day.
func (b RecurringBlock) WellFormed() bool {
	return b.StartsAt < b.EndsAt
}

func (b RecurringBlock) AppliesTo(d Date) bool {
	return time.Weekday(b.Weekday) == d.Weekday()
}

// DateRangeBlock closes an inclusive span of dates, either whole days or a
// time span on each of them.
type DateRangeBlock struct {
	bun.BaseModel `bun:"table:date_range_blocks"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid"`
	OwnerID   string     `bun:"owner_id,notnull"`
	StartDate Date       `bun:"start_date,notnull,type:date"`
	EndDate   Date       `bun:"end_date,notnull,type:date"`
	StartsAt  *TimeOfDay `bun:"starts_at"`
	EndsAt    *TimeOfDay `bun:"ends_at"`
	Reason    string     `bun:"reason"`
	CreatedAt time.Time  `bun:"created_at,notnull"`
	UpdatedAt time.Time  `bun:"updated_at,notnull"`
}

func (b *DateRangeBlock) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if err := assignID(query, &b.ID); err != nil {
		return err
	}
	stampTimes(query, &b.CreatedAt, &b.UpdatedAt)
	return nil
}

func (b DateRangeBlock) WholeDay() bool {
	return b.StartsAt == nil && b.EndsAt == nil
}

func (b DateRangeBlock) Covers(d Date) bool {
	return !d.Before(b.StartDate) && !d.After(b.EndDate)
}

func assignID(query bun.Query, id *uuid.UUID) error {
	if _, ok := query.(*bun.InsertQuery); !ok || *id != uuid.Nil {
		return nil
	}
	v, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = v
	return nil
}
