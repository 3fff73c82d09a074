package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

const (
	MinSlotMinutes     = 5
	MaxSlotMinutes     = 240
	MaxBufferMinutes   = 60
	MaxLeadDays        = 60
	MinHorizonDays     = 1
	MaxHorizonDays     = 365
	MinOverrideWeekday = 1
	MaxOverrideWeekday = 6
)

// ScheduleConfig is the owner's default weekly working window and booking rules.
type ScheduleConfig struct {
	bun.BaseModel `bun:"table:schedule_configs"`

	OwnerID       string    `bun:"owner_id,pk"`
	OpensAt       TimeOfDay `bun:"opens_at,notnull"`
	ClosesAt      TimeOfDay `bun:"closes_at,notnull"`
	SlotMinutes   int       `bun:"slot_minutes,notnull"`
	BufferMinutes int       `bun:"buffer_minutes,notnull"`
	LeadDays      int       `bun:"lead_days,notnull"`
	HorizonDays   int       `bun:"horizon_days,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func (c *ScheduleConfig) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	stampTimes(query, &c.CreatedAt, &c.UpdatedAt)
	return nil
}

// WeeklyOverride replaces the default window for one weekday (Monday..Saturday).
type WeeklyOverride struct {
	bun.BaseModel `bun:"table:weekly_overrides"`

	OwnerID   string    `bun:"owner_id,pk"`
	Weekday   int16     `bun:"weekday,pk"`
	Active    bool      `bun:"active,notnull"`
	StartsAt  TimeOfDay `bun:"starts_at,notnull"`
	EndsAt    TimeOfDay `bun:"ends_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (o *WeeklyOverride) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	stampTimes(query, &o.CreatedAt, &o.UpdatedAt)
	return nil
}

func stampTimes(query bun.Query, createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if createdAt.IsZero() {
			*createdAt = now
		}
		if updatedAt.IsZero() {
			*updatedAt = now
		}
	case *bun.UpdateQuery:
		*updatedAt = now
	}
}
