package repository

import (
	"context"

	"github.com/rosterhq/oncall-api/internal/model"
)

// KVStore is the durable key-value collaborator. It offers no
// cross-key transactions and no compare-and-swap; correctness above
// this layer rests on idempotency ledgers and order-sensitive writes.
type KVStore interface {
	// Get returns the value for key, or ok=false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns a page of keys under prefix. done reports whether the
	// scan is complete; pass next back in to continue.
	List(ctx context.Context, prefix string, cursor uint64) (keys []string, next uint64, done bool, err error)
}

// ScheduleRepository owns the three schedule projections and the
// single-level revert snapshot.
type ScheduleRepository interface {
	GetSchedule(ctx context.Context) (*model.Schedule, error)
	PutSchedule(ctx context.Context, s *model.Schedule) error
	GetPrevious(ctx context.Context) (*model.Schedule, error)
	PutPrevious(ctx context.Context, s *model.Schedule) error
	GetCurrent(ctx context.Context) (*model.CurrentEntry, error)
	PutCurrent(ctx context.Context, c *model.CurrentEntry) error
	DeleteCurrent(ctx context.Context) error
	GetSnapshot(ctx context.Context, entryID string) (*model.HistorySnapshot, error)
	PutSnapshot(ctx context.Context, entryID string, s *model.HistorySnapshot) error
	ListSnapshots(ctx context.Context) ([]model.HistorySnapshot, error)
}

// RosterRepository stores per-department rotation sequences.
type RosterRepository interface {
	GetRoster(ctx context.Context) (model.Roster, error)
	GetDepartment(ctx context.Context, dept string) ([]model.Person, error)
	PutDepartment(ctx context.Context, dept string, people []model.Person) error
}

// NotifyStateRepository is the idempotency ledger. Get returns
// (nil, nil) on a ledger miss; a miss is the normal case, not an error.
type NotifyStateRepository interface {
	Get(ctx context.Context, entryID string, channel model.NotifyChannel, typ model.NotifyType) (*model.NotifyState, error)
	Put(ctx context.Context, entryID string, channel model.NotifyChannel, typ model.NotifyType, state *model.NotifyState) error
}

// AuditRepository persists the bounded audit log as a single record.
// Bounding and ordering are the audit service's job.
type AuditRepository interface {
	GetLog(ctx context.Context) ([]model.AuditRecord, error)
	PutLog(ctx context.Context, records []model.AuditRecord) error
}
