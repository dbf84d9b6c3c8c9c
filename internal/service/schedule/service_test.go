package schedule

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/oncall-api/internal/clock"
	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository/kv"
	"github.com/rosterhq/oncall-api/internal/repository/memory"
	auditService "github.com/rosterhq/oncall-api/internal/service/audit"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
	"github.com/rosterhq/oncall-api/pkg/logger"
)

// Monday noon, between the first and second test windows.
var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *kv.ScheduleRepository) {
	t.Helper()
	store := memory.NewStore()
	clk := clock.Fixed{T: testNow}
	repo := kv.NewScheduleRepository(store)
	auditor := auditService.NewService(kv.NewAuditRepository(store), clk)
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, TimeFormat: time.RFC3339, Output: io.Discard})
	return NewService(repo, auditor, clk, log), repo
}

func entry(id, start, end string) model.ScheduleEntry {
	return model.ScheduleEntry{
		ID:       id,
		StartISO: start,
		EndISO:   end,
		Departments: map[string]model.Person{
			model.DeptPlatform: {Name: "Alice", Email: "alice@example.com"},
		},
	}
}

func testSchedule() *model.Schedule {
	return &model.Schedule{
		Timezone: "UTC",
		Entries: []model.ScheduleEntry{
			entry("e1", "2024-01-05T16:00:00", "2024-01-12T07:00:00"),
			entry("e2", "2024-01-12T16:00:00", "2024-01-19T07:00:00"),
			entry("e3", "2024-01-19T16:00:00", "2024-01-26T07:00:00"),
		},
	}
}

func TestSaveProjections(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	saved, err := svc.Save(ctx, testSchedule(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)
	assert.Equal(t, "admin@example.com", saved.UpdatedBy)
	assert.Equal(t, testNow, saved.UpdatedAt)

	// e1 concluded before testNow, so it is archived.
	snapshot, err := repo.GetSnapshot(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", snapshot.Entry.ID)
	assert.Equal(t, "admin@example.com", snapshot.ArchivedBy)

	_, err = repo.GetSnapshot(ctx, "e2")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	// e2 contains testNow, so it is the current projection.
	current, err := repo.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "e2", current.Entry.ID)
	assert.Equal(t, testNow, current.ComputedAt)
}

func TestSaveArchivalIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	_, err := svc.Save(ctx, testSchedule(), "first@example.com")
	require.NoError(t, err)

	_, err = svc.Save(ctx, testSchedule(), "second@example.com")
	require.NoError(t, err)

	snapshot, err := repo.GetSnapshot(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", snapshot.ArchivedBy)

	snapshots, err := svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

func TestSaveIncrementsVersion(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.Save(ctx, testSchedule(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	second, err := svc.Save(ctx, testSchedule(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
}

func TestSaveClearsStaleCurrent(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	_, err := svc.Save(ctx, testSchedule(), "admin@example.com")
	require.NoError(t, err)

	future := &model.Schedule{
		Timezone: "UTC",
		Entries: []model.ScheduleEntry{
			entry("f1", "2024-02-02T16:00:00", "2024-02-09T07:00:00"),
		},
	}
	_, err = svc.Save(ctx, future, "admin@example.com")
	require.NoError(t, err)

	_, err = repo.GetCurrent(ctx)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRevert(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Revert(ctx, "admin@example.com")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = svc.Save(ctx, testSchedule(), "admin@example.com")
	require.NoError(t, err)

	second := testSchedule()
	second.Entries = second.Entries[1:]
	_, err = svc.Save(ctx, second, "admin@example.com")
	require.NoError(t, err)

	reverted, err := svc.Revert(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, reverted.Version)
	require.Len(t, reverted.Entries, 3)
	assert.Equal(t, "e1", reverted.Entries[0].ID)

	// A second revert toggles back to the trimmed schedule.
	toggled, err := svc.Revert(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 4, toggled.Version)
	assert.Len(t, toggled.Entries, 2)
}

func TestRestoreFromHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Save(ctx, testSchedule(), "admin@example.com")
	require.NoError(t, err)

	restored, err := svc.RestoreFromHistory(ctx, "e1", "admin@example.com")
	require.NoError(t, err)
	require.Len(t, restored.Entries, 1)
	assert.Equal(t, "e1", restored.Entries[0].ID)
	assert.Equal(t, "restore:admin@example.com", restored.UpdatedBy)
	assert.Equal(t, 2, restored.Version)

	_, err = svc.RestoreFromHistory(ctx, "missing", "admin@example.com")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestValidateEntries(t *testing.T) {
	valid := testSchedule().Entries
	assert.NoError(t, ValidateEntries(valid, time.UTC))

	cases := map[string][]model.ScheduleEntry{
		"missing id": {
			entry("", "2024-01-05T16:00:00", "2024-01-12T07:00:00"),
		},
		"duplicate id": {
			entry("dup", "2024-01-05T16:00:00", "2024-01-12T07:00:00"),
			entry("dup", "2024-01-12T16:00:00", "2024-01-19T07:00:00"),
		},
		"unparseable start": {
			entry("e1", "garbage", "2024-01-12T07:00:00"),
		},
		"start after end": {
			entry("e1", "2024-01-12T07:00:00", "2024-01-05T16:00:00"),
		},
		"overlapping": {
			entry("e1", "2024-01-05T16:00:00", "2024-01-12T07:00:00"),
			entry("e2", "2024-01-11T16:00:00", "2024-01-19T07:00:00"),
		},
	}

	for name, entries := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateEntries(entries, time.UTC)
			assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
		})
	}
}
