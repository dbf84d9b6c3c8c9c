package kv

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

type ScheduleRepository struct {
	store repository.KVStore
}

func NewScheduleRepository(store repository.KVStore) *ScheduleRepository {
	return &ScheduleRepository{store: store}
}

func (r *ScheduleRepository) GetSchedule(ctx context.Context) (*model.Schedule, error) {
	return r.getSchedule(ctx, keySchedule, "schedule")
}

func (r *ScheduleRepository) PutSchedule(ctx context.Context, s *model.Schedule) error {
	return r.putJSON(ctx, keySchedule, s)
}

func (r *ScheduleRepository) GetPrevious(ctx context.Context) (*model.Schedule, error) {
	return r.getSchedule(ctx, keySchedulePrev, "previous schedule")
}

func (r *ScheduleRepository) PutPrevious(ctx context.Context, s *model.Schedule) error {
	return r.putJSON(ctx, keySchedulePrev, s)
}

func (r *ScheduleRepository) GetCurrent(ctx context.Context) (*model.CurrentEntry, error) {
	value, ok, err := r.store.Get(ctx, keyCurrent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("current entry", nil)
	}
	var current model.CurrentEntry
	if err := json.Unmarshal(value, &current); err != nil {
		return nil, apperrors.Store("corrupt current entry record", err)
	}
	return &current, nil
}

func (r *ScheduleRepository) PutCurrent(ctx context.Context, c *model.CurrentEntry) error {
	return r.putJSON(ctx, keyCurrent, c)
}

func (r *ScheduleRepository) DeleteCurrent(ctx context.Context) error {
	return r.store.Delete(ctx, keyCurrent)
}

func (r *ScheduleRepository) GetSnapshot(ctx context.Context, entryID string) (*model.HistorySnapshot, error) {
	value, ok, err := r.store.Get(ctx, historyKey(entryID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("history snapshot", nil)
	}
	var snapshot model.HistorySnapshot
	if err := json.Unmarshal(value, &snapshot); err != nil {
		return nil, apperrors.Store("corrupt history snapshot record", err)
	}
	return &snapshot, nil
}

func (r *ScheduleRepository) PutSnapshot(ctx context.Context, entryID string, s *model.HistorySnapshot) error {
	return r.putJSON(ctx, historyKey(entryID), s)
}

func (r *ScheduleRepository) ListSnapshots(ctx context.Context) ([]model.HistorySnapshot, error) {
	var snapshots []model.HistorySnapshot
	seen := make(map[string]struct{})

	var cursor uint64
	for {
		keys, next, done, err := r.store.List(ctx, prefixHistory, cursor)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			entryID := strings.TrimPrefix(key, prefixHistory)
			// SCAN may return a key more than once across pages.
			if _, dup := seen[entryID]; dup {
				continue
			}
			seen[entryID] = struct{}{}
			snapshot, err := r.GetSnapshot(ctx, entryID)
			if err != nil {
				// Deleted between scan and read; tolerate.
				if apperrors.Is(err, apperrors.ErrNotFound) {
					continue
				}
				return nil, err
			}
			snapshots = append(snapshots, *snapshot)
		}
		if done {
			return snapshots, nil
		}
		cursor = next
	}
}

func (r *ScheduleRepository) getSchedule(ctx context.Context, key, resource string) (*model.Schedule, error) {
	value, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound(resource, nil)
	}
	var schedule model.Schedule
	if err := json.Unmarshal(value, &schedule); err != nil {
		return nil, apperrors.Store("corrupt schedule record", err)
	}
	return &schedule, nil
}

func (r *ScheduleRepository) putJSON(ctx context.Context, key string, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return apperrors.Store("failed to encode record", err)
	}
	return r.store.Put(ctx, key, value)
}

var _ repository.ScheduleRepository = (*ScheduleRepository)(nil)
