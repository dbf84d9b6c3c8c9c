package kv

import (
	"context"
	"encoding/json"

	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

type NotifyStateRepository struct {
	store repository.KVStore
}

func NewNotifyStateRepository(store repository.KVStore) *NotifyStateRepository {
	return &NotifyStateRepository{store: store}
}

func (r *NotifyStateRepository) Get(ctx context.Context, entryID string, channel model.NotifyChannel, typ model.NotifyType) (*model.NotifyState, error) {
	value, ok, err := r.store.Get(ctx, notifyKey(entryID, channel, typ))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var state model.NotifyState
	if err := json.Unmarshal(value, &state); err != nil {
		return nil, apperrors.Store("corrupt notify state record", err)
	}
	return &state, nil
}

func (r *NotifyStateRepository) Put(ctx context.Context, entryID string, channel model.NotifyChannel, typ model.NotifyType, state *model.NotifyState) error {
	value, err := json.Marshal(state)
	if err != nil {
		return apperrors.Store("failed to encode notify state", err)
	}
	return r.store.Put(ctx, notifyKey(entryID, channel, typ), value)
}

var _ repository.NotifyStateRepository = (*NotifyStateRepository)(nil)
