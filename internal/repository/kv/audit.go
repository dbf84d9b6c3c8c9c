package kv

import (
	"context"
	"encoding/json"

	"github.com/rosterhq/oncall-api/internal/model"
	"github.com/rosterhq/oncall-api/internal/repository"
	apperrors "github.com/rosterhq/oncall-api/pkg/errors"
)

type AuditRepository struct {
	store repository.KVStore
}

func NewAuditRepository(store repository.KVStore) *AuditRepository {
	return &AuditRepository{store: store}
}

func (r *AuditRepository) GetLog(ctx context.Context) ([]model.AuditRecord, error) {
	value, ok, err := r.store.Get(ctx, keyAudit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var records []model.AuditRecord
	if err := json.Unmarshal(value, &records); err != nil {
		return nil, apperrors.Store("corrupt audit log record", err)
	}
	return records, nil
}

func (r *AuditRepository) PutLog(ctx context.Context, records []model.AuditRecord) error {
	value, err := json.Marshal(records)
	if err != nil {
		return apperrors.Store("failed to encode audit log", err)
	}
	return r.store.Put(ctx, keyAudit, value)
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
